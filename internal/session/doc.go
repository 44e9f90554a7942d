// Package session implements the user/session state manager: the single
// authoritative in-memory holder of the current user, the onboarding flag,
// the user-data map, and the session token.
//
// The manager orchestrates every mutation (sign-in/out, onboarding
// completion, data merges, profile updates, full reset), writes through to a
// pluggable storage backend, and fans committed changes out to dependent
// subsystems: the event bus for UI observers, the attribution sink, the
// engagement-campaign trigger, and the request-auth sink.
//
// Mutations are atomic with respect to persistence: if the write to storage
// fails, in-memory state is left untouched and the error propagates. Adapter
// failures are only ever logged.
package session
