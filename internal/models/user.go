// Package models defines the session-state data records shared between the
// state manager and the storage backends.
package models

import (
	"time"

	"github.com/dmitrijs2005/sessionstate/internal/common"
)

// User represents an authenticated identity. A User exists if and only if
// the manager is signed in; ID is required and immutable once set.
//
// Timestamps are serialized as RFC 3339 with nanoseconds so they round-trip
// losslessly through every backend.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email,omitempty"`
	Name        string         `json:"name,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	LastLoginAt time.Time      `json:"last_login_at"`
	Preferences map[string]any `json:"preferences,omitempty"`
	CustomData  map[string]any `json:"custom_data,omitempty"`
}

// Validate checks the invariants a User record must satisfy before it may be
// persisted.
func (u *User) Validate() error {
	if u == nil || u.ID == "" {
		return common.ErrInvalidUserData
	}
	return nil
}

// Clone returns a deep copy. The manager hands out only clones so callers
// can never mutate committed state through an accessor.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Preferences = CloneMap(u.Preferences)
	c.CustomData = CloneMap(u.CustomData)
	return &c
}

// ProfileUpdate carries optional profile fields; nil means "leave unchanged".
type ProfileUpdate struct {
	Name      *string
	Email     *string
	AvatarURL *string
}

// Empty reports whether the update would change nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.AvatarURL == nil
}

// Apply merges the provided fields onto u, leaving nil fields untouched.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
}

// CloneMap returns a shallow copy of m (values are shared, the map itself is
// not). A nil map clones to nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// MergeMaps copies every key of src into dst, overwriting existing keys.
// dst may be nil, in which case a new map is allocated.
func MergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
