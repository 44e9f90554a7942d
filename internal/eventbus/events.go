package eventbus

import "github.com/dmitrijs2005/sessionstate/internal/models"

// Event names, used as subscription keys.
const (
	EventUserSignedIn            = "userSignedIn"
	EventUserSignedOut           = "userSignedOut"
	EventOnboardingStatusChanged = "onboardingStatusChanged"
	EventUserDataUpdated         = "userDataUpdated"
	EventUserProfileUpdated      = "userProfileUpdated"
	EventUserDataReset           = "userDataReset"
)

// Event is the closed set of notifications published by the state manager.
// Each kind carries its own typed payload; handlers switch on the concrete
// type rather than poking at untyped argument lists.
type Event interface {
	// Name returns the subscription key for this event kind.
	Name() string
}

// UserSignedIn is published after a sign-in commits.
type UserSignedIn struct {
	User *models.User
}

// UserSignedOut is published after a sign-out completes.
type UserSignedOut struct{}

// OnboardingStatusChanged is published when the onboarding flag flips.
type OnboardingStatusChanged struct {
	Completed bool
}

// UserDataUpdated is published after a user-data merge commits. Changed holds
// only the keys the triggering update supplied, not the full map.
type UserDataUpdated struct {
	Changed map[string]any
}

// UserProfileUpdated is published after a profile update commits.
type UserProfileUpdated struct {
	User *models.User
}

// UserDataReset is published after a full data wipe.
type UserDataReset struct{}

func (UserSignedIn) Name() string            { return EventUserSignedIn }
func (UserSignedOut) Name() string           { return EventUserSignedOut }
func (OnboardingStatusChanged) Name() string { return EventOnboardingStatusChanged }
func (UserDataUpdated) Name() string         { return EventUserDataUpdated }
func (UserProfileUpdated) Name() string      { return EventUserProfileUpdated }
func (UserDataReset) Name() string           { return EventUserDataReset }
