package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sessionstate/internal/models"
)

func TestPublish_InvokesHandlersInRegistrationOrder(t *testing.T) {
	b := New(nil)

	var order []int
	b.Subscribe(EventUserSignedIn, func(Event) { order = append(order, 1) })
	b.Subscribe(EventUserSignedIn, func(Event) { order = append(order, 2) })
	b.Subscribe(EventUserSignedIn, func(Event) { order = append(order, 3) })

	b.Publish(UserSignedIn{User: &models.User{ID: "u1"}})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestPublish_DeliversTypedPayload(t *testing.T) {
	b := New(nil)

	var got *models.User
	b.Subscribe(EventUserSignedIn, func(e Event) {
		ev, ok := e.(UserSignedIn)
		require.True(t, ok)
		got = ev.User
	})

	b.Publish(UserSignedIn{User: &models.User{ID: "u1", Email: "a@b.com"}})

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
}

func TestPublish_OtherEventNamesNotInvoked(t *testing.T) {
	b := New(nil)

	calls := 0
	b.Subscribe(EventUserSignedOut, func(Event) { calls++ })

	b.Publish(UserSignedIn{})
	assert.Zero(t, calls)

	b.Publish(UserSignedOut{})
	assert.Equal(t, 1, calls)
}

func TestPublish_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := New(nil)

	var after bool
	b.Subscribe(EventUserDataReset, func(Event) { panic("boom") })
	b.Subscribe(EventUserDataReset, func(Event) { after = true })

	require.NotPanics(t, func() { b.Publish(UserDataReset{}) })
	assert.True(t, after)
}

func TestUnsubscribe_RemovesExactlyOneRegistration(t *testing.T) {
	b := New(nil)

	var a, c int
	sub := b.Subscribe(EventUserDataUpdated, func(Event) { a++ })
	b.Subscribe(EventUserDataUpdated, func(Event) { c++ })

	sub.Unsubscribe()
	sub.Unsubscribe() // second call is a no-op

	b.Publish(UserDataUpdated{Changed: map[string]any{"k": "v"}})

	assert.Zero(t, a)
	assert.Equal(t, 1, c)
}

func TestUnsubscribeAll_ClearsOneName(t *testing.T) {
	b := New(nil)

	var in, out int
	b.Subscribe(EventUserSignedIn, func(Event) { in++ })
	b.Subscribe(EventUserSignedOut, func(Event) { out++ })

	b.UnsubscribeAll(EventUserSignedIn)
	b.Publish(UserSignedIn{})
	b.Publish(UserSignedOut{})

	assert.Zero(t, in)
	assert.Equal(t, 1, out)
}

func TestReset_ClearsEverything(t *testing.T) {
	b := New(nil)

	calls := 0
	b.Subscribe(EventUserSignedIn, func(Event) { calls++ })
	b.Subscribe(EventUserSignedOut, func(Event) { calls++ })

	b.Reset()
	b.Publish(UserSignedIn{})
	b.Publish(UserSignedOut{})

	assert.Zero(t, calls)
}

func TestSubscribe_DuringPublishDoesNotAffectCurrentDispatch(t *testing.T) {
	b := New(nil)

	lateCalls := 0
	b.Subscribe(EventUserSignedIn, func(Event) {
		b.Subscribe(EventUserSignedIn, func(Event) { lateCalls++ })
	})

	b.Publish(UserSignedIn{})
	assert.Zero(t, lateCalls)

	b.Publish(UserSignedIn{})
	assert.Equal(t, 1, lateCalls)
}
