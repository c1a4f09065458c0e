package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversOnlySubscribedKinds(t *testing.T) {
	bus := NewBus()

	authEvents, cleanupAuth := bus.Subscribe(KindSessionExpired)
	defer cleanupAuth()
	all, cleanupAll := bus.Subscribe()
	defer cleanupAll()

	bus.Publish(KindStatusChanged, StatusChanged{Status: "clocked-in", Source: "punch"})
	bus.Publish(KindSessionExpired, SessionExpired{Code: "token_not_valid", Message: "expired"})

	ev := <-authEvents
	assert.Equal(t, KindSessionExpired, ev.Kind)
	payload, ok := ev.Payload.(SessionExpired)
	require.True(t, ok)
	assert.Equal(t, "token_not_valid", payload.Code)
	assert.Empty(t, authEvents)

	first := <-all
	second := <-all
	assert.Equal(t, KindStatusChanged, first.Kind)
	assert.Equal(t, KindSessionExpired, second.Kind)
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	ch, cleanup := bus.Subscribe(KindPunchFailed)
	defer cleanup()

	for i := 0; i < bus.bufferSize*3; i++ {
		bus.Publish(KindPunchFailed, PunchFailed{Reason: "network"})
	}

	assert.Len(t, ch, bus.bufferSize)
}

func TestBus_CleanupUnsubscribesOnce(t *testing.T) {
	bus := NewBus()
	ch, cleanup := bus.Subscribe()
	assert.Equal(t, 1, bus.SubscriberCount())

	cleanup()
	cleanup()

	assert.Equal(t, 0, bus.SubscriberCount())
	_, open := <-ch
	assert.False(t, open)

	// publishing after cleanup must not panic on the closed channel
	bus.Publish(KindLoggedOut, LoggedOut{Reason: "test"})
}
