package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
)

func TestBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	b := newBroadcaster()
	defer b.stopAll()

	first, unsubFirst := b.subscribe()
	second, unsubSecond := b.subscribe()
	defer unsubFirst()
	defer unsubSecond()

	id := domainauth.Identity{UID: "u-1"}
	b.broadcast(domainauth.StateChange{Identity: &id, Authenticated: true})

	got := <-first
	require.NotNil(t, got.Identity)
	assert.Equal(t, "u-1", got.Identity.UID)

	got = <-second
	require.NotNil(t, got.Identity)
	assert.Equal(t, "u-1", got.Identity.UID)
}

func TestBroadcaster_SlowSubscriberGetsNewestState(t *testing.T) {
	b := newBroadcaster()
	defer b.stopAll()

	ch, unsub := b.subscribe()
	defer unsub()

	stale := domainauth.Identity{UID: "stale"}
	newest := domainauth.Identity{UID: "newest"}
	b.broadcast(domainauth.StateChange{Identity: &stale, Authenticated: true})
	b.broadcast(domainauth.StateChange{Identity: &newest, Authenticated: true})

	// The undrained buffer held the stale change; broadcasting replaced
	// it rather than dropping the newer one.
	got := <-ch
	require.NotNil(t, got.Identity)
	assert.Equal(t, "newest", got.Identity.UID)

	select {
	case extra := <-ch:
		t.Fatalf("expected a single buffered change, got %+v", extra)
	default:
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := newBroadcaster()
	defer b.stopAll()

	ch, unsub := b.subscribe()
	b.broadcast(domainauth.StateChange{})
	unsub()
	unsub() // second call is a no-op

	// Buffered changes are drained on unsubscribe so receivers observe
	// the close immediately.
	_, ok := <-ch
	assert.False(t, ok)

	// Broadcasting after an unsubscribe must not panic.
	b.broadcast(domainauth.StateChange{})
}

func TestBroadcaster_StopAll(t *testing.T) {
	b := newBroadcaster()

	first, _ := b.subscribe()
	second, _ := b.subscribe()

	b.stopAll()

	_, ok := <-first
	assert.False(t, ok)
	_, ok = <-second
	assert.False(t, ok)

	// Subscriptions after shutdown come back already closed.
	late, unsub := b.subscribe()
	_, ok = <-late
	assert.False(t, ok)
	unsub()
}
