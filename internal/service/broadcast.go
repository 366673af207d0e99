package service

import (
	"sync"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
)

// broadcaster fans authentication state changes out to any number of
// subscribers. Each subscriber gets a buffered channel; a subscriber that
// stops draining misses events rather than blocking the sender.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[chan domainauth.StateChange]struct{}
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[chan domainauth.StateChange]struct{}),
	}
}

// subscribe registers a new listener and returns its channel plus an
// unsubscribe func. Unsubscribing closes the channel; unsubscribing twice
// is safe.
func (b *broadcaster) subscribe() (<-chan domainauth.StateChange, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domainauth.StateChange, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		drainAndClose(ch)
	}

	return ch, unsub
}

// broadcast delivers change to every subscriber without blocking. A full
// subscriber buffer is drained first so the newest state always lands.
func (b *broadcaster) broadcast(change domainauth.StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- change:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
}

// stopAll closes every subscriber channel and rejects further subscriptions.
func (b *broadcaster) stopAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch := range b.subs {
		drainAndClose(ch)
		delete(b.subs, ch)
	}
}

// drainAndClose removes any buffered change before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan domainauth.StateChange) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}
