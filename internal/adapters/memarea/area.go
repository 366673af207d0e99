package memarea

// Package memarea provides the process-scoped storage area backing the
// "session" persistence mode. Contents vanish when the process exits.

import (
	"context"
	"sync"

	"github.com/foyerhq/foyer/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.StorageArea = (*Area)(nil)
	_ ports.AreaWatcher = (*Area)(nil)
)

// Area is an in-memory string-keyed storage area, safe for concurrent use.
type Area struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers []watcher
}

type watcher struct {
	ctx context.Context
	ch  chan struct{}
}

// New creates an empty Area.
func New() *Area {
	return &Area{values: make(map[string]string)}
}

// Get returns the value under key, or ports.ErrNotFound when absent.
func (a *Area) Get(_ context.Context, key string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	v, ok := a.values[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return v, nil
}

// Set overwrites the value under key.
func (a *Area) Set(_ context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.values[key] = value
	a.notifyLocked()
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (a *Area) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.values, key)
	a.notifyLocked()
	return nil
}

// Watch emits one signal per write to the area until ctx is done. Signals
// coalesce: a watcher that has not drained its pending signal does not
// receive another.
func (a *Area) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	a.mu.Lock()
	a.watchers = append(a.watchers, watcher{ctx: ctx, ch: ch})
	a.mu.Unlock()

	return ch, nil
}

// notifyLocked fans a change signal out to live watchers and compacts away
// the ones whose context is done. Callers hold the write lock.
func (a *Area) notifyLocked() {
	live := a.watchers[:0]
	for _, w := range a.watchers {
		if w.ctx.Err() != nil {
			continue
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
		live = append(live, w)
	}
	a.watchers = live
}
