package memarea

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foyerhq/foyer/internal/ports"
)

func TestArea_RoundTrip(t *testing.T) {
	area := New()
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, "k", "v"))

	got, err := area.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestArea_Get_Missing(t *testing.T) {
	area := New()

	_, err := area.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestArea_Delete_Idempotent(t *testing.T) {
	area := New()
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, "k", "v"))
	require.NoError(t, area.Delete(ctx, "k"))
	require.NoError(t, area.Delete(ctx, "k"))

	_, err := area.Get(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestArea_Watch_SignalsOnWrite(t *testing.T) {
	area := New()
	ctx := context.Background()

	ch, err := area.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, area.Set(ctx, "k", "v"))

	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal after Set")
	}

	require.NoError(t, area.Delete(ctx, "k"))

	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal after Delete")
	}
}

func TestArea_Watch_CoalescesSignals(t *testing.T) {
	area := New()
	ctx := context.Background()

	ch, err := area.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, area.Set(ctx, "a", "1"))
	require.NoError(t, area.Set(ctx, "b", "2"))
	require.NoError(t, area.Set(ctx, "c", "3"))

	<-ch
	select {
	case <-ch:
		t.Fatal("signals should coalesce while undrained")
	default:
	}
}

func TestArea_Watch_StopsAfterCancel(t *testing.T) {
	area := New()
	watchCtx, cancel := context.WithCancel(context.Background())

	ch, err := area.Watch(watchCtx)
	require.NoError(t, err)
	cancel()

	// The first write after cancellation compacts the watcher away.
	require.NoError(t, area.Set(context.Background(), "k", "v"))
	require.NoError(t, area.Set(context.Background(), "k", "v2"))

	select {
	case <-ch:
		t.Fatal("watcher kept receiving after cancel")
	default:
	}
}

func TestArea_ConcurrentWriters(t *testing.T) {
	area := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = area.Set(ctx, "shared", "v")
				_, _ = area.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	got, err := area.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
