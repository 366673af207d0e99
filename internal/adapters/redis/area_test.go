package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foyerhq/foyer/internal/ports"
	"github.com/foyerhq/foyer/internal/testutil"
)

func TestArea_SetAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	area := NewArea(client)
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, "auth.user", `{"uid":"u-1"}`))

	got, err := area.Get(ctx, "auth.user")
	require.NoError(t, err)
	assert.Equal(t, `{"uid":"u-1"}`, got)
}

func TestArea_GetNonExistent(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	area := NewArea(client)

	_, err := area.Get(context.Background(), "non-existent")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestArea_Delete(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	area := NewArea(client)
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, "auth.token", "tok"))
	require.NoError(t, area.Delete(ctx, "auth.token"))

	_, err := area.Get(ctx, "auth.token")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, area.Delete(ctx, "auth.token"))
}

func TestArea_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	area := NewAreaWithPrefix(client, "tenant-a:", 0)
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, "auth.user", "blob"))

	// Stored under the prefixed key.
	assert.True(t, mr.Exists("tenant-a:auth.user"))
	assert.False(t, mr.Exists("auth.user"))

	got, err := area.Get(ctx, "auth.user")
	require.NoError(t, err)
	assert.Equal(t, "blob", got)
}

func TestArea_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	area := NewAreaWithPrefix(client, "foyer:", 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, "auth.user", "blob"))

	mr.FastForward(31 * time.Minute)

	_, err := area.Get(ctx, "auth.user")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestArea_SetEmptyKey(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	area := NewArea(client)

	err := area.Set(context.Background(), "", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key cannot be empty")
}

func TestArea_GetEmptyKey(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	area := NewArea(client)

	_, err := area.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
