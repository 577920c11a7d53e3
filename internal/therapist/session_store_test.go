package therapist

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, nil)
}

func TestRedisSessionStore_LocationRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	location, err := store.RememberedLocation(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, location)

	require.NoError(t, store.RememberLocation(ctx, "user:1", "Stockholm"))
	location, err = store.RememberedLocation(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, "Stockholm", location)

	// Sessions are isolated from each other.
	other, err := store.RememberedLocation(ctx, "user:2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.ClearLocation(ctx, "user:1"))
	location, err = store.RememberedLocation(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, location)
}

func TestRedisSessionStore_PendingQueryRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	pending, err := store.PendingQuery(ctx, "session:abc")
	require.NoError(t, err)
	assert.Nil(t, pending)

	params := SearchParams{RadiusKM: 10, Specialty: "trauma", Limit: 5}
	require.NoError(t, store.SetPendingQuery(ctx, "session:abc", params))

	pending, err = store.PendingQuery(ctx, "session:abc")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, params, *pending)

	require.NoError(t, store.ClearPendingQuery(ctx, "session:abc"))
	pending, err = store.PendingQuery(ctx, "session:abc")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestMemorySessionStore_MatchesRedisBehavior(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.RememberLocation(ctx, "anon:x", "Lund"))
	location, err := store.RememberedLocation(ctx, "anon:x")
	require.NoError(t, err)
	assert.Equal(t, "Lund", location)

	require.NoError(t, store.SetPendingQuery(ctx, "anon:x", SearchParams{RadiusKM: 25}))
	pending, err := store.PendingQuery(ctx, "anon:x")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, 25, pending.RadiusKM)

	require.NoError(t, store.ClearLocation(ctx, "anon:x"))
	require.NoError(t, store.ClearPendingQuery(ctx, "anon:x"))
	location, _ = store.RememberedLocation(ctx, "anon:x")
	assert.Empty(t, location)
}
