package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewRedisLock(client, "dispatch:camp-1", time.Minute)
	l2 := NewRedisLock(client, "dispatch:camp-1", time.Minute)

	ok, err := l1.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l2.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, l1.Release(ctx))

	ok, err = l2.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free after release")
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewRedisLock(client, "dispatch:camp-2", time.Minute)
	l2 := NewRedisLock(client, "dispatch:camp-2", time.Minute)

	ok, err := l1.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner release is a no-op.
	require.NoError(t, l2.Release(ctx))

	ok, err = l2.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lock must survive a foreign release")
}

func TestDifferentKeysIndependent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewRedisLock(client, "dispatch:camp-a", time.Minute)
	l2 := NewRedisLock(client, "dispatch:camp-b", time.Minute)

	ok, err := l1.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l2.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
