package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestLock_OwnerIDsAreUnique(t *testing.T) {
	client, _ := setupTestRedis(t)
	assert.NotEqual(t, NewLock(client).OwnerID(), NewLock(client).OwnerID())
}

func TestLock_ExclusiveAcrossInstances(t *testing.T) {
	client, mr := setupTestRedis(t)
	a, b := NewLock(client), NewLock(client)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, "ingest:manuals", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx, "ingest:manuals", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second instance must not acquire a held lock")

	// Non-owner release leaves the lock in place
	require.NoError(t, b.Release(ctx, "ingest:manuals"))
	assert.True(t, mr.Exists(lockPrefix+"ingest:manuals"))

	require.NoError(t, a.Release(ctx, "ingest:manuals"))
	assert.False(t, mr.Exists(lockPrefix+"ingest:manuals"))

	ok, err = b.Acquire(ctx, "ingest:manuals", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_ExpiresWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	a, b := NewLock(client), NewLock(client)
	ctx := context.Background()

	ok, _ := a.Acquire(ctx, "x", time.Second)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err := b.Acquire(ctx, "x", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	a, b := NewLock(client), NewLock(client)
	ctx := context.Background()

	assert.ErrorIs(t, a.Extend(ctx, "x", time.Second), domain.ErrLockNotHeld)

	ok, _ := a.Acquire(ctx, "x", time.Second)
	require.True(t, ok)

	require.NoError(t, a.Extend(ctx, "x", 30*time.Second))
	assert.Greater(t, mr.TTL(lockPrefix+"x"), 10*time.Second)

	assert.ErrorIs(t, b.Extend(ctx, "x", time.Minute), domain.ErrLockNotHeld)
}

func TestLock_ReleaseWhenNotHeld(t *testing.T) {
	client, _ := setupTestRedis(t)
	assert.NoError(t, NewLock(client).Release(context.Background(), "never-taken"))
}

func TestLock_Ping(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewLock(client)

	assert.NoError(t, l.Ping(context.Background()))
	mr.Close()
	assert.Error(t, l.Ping(context.Background()))
}
