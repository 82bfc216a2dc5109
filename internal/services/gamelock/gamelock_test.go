package gamelock

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 30*time.Second, slog.New(slog.DiscardHandler)), mr
}

func TestLocker_AcquireRelease(t *testing.T) {
	l, mr := setupLocker(t)
	ctx := context.Background()
	playerID := uuid.New()

	release, err := l.Acquire(ctx, playerID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockKey(playerID)))
	assert.Equal(t, 30*time.Second, mr.TTL(lockKey(playerID)))

	_, err = l.Acquire(ctx, playerID)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists(lockKey(playerID)))

	release, err = l.Acquire(ctx, playerID)
	require.NoError(t, err)
	release()
}

func TestLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	l, mr := setupLocker(t)
	ctx := context.Background()
	playerID := uuid.New()

	stale, err := l.Acquire(ctx, playerID)
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	fresh, err := l.Acquire(ctx, playerID)
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(lockKey(playerID)), "stale release must not drop the new holder's lock")

	fresh()
	assert.False(t, mr.Exists(lockKey(playerID)))
}

func TestLocker_ReleaseAfterCancel(t *testing.T) {
	l, mr := setupLocker(t)
	ctx, cancel := context.WithCancel(context.Background())
	playerID := uuid.New()

	release, err := l.Acquire(ctx, playerID)
	require.NoError(t, err)
	cancel()
	release()
	assert.False(t, mr.Exists(lockKey(playerID)))
}

func TestLocker_RedisDown(t *testing.T) {
	l, mr := setupLocker(t)
	mr.Close()

	_, err := l.Acquire(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}
