// Package gamelock serializes commands for one player across API instances.
package gamelock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another command for the same player holds the lock.
var ErrLocked = errors.New("game is locked by another command")

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Locker hands out per-player locks stored in Redis. A lock expires after ttl
// so a crashed holder cannot wedge a game.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, log: log}
}

func lockKey(playerID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", playerID.String())
}

// Acquire takes the lock for playerID. The returned func releases it and is
// safe to call after the lock has expired.
func (l *Locker) Acquire(ctx context.Context, playerID uuid.UUID) (func(), error) {
	key := lockKey(playerID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire game lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Error("Failed to release game lock", "error", err, "player_id", playerID.String())
		}
	}
	return release, nil
}
