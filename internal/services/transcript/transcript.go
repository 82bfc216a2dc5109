// Package transcript records the commands a player entered and the replies
// they received.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Entry is one turn of play.
type Entry struct {
	Command  string    `json:"command"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Transcript stores entries in a Redis list per player.
type Transcript struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// New creates a transcript store. A zero ttl keeps transcripts forever.
func New(rdb *redis.Client, ttl time.Duration) *Transcript {
	return &Transcript{rdb: rdb, ttl: ttl, now: time.Now}
}

func transcriptKey(playerID uuid.UUID) string {
	return fmt.Sprintf("transcript:%s", playerID.String())
}

// Append adds a turn to the end of the player's transcript.
func (t *Transcript) Append(ctx context.Context, playerID uuid.UUID, command, response string) error {
	data, err := json.Marshal(Entry{Command: command, Response: response, At: t.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal transcript entry: %w", err)
	}

	key := transcriptKey(playerID)
	_, err = t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if t.ttl > 0 {
			pipe.Expire(ctx, key, t.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append transcript entry: %w", err)
	}
	return nil
}

// Recent returns up to limit of the latest entries, oldest first.
// A limit of zero or less returns everything.
func (t *Transcript) Recent(ctx context.Context, playerID uuid.UUID, limit int) ([]Entry, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := t.rdb.LRange(ctx, transcriptKey(playerID), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("failed to parse transcript entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Len returns the number of recorded turns.
func (t *Transcript) Len(ctx context.Context, playerID uuid.UUID) (int, error) {
	n, err := t.rdb.LLen(ctx, transcriptKey(playerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get transcript length: %w", err)
	}
	return int(n), nil
}

// Clear removes the player's transcript.
func (t *Transcript) Clear(ctx context.Context, playerID uuid.UUID) error {
	if err := t.rdb.Del(ctx, transcriptKey(playerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}
