package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/redis/go-redis/v9"
)

// Channel returns the Pub/Sub channel carrying a player's game events.
func Channel(playerID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", playerID.String())
}

// Broadcaster publishes engine events to Redis Pub/Sub for SSE distribution.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ engine.Observer = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Observe publishes ev. Failures are logged; a broken event stream never
// fails the turn that produced it.
func (b *Broadcaster) Observe(ctx context.Context, ev engine.Event) {
	_ = b.Publish(ctx, ev)
}

// Publish sends ev to the player's channel.
func (b *Broadcaster) Publish(ctx context.Context, ev engine.Event) error {
	channel := Channel(ev.PlayerID)

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", ev.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", ev.Type,
		"subject", ev.Subject)

	return nil
}
