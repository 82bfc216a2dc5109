package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gamestore "github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
	"github.com/redis/go-redis/v9"
)

// RedisStorage implements GameStore on Redis. Entities are stored as JSON
// strings; room exits, room items and inventories are sorted sets scored by
// a global sequence so lists come back in creation order.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements GameStore interface
var _ gamestore.GameStore = (*RedisStorage)(nil)

// maxTxRetries bounds optimistic transaction retries on a contended key.
const maxTxRetries = 5

// NewRedisStorage connects to Redis. redisURL may be a redis:// URL or a bare
// host:port address.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	var opt *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: redisURL}
	}
	return NewRedisStorageWithClient(redis.NewClient(opt), logger), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
	}
}

// Client returns the underlying Redis client so event and transcript services
// can share the connection pool.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Keys

const seqKey = "adv:seq"

func roomKey(id uuid.UUID) string        { return "adv:room:" + id.String() }
func roomExitsKey(id uuid.UUID) string   { return "adv:room:" + id.String() + ":exits" }
func roomItemsKey(id uuid.UUID) string   { return "adv:room:" + id.String() + ":items" }
func exitKey(id uuid.UUID) string        { return "adv:exit:" + id.String() }
func itemKey(id uuid.UUID) string        { return "adv:item:" + id.String() }
func playerKey(id uuid.UUID) string      { return "adv:player:" + id.String() }
func playerItemsKey(id uuid.UUID) string { return "adv:player:" + id.String() + ":items" }

func locationKey(loc world.ItemLocation) string {
	if loc.Owned() {
		return playerItemsKey(loc.Player)
	}
	return roomItemsKey(loc.Room)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getJSON loads key into v. It returns gamestore.ErrNotFound for a missing key.
func getJSON(ctx context.Context, c getter, key string, v any) error {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, gamestore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func mustJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) exists(ctx context.Context, key string) error {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, gamestore.ErrNotFound)
	}
	return nil
}

func (r *RedisStorage) nextSeq(ctx context.Context) (float64, error) {
	seq, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	return float64(seq), nil
}

// update runs a read-modify-write on key under WATCH, retrying when another
// client changes the key first. prepare reads through tx and returns the
// writes to queue, or nil to write nothing.
func (r *RedisStorage) update(ctx context.Context, key string, prepare func(tx *redis.Tx) (func(pipe redis.Pipeliner), error)) error {
	txf := func(tx *redis.Tx) error {
		apply, err := prepare(tx)
		if err != nil || apply == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			apply(pipe)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Retrying contended update", "key", key, "attempt", i+1)
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too many concurrent writers", key)
}

// Builder-facing writes

func (r *RedisStorage) AddRoom(ctx context.Context, room world.Room) (world.Room, error) {
	room.ID = uuid.New()
	data, err := mustJSON(room)
	if err != nil {
		return world.Room{}, err
	}
	if err := r.client.Set(ctx, roomKey(room.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save room", "room", room.Name, "error", err)
		return world.Room{}, fmt.Errorf("failed to save room: %w", err)
	}
	return room, nil
}

func (r *RedisStorage) AddExit(ctx context.Context, exit world.Exit) (world.Exit, error) {
	if err := r.exists(ctx, roomKey(exit.FromRoom)); err != nil {
		return world.Exit{}, fmt.Errorf("exit %q from room: %w", exit.Name, err)
	}
	if err := r.exists(ctx, roomKey(exit.ToRoom)); err != nil {
		return world.Exit{}, fmt.Errorf("exit %q to room: %w", exit.Name, err)
	}
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return world.Exit{}, err
	}

	exit.ID = uuid.New()
	data, err := mustJSON(exit)
	if err != nil {
		return world.Exit{}, err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, exitKey(exit.ID), data, 0)
		pipe.ZAdd(ctx, roomExitsKey(exit.FromRoom), redis.Z{Score: seq, Member: exit.ID.String()})
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save exit", "exit", exit.Name, "error", err)
		return world.Exit{}, fmt.Errorf("failed to save exit: %w", err)
	}
	return exit, nil
}

func (r *RedisStorage) AddItemUnlockingItem(ctx context.Context, item world.Item) (world.Item, error) {
	if item.Kind != world.KindUnlocksItem {
		return world.Item{}, fmt.Errorf("item %q is not an item-unlocking item", item.Name)
	}
	if err := r.exists(ctx, itemKey(item.Unlocks)); err != nil {
		return world.Item{}, fmt.Errorf("item %q unlocks item: %w", item.Name, err)
	}
	return r.addItem(ctx, item)
}

func (r *RedisStorage) AddExitUnlockingItem(ctx context.Context, item world.Item) (world.Item, error) {
	if item.Kind != world.KindUnlocksExit {
		return world.Item{}, fmt.Errorf("item %q is not an exit-unlocking item", item.Name)
	}
	if err := r.exists(ctx, exitKey(item.Unlocks)); err != nil {
		return world.Item{}, fmt.Errorf("item %q unlocks exit: %w", item.Name, err)
	}
	return r.addItem(ctx, item)
}

func (r *RedisStorage) addItem(ctx context.Context, item world.Item) (world.Item, error) {
	if err := item.Validate(); err != nil {
		return world.Item{}, err
	}
	owner := roomKey(item.Location.Room)
	if item.Location.Owned() {
		owner = playerKey(item.Location.Player)
	}
	if err := r.exists(ctx, owner); err != nil {
		return world.Item{}, fmt.Errorf("item %q location: %w", item.Name, err)
	}
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return world.Item{}, err
	}

	item.ID = uuid.New()
	data, err := mustJSON(item)
	if err != nil {
		return world.Item{}, err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(item.ID), data, 0)
		pipe.ZAdd(ctx, locationKey(item.Location), redis.Z{Score: seq, Member: item.ID.String()})
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save item", "item", item.Name, "error", err)
		return world.Item{}, fmt.Errorf("failed to save item: %w", err)
	}
	return item, nil
}

func (r *RedisStorage) AddPlayer(ctx context.Context, player world.Player) (world.Player, error) {
	if err := r.exists(ctx, roomKey(player.CurrentRoom)); err != nil {
		return world.Player{}, fmt.Errorf("player starting room: %w", err)
	}
	player.ID = uuid.New()
	data, err := mustJSON(player)
	if err != nil {
		return world.Player{}, err
	}
	if err := r.client.Set(ctx, playerKey(player.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save player", "error", err)
		return world.Player{}, fmt.Errorf("failed to save player: %w", err)
	}
	return player, nil
}

// Queries

func (r *RedisStorage) FindPlayer(ctx context.Context, playerID uuid.UUID) (world.Player, error) {
	var player world.Player
	if err := getJSON(ctx, r.client, playerKey(playerID), &player); err != nil {
		return world.Player{}, err
	}
	return player, nil
}

func (r *RedisStorage) FindRoomOccupiedByPlayer(ctx context.Context, playerID uuid.UUID) (world.Room, error) {
	player, err := r.FindPlayer(ctx, playerID)
	if errors.Is(err, gamestore.ErrNotFound) {
		r.logger.Warn("Player not found", "player_id", playerID)
		return world.Room{}, fmt.Errorf("player %s: %w", playerID, gamestore.ErrPlayerNotInRoom)
	}
	if err != nil {
		return world.Room{}, err
	}

	var room world.Room
	err = getJSON(ctx, r.client, roomKey(player.CurrentRoom), &room)
	if errors.Is(err, gamestore.ErrNotFound) {
		r.logger.Error("Player references missing room", "player_id", playerID, "room_id", player.CurrentRoom)
		return world.Room{}, fmt.Errorf("player %s in room %s: %w", playerID, player.CurrentRoom, gamestore.ErrPlayerNotInRoom)
	}
	if err != nil {
		return world.Room{}, err
	}
	return room, nil
}

func (r *RedisStorage) FindExitsFromRoom(ctx context.Context, roomID uuid.UUID) ([]world.Exit, error) {
	ids, err := r.client.ZRange(ctx, roomExitsKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list exits: %w", err)
	}
	return loadAll[world.Exit](ctx, r.client, ids, exitKey)
}

func (r *RedisStorage) FindUnlockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error) {
	return r.itemsIn(ctx, roomItemsKey(roomID), func(item world.Item) bool { return !item.Locked })
}

func (r *RedisStorage) FindLockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error) {
	return r.itemsIn(ctx, roomItemsKey(roomID), func(item world.Item) bool { return item.Locked })
}

func (r *RedisStorage) FindItemsOwnedByPlayer(ctx context.Context, playerID uuid.UUID) ([]world.Item, error) {
	return r.itemsIn(ctx, playerItemsKey(playerID), func(world.Item) bool { return true })
}

func (r *RedisStorage) itemsIn(ctx context.Context, setKey string, keep func(world.Item) bool) ([]world.Item, error) {
	ids, err := r.client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	all, err := loadAll[world.Item](ctx, r.client, ids, itemKey)
	if err != nil {
		return nil, err
	}
	var items []world.Item
	for _, item := range all {
		if keep(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

// loadAll fetches the JSON entities named by ids in one round trip, keeping
// their order. Ids whose key has gone are skipped.
func loadAll[T any](ctx context.Context, c *redis.Client, ids []string, key func(uuid.UUID) string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("corrupt member %q: %w", s, err)
		}
		keys = append(keys, key(id))
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	out := make([]T, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entity T
		if err := json.Unmarshal([]byte(s), &entity); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", keys[i], err)
		}
		out = append(out, entity)
	}
	return out, nil
}

func (r *RedisStorage) PlayerInFinalRoom(ctx context.Context, playerID uuid.UUID) (bool, error) {
	room, err := r.FindRoomOccupiedByPlayer(ctx, playerID)
	if err != nil {
		return false, err
	}
	return room.Final, nil
}

// Engine-facing mutations

func (r *RedisStorage) MovePlayer(ctx context.Context, playerID, newRoomID uuid.UUID) error {
	if err := r.exists(ctx, roomKey(newRoomID)); err != nil {
		return fmt.Errorf("move player %s: %w", playerID, err)
	}
	key := playerKey(playerID)
	return r.update(ctx, key, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		var player world.Player
		if err := getJSON(ctx, tx, key, &player); err != nil {
			return nil, err
		}
		player.CurrentRoom = newRoomID
		data, err := mustJSON(player)
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) {
			pipe.Set(ctx, key, data, 0)
		}, nil
	})
}

func (r *RedisStorage) MoveItemToPlayer(ctx context.Context, itemID, playerID uuid.UUID) error {
	if err := r.exists(ctx, playerKey(playerID)); err != nil {
		return fmt.Errorf("move item %s: %w", itemID, err)
	}
	key := itemKey(itemID)
	return r.update(ctx, key, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		var item world.Item
		if err := getJSON(ctx, tx, key, &item); err != nil {
			return nil, err
		}
		from := locationKey(item.Location)
		// Keep the creation-order score so inventories list like rooms do.
		score, err := tx.ZScore(ctx, from, itemID.String()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to read item position: %w", err)
		}

		item.Location = world.OwnedBy(playerID)
		data, err := mustJSON(item)
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) {
			pipe.Set(ctx, key, data, 0)
			pipe.ZRem(ctx, from, itemID.String())
			pipe.ZAdd(ctx, playerItemsKey(playerID), redis.Z{Score: score, Member: itemID.String()})
		}, nil
	})
}

func (r *RedisStorage) UnlockExit(ctx context.Context, exitID uuid.UUID) error {
	key := exitKey(exitID)
	return r.update(ctx, key, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		var exit world.Exit
		if err := getJSON(ctx, tx, key, &exit); err != nil {
			return nil, err
		}
		if !exit.Locked {
			return nil, nil
		}
		exit.Locked = false
		data, err := mustJSON(exit)
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) {
			pipe.Set(ctx, key, data, 0)
		}, nil
	})
}

func (r *RedisStorage) UnlockItem(ctx context.Context, itemID uuid.UUID) error {
	key := itemKey(itemID)
	return r.update(ctx, key, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		var item world.Item
		if err := getJSON(ctx, tx, key, &item); err != nil {
			return nil, err
		}
		if !item.Locked {
			return nil, nil
		}
		item.Locked = false
		data, err := mustJSON(item)
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) {
			pipe.Set(ctx, key, data, 0)
		}, nil
	})
}

func (r *RedisStorage) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	key := itemKey(itemID)
	return r.update(ctx, key, func(tx *redis.Tx) (func(redis.Pipeliner), error) {
		var item world.Item
		err := getJSON(ctx, tx, key, &item)
		if errors.Is(err, gamestore.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return func(pipe redis.Pipeliner) {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, locationKey(item.Location), itemID.String())
		}, nil
	})
}
