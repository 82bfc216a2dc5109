package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/world"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrPlayerNotInRoom means a player references a room that does not exist.
	ErrPlayerNotInRoom = errors.New("player is not in any room")
	// ErrNoSuchItem means an item row exists without its unlocking sub-record.
	ErrNoSuchItem = errors.New("item has no unlocking record")
)

// GameStore is the persistence contract used by the builder and the engine.
// List queries return entities in creation order.
type GameStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Scenario construction. Returned entities carry their new identity.
	AddRoom(ctx context.Context, room world.Room) (world.Room, error)
	AddExit(ctx context.Context, exit world.Exit) (world.Exit, error)
	AddItemUnlockingItem(ctx context.Context, item world.Item) (world.Item, error)
	AddExitUnlockingItem(ctx context.Context, item world.Item) (world.Item, error)
	AddPlayer(ctx context.Context, player world.Player) (world.Player, error)

	// Queries
	FindPlayer(ctx context.Context, playerID uuid.UUID) (world.Player, error)
	FindRoomOccupiedByPlayer(ctx context.Context, playerID uuid.UUID) (world.Room, error)
	FindExitsFromRoom(ctx context.Context, roomID uuid.UUID) ([]world.Exit, error)
	FindUnlockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error)
	FindLockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error)
	FindItemsOwnedByPlayer(ctx context.Context, playerID uuid.UUID) ([]world.Item, error)
	PlayerInFinalRoom(ctx context.Context, playerID uuid.UUID) (bool, error)

	// Mutations
	MovePlayer(ctx context.Context, playerID, newRoomID uuid.UUID) error
	MoveItemToPlayer(ctx context.Context, itemID, playerID uuid.UUID) error
	UnlockExit(ctx context.Context, exitID uuid.UUID) error
	UnlockItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}
