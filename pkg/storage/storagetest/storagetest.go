// Package storagetest holds a behavioural test suite shared by every GameStore implementation.
package storagetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture is a small two-room world used by the suite.
type Fixture struct {
	Testing    world.Room
	Production world.Room
	North      world.Exit
	South      world.Exit
	Report     world.Item // unlocks North, locked
	Key        world.Item // unlocks Report
	Player     world.Player
}

// Seed persists the fixture world into store.
func Seed(t *testing.T, store storage.GameStore) Fixture {
	t.Helper()
	ctx := context.Background()
	var f Fixture
	var err error

	f.Testing, err = store.AddRoom(ctx, world.Room{Name: "the testing room", Description: "Tests everywhere."})
	require.NoError(t, err)
	f.Production, err = store.AddRoom(ctx, world.Room{Name: "the production room", Description: "Servers.", Final: true})
	require.NoError(t, err)

	f.North, err = store.AddExit(ctx, world.Exit{Name: "North", Description: "The north exit", FromRoom: f.Testing.ID, ToRoom: f.Production.ID, Locked: true})
	require.NoError(t, err)
	f.South, err = store.AddExit(ctx, world.Exit{Name: "South", Description: "The south exit", FromRoom: f.Production.ID, ToRoom: f.Testing.ID})
	require.NoError(t, err)

	f.Report, err = store.AddExitUnlockingItem(ctx, world.NewExitUnlockingItem(
		"TPS Report", "A report", "The guard falls asleep.", world.InRoom(f.Testing.ID), true, f.North.ID))
	require.NoError(t, err)
	f.Key, err = store.AddItemUnlockingItem(ctx, world.NewItemUnlockingItem(
		"Drawer Key", "An old metal key", "You put the key in the lock.", world.InRoom(f.Testing.ID), false, f.Report.ID))
	require.NoError(t, err)

	f.Player, err = store.AddPlayer(ctx, world.Player{CreatedByUser: "user-1", CurrentRoom: f.Testing.ID})
	require.NoError(t, err)
	return f
}

// Run exercises the GameStore contract against stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.GameStore) {
	t.Run("add assigns identities", func(t *testing.T) {
		f := Seed(t, newStore(t))
		for _, id := range []uuid.UUID{f.Testing.ID, f.Production.ID, f.North.ID, f.South.ID, f.Report.ID, f.Key.ID, f.Player.ID} {
			assert.NotEqual(t, uuid.Nil, id)
		}
		assert.Equal(t, world.KindUnlocksExit, f.Report.Kind)
		assert.Equal(t, world.KindUnlocksItem, f.Key.Kind)
		assert.Equal(t, f.Report.ID, f.Key.Unlocks)
	})

	t.Run("find room occupied by player", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		room, err := store.FindRoomOccupiedByPlayer(ctx, f.Player.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Testing, room)

		_, err = store.FindRoomOccupiedByPlayer(ctx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrPlayerNotInRoom)
	})

	t.Run("find player", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		player, err := store.FindPlayer(ctx, f.Player.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Player, player)

		_, err = store.FindPlayer(ctx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("exits from room in creation order", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		west, err := store.AddExit(ctx, world.Exit{Name: "West", FromRoom: f.Testing.ID, ToRoom: f.Testing.ID})
		require.NoError(t, err)

		exits, err := store.FindExitsFromRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		require.Len(t, exits, 2)
		assert.Equal(t, f.North, exits[0])
		assert.Equal(t, west, exits[1])

		exits, err = store.FindExitsFromRoom(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, exits)
	})

	t.Run("locked and unlocked items", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		unlocked, err := store.FindUnlockedItemsInRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		require.Len(t, unlocked, 1)
		assert.Equal(t, f.Key, unlocked[0])

		locked, err := store.FindLockedItemsInRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		require.Len(t, locked, 1)
		assert.Equal(t, f.Report, locked[0])

		require.NoError(t, store.UnlockItem(ctx, f.Report.ID))

		locked, err = store.FindLockedItemsInRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		assert.Empty(t, locked)

		unlocked, err = store.FindUnlockedItemsInRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		require.Len(t, unlocked, 2)
		assert.Equal(t, "TPS Report", unlocked[0].Name)
		assert.False(t, unlocked[0].Locked)
	})

	t.Run("move item to player", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		require.NoError(t, store.MoveItemToPlayer(ctx, f.Key.ID, f.Player.ID))

		inventory, err := store.FindItemsOwnedByPlayer(ctx, f.Player.ID)
		require.NoError(t, err)
		require.Len(t, inventory, 1)
		assert.Equal(t, f.Key.ID, inventory[0].ID)
		assert.True(t, inventory[0].Location.Owned())
		assert.Equal(t, world.KindUnlocksItem, inventory[0].Kind)
		assert.Equal(t, f.Report.ID, inventory[0].Unlocks)

		unlocked, err := store.FindUnlockedItemsInRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		assert.Empty(t, unlocked)
	})

	t.Run("delete item", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		require.NoError(t, store.MoveItemToPlayer(ctx, f.Key.ID, f.Player.ID))
		require.NoError(t, store.DeleteItem(ctx, f.Key.ID))

		inventory, err := store.FindItemsOwnedByPlayer(ctx, f.Player.ID)
		require.NoError(t, err)
		assert.Empty(t, inventory)

		require.NoError(t, store.DeleteItem(ctx, f.Report.ID))
		locked, err := store.FindLockedItemsInRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		assert.Empty(t, locked)
	})

	t.Run("unlock exit", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		require.NoError(t, store.UnlockExit(ctx, f.North.ID))
		exits, err := store.FindExitsFromRoom(ctx, f.Testing.ID)
		require.NoError(t, err)
		require.Len(t, exits, 1)
		assert.False(t, exits[0].Locked)
	})

	t.Run("move player and final room", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		ctx := context.Background()

		final, err := store.PlayerInFinalRoom(ctx, f.Player.ID)
		require.NoError(t, err)
		assert.False(t, final)

		require.NoError(t, store.MovePlayer(ctx, f.Player.ID, f.Production.ID))

		room, err := store.FindRoomOccupiedByPlayer(ctx, f.Player.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Production.ID, room.ID)

		final, err = store.PlayerInFinalRoom(ctx, f.Player.ID)
		require.NoError(t, err)
		assert.True(t, final)
	})

	t.Run("final room of unknown player is an integrity error", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		_, err := store.PlayerInFinalRoom(context.Background(), uuid.New())
		assert.ErrorIs(t, err, storage.ErrPlayerNotInRoom)
	})

	t.Run("add exit requires existing rooms", func(t *testing.T) {
		store := newStore(t)
		f := Seed(t, store)
		_, err := store.AddExit(context.Background(), world.Exit{Name: "Nowhere", FromRoom: f.Testing.ID, ToRoom: uuid.New()})
		assert.Error(t, err)
	})

	t.Run("add player requires existing room", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AddPlayer(context.Background(), world.Player{CurrentRoom: uuid.New()})
		assert.Error(t, err)
	})
}
