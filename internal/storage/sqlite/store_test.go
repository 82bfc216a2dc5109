package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/storage/storagetest"
	"github.com/jwebster45206/adventure-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "game.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_GameStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.GameStore {
		return openTempStore(t)
	})
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	f := storagetest.Seed(t, store)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	room, err := store.FindRoomOccupiedByPlayer(ctx, f.Player.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Testing, room)
	assert.NoError(t, store.Ping(ctx))
}

func TestStore_ItemWithoutVariantIsNoSuchItem(t *testing.T) {
	store := openTempStore(t)
	f := storagetest.Seed(t, store)
	ctx := context.Background()

	_, err := store.sqlDB.ExecContext(ctx,
		`INSERT INTO items (id, name, in_room) VALUES (?, ?, ?)`, uuid.New(), "Orphan", f.Testing.ID)
	require.NoError(t, err)

	_, err = store.FindUnlockedItemsInRoom(ctx, f.Testing.ID)
	assert.ErrorIs(t, err, storage.ErrNoSuchItem)
}

func TestStore_ReferentialErrors(t *testing.T) {
	store := openTempStore(t)
	f := storagetest.Seed(t, store)
	ctx := context.Background()

	_, err := store.AddExit(ctx, world.Exit{Name: "Void", FromRoom: uuid.New(), ToRoom: f.Testing.ID})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.AddPlayer(ctx, world.Player{CurrentRoom: uuid.New()})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.AddItemUnlockingItem(ctx, world.NewItemUnlockingItem(
		"Skeleton Key", "", "", world.InRoom(f.Testing.ID), false, uuid.New()))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.AddExitUnlockingItem(ctx, world.NewExitUnlockingItem(
		"Crowbar", "", "", world.InRoom(f.Testing.ID), false, uuid.New()))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.AddExitUnlockingItem(ctx, world.NewItemUnlockingItem(
		"Crowbar", "", "", world.InRoom(f.Testing.ID), false, f.Key.ID))
	assert.Error(t, err)

	assert.ErrorIs(t, store.MovePlayer(ctx, f.Player.ID, uuid.New()), storage.ErrNotFound)
	assert.ErrorIs(t, store.MovePlayer(ctx, uuid.New(), f.Testing.ID), storage.ErrNotFound)
	assert.ErrorIs(t, store.MoveItemToPlayer(ctx, uuid.New(), f.Player.ID), storage.ErrNotFound)
	assert.ErrorIs(t, store.MoveItemToPlayer(ctx, f.Key.ID, uuid.New()), storage.ErrNotFound)
	assert.ErrorIs(t, store.UnlockExit(ctx, uuid.New()), storage.ErrNotFound)
	assert.ErrorIs(t, store.UnlockItem(ctx, uuid.New()), storage.ErrNotFound)
	assert.NoError(t, store.DeleteItem(ctx, uuid.New()))

	// A failed item insert leaves no half-written row behind.
	items, err := store.FindUnlockedItemsInRoom(ctx, f.Testing.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_UsedTargetLeavesKeyIntact(t *testing.T) {
	store := openTempStore(t)
	f := storagetest.Seed(t, store)
	ctx := context.Background()

	require.NoError(t, store.DeleteItem(ctx, f.Report.ID))

	items, err := store.FindUnlockedItemsInRoom(ctx, f.Testing.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, f.Key, items[0])
}
