package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/storage/storagetest"
	"github.com/jwebster45206/adventure-engine/pkg/world"
	"github.com/stretchr/testify/assert"
)

func TestMockStorage_GameStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.GameStore {
		return storage.NewMockStorage()
	})
}

func TestMockStorage_Ping(t *testing.T) {
	m := storage.NewMockStorage()
	ctx := context.Background()

	assert.NoError(t, m.Ping(ctx))

	m.SetPingError(errors.New("down"))
	assert.EqualError(t, m.Ping(ctx), "down")

	m.SetPingSuccess()
	assert.NoError(t, m.Ping(ctx))
}

func TestMockStorage_RejectsWrongVariant(t *testing.T) {
	m := storage.NewMockStorage()
	ctx := context.Background()
	room, _ := m.AddRoom(ctx, world.Room{Name: "hall"})

	item := world.NewItemUnlockingItem("Key", "", "", world.InRoom(room.ID), false, uuid.New())
	_, err := m.AddExitUnlockingItem(ctx, item)
	assert.Error(t, err)

	_, err = m.AddItemUnlockingItem(ctx, item)
	assert.ErrorIs(t, err, storage.ErrNotFound, "target item does not exist")
}

func TestMockStorage_FindRoomForDanglingPlayer(t *testing.T) {
	m := storage.NewMockStorage()
	ctx := context.Background()

	_, err := m.FindRoomOccupiedByPlayer(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrPlayerNotInRoom)

	_, err = m.PlayerInFinalRoom(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrPlayerNotInRoom)
}
