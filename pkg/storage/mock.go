package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/world"
)

// MockStorage is an in-memory GameStore. It backs unit tests, the validate
// command and the "memory" store backend.
type MockStorage struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]world.Room
	exits     map[uuid.UUID]world.Exit
	items     map[uuid.UUID]world.Item
	players   map[uuid.UUID]world.Player
	exitOrder []uuid.UUID
	itemOrder []uuid.UUID
	pingError error
}

// Ensure MockStorage implements GameStore interface
var _ GameStore = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		rooms:   make(map[uuid.UUID]world.Room),
		exits:   make(map[uuid.UUID]world.Exit),
		items:   make(map[uuid.UUID]world.Item),
		players: make(map[uuid.UUID]world.Player),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) AddRoom(ctx context.Context, room world.Room) (world.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room.ID = uuid.New()
	m.rooms[room.ID] = room
	return room, nil
}

func (m *MockStorage) AddExit(ctx context.Context, exit world.Exit) (world.Exit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[exit.FromRoom]; !ok {
		return world.Exit{}, fmt.Errorf("exit %q from room %s: %w", exit.Name, exit.FromRoom, ErrNotFound)
	}
	if _, ok := m.rooms[exit.ToRoom]; !ok {
		return world.Exit{}, fmt.Errorf("exit %q to room %s: %w", exit.Name, exit.ToRoom, ErrNotFound)
	}
	exit.ID = uuid.New()
	m.exits[exit.ID] = exit
	m.exitOrder = append(m.exitOrder, exit.ID)
	return exit, nil
}

func (m *MockStorage) AddItemUnlockingItem(ctx context.Context, item world.Item) (world.Item, error) {
	if item.Kind != world.KindUnlocksItem {
		return world.Item{}, fmt.Errorf("item %q is not an item-unlocking item", item.Name)
	}
	return m.addItem(item)
}

func (m *MockStorage) AddExitUnlockingItem(ctx context.Context, item world.Item) (world.Item, error) {
	if item.Kind != world.KindUnlocksExit {
		return world.Item{}, fmt.Errorf("item %q is not an exit-unlocking item", item.Name)
	}
	return m.addItem(item)
}

func (m *MockStorage) addItem(item world.Item) (world.Item, error) {
	if err := item.Validate(); err != nil {
		return world.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.Location.InRoom() {
		if _, ok := m.rooms[item.Location.Room]; !ok {
			return world.Item{}, fmt.Errorf("item %q in room %s: %w", item.Name, item.Location.Room, ErrNotFound)
		}
	} else if _, ok := m.players[item.Location.Player]; !ok {
		return world.Item{}, fmt.Errorf("item %q owned by player %s: %w", item.Name, item.Location.Player, ErrNotFound)
	}

	switch item.Kind {
	case world.KindUnlocksItem:
		if _, ok := m.items[item.Unlocks]; !ok {
			return world.Item{}, fmt.Errorf("item %q unlocks item %s: %w", item.Name, item.Unlocks, ErrNotFound)
		}
	case world.KindUnlocksExit:
		if _, ok := m.exits[item.Unlocks]; !ok {
			return world.Item{}, fmt.Errorf("item %q unlocks exit %s: %w", item.Name, item.Unlocks, ErrNotFound)
		}
	}

	item.ID = uuid.New()
	m.items[item.ID] = item
	m.itemOrder = append(m.itemOrder, item.ID)
	return item, nil
}

func (m *MockStorage) AddPlayer(ctx context.Context, player world.Player) (world.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[player.CurrentRoom]; !ok {
		return world.Player{}, fmt.Errorf("player starting room %s: %w", player.CurrentRoom, ErrNotFound)
	}
	player.ID = uuid.New()
	m.players[player.ID] = player
	return player, nil
}

func (m *MockStorage) FindPlayer(ctx context.Context, playerID uuid.UUID) (world.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	player, ok := m.players[playerID]
	if !ok {
		return world.Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return player, nil
}

func (m *MockStorage) FindRoomOccupiedByPlayer(ctx context.Context, playerID uuid.UUID) (world.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	player, ok := m.players[playerID]
	if !ok {
		return world.Room{}, fmt.Errorf("player %s: %w", playerID, ErrPlayerNotInRoom)
	}
	room, ok := m.rooms[player.CurrentRoom]
	if !ok {
		return world.Room{}, fmt.Errorf("player %s in room %s: %w", playerID, player.CurrentRoom, ErrPlayerNotInRoom)
	}
	return room, nil
}

func (m *MockStorage) FindExitsFromRoom(ctx context.Context, roomID uuid.UUID) ([]world.Exit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var exits []world.Exit
	for _, id := range m.exitOrder {
		if exit := m.exits[id]; exit.FromRoom == roomID {
			exits = append(exits, exit)
		}
	}
	return exits, nil
}

func (m *MockStorage) FindUnlockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error) {
	return m.filterItems(func(item world.Item) bool {
		return item.Location.Room == roomID && !item.Locked
	}), nil
}

func (m *MockStorage) FindLockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error) {
	return m.filterItems(func(item world.Item) bool {
		return item.Location.Room == roomID && item.Locked
	}), nil
}

func (m *MockStorage) FindItemsOwnedByPlayer(ctx context.Context, playerID uuid.UUID) ([]world.Item, error) {
	return m.filterItems(func(item world.Item) bool {
		return item.Location.Player == playerID
	}), nil
}

func (m *MockStorage) filterItems(keep func(world.Item) bool) []world.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []world.Item
	for _, id := range m.itemOrder {
		item, ok := m.items[id]
		if ok && keep(item) {
			items = append(items, item)
		}
	}
	return items
}

func (m *MockStorage) PlayerInFinalRoom(ctx context.Context, playerID uuid.UUID) (bool, error) {
	room, err := m.FindRoomOccupiedByPlayer(ctx, playerID)
	if err != nil {
		return false, err
	}
	return room.Final, nil
}

func (m *MockStorage) MovePlayer(ctx context.Context, playerID, newRoomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if _, ok := m.rooms[newRoomID]; !ok {
		return fmt.Errorf("room %s: %w", newRoomID, ErrNotFound)
	}
	player.CurrentRoom = newRoomID
	m.players[playerID] = player
	return nil
}

func (m *MockStorage) MoveItemToPlayer(ctx context.Context, itemID, playerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if _, ok := m.players[playerID]; !ok {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	item.Location = world.OwnedBy(playerID)
	m.items[itemID] = item
	return nil
}

func (m *MockStorage) UnlockExit(ctx context.Context, exitID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exit, ok := m.exits[exitID]
	if !ok {
		return fmt.Errorf("exit %s: %w", exitID, ErrNotFound)
	}
	exit.Locked = false
	m.exits[exitID] = exit
	return nil
}

func (m *MockStorage) UnlockItem(ctx context.Context, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	item.Locked = false
	m.items[itemID] = item
	return nil
}

func (m *MockStorage) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemID)
	return nil
}

// Items returns every live item regardless of location, for tests and
// tooling that check the whole world at once.
func (m *MockStorage) Items() []world.Item {
	return m.filterItems(func(world.Item) bool { return true })
}

// Exit returns the exit with the given id.
func (m *MockStorage) Exit(exitID uuid.UUID) (world.Exit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exit, ok := m.exits[exitID]
	return exit, ok
}

// Room returns the room with the given id.
func (m *MockStorage) Room(roomID uuid.UUID) (world.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	return room, ok
}
