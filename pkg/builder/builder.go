// Package builder turns declarative scenario statements into persisted game data.
//
// Statements are applied in order and each one is persisted immediately, so
// rooms must be declared before the exits and items that reference them, and
// an item's unlock target must be declared before the item itself:
//
//	playerID, err := builder.New(ctx, store).
//		ForUser("user-1").
//		Room(builder.RoomSpec{Name: "hall", Description: "A long hall."}).
//		Room(builder.RoomSpec{Name: "vault", Description: "Gold.", Final: true}).
//		Exit(builder.ExitSpec{Name: "Door", From: "hall", To: "vault", Locked: true}).
//		Item(builder.ItemSpec{Name: "Key", InRoom: "hall", Unlocks: "Door"}).
//		StartIn("hall").
//		Build()
package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
)

// ErrInvalidBuildSpecification marks scenario authoring mistakes: references to
// undeclared names, reused names or a missing starting room.
var ErrInvalidBuildSpecification = errors.New("invalid build specification")

// RoomSpec declares a room.
type RoomSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Final       bool   `json:"final,omitempty" yaml:"final,omitempty"`
}

// ExitSpec declares a one-way exit between two previously declared rooms.
type ExitSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Locked      bool   `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// ItemSpec declares an item. Unlocks names a previously declared exit or item;
// exits are searched first.
type ItemSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	UseMessage  string `json:"use_message" yaml:"use_message"`
	InRoom      string `json:"in_room" yaml:"in_room"`
	Unlocks     string `json:"unlocks" yaml:"unlocks"`
	Locked      bool   `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// Builder is a fluent scenario constructor. The first error stops the build:
// later calls do nothing and Build reports it.
type Builder struct {
	ctx   context.Context
	store storage.GameStore

	rooms *symbolTable
	exits *symbolTable
	items *symbolTable

	user  string
	start uuid.UUID
	err   error
}

// New creates a builder that persists through store.
func New(ctx context.Context, store storage.GameStore) *Builder {
	return &Builder{
		ctx:   ctx,
		store: store,
		rooms: newSymbolTable("room"),
		exits: newSymbolTable("exit"),
		items: newSymbolTable("item"),
	}
}

// ForUser records the external user that owns the resulting player.
func (b *Builder) ForUser(userID string) *Builder {
	if b.err != nil {
		return b
	}
	b.user = userID
	return b
}

// Room declares a room.
func (b *Builder) Room(spec RoomSpec) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.rooms.reserve(spec.Name); err != nil {
		return b.fail(err)
	}

	room, err := b.store.AddRoom(b.ctx, world.Room{
		Name:        spec.Name,
		Description: spec.Description,
		Final:       spec.Final,
	})
	if err != nil {
		return b.fail(fmt.Errorf("add room %q: %w", spec.Name, err))
	}
	return b.bind(b.rooms, spec.Name, room.ID)
}

// Exit declares an exit from one declared room to another.
func (b *Builder) Exit(spec ExitSpec) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.exits.reserve(spec.Name); err != nil {
		return b.fail(err)
	}
	from, err := b.rooms.resolve(spec.From)
	if err != nil {
		return b.fail(fmt.Errorf("exit %q: %w", spec.Name, err))
	}
	to, err := b.rooms.resolve(spec.To)
	if err != nil {
		return b.fail(fmt.Errorf("exit %q: %w", spec.Name, err))
	}

	exit, err := b.store.AddExit(b.ctx, world.Exit{
		Name:        spec.Name,
		Description: spec.Description,
		FromRoom:    from,
		ToRoom:      to,
		Locked:      spec.Locked,
	})
	if err != nil {
		return b.fail(fmt.Errorf("add exit %q: %w", spec.Name, err))
	}
	return b.bind(b.exits, spec.Name, exit.ID)
}

// Item declares an item lying in a declared room. The item's variant follows
// from what Unlocks resolves to.
func (b *Builder) Item(spec ItemSpec) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.items.reserve(spec.Name); err != nil {
		return b.fail(err)
	}
	roomID, err := b.rooms.resolve(spec.InRoom)
	if err != nil {
		return b.fail(fmt.Errorf("item %q: %w", spec.Name, err))
	}
	loc := world.InRoom(roomID)

	var item world.Item
	if exitID, ok := b.exits.lookup(spec.Unlocks); ok {
		item, err = b.store.AddExitUnlockingItem(b.ctx, world.NewExitUnlockingItem(
			spec.Name, spec.Description, spec.UseMessage, loc, spec.Locked, exitID))
	} else if itemID, ok := b.items.lookup(spec.Unlocks); ok {
		item, err = b.store.AddItemUnlockingItem(b.ctx, world.NewItemUnlockingItem(
			spec.Name, spec.Description, spec.UseMessage, loc, spec.Locked, itemID))
	} else {
		return b.fail(fmt.Errorf("%w: item %q unlocks %q, which is neither a declared exit nor item",
			ErrInvalidBuildSpecification, spec.Name, spec.Unlocks))
	}
	if err != nil {
		return b.fail(fmt.Errorf("add item %q: %w", spec.Name, err))
	}
	return b.bind(b.items, spec.Name, item.ID)
}

// StartIn names the room the player begins in.
func (b *Builder) StartIn(roomName string) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.rooms.resolve(roomName)
	if err != nil {
		return b.fail(fmt.Errorf("start room: %w", err))
	}
	b.start = id
	return b
}

// Build creates the player and returns its id. Future queries reach the game
// state through that id.
func (b *Builder) Build() (uuid.UUID, error) {
	if b.err != nil {
		return uuid.Nil, b.err
	}
	if b.start == uuid.Nil {
		b.err = fmt.Errorf("%w: no starting room, call StartIn before Build", ErrInvalidBuildSpecification)
		return uuid.Nil, b.err
	}

	player, err := b.store.AddPlayer(b.ctx, world.Player{
		CreatedByUser: b.user,
		CurrentRoom:   b.start,
	})
	if err != nil {
		b.err = fmt.Errorf("add player: %w", err)
		return uuid.Nil, b.err
	}
	return player.ID, nil
}

// Err returns the first error encountered, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) bind(table *symbolTable, name string, id uuid.UUID) *Builder {
	if err := table.bind(name, id); err != nil {
		return b.fail(err)
	}
	return b
}

func (b *Builder) fail(err error) *Builder {
	b.err = err
	return b
}
