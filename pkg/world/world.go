package world

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NormalizeName collapses runs of whitespace in an entity name to single
// spaces and trims the ends. Commands refer to entities by this form.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Room is a location node in the game graph. Rooms are never mutated after creation.
type Room struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Final       bool      `json:"final,omitempty"` // Reaching this room ends the game
}

// Exit is a one-directional edge between two rooms.
// Locked is the only mutable field and only ever goes from true to false.
type Exit struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	FromRoom    uuid.UUID `json:"from_room"`
	ToRoom      uuid.UUID `json:"to_room"`
	Locked      bool      `json:"locked,omitempty"`
}

// Player is a single play-through of a scenario.
type Player struct {
	ID            uuid.UUID `json:"id"`
	CreatedByUser string    `json:"created_by_user,omitempty"` // Opaque external user id
	CurrentRoom   uuid.UUID `json:"currently_in_room"`
}

// ItemKind discriminates what an item unlocks.
type ItemKind string

const (
	KindUnlocksItem ItemKind = "unlocks_item"
	KindUnlocksExit ItemKind = "unlocks_exit"
)

// Valid reports whether k is one of the known item kinds.
func (k ItemKind) Valid() bool {
	return k == KindUnlocksItem || k == KindUnlocksExit
}

var ErrInvalidLocation = errors.New("item must be either in a room or owned by a player")

// ItemLocation is where an item currently lives: in a room or in a player's inventory, never both.
type ItemLocation struct {
	Room   uuid.UUID `json:"in_room,omitempty"`
	Player uuid.UUID `json:"owned_by_player,omitempty"`
}

// InRoom places an item in the given room.
func InRoom(roomID uuid.UUID) ItemLocation {
	return ItemLocation{Room: roomID}
}

// OwnedBy places an item in the given player's inventory.
func OwnedBy(playerID uuid.UUID) ItemLocation {
	return ItemLocation{Player: playerID}
}

// InRoom reports whether the location is a room.
func (l ItemLocation) InRoom() bool {
	return l.Room != uuid.Nil && l.Player == uuid.Nil
}

// Owned reports whether the location is a player's inventory.
func (l ItemLocation) Owned() bool {
	return l.Player != uuid.Nil && l.Room == uuid.Nil
}

// Validate enforces that exactly one of Room and Player is set.
func (l ItemLocation) Validate() error {
	if l.InRoom() || l.Owned() {
		return nil
	}
	return ErrInvalidLocation
}

// Item is a takeable object that is used up when it unlocks its target.
// Kind says whether Unlocks names another item or an exit.
type Item struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	UseMessage  string       `json:"use_message,omitempty"`
	Locked      bool         `json:"locked,omitempty"` // Exists but cannot be taken yet
	Location    ItemLocation `json:"location"`
	Kind        ItemKind     `json:"kind"`
	Unlocks     uuid.UUID    `json:"unlocks"`
}

// NewItemUnlockingItem returns an item that unlocks the item with id target.
func NewItemUnlockingItem(name, description, useMessage string, loc ItemLocation, locked bool, target uuid.UUID) Item {
	return Item{
		Name:        name,
		Description: description,
		UseMessage:  useMessage,
		Locked:      locked,
		Location:    loc,
		Kind:        KindUnlocksItem,
		Unlocks:     target,
	}
}

// NewExitUnlockingItem returns an item that unlocks the exit with id target.
func NewExitUnlockingItem(name, description, useMessage string, loc ItemLocation, locked bool, target uuid.UUID) Item {
	return Item{
		Name:        name,
		Description: description,
		UseMessage:  useMessage,
		Locked:      locked,
		Location:    loc,
		Kind:        KindUnlocksExit,
		Unlocks:     target,
	}
}

// Takeable reports whether the item can be picked up.
func (i Item) Takeable() bool {
	return !i.Locked
}

// Validate checks the item's variant and location.
func (i Item) Validate() error {
	if !i.Kind.Valid() {
		return fmt.Errorf("item %q has unknown kind %q", i.Name, i.Kind)
	}
	if i.Unlocks == uuid.Nil {
		return fmt.Errorf("item %q does not unlock anything", i.Name)
	}
	if err := i.Location.Validate(); err != nil {
		return fmt.Errorf("item %q: %w", i.Name, err)
	}
	return nil
}
