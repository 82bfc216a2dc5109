package engine

import (
	"context"

	"github.com/google/uuid"
)

// EventType names something that changed in the game.
type EventType string

const (
	EventMoved    EventType = "player.moved"
	EventTaken    EventType = "item.taken"
	EventUnlocked EventType = "item.used"
	EventGameOver EventType = "game.over"
)

// Event describes a state change made by Step.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID uuid.UUID `json:"player_id"`
	Subject  string    `json:"subject,omitempty"` // exit or item acted on
	Target   string    `json:"target,omitempty"`  // what an item unlocked
	FromRoom uuid.UUID `json:"from_room,omitzero"`
	ToRoom   uuid.UUID `json:"to_room,omitzero"`
}

// Observer receives events after the store has been updated.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}

func (e *Engine) notify(ctx context.Context, ev Event) {
	if e.observer == nil {
		return
	}
	ev.PlayerID = e.playerID
	e.observer.Observe(ctx, ev)
}
