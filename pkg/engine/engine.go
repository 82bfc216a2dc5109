// Package engine interprets player commands against a persisted game.
//
// An Engine holds no game state of its own. Every call re-reads what it needs
// from the store, so an Engine can be created per request.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
)

// Replies for input that is not a legal action.
var confusedReplies = []string{
	"I don't understand that.",
	"Sorry, I didn't catch that. Type help to see what you can do.",
	"Huh? Try help for a list of things you can do.",
}

const (
	notCarriedReply = "You don't have one of those."
	notHereReply    = "There isn't one of those here."
)

// Engine advances one player's game.
type Engine struct {
	store    storage.GameStore
	playerID uuid.UUID
	logger   *slog.Logger
	observer Observer
	rng      *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver registers an observer for game events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRand sets the random source used to vary replies to unknown input.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// New creates an engine for the given player.
func New(store storage.GameStore, playerID uuid.UUID, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		playerID: playerID,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("player_id", playerID.String())
	return e
}

// PlayerID returns the player this engine drives.
func (e *Engine) PlayerID() uuid.UUID {
	return e.playerID
}

// roomAndExits returns the player's current room and the exits leading out of it.
func (e *Engine) roomAndExits(ctx context.Context) (world.Room, []world.Exit, error) {
	room, err := e.store.FindRoomOccupiedByPlayer(ctx, e.playerID)
	if err != nil {
		return world.Room{}, nil, fmt.Errorf("find room for player %s: %w", e.playerID, err)
	}
	exits, err := e.store.FindExitsFromRoom(ctx, room.ID)
	if err != nil {
		return world.Room{}, nil, fmt.Errorf("find exits from room %s: %w", room.ID, err)
	}
	return room, exits, nil
}

// Inventory returns the items the player carries.
func (e *Engine) Inventory(ctx context.Context) ([]world.Item, error) {
	items, err := e.store.FindItemsOwnedByPlayer(ctx, e.playerID)
	if err != nil {
		return nil, fmt.Errorf("find inventory for player %s: %w", e.playerID, err)
	}
	return items, nil
}

// Prompt describes the player's surroundings: the room, the items that can be
// taken and the exits.
func (e *Engine) Prompt(ctx context.Context) (string, error) {
	room, exits, err := e.roomAndExits(ctx)
	if err != nil {
		return "", err
	}
	items, err := e.store.FindUnlockedItemsInRoom(ctx, room.ID)
	if err != nil {
		return "", fmt.Errorf("find items in room %s: %w", room.ID, err)
	}
	return describeRoom(room, exits, items), nil
}

// PossibleActions lists every command that is legal right now.
func (e *Engine) PossibleActions(ctx context.Context) ([]string, error) {
	t, err := e.loadTurn(ctx)
	if err != nil {
		return nil, err
	}
	return t.possibleActions(), nil
}

// GameIsOver reports whether the player has reached a final room.
func (e *Engine) GameIsOver(ctx context.Context) (bool, error) {
	over, err := e.store.PlayerInFinalRoom(ctx, e.playerID)
	if err != nil {
		return false, fmt.Errorf("check final room for player %s: %w", e.playerID, err)
	}
	return over, nil
}

// Step performs one player command and returns the text to show the player.
// Input that is not a legal action produces a friendly reply and changes
// nothing. Errors are reserved for storage failures and inconsistent data.
func (e *Engine) Step(ctx context.Context, input string) (string, error) {
	t, err := e.loadTurn(ctx)
	if err != nil {
		return "", err
	}

	cmd := ParseCommand(input)
	a, ok := t.lookup(cmd)
	if !ok {
		e.logger.Debug("Rejected command", "input", input, "verb", cmd.Verb)
		return e.reject(cmd), nil
	}
	e.logger.Debug("Performing action", "action", a.String())

	switch a.Verb {
	case VerbExit:
		return e.goThrough(ctx, t, *a.exit)
	case VerbUse:
		return e.use(ctx, t, *a.item)
	case VerbExamine:
		if a.exit != nil {
			return describeEntity(a.exit.Name, a.exit.Description), nil
		}
		return describeEntity(a.item.Name, a.item.Description), nil
	case VerbTake:
		return e.take(ctx, t, *a.item)
	case VerbInventory:
		return describeInventory(t.inventory), nil
	case VerbHelp:
		return describeHelp(t.possibleActions()), nil
	default:
		return "", fmt.Errorf("no handler for action %q", a.String())
	}
}

func (e *Engine) reject(cmd Command) string {
	switch cmd.Verb {
	case VerbUse, VerbExamine:
		return notCarriedReply
	case VerbTake:
		return notHereReply
	}
	if e.rng != nil {
		return confusedReplies[e.rng.IntN(len(confusedReplies))]
	}
	return confusedReplies[rand.IntN(len(confusedReplies))]
}

func (e *Engine) goThrough(ctx context.Context, t *turn, exit world.Exit) (string, error) {
	if exit.Locked {
		return fmt.Sprintf("The exit %s is locked.", exit.Name), nil
	}
	if err := e.store.MovePlayer(ctx, e.playerID, exit.ToRoom); err != nil {
		return "", fmt.Errorf("move player through %q: %w", exit.Name, err)
	}
	e.notify(ctx, Event{Type: EventMoved, Subject: exit.Name, FromRoom: t.room.ID, ToRoom: exit.ToRoom})

	prompt, err := e.Prompt(ctx)
	if err != nil {
		return "", err
	}
	over, err := e.GameIsOver(ctx)
	if err != nil {
		return "", err
	}
	if over {
		e.notify(ctx, Event{Type: EventGameOver, ToRoom: exit.ToRoom})
	}
	return fmt.Sprintf("You go through %s.\n\n%s", exit.Name, prompt), nil
}

func (e *Engine) take(ctx context.Context, t *turn, item world.Item) (string, error) {
	if err := e.store.MoveItemToPlayer(ctx, item.ID, e.playerID); err != nil {
		return "", fmt.Errorf("take %q: %w", item.Name, err)
	}
	e.notify(ctx, Event{Type: EventTaken, Subject: item.Name, FromRoom: t.room.ID})
	return fmt.Sprintf("You take the %s.", item.Name), nil
}

// use tries to unlock the item's target in the current room. The item is
// consumed only when something was unlocked.
func (e *Engine) use(ctx context.Context, t *turn, item world.Item) (string, error) {
	switch item.Kind {
	case world.KindUnlocksItem:
		locked, err := e.store.FindLockedItemsInRoom(ctx, t.room.ID)
		if err != nil {
			return "", fmt.Errorf("find locked items in room %s: %w", t.room.ID, err)
		}
		for _, target := range locked {
			if target.ID != item.Unlocks {
				continue
			}
			if err := e.store.UnlockItem(ctx, target.ID); err != nil {
				return "", fmt.Errorf("unlock item %q: %w", target.Name, err)
			}
			if err := e.consume(ctx, item, target.Name); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s\nThe %s can now be taken.", item.UseMessage, target.Name), nil
		}

	case world.KindUnlocksExit:
		for _, exit := range t.exits {
			if exit.ID != item.Unlocks || !exit.Locked {
				continue
			}
			if err := e.store.UnlockExit(ctx, exit.ID); err != nil {
				return "", fmt.Errorf("unlock exit %q: %w", exit.Name, err)
			}
			if err := e.consume(ctx, item, exit.Name); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s\nThe exit %s is now unlocked.", item.UseMessage, exit.Name), nil
		}

	default:
		return "", fmt.Errorf("item %q has kind %q: %w", item.Name, item.Kind, storage.ErrNoSuchItem)
	}

	return fmt.Sprintf("Using %s didn't do anything.", item.Name), nil
}

func (e *Engine) consume(ctx context.Context, item world.Item, target string) error {
	if err := e.store.DeleteItem(ctx, item.ID); err != nil {
		return fmt.Errorf("consume %q: %w", item.Name, err)
	}
	e.notify(ctx, Event{Type: EventUnlocked, Subject: item.Name, Target: target})
	return nil
}

func describeRoom(room world.Room, exits []world.Exit, items []world.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are in %s.\n", room.Name)
	if room.Description != "" {
		b.WriteString(strings.TrimSpace(room.Description))
		b.WriteString("\n")
	}
	if len(items) > 0 {
		names := make([]string, len(items))
		for i, item := range items {
			names[i] = item.Name
		}
		fmt.Fprintf(&b, "You see: %s.\n", strings.Join(names, ", "))
	}
	if len(exits) == 0 {
		b.WriteString("There are no exits.")
	} else {
		names := make([]string, len(exits))
		for i, exit := range exits {
			names[i] = exit.Name
		}
		fmt.Fprintf(&b, "Exits: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

func describeEntity(name, description string) string {
	if strings.TrimSpace(description) == "" {
		return fmt.Sprintf("You see nothing special about the %s.", name)
	}
	return strings.TrimSpace(description)
}

func describeInventory(items []world.Item) string {
	if len(items) == 0 {
		return "You don't have any items."
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return "You have:\n- " + strings.Join(names, "\n- ")
}

func describeHelp(actions []string) string {
	return "You can:\n- " + strings.Join(actions, "\n- ")
}
