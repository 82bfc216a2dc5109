package engine

import (
	"context"
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/world"
)

// action is one legal command together with the entity it acts on.
type action struct {
	Command
	exit *world.Exit
	item *world.Item
}

// turn is everything a single engine call needs, read once from the store.
// The legal action table is derived from it, so a command that passed
// validation always carries its resolved target.
type turn struct {
	room      world.Room
	exits     []world.Exit
	visible   []world.Item // unlocked items lying in the room
	inventory []world.Item

	actions []action
	index   map[string]int // exact command -> action
	folded  map[string]int // case-folded command -> first action with that form
}

func (e *Engine) loadTurn(ctx context.Context) (*turn, error) {
	room, exits, err := e.roomAndExits(ctx)
	if err != nil {
		return nil, err
	}
	visible, err := e.store.FindUnlockedItemsInRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("find items in room %s: %w", room.ID, err)
	}
	inventory, err := e.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	t := &turn{
		room:      room,
		exits:     exits,
		visible:   visible,
		inventory: inventory,
		index:     make(map[string]int),
		folded:    make(map[string]int),
	}
	t.buildActions()
	return t, nil
}

func (t *turn) buildActions() {
	for i := range t.exits {
		t.add(action{Command: Command{Verb: VerbExit, Arg: world.NormalizeName(t.exits[i].Name)}, exit: &t.exits[i]})
	}
	for i := range t.exits {
		t.add(action{Command: Command{Verb: VerbExamine, Arg: world.NormalizeName(t.exits[i].Name)}, exit: &t.exits[i]})
	}
	for i := range t.inventory {
		t.add(action{Command: Command{Verb: VerbExamine, Arg: world.NormalizeName(t.inventory[i].Name)}, item: &t.inventory[i]})
	}
	for i := range t.inventory {
		t.add(action{Command: Command{Verb: VerbUse, Arg: world.NormalizeName(t.inventory[i].Name)}, item: &t.inventory[i]})
	}
	for i := range t.visible {
		t.add(action{Command: Command{Verb: VerbTake, Arg: world.NormalizeName(t.visible[i].Name)}, item: &t.visible[i]})
	}
	t.add(action{Command: Command{Verb: VerbInventory}})
	t.add(action{Command: Command{Verb: VerbHelp}})
}

// add registers a legal action. When two entities share a name the first one wins.
func (t *turn) add(a action) {
	k := a.key()
	if _, exists := t.index[k]; exists {
		return
	}
	t.index[k] = len(t.actions)
	if _, exists := t.folded[a.foldedKey()]; !exists {
		t.folded[a.foldedKey()] = len(t.actions)
	}
	t.actions = append(t.actions, a)
}

// lookup prefers an exact match and falls back to a case-insensitive one.
func (t *turn) lookup(cmd Command) (action, bool) {
	i, ok := t.index[cmd.key()]
	if !ok {
		i, ok = t.folded[cmd.foldedKey()]
	}
	if !ok {
		return action{}, false
	}
	return t.actions[i], true
}

func (t *turn) possibleActions() []string {
	out := make([]string, len(t.actions))
	for i, a := range t.actions {
		out[i] = a.String()
	}
	return out
}
