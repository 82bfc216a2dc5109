package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/scenario"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
)

// ScenarioValidator builds a scenario into a throwaway store and checks that
// the final room can be reached.
type ScenarioValidator struct {
	errors   []string
	warnings []string
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidScenarioFilename(name string) bool {
	// Allow 'x.' prefix for experimental scenarios
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}

func (v *ScenarioValidator) validateFile(ctx context.Context, filename string) error {
	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if !isValidScenarioFilename(strings.TrimSuffix(baseName, ext)) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.yaml)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	s, err := scenario.Parse(baseName, data)
	if err != nil {
		return err
	}

	v.errors = nil
	v.warnings = nil
	if err := v.validateScenario(ctx, s); err != nil {
		return err
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateScenario builds s and walks every room reachable from the start,
// ignoring locks. Locks are checked separately: each locked exit or item
// needs something that unlocks it.
func (v *ScenarioValidator) validateScenario(ctx context.Context, s *scenario.Scenario) error {
	store := storage.NewMockStorage()
	playerID, err := s.Build(ctx, store, "validator")
	if err != nil {
		return err
	}

	start, err := store.FindRoomOccupiedByPlayer(ctx, playerID)
	if err != nil {
		return fmt.Errorf("find start room: %w", err)
	}

	reached, err := walk(ctx, store, start)
	if err != nil {
		return err
	}

	reachedNames := make(map[string]bool, len(reached))
	reachedFinal := false
	for _, room := range reached {
		reachedNames[room.Name] = true
		reachedFinal = reachedFinal || room.Final
	}

	hasFinal := false
	for _, r := range s.Rooms {
		if !r.Final {
			continue
		}
		hasFinal = true
		if !reachedNames[r.Name] {
			v.addError(fmt.Sprintf("final room '%s' cannot be reached from '%s'", r.Name, s.Start))
		}
	}
	if !hasFinal {
		v.addError("no room is marked final; the game can never end")
	} else if !reachedFinal && len(v.errors) == 0 {
		v.addError("no final room can be reached")
	}

	for _, r := range s.Rooms {
		if !reachedNames[r.Name] {
			v.addWarning(fmt.Sprintf("room '%s' is unreachable", r.Name))
		}
	}

	v.checkLocks(ctx, store, reached)
	return nil
}

// walk returns the rooms reachable from start in breadth-first order.
func walk(ctx context.Context, store *storage.MockStorage, start world.Room) ([]world.Room, error) {
	seen := map[uuid.UUID]bool{start.ID: true}
	queue := []world.Room{start}
	var reached []world.Room

	for len(queue) > 0 {
		room := queue[0]
		queue = queue[1:]
		reached = append(reached, room)

		exits, err := store.FindExitsFromRoom(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("find exits from %s: %w", room.Name, err)
		}
		for _, exit := range exits {
			if seen[exit.ToRoom] {
				continue
			}
			seen[exit.ToRoom] = true
			next, ok := store.Room(exit.ToRoom)
			if !ok {
				return nil, fmt.Errorf("exit %s leads to missing room %s: %w", exit.Name, exit.ToRoom, storage.ErrNotFound)
			}
			queue = append(queue, next)
		}
	}
	return reached, nil
}

func (v *ScenarioValidator) checkLocks(ctx context.Context, store *storage.MockStorage, rooms []world.Room) {
	unlocks := make(map[uuid.UUID]bool)
	for _, item := range store.Items() {
		unlocks[item.Unlocks] = true
	}

	for _, room := range rooms {
		exits, err := store.FindExitsFromRoom(ctx, room.ID)
		if err != nil {
			v.addError(err.Error())
			continue
		}
		names := make(map[string]bool)
		for _, exit := range exits {
			key := strings.ToLower(exit.Name)
			if names[key] {
				v.addWarning(fmt.Sprintf("room '%s' has more than one exit named '%s'; only the first can be used", room.Name, exit.Name))
			}
			names[key] = true
			if exit.Locked && !unlocks[exit.ID] {
				v.addError(fmt.Sprintf("locked exit '%s' in room '%s' has no item that unlocks it", exit.Name, room.Name))
			}
		}

		locked, err := store.FindLockedItemsInRoom(ctx, room.ID)
		if err != nil {
			v.addError(err.Error())
			continue
		}
		for _, item := range locked {
			if !unlocks[item.ID] {
				v.addError(fmt.Sprintf("locked item '%s' in room '%s' has no item that unlocks it", item.Name, room.Name))
			}
		}
	}
}

func (v *ScenarioValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *ScenarioValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, "  warning: "+msg)
}
