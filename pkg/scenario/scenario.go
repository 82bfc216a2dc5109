// Package scenario loads declarative game definitions and replays them
// through the builder.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/builder"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound          = errors.New("scenario not found")
	ErrUnsupportedFormat = errors.New("unsupported scenario format")
)

// Scenario is the template for a game. Statements are replayed in the order
// they appear: rooms, then exits, then items.
type Scenario struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Start       string             `json:"start" yaml:"start"` // Name of the starting room
	Rooms       []builder.RoomSpec `json:"rooms" yaml:"rooms"`
	Exits       []builder.ExitSpec `json:"exits,omitempty" yaml:"exits,omitempty"`
	Items       []builder.ItemSpec `json:"items,omitempty" yaml:"items,omitempty"`
}

// Parse decodes a scenario file. The format follows the file extension.
func Parse(filename string, data []byte) (*Scenario, error) {
	var s Scenario
	switch strings.ToLower(path.Ext(filename)) {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario %s: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario %s: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if strings.TrimSpace(s.Name) == "" {
		return nil, fmt.Errorf("scenario %s has no name", filename)
	}
	return &s, nil
}

// Build persists the scenario for a new player owned by userID and returns
// the player's id.
func (s *Scenario) Build(ctx context.Context, store storage.GameStore, userID string) (uuid.UUID, error) {
	b := builder.New(ctx, store).ForUser(userID)
	for _, r := range s.Rooms {
		b.Room(r)
	}
	for _, e := range s.Exits {
		b.Exit(e)
	}
	for _, i := range s.Items {
		b.Item(i)
	}
	id, err := b.StartIn(s.Start).Build()
	if err != nil {
		return uuid.Nil, fmt.Errorf("build scenario %q: %w", s.Name, err)
	}
	return id, nil
}
