package builder

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/world"
)

// symbolTable maps author-facing names to persisted identities.
// Each name may be assigned exactly once. Names are compared in their
// normalized form, so "Brass Key" and "Brass  Key" are the same symbol.
type symbolTable struct {
	kind string
	ids  map[string]uuid.UUID
}

func newSymbolTable(kind string) *symbolTable {
	return &symbolTable{
		kind: kind,
		ids:  make(map[string]uuid.UUID),
	}
}

// reserve checks that name is usable before anything is persisted under it.
func (s *symbolTable) reserve(name string) error {
	if world.NormalizeName(name) == "" {
		return fmt.Errorf("%w: %s name is required", ErrInvalidBuildSpecification, s.kind)
	}
	if _, exists := s.ids[world.NormalizeName(name)]; exists {
		return fmt.Errorf("%w: %s %q is declared twice", ErrInvalidBuildSpecification, s.kind, name)
	}
	return nil
}

func (s *symbolTable) bind(name string, id uuid.UUID) error {
	if err := s.reserve(name); err != nil {
		return err
	}
	s.ids[world.NormalizeName(name)] = id
	return nil
}

func (s *symbolTable) lookup(name string) (uuid.UUID, bool) {
	id, ok := s.ids[world.NormalizeName(name)]
	return id, ok
}

func (s *symbolTable) resolve(name string) (uuid.UUID, error) {
	id, ok := s.ids[world.NormalizeName(name)]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s %q is not declared", ErrInvalidBuildSpecification, s.kind, name)
	}
	return id, nil
}
