package scenario

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

//go:embed scenarios/*.yaml scenarios/*.json
var builtin embed.FS

// Builtin returns the scenarios shipped with the engine.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtin, "scenarios")
	if err != nil {
		panic(err)
	}
	return sub
}

// Catalog serves scenario files from a directory.
type Catalog struct {
	fsys   fs.FS
	logger *slog.Logger
}

func NewCatalog(fsys fs.FS, logger *slog.Logger) *Catalog {
	return &Catalog{fsys: fsys, logger: logger}
}

func isScenarioFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// List maps scenario names to their filenames. Files that fail to parse are
// skipped with a warning.
func (c *Catalog) List(ctx context.Context) (map[string]string, error) {
	scenarios := make(map[string]string)

	err := fs.WalkDir(c.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isScenarioFile(p) {
			return nil
		}

		data, err := fs.ReadFile(c.fsys, p)
		if err != nil {
			c.logger.Warn("Failed to read scenario file", "path", p, "error", err)
			return nil
		}
		s, err := Parse(p, data)
		if err != nil {
			c.logger.Warn("Failed to parse scenario file", "path", p, "error", err)
			return nil
		}
		scenarios[s.Name] = p
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to walk scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	return scenarios, nil
}

// Get loads one scenario by filename.
func (c *Catalog) Get(ctx context.Context, filename string) (*Scenario, error) {
	if !fs.ValidPath(filename) || filename == "." || !isScenarioFile(filename) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(c.fsys, filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	c.logger.Debug("Loaded scenario", "filename", filename)
	return Parse(filename, data)
}
