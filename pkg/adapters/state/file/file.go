package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Persister stores the state tree as an indented JSON file. Writes go through
// a temp file and a rename so a crash mid-write never leaves a torn file.
type Persister struct {
	path   string
	logger *zap.Logger
}

// New creates a file persister, making the parent directory if needed.
func New(path string, logger *zap.Logger) (*Persister, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state dir: %w", err)
		}
	}
	return &Persister{
		path:   path,
		logger: logger,
	}, nil
}

// Load reads the tree from disk. A missing file is not an error; it just
// means a fresh store.
func (p *Persister) Load(_ context.Context) (map[string]interface{}, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}

	p.logger.Debug("state file loaded",
		zap.String("path", p.path),
		zap.Int("bytes", len(data)))
	return tree, nil
}

// Save writes the tree to disk.
func (p *Persister) Save(_ context.Context, tree map[string]interface{}) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
