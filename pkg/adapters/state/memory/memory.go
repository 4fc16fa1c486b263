package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Persister keeps the saved tree in memory. Saves round-trip through JSON so
// reloads show the same type coercions a real backend would (numbers come
// back as float64).
type Persister struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// New creates an empty in-memory persister.
func New() *Persister {
	return &Persister{}
}

// Load decodes the last saved tree, or returns nil when nothing was saved.
func (p *Persister) Load(_ context.Context) (map[string]interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data == nil {
		return nil, nil
	}

	var tree map[string]interface{}
	if err := json.Unmarshal(p.data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode saved state: %w", err)
	}
	return tree, nil
}

// Save encodes and retains the tree.
func (p *Persister) Save(_ context.Context, tree map[string]interface{}) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
	p.saves++
	return nil
}

// Saves returns how many times Save was called. Tests use this to assert
// write-through behavior.
func (p *Persister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}
