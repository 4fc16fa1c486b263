package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownUnit is returned by Resolve for ids that were never registered.
var ErrUnknownUnit = errors.New("unknown unit")

// Constructor builds a unit. Collaborators are bound by the closure at
// registration time, so construction itself takes no arguments.
type Constructor func() Unit

// Registry maps unit ids to lazily constructed singletons. Registration is a
// startup-time operation driven by a static table; duplicate ids fail loud so
// a bad table cannot silently shadow a unit.
type Registry struct {
	mu    sync.Mutex
	ctors map[string]Constructor
	units map[string]Unit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[string]Constructor),
		units: make(map[string]Unit),
	}
}

// Register adds a constructor under id. Registering the same id twice is an
// error.
func (r *Registry) Register(id string, ctor Constructor) error {
	if id == "" {
		return fmt.Errorf("unit id must not be empty")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for unit %s must not be nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctors[id]; exists {
		return fmt.Errorf("unit %s already registered", id)
	}
	r.ctors[id] = ctor
	return nil
}

// Resolve returns the singleton for id, constructing it on first use.
func (r *Registry) Resolve(id string) (Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if unit, ok := r.units[id]; ok {
		return unit, nil
	}

	ctor, ok := r.ctors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}

	unit := ctor()
	r.units[id] = unit
	return unit, nil
}

// Has reports whether id is registered, without constructing the unit.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ctors[id]
	return ok
}

// List returns the registered unit ids in sorted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.ctors))
	for id := range r.ctors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Describe returns id -> description for every registered unit, resolving
// units as needed.
func (r *Registry) Describe() (map[string]string, error) {
	out := make(map[string]string, len(r.List()))
	for _, id := range r.List() {
		unit, err := r.Resolve(id)
		if err != nil {
			return nil, err
		}
		out[id] = unit.Description()
	}
	return out, nil
}
