package state

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// logCapacity bounds the activity log; the oldest entries are evicted first.
const logCapacity = 1000

// defaultLogLimit is used when RecentLogs is called without a positive limit.
const defaultLogLimit = 50

// Store is the shared state tree. All access goes through one mutex.
type Store struct {
	mu        sync.Mutex
	tree      map[string]interface{}
	persister Persister
	logger    *zap.Logger
}

// Open loads the persisted tree, or starts from the default tree when the
// persister has nothing yet. Missing top-level sections are filled in so a
// tree saved by an older build stays usable.
func Open(ctx context.Context, persister Persister, logger *zap.Logger) (*Store, error) {
	tree, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	now := time.Now()
	if tree == nil {
		tree = defaultTree(now)
	} else {
		for key, val := range defaultTree(now) {
			if _, ok := tree[key]; !ok {
				tree[key] = val
			}
		}
	}

	s := &Store{
		tree:      tree,
		persister: persister,
		logger:    logger.Named("state"),
	}

	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}

	logs, _ := tree["logs"].([]interface{})
	queue, _ := tree["queue"].([]interface{})
	s.logger.Debug("state loaded",
		zap.Int("log_entries", len(logs)),
		zap.Int("queued", len(queue)))

	return s, nil
}

func defaultTree(now time.Time) map[string]interface{} {
	stamp := now.Format(time.RFC3339)
	return map[string]interface{}{
		"metadata": map[string]interface{}{
			"created_at":   stamp,
			"last_updated": stamp,
			"version":      "1.0",
		},
		"profiles":     map[string]interface{}{},
		"postings":     map[string]interface{}{},
		"applications": map[string]interface{}{},
		"agent_state":  map[string]interface{}{},
		"queue":        []interface{}{},
		"logs":         []interface{}{},
	}
}

// persistLocked stamps last_updated and writes the tree through. Callers hold
// the mutex.
func (s *Store) persistLocked(ctx context.Context) error {
	if meta, ok := s.tree["metadata"].(map[string]interface{}); ok {
		meta["last_updated"] = time.Now().Format(time.RFC3339)
	}
	if err := s.persister.Save(ctx, s.tree); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// Get returns the value at a dotted path. The second return is false when any
// segment is missing or a non-map is found mid-path.
func (s *Store) Get(path string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup(s.tree, path)
}

// GetOr returns the value at path, or def when absent.
func (s *Store) GetOr(path string, def interface{}) interface{} {
	if v, ok := s.Get(path); ok {
		return v
	}
	return def
}

// Set writes value at a dotted path, creating intermediate maps as needed.
// A scalar sitting where an intermediate map is required gets replaced.
func (s *Store) Set(ctx context.Context, path string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setPath(s.tree, path, value)
	return s.persistLocked(ctx)
}

// Update applies several writes in one critical section. Writes are applied
// in ascending key order so a parent path lands before its children; the tree
// is persisted once after all writes.
func (s *Store) Update(ctx context.Context, writes map[string]interface{}) error {
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range sortedKeys(writes) {
		setPath(s.tree, path, writes[path])
	}
	return s.persistLocked(ctx)
}

// Delete removes the leaf or subtree at path. It reports whether anything was
// removed; nothing is persisted on a miss.
func (s *Store) Delete(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(path, ".")
	parent := s.tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := parent[part].(map[string]interface{})
		if !ok {
			return false, nil
		}
		parent = next
	}

	last := parts[len(parts)-1]
	if _, ok := parent[last]; !ok {
		return false, nil
	}
	delete(parent, last)

	if err := s.persistLocked(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Enqueue appends an item to the task queue, stamping queued_at. Items keep
// whatever priority field they carry, but the queue itself is strictly FIFO.
func (s *Store) Enqueue(ctx context.Context, item map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneMap(item)
	cp["queued_at"] = time.Now().Format(time.RFC3339)
	s.tree["queue"] = append(s.queueLocked(), cp)
	return s.persistLocked(ctx)
}

// Dequeue pops the front of the queue. The second return is false when the
// queue is empty.
func (s *Store) Dequeue(ctx context.Context) (map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queueLocked()
	if len(queue) == 0 {
		return nil, false, nil
	}

	head, _ := queue[0].(map[string]interface{})
	s.tree["queue"] = queue[1:]
	if err := s.persistLocked(ctx); err != nil {
		return nil, false, err
	}
	return head, true, nil
}

// QueueSize returns the number of queued items.
func (s *Store) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queueLocked())
}

func (s *Store) queueLocked() []interface{} {
	queue, ok := s.tree["queue"].([]interface{})
	if !ok {
		queue = []interface{}{}
		s.tree["queue"] = queue
	}
	return queue
}

// AppendLog records one activity entry, evicting the oldest entry once the
// log holds logCapacity entries.
func (s *Store) AppendLog(ctx context.Context, unit, op string, details map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := map[string]interface{}{
		"unit": unit,
		"op":   op,
		"at":   time.Now().Format(time.RFC3339),
	}
	if len(details) > 0 {
		entry["details"] = cloneMap(details)
	}

	logs, _ := s.tree["logs"].([]interface{})
	logs = append(logs, entry)
	if len(logs) > logCapacity {
		logs = logs[len(logs)-logCapacity:]
	}
	s.tree["logs"] = logs

	return s.persistLocked(ctx)
}

// RecentLogs returns the last limit entries, oldest first, optionally
// filtered by unit id. Entries are shared, not copied; they are never mutated
// after being appended.
func (s *Store) RecentLogs(unit string, limit int) []map[string]interface{} {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logs, _ := s.tree["logs"].([]interface{})
	out := make([]map[string]interface{}, 0, limit)
	for _, item := range logs {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if unit != "" {
			u, _ := entry["unit"].(string)
			if u != unit {
				continue
			}
		}
		out = append(out, entry)
	}

	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// LogSize returns the number of log entries currently retained.
func (s *Store) LogSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs, _ := s.tree["logs"].([]interface{})
	return len(logs)
}

// UnitState returns a unit's scratch value.
func (s *Store) UnitState(id string) (interface{}, bool) {
	return s.Get("agent_state." + id)
}

// SetUnitState stores a unit's scratch value.
func (s *Store) SetUnitState(ctx context.Context, id string, value interface{}) error {
	return s.Set(ctx, "agent_state."+id, value)
}

// Metadata returns a copy of the metadata section.
func (s *Store) Metadata() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.tree["metadata"].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return cloneMap(meta)
}

// Snapshot returns a deep copy of the whole tree.
func (s *Store) Snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMap(s.tree)
}

// Reset replaces the tree with the default tree and persists it.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = defaultTree(time.Now())
	s.logger.Info("state reset")
	return s.persistLocked(ctx)
}

func lookup(tree map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = tree
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setPath(tree map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
