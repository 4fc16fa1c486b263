package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seekerlabs/seekerd/internal/records"
)

// Ensure Store implements the port at compile time.
var _ records.Store = (*Store)(nil)

// Store is a fully in-memory records store. Safe for concurrent access;
// values are copied on the way in and out so callers never share memory with
// the store.
type Store struct {
	mu sync.RWMutex

	profiles     map[string]*records.Profile
	postings     map[string]*records.Posting
	applications map[string]*records.Application
	actions      []*records.ActionLog
}

// New returns an empty store.
func New() *Store {
	return &Store{
		profiles:     make(map[string]*records.Profile),
		postings:     make(map[string]*records.Posting),
		applications: make(map[string]*records.Application),
	}
}

// Ping always succeeds for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// SaveProfile upserts a profile.
func (s *Store) SaveProfile(_ context.Context, p *records.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneProfile(p)
	now := time.Now()
	if prev, ok := s.profiles[p.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.profiles[p.ID] = cp

	p.CreatedAt = cp.CreatedAt
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

// GetProfile returns a profile by id.
func (s *Store) GetProfile(_ context.Context, id string) (*records.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return cloneProfile(p), nil
}

// ListProfiles returns all profiles sorted by id.
func (s *Store) ListProfiles(_ context.Context) ([]*records.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*records.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SavePosting upserts a posting, defaulting status and scrape time.
func (s *Store) SavePosting(_ context.Context, p *records.Posting) error {
	if p.ID == "" {
		p.ID = records.PostingID(p.Company, p.Title, p.Location)
	}
	if p.Status == "" {
		p.Status = records.PostingNew
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.postings[p.ID] = clonePosting(p)
	return nil
}

// GetPosting returns a posting by id.
func (s *Store) GetPosting(_ context.Context, id string) (*records.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.postings[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return clonePosting(p), nil
}

// SearchPostings filters postings, newest scrape first.
func (s *Store) SearchPostings(_ context.Context, f records.PostingFilter) ([]*records.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*records.Posting, 0, len(s.postings))
	for _, p := range s.postings {
		if f.Company != "" && !containsFold(p.Company, f.Company) {
			continue
		}
		if f.Location != "" && !containsFold(p.Location, f.Location) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, clonePosting(p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ScrapedAt.After(out[j].ScrapedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// SaveApplication upserts an application.
func (s *Store) SaveApplication(_ context.Context, a *records.Application) error {
	if a.ID == "" {
		a.ID = records.NewApplicationID()
	}
	if a.Status == "" {
		a.Status = records.ApplicationPreparing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneApplication(a)
	now := time.Now()
	if prev, ok := s.applications[a.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.applications[a.ID] = cp

	a.CreatedAt = cp.CreatedAt
	a.UpdatedAt = cp.UpdatedAt
	return nil
}

// GetApplication returns an application by id.
func (s *Store) GetApplication(_ context.Context, id string) (*records.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return cloneApplication(a), nil
}

// SearchApplications filters applications, most recently updated first.
func (s *Store) SearchApplications(_ context.Context, f records.ApplicationFilter) ([]*records.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*records.Application, 0, len(s.applications))
	for _, a := range s.applications {
		if f.OwnerID != "" && a.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, cloneApplication(a))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ApplicationStats counts an owner's applications by status.
func (s *Store) ApplicationStats(_ context.Context, ownerID string) (map[records.ApplicationStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[records.ApplicationStatus]int)
	for _, a := range s.applications {
		if ownerID != "" && a.OwnerID != ownerID {
			continue
		}
		stats[a.Status]++
	}
	return stats, nil
}

// LogAction appends an audit entry, assigning id and timestamp when unset.
func (s *Store) LogAction(_ context.Context, entry *records.ActionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.At.IsZero() {
		cp.At = time.Now()
	}
	cp.Input = cloneSection(entry.Input)
	cp.Output = cloneSection(entry.Output)
	s.actions = append(s.actions, &cp)
	return nil
}

// Actions returns audit entries newest first, optionally filtered by unit.
func (s *Store) Actions(_ context.Context, unit string, limit int) ([]*records.ActionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*records.ActionLog, 0, len(s.actions))
	for i := len(s.actions) - 1; i >= 0; i-- {
		entry := s.actions[i]
		if unit != "" && entry.Unit != unit {
			continue
		}
		cp := *entry
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func cloneProfile(p *records.Profile) *records.Profile {
	cp := *p
	cp.Personal = cloneSection(p.Personal)
	cp.Preferences = cloneSection(p.Preferences)
	cp.Filters = cloneSection(p.Filters)
	cp.Resume = cloneSection(p.Resume)
	return &cp
}

func clonePosting(p *records.Posting) *records.Posting {
	cp := *p
	cp.Requirements = append([]string(nil), p.Requirements...)
	cp.Keywords = append([]string(nil), p.Keywords...)
	cp.Data = cloneSection(p.Data)
	return &cp
}

func cloneApplication(a *records.Application) *records.Application {
	cp := *a
	cp.FormAnswers = cloneSection(a.FormAnswers)
	cp.Timeline = append([]records.TimelineEvent(nil), a.Timeline...)
	if a.SubmittedAt != nil {
		at := *a.SubmittedAt
		cp.SubmittedAt = &at
	}
	return &cp
}

func cloneSection(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneSectionValue(v)
	}
	return out
}

func cloneSectionValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneSection(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneSectionValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
