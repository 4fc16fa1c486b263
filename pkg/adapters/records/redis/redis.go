package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/records"
)

// actionLogCap bounds the audit list kept in Redis.
const actionLogCap = 10000

// scanBatch is the COUNT hint used when scanning record keys.
const scanBatch = 100

// Ensure Store implements the port at compile time.
var _ records.Store = (*Store)(nil)

// Store keeps each record as one JSON document plus small index sets for
// application lookups by owner and status. The action log is a capped list.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a Redis-backed records store.
func New(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func profileKey(id string) string     { return fmt.Sprintf("seekerd:profile:%s", id) }
func postingKey(id string) string     { return fmt.Sprintf("seekerd:posting:%s", id) }
func applicationKey(id string) string { return fmt.Sprintf("seekerd:application:%s", id) }
func ownerIndexKey(id string) string  { return fmt.Sprintf("seekerd:index:owner:%s", id) }
func statusIndexKey(st records.ApplicationStatus) string {
	return fmt.Sprintf("seekerd:index:status:%s", st)
}

const actionsKey = "seekerd:actions"

// SaveProfile upserts a profile.
func (s *Store) SaveProfile(ctx context.Context, p *records.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id must not be empty")
	}

	now := time.Now()
	if prev, err := s.GetProfile(ctx, p.ID); err == nil {
		p.CreatedAt = prev.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return s.setJSON(ctx, profileKey(p.ID), p)
}

// GetProfile returns a profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*records.Profile, error) {
	var p records.Profile
	if err := s.getJSON(ctx, profileKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profiles sorted by id.
func (s *Store) ListProfiles(ctx context.Context) ([]*records.Profile, error) {
	keys, err := s.scanKeys(ctx, "seekerd:profile:*")
	if err != nil {
		return nil, err
	}

	out := make([]*records.Profile, 0, len(keys))
	for _, key := range keys {
		var p records.Profile
		if err := s.getJSON(ctx, key, &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SavePosting upserts a posting, defaulting status and scrape time.
func (s *Store) SavePosting(ctx context.Context, p *records.Posting) error {
	if p.ID == "" {
		p.ID = records.PostingID(p.Company, p.Title, p.Location)
	}
	if p.Status == "" {
		p.Status = records.PostingNew
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now()
	}
	return s.setJSON(ctx, postingKey(p.ID), p)
}

// GetPosting returns a posting by id.
func (s *Store) GetPosting(ctx context.Context, id string) (*records.Posting, error) {
	var p records.Posting
	if err := s.getJSON(ctx, postingKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPostings scans all postings and filters in process, newest first.
func (s *Store) SearchPostings(ctx context.Context, f records.PostingFilter) ([]*records.Posting, error) {
	keys, err := s.scanKeys(ctx, "seekerd:posting:*")
	if err != nil {
		return nil, err
	}

	out := make([]*records.Posting, 0, len(keys))
	for _, key := range keys {
		var p records.Posting
		if err := s.getJSON(ctx, key, &p); err != nil {
			continue
		}
		if f.Company != "" && !containsFold(p.Company, f.Company) {
			continue
		}
		if f.Location != "" && !containsFold(p.Location, f.Location) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, &p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ScrapedAt.After(out[j].ScrapedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// SaveApplication upserts an application and maintains the owner and status
// index sets.
func (s *Store) SaveApplication(ctx context.Context, a *records.Application) error {
	if a.ID == "" {
		a.ID = records.NewApplicationID()
	}
	if a.Status == "" {
		a.Status = records.ApplicationPreparing
	}

	now := time.Now()
	prev, err := s.GetApplication(ctx, a.ID)
	if err == nil {
		a.CreatedAt = prev.CreatedAt
	} else if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if err := s.setJSON(ctx, applicationKey(a.ID), a); err != nil {
		return err
	}

	// Reindex: drop stale entries before adding current ones.
	if prev != nil {
		if prev.OwnerID != a.OwnerID {
			if err := s.client.SRem(ctx, ownerIndexKey(prev.OwnerID), a.ID).Err(); err != nil {
				return fmt.Errorf("failed to drop owner index: %w", err)
			}
		}
		if prev.Status != a.Status {
			if err := s.client.SRem(ctx, statusIndexKey(prev.Status), a.ID).Err(); err != nil {
				return fmt.Errorf("failed to drop status index: %w", err)
			}
		}
	}
	if err := s.client.SAdd(ctx, ownerIndexKey(a.OwnerID), a.ID).Err(); err != nil {
		return fmt.Errorf("failed to index by owner: %w", err)
	}
	if err := s.client.SAdd(ctx, statusIndexKey(a.Status), a.ID).Err(); err != nil {
		return fmt.Errorf("failed to index by status: %w", err)
	}
	return nil
}

// GetApplication returns an application by id.
func (s *Store) GetApplication(ctx context.Context, id string) (*records.Application, error) {
	var a records.Application
	if err := s.getJSON(ctx, applicationKey(id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SearchApplications filters by owner and/or status using the index sets,
// most recently updated first.
func (s *Store) SearchApplications(ctx context.Context, f records.ApplicationFilter) ([]*records.Application, error) {
	ids, err := s.applicationIDs(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]*records.Application, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetApplication(ctx, id)
		if err != nil {
			continue
		}
		if f.OwnerID != "" && a.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ApplicationStats counts an owner's applications by status.
func (s *Store) ApplicationStats(ctx context.Context, ownerID string) (map[records.ApplicationStatus]int, error) {
	apps, err := s.SearchApplications(ctx, records.ApplicationFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}

	stats := make(map[records.ApplicationStatus]int)
	for _, a := range apps {
		stats[a.Status]++
	}
	return stats, nil
}

// LogAction pushes an audit entry onto the capped action list.
func (s *Store) LogAction(ctx context.Context, entry *records.ActionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	if err := s.client.LPush(ctx, actionsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push action: %w", err)
	}
	if err := s.client.LTrim(ctx, actionsKey, 0, actionLogCap-1).Err(); err != nil {
		return fmt.Errorf("failed to trim actions: %w", err)
	}
	return nil
}

// Actions returns audit entries newest first, optionally filtered by unit.
func (s *Store) Actions(ctx context.Context, unit string, limit int) ([]*records.ActionLog, error) {
	if limit <= 0 {
		limit = 100
	}

	// LPush keeps newest entries at the head. When filtering by unit the
	// whole capped window is read so older matches are not missed.
	window := int64(limit - 1)
	if unit != "" {
		window = actionLogCap - 1
	}

	items, err := s.client.LRange(ctx, actionsKey, 0, window).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read actions: %w", err)
	}

	out := make([]*records.ActionLog, 0, limit)
	for _, item := range items {
		var entry records.ActionLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		if unit != "" && entry.Unit != unit {
			continue
		}
		out = append(out, &entry)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) applicationIDs(ctx context.Context, f records.ApplicationFilter) ([]string, error) {
	switch {
	case f.OwnerID != "":
		ids, err := s.client.SMembers(ctx, ownerIndexKey(f.OwnerID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read owner index: %w", err)
		}
		return ids, nil
	case f.Status != "":
		ids, err := s.client.SMembers(ctx, statusIndexKey(f.Status)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read status index: %w", err)
		}
		return ids, nil
	default:
		keys, err := s.scanKeys(ctx, "seekerd:application:*")
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(keys))
		prefix := "seekerd:application:"
		for _, key := range keys {
			ids = append(ids, key[len(prefix):])
		}
		return ids, nil
	}
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	s.logger.Debug("record saved", zap.String("key", key))
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return records.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
