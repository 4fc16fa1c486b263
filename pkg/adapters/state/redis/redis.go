package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stateKey = "seekerd:state"

// Persister stores the state tree as one JSON value in Redis. No TTL: the
// tree is the system of record for queue and logs, not a cache.
type Persister struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a Redis persister.
func New(client *redis.Client, logger *zap.Logger) *Persister {
	return &Persister{
		client: client,
		logger: logger,
	}
}

// Load reads the tree, returning nil when the key does not exist yet.
func (p *Persister) Load(ctx context.Context) (map[string]interface{}, error) {
	data, err := p.client.Get(ctx, stateKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	p.logger.Debug("state loaded from redis",
		zap.Int("bytes", len(data)))
	return tree, nil
}

// Save writes the tree.
func (p *Persister) Save(ctx context.Context, tree map[string]interface{}) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := p.client.Set(ctx, stateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
