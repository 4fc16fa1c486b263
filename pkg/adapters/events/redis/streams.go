package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/pkg/adapters/events"
)

const (
	readBatch = 16
	readBlock = 2 * time.Second
)

// Bus is a Redis Streams event bus. Each topic maps to one stream; consumers
// share a group so multiple daemon instances split the feed.
type Bus struct {
	client        *redis.Client
	logger        *zap.Logger
	consumerGroup string
	consumerName  string
}

// New creates a Redis Streams bus.
func New(client *redis.Client, consumerGroup, consumerName string, logger *zap.Logger) *Bus {
	return &Bus{
		client:        client,
		logger:        logger,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
	}
}

// Publish appends the event to the topic's stream.
func (b *Bus) Publish(ctx context.Context, topic string, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamKey(topic),
		Values: map[string]interface{}{
			"data": string(data),
		},
	}
	if _, err := b.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	b.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("unit", event.Unit),
		zap.String("topic", topic))
	return nil
}

// Subscribe creates the consumer group if needed and reads the stream until
// ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler events.Handler) error {
	key := streamKey(topic)

	err := b.client.XGroupCreateMkStream(ctx, key, b.consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	b.logger.Info("subscribed to event stream",
		zap.String("stream", key),
		zap.String("consumer_group", b.consumerGroup),
		zap.String("consumer", b.consumerName))

	go b.readStream(ctx, key, handler)
	return nil
}

func (b *Bus) readStream(ctx context.Context, key string, handler events.Handler) {
	for ctx.Err() == nil {
		batch, err := b.fetch(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("stream read failed", zap.Error(err), zap.String("stream", key))
			time.Sleep(readBlock)
			continue
		}
		for _, msg := range batch {
			b.deliver(ctx, key, msg, handler)
		}
	}
}

// fetch blocks for up to readBlock waiting for undelivered entries. A nil
// batch means the block timed out with nothing new.
func (b *Bus) fetch(ctx context.Context, key string) ([]redis.XMessage, error) {
	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.consumerGroup,
		Consumer: b.consumerName,
		Streams:  []string{key, ">"},
		Count:    readBatch,
		Block:    readBlock,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var batch []redis.XMessage
	for _, stream := range res {
		batch = append(batch, stream.Messages...)
	}
	return batch, nil
}

// deliver decodes one entry and hands it to the subscriber. Entries that can
// never decode are acknowledged so they do not clog the pending list; a
// handler failure leaves the entry pending for redelivery.
func (b *Bus) deliver(ctx context.Context, key string, msg redis.XMessage, handler events.Handler) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		b.logger.Warn("dropping stream entry without data field",
			zap.String("stream", key), zap.String("id", msg.ID))
		b.ack(ctx, key, msg.ID)
		return
	}

	var event events.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		b.logger.Warn("dropping undecodable stream entry",
			zap.String("stream", key), zap.String("id", msg.ID), zap.Error(err))
		b.ack(ctx, key, msg.ID)
		return
	}

	if err := handler(ctx, event); err != nil {
		b.logger.Error("event handler failed",
			zap.String("stream", key), zap.String("id", msg.ID), zap.Error(err))
		return
	}
	b.ack(ctx, key, msg.ID)
}

func (b *Bus) ack(ctx context.Context, key, id string) {
	if err := b.client.XAck(ctx, key, b.consumerGroup, id).Err(); err != nil {
		b.logger.Error("failed to ack stream entry",
			zap.String("stream", key), zap.String("id", id), zap.Error(err))
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *Bus) Close() error {
	return nil
}

func streamKey(topic string) string {
	return fmt.Sprintf("seekerd:events:%s", topic)
}
