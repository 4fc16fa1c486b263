package events

import (
	"context"
	"time"
)

// TopicInvocations carries one event per unit invocation.
const TopicInvocations = "invocations"

// Event describes a finished unit invocation.
type Event struct {
	ID         string    `json:"id"`
	Unit       string    `json:"unit"`
	Op         string    `json:"op"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// Handler consumes one event.
type Handler func(ctx context.Context, event Event) error

// Bus fans events out to subscribers. Subscribe runs until ctx is done.
type Bus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
