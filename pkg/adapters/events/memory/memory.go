package memory

import (
	"context"
	"sync"

	"github.com/seekerlabs/seekerd/pkg/adapters/events"
)

// Bus is an in-process event bus. Handlers run asynchronously so a slow
// subscriber never blocks the publisher.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]events.Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string]map[int]events.Handler),
	}
}

// Publish delivers the event to every subscriber of topic.
func (b *Bus) Publish(ctx context.Context, topic string, event events.Event) error {
	b.mu.RLock()
	handlers := make([]events.Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h events.Handler) {
			// Subscriber errors are the subscriber's problem.
			_ = h(ctx, event)
		}(handler)
	}
	return nil
}

// Subscribe registers handler for topic until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler events.Handler) error {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]events.Handler)
	}
	b.subs[topic][id] = handler
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], id)
		b.mu.Unlock()
	}()

	return nil
}

// Close drops all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = make(map[string]map[int]events.Handler)
	return nil
}
