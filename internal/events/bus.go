package events

import (
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/metrics"
)

// Handler processes one event. It runs synchronously in the publisher's goroutine.
type Handler func(Event)

// Publisher is what the services need from the bus.
type Publisher interface {
	Publish(Event)
}

type subscription struct {
	id      string
	handler Handler
	types   []Type
}

func (s *subscription) wants(t Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Bus is a synchronous in-process publish/subscribe hub.
//
// Publish returns after every matching subscriber ran. Subscribers are invoked in
// subscription order; a panicking subscriber is logged and skipped.
// Bus is safe for concurrent use, and handlers may publish or unsubscribe.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	logger *slog.Logger
}

// NewBus creates a bus.
func NewBus(log *slog.Logger) *Bus {
	return &Bus{logger: logger.OrDiscard(log)}
}

// Subscribe registers handler for the given types (none = every type) and returns
// the subscription id.
func (b *Bus) Subscribe(handler Handler, types ...Type) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		types:   slices.Clone(types),
	}
	b.subs = append(b.subs, sub)
	return sub.id
}

// Unsubscribe removes a subscription. It reports false for unknown ids.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = slices.Delete(b.subs, i, i+1)
			return true
		}
	}
	return false
}

// Publish delivers e to every matching subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	metrics.RecordEvent(string(e.Type))

	for _, s := range subs {
		if s.wants(e.Type) {
			b.invoke(s, e)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) invoke(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSubscriberPanic()
			b.logger.Error("event subscriber panicked",
				"subscription", s.id,
				"event", e.Type,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.handler(e)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(Event) {}
