package infrastructure

import (
	"context"
	"log"
	"sync"

	"github.com/orderstack/fulfillment-system/shared/events"
)

var (
	_ events.Publisher  = (*MemoryBus)(nil)
	_ events.Subscriber = (*MemoryBus)(nil)
)

// MemoryBus is an in-process notification channel. It delivers every
// published event synchronously to all subscribed handlers, in publish
// order. Used for local single-binary runs and tests; production uses the
// SNS/SQS pair.
type MemoryBus struct {
	mux      sync.RWMutex
	handlers []events.EventHandler
}

// NewMemoryBus creates a new in-process bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Subscribe registers a handler for all events
func (b *MemoryBus) Subscribe(_ context.Context, handler events.EventHandler) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// Publish delivers events to every subscribed handler. Handler errors are
// logged and do not stop delivery; the bus is at-least-once, consumers own
// their failure handling.
func (b *MemoryBus) Publish(ctx context.Context, evts ...*events.Event) error {
	b.mux.RLock()
	handlers := make([]events.EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mux.RUnlock()

	for _, event := range evts {
		for _, handler := range handlers {
			if err := handler.Handle(ctx, event); err != nil {
				log.Printf("memory bus: handler failed for %s/%s: %v", event.Source, event.DetailType, err)
			}
		}
	}
	return nil
}

// Close releases all handlers
func (b *MemoryBus) Close() error {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.handlers = nil
	return nil
}
