package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/quickbite/orders-service/internal/domain"
)

// subscriberBuffer bounds how many undelivered events a subscriber may
// hold before further events are dropped for it.
const subscriberBuffer = 16

// Broadcaster fans order lifecycle events out to every subscribed
// listener, best effort. Delivery to a full or gone subscriber is
// dropped without affecting the other subscribers or the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan domain.Event
	logger *slog.Logger
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[uuid.UUID]chan domain.Event),
		logger: logger,
	}
}

// Subscribe registers a new listener and returns its handle together
// with the channel events are delivered on. The channel is closed by
// Unsubscribe.
func (b *Broadcaster) Subscribe() (uuid.UUID, <-chan domain.Event) {
	ch := make(chan domain.Event, subscriberBuffer)
	id := uuid.New()

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a listener and closes its channel. Removing an
// already-removed handle is a no-op.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Publish delivers an event to every current subscriber. Sends never
// block: a subscriber whose buffer is full misses the event.
func (b *Broadcaster) Publish(eventType domain.EventType, order *domain.Order) {
	event := domain.Event{Type: eventType, Order: order}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				"subscriber_id", id, "event_type", eventType, "order_id", order.ID)
		}
	}
}

// SubscriberCount reports the number of registered listeners.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
