// Package broadcast fans bike location changes out to connected viewers.
package broadcast

import (
	"sync"
	"time"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/location"
)

// EventType names an event on the wire.
type EventType string

const (
	EventLocationUpdated EventType = "locationUpdated"
)

// Event is emitted once per successful position ingestion.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Bike      bike.Bike
	Location  location.Point
}

// Subscriber is a channel that receives events
type Subscriber chan Event

// subscriberBuffer is how many events a slow viewer may lag behind before
// it starts missing events.
const subscriberBuffer = 50

// Broker delivers every published event to every subscriber connected at the
// time of publishing. Delivery is best effort: a subscriber whose buffer is
// full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	stopped     bool
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]struct{}),
	}
}

// Subscribe registers a new viewer. The channel is closed by Unsubscribe or Stop.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, subscriberBuffer)
	if b.stopped {
		close(sub)
		return sub
	}
	b.subscribers[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a viewer. It is safe to call more than once.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish fans event out without blocking on slow subscribers.
func (b *Broker) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// Stop disconnects every subscriber. Later subscriptions are closed immediately.
func (b *Broker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
