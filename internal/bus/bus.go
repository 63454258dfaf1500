// Package bus implements the typed fan-out bus every Echo stage talks
// through. A Bus[T] decouples producers from subscribers: emit never
// blocks and never fails, and a slow or dead subscriber only costs that
// subscriber its own backlog, never the pipeline's.
package bus

import (
	"log"
	"sync"
)

// DefaultCapacity is the default bounded queue size for a new subscription.
const DefaultCapacity = 256

// Subscription is a handle to a single subscriber's queue on a Bus[T].
// It is safe to read from C until Unsubscribe is called; after that C is no
// longer delivered to.
type Subscription[T any] struct {
	id int64
	c  chan T
}

// C returns the channel this subscription receives events on.
func (s *Subscription[T]) C() <-chan T {
	return s.c
}

// Bus is a typed, bounded, multi-subscriber fan-out channel.
type Bus[T any] struct {
	name     string
	capacity int

	mu      sync.Mutex
	nextID  int64
	subs    map[int64]chan T
}

// New constructs a Bus[T] with the given name (used in drop/warn logs) and
// per-subscriber queue capacity. A capacity of 0 uses DefaultCapacity.
func New[T any](name string, capacity int) *Bus[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus[T]{
		name:     name,
		capacity: capacity,
		subs:     make(map[int64]chan T),
	}
}

// Subscribe creates a fresh bounded queue and registers it with the bus.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	c := make(chan T, b.capacity)
	b.subs[id] = c
	return &Subscription[T]{id: id, c: c}
}

// Unsubscribe removes a subscription. Subsequent emissions ignore it;
// pending items already in its queue are discarded by the garbage
// collector once the subscriber stops reading from it.
func (b *Bus[T]) Unsubscribe(sub *Subscription[T]) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
}

// Emit delivers event to every currently registered subscriber. For each
// subscriber, the item is enqueued if the queue has room; if the queue is
// full, that item is dropped for that subscriber and a warning is logged.
// Emit never blocks and never fails.
func (b *Bus[T]) Emit(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.subs {
		select {
		case c <- event:
		default:
			log.Printf("bus[%s]: dropping event for subscriber %d: queue full", b.name, id)
		}
	}
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
