// Package hub fans result codes from the lock core out to every attached
// peer link.
package hub

import (
	"context"
	"sync"

	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

// DefaultBuffer is the per-subscriber queue size.
const DefaultBuffer = 16

// Hub implements lock.Sender. Delivery never blocks the core: a subscriber
// whose queue is full misses the code.
type Hub struct {
	// mu protects subscribers and nextID.
	mu sync.RWMutex
	// subscribers maps subscription ids to their queues.
	subscribers map[uint64]chan protocol.Result
	// nextID is the id handed to the next subscriber.
	nextID uint64
	// onDrop is called for every code a subscriber missed.
	onDrop func(protocol.Result)
}

// Option configures a Hub.
type Option func(*Hub)

// WithDropHook registers a callback for codes dropped on full queues.
func WithDropHook(fn func(protocol.Result)) Option {
	return func(h *Hub) {
		h.onDrop = fn
	}
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[uint64]chan protocol.Result),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscribe registers a new queue. The returned cancel function removes it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan protocol.Result, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	ch := make(chan protocol.Result, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()

			close(ch)
		})
	}
}

// SendResult implements lock.Sender.
func (h *Hub) SendResult(ctx context.Context, result protocol.Result) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- result:
		default:
			logger.WarnKV(ctx, "Result queue full, dropping", "subscriber", id, "result", result)

			if h.onDrop != nil {
				h.onDrop(result)
			}
		}
	}

	return nil
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}
