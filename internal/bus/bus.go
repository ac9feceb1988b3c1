// Package bus implements the in-process message bus: an outgoing
// middleware pipeline with numeric priorities, an incoming dispatch queue,
// a connector registry for instruction translation, and an event fan-out
// for observers.
package bus

import (
	"context"
	"sync"

	"github.com/smsbridge/smsbridge/internal/domain"
	"github.com/smsbridge/smsbridge/internal/logging"
)

const (
	defaultQueueSize     = 100
	subscriberBufferSize = 16
)

// Event kinds published to subscribers.
const (
	EventInboundMessage = "inbound.message"
	EventOutboundSent   = "outbound.sent"
	EventOutboundFailed = "outbound.failed"
)

// Event is a bus activity notification delivered to subscribers.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

// Bus wires channels, the identity layer and observers together.
type Bus struct {
	incoming chan domain.IncomingMessage

	mu          sync.RWMutex
	outgoing    []outgoingRegistration
	connectors  map[string]Connector
	subscribers map[uint64]chan Event
	nextSubID   uint64

	done      chan struct{}
	closeOnce sync.Once

	log *logging.Logger
}

// New creates a message bus.
func New(log *logging.Logger) *Bus {
	return &Bus{
		incoming:    make(chan domain.IncomingMessage, defaultQueueSize),
		connectors:  make(map[string]Connector),
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
		log:         log.Sub("bus"),
	}
}

// DispatchIncoming places a canonical incoming message on the bus queue.
// Returns false when the context is done or the bus is closed.
func (b *Bus) DispatchIncoming(ctx context.Context, msg domain.IncomingMessage) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	// The send case below is usually ready on the buffered queue, and
	// select picks ready cases at random. Closure and cancellation must
	// win deterministically, so check them first.
	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	case b.incoming <- msg:
		b.log.Debug().
			Str("platform", msg.Platform).
			Str("user", msg.User.ID).
			Msg("incoming message dispatched")
		b.Emit(Event{Kind: EventInboundMessage, Payload: msg})
		return true
	}
}

// ConsumeIncoming blocks until an incoming message is available, the
// context is done, or the bus is closed.
func (b *Bus) ConsumeIncoming(ctx context.Context) (domain.IncomingMessage, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return domain.IncomingMessage{}, false
	case <-b.done:
		return domain.IncomingMessage{}, false
	case msg := <-b.incoming:
		return msg, true
	}
}

// Subscribe registers an observer for bus events. The returned cancel
// function must be called to release the subscription. Slow subscribers
// miss events rather than blocking the bus.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	ch := make(chan Event, subscriberBufferSize)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Emit publishes an event to all subscribers without blocking.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the bus down and releases all subscribers.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		for id, ch := range b.subscribers {
			close(ch)
			delete(b.subscribers, id)
		}
		b.mu.Unlock()
	})
}
