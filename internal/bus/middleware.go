package bus

import (
	"context"
	"slices"

	"github.com/smsbridge/smsbridge/internal/domain"
)

// OutgoingHandler is one stage of the outgoing pipeline. A handler either
// processes the event or calls next() to pass it along unchanged; the
// platform filter in each channel's stage is what lets multiple channels
// coexist in one pipeline.
type OutgoingHandler func(ctx context.Context, ev *domain.OutgoingEvent, next func() error) error

type outgoingRegistration struct {
	name     string
	priority int
	handler  OutgoingHandler
}

// RegisterOutgoing adds a named stage to the outgoing pipeline. Stages run
// in ascending priority order; ties run in registration order.
func (b *Bus) RegisterOutgoing(name string, priority int, handler OutgoingHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outgoing = append(b.outgoing, outgoingRegistration{
		name:     name,
		priority: priority,
		handler:  handler,
	})
	slices.SortStableFunc(b.outgoing, func(a, c outgoingRegistration) int {
		return a.priority - c.priority
	})
	b.log.Info().Str("name", name).Int("priority", priority).Msg("outgoing middleware registered")
}

// SendOutgoing runs an outgoing event through the middleware pipeline.
func (b *Bus) SendOutgoing(ctx context.Context, ev *domain.OutgoingEvent) error {
	b.mu.RLock()
	regs := slices.Clone(b.outgoing)
	b.mu.RUnlock()

	var run func(i int) error
	run = func(i int) error {
		if i >= len(regs) {
			return nil
		}
		return regs[i].handler(ctx, ev, func() error { return run(i + 1) })
	}
	return run(0)
}
