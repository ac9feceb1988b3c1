package bus

import (
	"context"
	"fmt"

	"github.com/smsbridge/smsbridge/internal/domain"
)

// ProcessOutgoingFunc translates a bot instruction for one platform into
// a canonical outgoing event.
type ProcessOutgoingFunc func(ctx context.Context, event domain.IncomingMessage, bloc string, instruction domain.Instruction) (*domain.OutgoingEvent, error)

// Connector registers a platform's instruction-translation layer with
// the bus.
type Connector struct {
	Platform        string
	ProcessOutgoing ProcessOutgoingFunc
	Templates       []string
}

// RegisterConnector registers a platform connector. A later registration
// for the same platform replaces the earlier one.
func (b *Bus) RegisterConnector(c Connector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectors[c.Platform] = c
	b.log.Info().Str("platform", c.Platform).Msg("connector registered")
}

// Connector returns the registered connector for a platform.
func (b *Bus) Connector(platform string) (Connector, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.connectors[platform]
	return c, ok
}

// Reply translates an instruction via the platform's connector and runs
// the resulting event through the outgoing pipeline. The returned event
// carries the completion signal the send stage will settle.
func (b *Bus) Reply(ctx context.Context, event domain.IncomingMessage, bloc string, instruction domain.Instruction) (*domain.OutgoingEvent, error) {
	c, ok := b.Connector(event.Platform)
	if !ok {
		return nil, fmt.Errorf("bus: no connector registered for platform %q", event.Platform)
	}

	ev, err := c.ProcessOutgoing(ctx, event, bloc, instruction)
	if err != nil {
		return nil, err
	}
	if err := b.SendOutgoing(ctx, ev); err != nil {
		return ev, err
	}
	return ev, nil
}
