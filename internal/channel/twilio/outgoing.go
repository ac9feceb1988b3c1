package twilio

import (
	"context"
	"time"

	"github.com/smsbridge/smsbridge/internal/bus"
	"github.com/smsbridge/smsbridge/internal/config"
	"github.com/smsbridge/smsbridge/internal/domain"
	"github.com/smsbridge/smsbridge/internal/logging"
	"github.com/smsbridge/smsbridge/internal/store"
)

// Outgoing pipeline registration.
const (
	MiddlewareName     = "twilio.sendSms"
	MiddlewarePriority = 100

	defaultSendTimeout = 30 * time.Second
)

// SendPayload is the carrier send request. Exactly one of From and
// MessagingServiceSID is populated; they are mutually exclusive routing
// identifiers.
type SendPayload struct {
	To                  string `json:"to"`
	Body                string `json:"body"`
	From                string `json:"from,omitempty"`
	MessagingServiceSID string `json:"messagingServiceSid,omitempty"`
}

// SendResult is the carrier's acknowledgment of an accepted message.
type SendResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Sender is the external send capability. One call means one attempt;
// retry behavior belongs to the implementation, not this stage.
type Sender interface {
	CreateMessage(ctx context.Context, p SendPayload) (SendResult, error)
}

// DeliveryLog records settled send attempts.
type DeliveryLog interface {
	Record(ctx context.Context, d store.Delivery) error
}

// Emitter publishes bus events for observers.
type Emitter interface {
	Emit(ev bus.Event)
}

// Outgoing is the channel's stage in the bus's outgoing pipeline. Events
// for other platforms pass through untouched; events for this channel are
// sent via the carrier and their completion signal settled once the send
// settles.
type Outgoing struct {
	sender              Sender
	fromNumber          string
	messagingServiceSID string
	timeout             time.Duration
	deliveries          DeliveryLog
	events              Emitter
	log                 *logging.Logger
}

// NewOutgoing creates the outgoing send stage. deliveries and events may
// be nil when auditing or observation is not wired.
func NewOutgoing(sender Sender, cfg config.TwilioConfig, deliveries DeliveryLog, events Emitter, log *logging.Logger) *Outgoing {
	timeout := time.Duration(cfg.SendTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Outgoing{
		sender:              sender,
		fromNumber:          cfg.FromNumber,
		messagingServiceSID: cfg.MessagingServiceSID,
		timeout:             timeout,
		deliveries:          deliveries,
		events:              events,
		log:                 log.Sub("twilio.outgoing"),
	}
}

// Register adds this stage and the channel's connector to the bus.
func (o *Outgoing) Register(b *bus.Bus) {
	b.RegisterOutgoing(MiddlewareName, MiddlewarePriority, o.Handle)
	b.RegisterConnector(Connector())
}

// Handle is the bus middleware entry point.
func (o *Outgoing) Handle(ctx context.Context, ev *domain.OutgoingEvent, next func() error) error {
	if ev.Platform != Platform {
		return next()
	}

	payload := o.buildPayload(ev)
	go o.send(ev, payload)
	return nil
}

// buildPayload maps an outgoing event onto the carrier send request. The
// messaging service identifier takes precedence over the sender number
// when both are configured.
func (o *Outgoing) buildPayload(ev *domain.OutgoingEvent) SendPayload {
	p := SendPayload{
		To:   destinationNumber(ev.User, ev.Raw),
		Body: ev.Text,
	}
	if o.messagingServiceSID != "" {
		p.MessagingServiceSID = o.messagingServiceSID
	} else {
		p.From = o.fromNumber
	}
	return p
}

// send performs the single asynchronous send attempt and settles the
// event's completion signal. A send that outlives the timeout fails the
// signal rather than leaving it pending forever.
func (o *Outgoing) send(ev *domain.OutgoingEvent, p SendPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	routing := p.MessagingServiceSID
	if routing == "" {
		routing = p.From
	}

	res, err := o.sender.CreateMessage(ctx, p)
	if err != nil {
		o.log.Error().Err(err).Str("to", p.To).Msg("send failed")
		if ev.Completion != nil {
			ev.Completion.Fail(err)
		}
		o.emit(bus.Event{Kind: bus.EventOutboundFailed, Payload: p})
		o.record(store.Delivery{
			Recipient: p.To,
			Body:      p.Body,
			Routing:   routing,
			Status:    store.DeliveryFailed,
			Error:     err.Error(),
		})
		return
	}

	o.log.Debug().Str("to", p.To).Str("sid", res.SID).Msg("message sent")
	if ev.Completion != nil {
		ev.Completion.Resolve()
	}
	o.emit(bus.Event{Kind: bus.EventOutboundSent, Payload: p})
	o.record(store.Delivery{
		Recipient:  p.To,
		Body:       p.Body,
		Routing:    routing,
		Status:     store.DeliverySent,
		MessageSID: res.SID,
	})
}

func (o *Outgoing) emit(ev bus.Event) {
	if o.events != nil {
		o.events.Emit(ev)
	}
}

func (o *Outgoing) record(d store.Delivery) {
	if o.deliveries == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.deliveries.Record(ctx, d); err != nil {
		o.log.Error().Err(err).Str("to", d.Recipient).Msg("failed to record delivery")
	}
}
