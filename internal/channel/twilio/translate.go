// Package twilio implements the Twilio SMS channel: instruction
// translation, the outgoing send stage, webhook signature validation and
// inbound payload normalization.
package twilio

import (
	"context"
	"fmt"
	"slices"

	"github.com/smsbridge/smsbridge/internal/bus"
	"github.com/smsbridge/smsbridge/internal/domain"
)

// Platform is the channel identifier on canonical envelopes.
const Platform = "twilio"

// optionFields are the channel-neutral option keys extracted from an
// instruction before content detection. Any future content type gets its
// own explicit branch in Translate, never inference.
var optionFields = []string{"typing"}

// UnrecognizedInstructionError reports an outgoing instruction with no
// recognized content field. This is a programming or template error, not
// a droppable condition.
type UnrecognizedInstructionError struct {
	Bloc        string
	Instruction domain.Instruction
}

func (e *UnrecognizedInstructionError) Error() string {
	return fmt.Sprintf("twilio: unrecognized instruction in bloc %q: %v", e.Bloc, map[string]any(e.Instruction))
}

// splitInstruction separates option fields from content fields. The input
// instruction is never mutated.
func splitInstruction(ins domain.Instruction) (content, options map[string]any) {
	content = make(map[string]any, len(ins))
	options = make(map[string]any, len(optionFields))
	for k, v := range ins {
		if slices.Contains(optionFields, k) {
			options[k] = v
		} else {
			content[k] = v
		}
	}
	return content, options
}

// destinationNumber resolves the destination from the originating event's
// routing metadata.
func destinationNumber(user domain.User, raw map[string]any) string {
	if user.Number != "" {
		return user.Number
	}
	if user.ID != "" {
		return user.ID
	}
	if to, ok := raw["to"].(string); ok {
		return to
	}
	return ""
}

// Translate converts a bot send-instruction into a canonical outgoing
// event carrying a fresh completion signal. It fails with
// UnrecognizedInstructionError when no recognized content field is found.
func Translate(event domain.IncomingMessage, bloc string, ins domain.Instruction) (*domain.OutgoingEvent, error) {
	content, options := splitInstruction(ins)

	if text, ok := domain.Instruction(content).Text(); ok {
		number := destinationNumber(event.User, event.Raw)

		raw := map[string]any{"to": number, "message": text}
		for k, opt := range options {
			raw[k] = opt
		}

		return &domain.OutgoingEvent{
			Platform:   Platform,
			Type:       domain.TypeText,
			User:       domain.User{ID: number, Number: number},
			Text:       text,
			Raw:        raw,
			Completion: domain.NewCompletion(),
		}, nil
	}

	return nil, &UnrecognizedInstructionError{Bloc: bloc, Instruction: ins}
}

// Connector returns the bus connector registration for this channel.
func Connector() bus.Connector {
	return bus.Connector{
		Platform: Platform,
		ProcessOutgoing: func(ctx context.Context, event domain.IncomingMessage, bloc string, ins domain.Instruction) (*domain.OutgoingEvent, error) {
			return Translate(event, bloc, ins)
		},
		Templates: []string{},
	}
}
