// Package domain defines the canonical message shapes exchanged between
// the bot bus and the carrier channel.
package domain

// Message type values used on canonical envelopes.
const (
	TypeMessage = "message"
	TypeText    = "text"
)

// MediaItem is one attachment declared on an inbound carrier message.
type MediaItem struct {
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// IncomingMessage is the bus's canonical inbound envelope. Media is nil
// (and omitted from JSON) when the carrier payload declared no attachments.
type IncomingMessage struct {
	Platform string         `json:"platform"`
	Type     string         `json:"type"`
	User     User           `json:"user"`
	Text     string         `json:"text"`
	Media    []MediaItem    `json:"media,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// OutgoingEvent is the bus's canonical outbound envelope, produced by a
// channel translator. Completion is created by the translator and resolved
// or failed exactly once by the send stage.
type OutgoingEvent struct {
	Platform   string         `json:"platform"`
	Type       string         `json:"type"`
	User       User           `json:"user"`
	Text       string         `json:"text"`
	Raw        map[string]any `json:"raw,omitempty"`
	Completion *Completion    `json:"-"`
}

// Instruction is a bot-generated send instruction. Recognized content
// fields (currently only "text") select the translation branch; option
// fields such as "typing" are extracted separately; anything else is
// discarded by the translator.
type Instruction map[string]any

// Text returns the "text" content field, reporting whether it was present
// as a string.
func (in Instruction) Text() (string, bool) {
	v, ok := in["text"]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
