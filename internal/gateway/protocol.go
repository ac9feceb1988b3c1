package gateway

import "time"

// FrameTypeEvent is the only frame type the feed emits; the feed is a
// one-way stream, clients never send request frames.
const FrameTypeEvent = "event"

// Frame is one JSON message on the WebSocket event feed.
type Frame struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Seq     int64  `json:"seq"`
	TS      int64  `json:"ts"`
	Payload any    `json:"payload,omitempty"`
}

// NewEventFrame builds an event frame with the current timestamp.
func NewEventFrame(event string, payload any, seq int64) Frame {
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Seq:     seq,
		TS:      time.Now().UnixMilli(),
		Payload: payload,
	}
}
