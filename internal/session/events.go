package session

import "github.com/genvex/tunnel/internal/tunnel"

// EventKind discriminates Event. Events are a closed sum type delivered
// over a channel rather than dispatched through string-keyed callbacks
// (spec.md section 9, "callback/event fan-out").
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventModel
	// EventData is emitted for a DATA frame whose sequence number
	// matched no pending request — diagnostic only, spec.md section 4.3.
	EventData
	EventError
)

// Event is one notification pushed onto Session.Events().
type Event struct {
	Kind  EventKind
	Model tunnel.ModelInfo // valid when Kind == EventModel
	SeqID uint16           // valid when Kind == EventData
	Err   error            // valid when Kind == EventDisconnected or EventError
}
