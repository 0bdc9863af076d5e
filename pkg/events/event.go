package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_PURGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation used by the concrete constructors
// below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Session lifecycle and ingestion event codes.
const (
	TypeSessionCreated   = "SESSION_CREATED"
	TypeSessionPurged    = "SESSION_PURGED"
	TypeSessionReaped    = "SESSION_REAPED"
	TypeDocumentIndexed  = "DOCUMENT_INDEXED"
	TypeDocumentRejected = "DOCUMENT_REJECTED"
)

func NewSessionCreated(sessionID string) Event {
	return BaseEvent{
		Type:       TypeSessionCreated,
		Data:       map[string]interface{}{"session_id": sessionID},
		OccurredAt: time.Now(),
	}
}

func NewSessionPurged(sessionID string, reaped bool) Event {
	typ := TypeSessionPurged
	if reaped {
		typ = TypeSessionReaped
	}
	return BaseEvent{
		Type:       typ,
		Data:       map[string]interface{}{"session_id": sessionID},
		OccurredAt: time.Now(),
	}
}

func NewDocumentIndexed(source string, chunks int, permanent bool) Event {
	return BaseEvent{
		Type: TypeDocumentIndexed,
		Data: map[string]interface{}{
			"source":    source,
			"chunks":    chunks,
			"permanent": permanent,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentRejected(source string, reason string) Event {
	return BaseEvent{
		Type: TypeDocumentRejected,
		Data: map[string]interface{}{
			"source": source,
			"reason": reason,
		},
		OccurredAt: time.Now(),
	}
}
