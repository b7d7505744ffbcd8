package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeCardInitialized = "progress.card_initialized"
	TypeReviewRecorded  = "progress.review_recorded"
	TypeQuizRecorded    = "progress.quiz_attempt_recorded"
	TypeProgressChanged = "progress.changed"
	TypeProgressReset   = "progress.reset"
	TypeSyncCompleted   = "sync.completed"
	TypeSyncFailed      = "sync.failed"

	// PrefixProgress matches every learner activity event.
	PrefixProgress = "progress."
)

// Event is a notification about something that happened to one learner.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type constants
	Type string `json:"type"`

	// UserID identifies the learner the event is about
	UserID uuid.UUID `json:"user_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event with the specified type and payload. A nil
// payload leaves Payload empty.
func NewEvent(eventType string, userID uuid.UUID, payload interface{}) (*Event, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Handler processes events.
type Handler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Emitter publishes events to interested handlers.
type Emitter interface {
	Emit(ctx context.Context, event *Event) error
}
