package events

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

type subscription struct {
	prefix  string
	handler Handler
}

// InMemoryEmitter dispatches events synchronously to handlers registered
// in process.
type InMemoryEmitter struct {
	subs   []subscription
	mu     sync.RWMutex
	logger *slog.Logger
}

var _ Emitter = (*InMemoryEmitter)(nil)

// NewInMemoryEmitter creates an emitter with no handlers.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// Subscribe registers handler for every event whose type starts with
// prefix. An empty prefix matches all events.
func (e *InMemoryEmitter) Subscribe(prefix string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{prefix: prefix, handler: handler})
	e.logger.Debug("registered event handler",
		slog.String("prefix", prefix),
		slog.Int("handler_count", len(e.subs)))
}

// Emit publishes the event to all matching handlers. A failing handler does
// not stop delivery to the others; the first error is returned.
func (e *InMemoryEmitter) Emit(ctx context.Context, event *Event) error {
	e.mu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	var firstErr error
	delivered := 0
	for _, sub := range subs {
		if !strings.HasPrefix(event.Type, sub.prefix) {
			continue
		}
		delivered++
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				slog.String("error", err.Error()),
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.Type))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	e.logger.Debug("emitted event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.Int("delivered", delivered))

	return firstErr
}

// LogHandler returns a handler that records every event at debug level.
func LogHandler(logger *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, event *Event) error {
		logger.DebugContext(ctx, "event",
			slog.String("event_type", event.Type),
			slog.String("user_id", event.UserID.String()),
			slog.String("payload", string(event.Payload)))
		return nil
	})
}
