package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/chorecast/internal/platform/logger"
)

// InMemoryEventEmitter dispatches events synchronously to handlers registered
// in memory.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
// If logger is nil, a default logger will be used.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		handlers: make([]EventHandler, 0),
		logger:   logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a new event handler to receive events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", "handler_count", len(e.handlers))
}

// EmitEvent publishes the given event to all registered handlers.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	log := logger.FromContextOrDefault(ctx, e.logger)

	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// LoggingHandler records every event at info level. It stands in for
// notification delivery, which lives outside this service.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler. If logger is nil, a default
// logger will be used.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With("component", "event_log")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	logger.FromContextOrDefault(ctx, h.logger).Info("domain event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("payload", string(event.Payload)))
	return nil
}

// HandlerFunc adapts an ordinary function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// ForTypes wraps h so that it only receives events of the given types.
func ForTypes(h EventHandler, types ...string) EventHandler {
	accepted := make(map[string]struct{}, len(types))
	for _, t := range types {
		accepted[t] = struct{}{}
	}
	return HandlerFunc(func(ctx context.Context, event *Event) error {
		if _, ok := accepted[event.Type]; !ok {
			return nil
		}
		return h.HandleEvent(ctx, event)
	})
}
