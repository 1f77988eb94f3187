package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quickbite/orders-service/internal/domain"
)

// KeepAliveInterval is how often an open event stream emits a
// comment-only frame to keep intermediaries from closing it.
const KeepAliveInterval = 25 * time.Second

// EventSource is the subscription side of the broadcaster.
type EventSource interface {
	Subscribe() (uuid.UUID, <-chan domain.Event)
	Unsubscribe(id uuid.UUID)
}

// EventsHandler serves the server-sent-events stream of order
// lifecycle notifications.
type EventsHandler struct {
	source            EventSource
	logger            *slog.Logger
	keepAliveInterval time.Duration
}

// NewEventsHandler creates a new EventsHandler instance
func NewEventsHandler(source EventSource, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		source:            source,
		logger:            logger,
		keepAliveInterval: KeepAliveInterval,
	}
}

// Stream handles GET /events - holds the connection open and writes
// one SSE frame per published event until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteErrorResponse(w, http.StatusInternalServerError, "Streaming unsupported",
			"The server connection does not support event streams")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	subID, events := h.source.Subscribe()
	defer h.source.Unsubscribe(subID)

	h.logger.Info("event stream opened", "subscriber_id", subID)

	// Leading comment so the client sees the stream is live before the
	// first event arrives.
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("event stream closed", "subscriber_id", subID)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				h.logger.Warn("failed to write event", "subscriber_id", subID, "error", err)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				h.logger.Warn("failed to write keep-alive", "subscriber_id", subID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event domain.Event) error {
	data, err := json.Marshal(event.Order)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
