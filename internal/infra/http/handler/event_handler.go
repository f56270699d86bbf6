package handler

import (
	"net/http"
	"time"

	"github.com/makerstokyo/api/internal/app"
	"github.com/makerstokyo/api/pkg/logger"
)

// EventHandler accepts events from trusted services. Requests reach it only
// through the signature middleware.
type EventHandler struct {
	service *app.EventService
	logger  *logger.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *app.EventService, log *logger.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		logger:  log.With("handler", "event"),
	}
}

// IngestEventResponse acknowledges an accepted event.
type IngestEventResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Ingest handles POST /api/v1/internal/events.
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req app.IngestEventInput
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	e, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusAccepted, IngestEventResponse{ID: e.ID, Type: e.Type, OccurredAt: e.OccurredAt})
}
