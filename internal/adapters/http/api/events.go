// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lernado/sage/internal/domain/model"
)

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	Enqueue(ctx context.Context, e model.InteractionEvent) bool
}

// EventsHandler handles event ingestion requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the wire schema for POST /events. Unknown
// fields are ignored; payload-level validation happens in the
// consumer so a malformed event is acknowledged here and skipped
// there.
type eventRequest struct {
	EventID         string          `json:"eventId"`
	InteractionType string          `json:"interactionType"`
	UserID          string          `json:"userId"`
	Data            model.EventData `json:"data"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.InteractionType) == "":
		return errors.New("missing interactionType")
	case strings.TrimSpace(e.UserID) == "":
		return errors.New("missing userId")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ok := h.deps.Enqueue(r.Context(), model.InteractionEvent{
		EventID:         req.EventID,
		InteractionType: req.InteractionType,
		UserID:          req.UserID,
		Data:            req.Data,
	})
	if !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
