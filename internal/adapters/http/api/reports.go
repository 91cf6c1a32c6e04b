// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/internal/domain/report"
)

// ReportDependencies triggers background report jobs and reads stored
// reports.
type ReportDependencies interface {
	TriggerReport(userID string, tier report.Tier)
	LatestReport(ctx context.Context, userID string) (*model.Report, error)
}

// ReportsHandler handles report requests.
type ReportsHandler struct {
	deps ReportDependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps ReportDependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

type reportRequest struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
}

// HandleGenerate handles POST /reports/generate requests. Generation
// runs in the background; the call acknowledges with 202.
func (h *ReportsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing userId"))
		return
	}

	tier := report.TierFree
	if req.Tier == string(report.TierDetailed) {
		tier = report.TierDetailed
	}

	h.deps.TriggerReport(req.UserID, tier)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Report generation has been queued.",
	})
}

// HandleLatest handles GET /reports/latest?userId= requests.
func (h *ReportsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing userId"))
		return
	}

	rep, err := h.deps.LatestReport(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
