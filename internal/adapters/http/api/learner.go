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

// LearnerDependencies covers profile and content provisioning plus
// recommendations.
type LearnerDependencies interface {
	CreateProfile(ctx context.Context, userID string) (*model.LearnerProfile, error)
	PutContent(ctx context.Context, node *model.ContentNode) error
	Recommend(ctx context.Context, userID string) (*model.ContentNode, error)
}

// LearnerHandler handles profile, content and recommendation requests.
type LearnerHandler struct {
	deps LearnerDependencies
}

// NewLearnerHandler creates a new learner handler.
func NewLearnerHandler(deps LearnerDependencies) *LearnerHandler {
	return &LearnerHandler{deps: deps}
}

type userRequest struct {
	UserID string `json:"userId"`
}

func decodeUserRequest(r *http.Request) (string, error) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return "", errors.New("missing userId")
	}
	return req.UserID, nil
}

// HandlePostProfile handles POST /profiles requests.
func (h *LearnerHandler) HandlePostProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	userID, err := decodeUserRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	p, err := h.deps.CreateProfile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type contentRequest struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// HandlePostContent handles POST /content requests.
func (h *LearnerHandler) HandlePostContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	node := &model.ContentNode{ID: req.ID, Metadata: req.Metadata}
	if node.ConceptID() == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("metadata.conceptId is required"))
		return
	}

	if err := h.deps.PutContent(r.Context(), node); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

type recommendationResponse struct {
	ContentNodeID *string `json:"contentNodeId"`
}

// HandleRecommend handles POST /recommend requests. A learner who has
// mastered everything gets a null contentNodeId, matching the contract
// that exhausted recommendations are not an error.
func (h *LearnerHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	userID, err := decodeUserRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	node, err := h.deps.Recommend(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if node == nil {
		writeJSON(w, http.StatusOK, recommendationResponse{ContentNodeID: nil})
		return
	}
	writeJSON(w, http.StatusOK, recommendationResponse{ContentNodeID: &node.ID})
}
