package model

import "time"

// CompetenceMap maps a concept identifier to the learner's mastery
// probability in [0,1]. Concepts absent from the map are unobserved and
// carry the estimator's default prior.
type CompetenceMap map[string]float64

// Clone returns a copy safe to hand out as a snapshot.
func (m CompetenceMap) Clone() CompetenceMap {
	if m == nil {
		return nil
	}
	out := make(CompetenceMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// LearnerProfile is the aggregate root for a single learner. Profiles
// are created by an external provisioning process and mutated only by
// the competence store.
type LearnerProfile struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	EngagementScore float64       `json:"engagementScore"`
	CompetenceMap   CompetenceMap `json:"competenceMap"`

	// Version increments on every persisted update and backs the
	// conditional write that serializes concurrent consumers.
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContentNode is a piece of learning content. Metadata is arbitrary
// JSON; nodes teaching a concept embed a "conceptId" key.
type ContentNode struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  map[string]any `json:"metadata"`
}

// ConceptID extracts the taught concept from the node metadata, or ""
// when the node is not bound to a concept.
func (n *ContentNode) ConceptID() string {
	if n.Metadata == nil {
		return ""
	}
	if v, ok := n.Metadata["conceptId"].(string); ok {
		return v
	}
	return ""
}

// Interaction is one recorded learner activity, used for the trailing
// activity window in reports.
type Interaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ContentNodeID string    `json:"contentNodeId"`
	CreatedAt     time.Time `json:"createdAt"`
}
