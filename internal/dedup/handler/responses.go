package handler

import (
	"time"

	"unify/internal/domain"
	"unify/internal/scoring"
)

// IngestResponse acknowledges a stored identity.
type IngestResponse struct {
	EntityID   string    `json:"entity_id"`
	IngestedAt time.Time `json:"ingested_at"`
}

// CandidateResponse is one scored candidate in a check's evidence list.
type CandidateResponse struct {
	EntityID string  `json:"entity_id"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// CheckResponse is the outcome of a duplicate check.
type CheckResponse struct {
	IsDuplicate bool                `json:"is_duplicate"`
	Score       float64             `json:"score"`
	ModelID     string              `json:"model_id"`
	BestMatch   *CandidateResponse  `json:"best_match,omitempty"`
	Candidates  []CandidateResponse `json:"candidates"`
}

// ModelResponse describes a scoring model artifact.
type ModelResponse struct {
	ID              string    `json:"id"`
	Weights         []float64 `json:"weights"`
	Bias            float64   `json:"bias"`
	Threshold       float64   `json:"threshold"`
	Schema          []string  `json:"schema"`
	PairCount       int       `json:"pair_count"`
	TrainedAt       time.Time `json:"trained_at"`
	ThresholdPolicy string    `json:"threshold_policy"`
}

func fromEntity(e domain.StoredEntity) IngestResponse {
	return IngestResponse{EntityID: e.ID.String(), IngestedAt: e.IngestedAt}
}

func fromCandidate(c domain.Candidate) CandidateResponse {
	return CandidateResponse{
		EntityID: c.Entity.ID.String(),
		Distance: c.Distance,
		Score:    c.Score,
	}
}

func fromResult(r domain.DuplicateCheckResult) CheckResponse {
	resp := CheckResponse{
		IsDuplicate: r.IsDuplicate,
		Score:       r.Score,
		ModelID:     r.ModelID.String(),
		Candidates:  make([]CandidateResponse, 0, len(r.Candidates)),
	}
	if r.BestMatch != nil {
		best := fromCandidate(*r.BestMatch)
		resp.BestMatch = &best
	}
	for _, c := range r.Candidates {
		resp.Candidates = append(resp.Candidates, fromCandidate(c))
	}
	return resp
}

func fromModel(m *scoring.Model) ModelResponse {
	return ModelResponse{
		ID:              m.ID.String(),
		Weights:         m.Weights,
		Bias:            m.Bias,
		Threshold:       m.Threshold,
		Schema:          m.Schema,
		PairCount:       m.Metadata.PairCount,
		TrainedAt:       m.Metadata.TrainedAt,
		ThresholdPolicy: m.Metadata.ThresholdPolicy,
	}
}
