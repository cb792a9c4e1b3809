// Package decision turns scored candidates into a duplicate-check outcome.
// The ranking and tie-break rules live here so they stay centralized and
// testable.
package decision

import (
	"sort"

	"unify/internal/domain"
)

// Engine applies the decision threshold and ranks candidates.
type Engine struct {
	// evidenceSize caps the ranked list carried in results; 0 means no cap.
	evidenceSize int
}

// NewEngine creates an Engine that returns at most evidenceSize ranked
// candidates per result.
func NewEngine(evidenceSize int) *Engine {
	return &Engine{evidenceSize: evidenceSize}
}

// Decide ranks scored candidates and applies the threshold. The threshold
// boundary is inclusive: a top score exactly at the threshold is a duplicate.
// An empty candidate set is a valid outcome, not an error.
//
// Ranking: score descending; ties break by ascending vector distance, then by
// earliest ingestion time, then by entity ID for full determinism.
func (e *Engine) Decide(scored []domain.Candidate, threshold float64) domain.DuplicateCheckResult {
	if len(scored) == 0 {
		return domain.DuplicateCheckResult{Candidates: []domain.Candidate{}}
	}

	ranked := append([]domain.Candidate{}, scored...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if !a.Entity.IngestedAt.Equal(b.Entity.IngestedAt) {
			return a.Entity.IngestedAt.Before(b.Entity.IngestedAt)
		}
		return a.Entity.ID.String() < b.Entity.ID.String()
	})

	best := ranked[0]
	if e.evidenceSize > 0 && len(ranked) > e.evidenceSize {
		ranked = ranked[:e.evidenceSize]
	}
	return domain.DuplicateCheckResult{
		IsDuplicate: best.Score >= threshold,
		Score:       best.Score,
		BestMatch:   &best,
		Candidates:  ranked,
	}
}
