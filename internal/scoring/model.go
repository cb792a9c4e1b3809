// Package scoring maps feature vectors to duplicate probabilities with a
// logistic model and manages the live-model reference checks score against.
package scoring

import (
	"time"

	"unify/internal/features"
	id "unify/pkg/domain"
)

// Threshold policies recorded in model metadata.
const (
	PolicyFixed      = "fixed"
	PolicyMaximizeF1 = "maximize_f1"
	PolicyHeuristic  = "heuristic_default"
)

// DefaultThreshold applies until a trained model selects its own.
const DefaultThreshold = 0.82

// Metadata describes how a model was produced.
type Metadata struct {
	PairCount       int       `json:"pair_count"`
	TrainedAt       time.Time `json:"trained_at"`
	ThresholdPolicy string    `json:"threshold_policy"`
}

// Model is a published scoring artifact: logistic weights over a named
// feature schema plus the decision threshold. Read-only once published;
// training creates a new Model rather than mutating one.
type Model struct {
	ID        id.ModelID `json:"id"`
	Weights   []float64  `json:"weights"` // index-aligned with Schema
	Bias      float64    `json:"bias"`
	Threshold float64    `json:"threshold"`
	Schema    []string   `json:"schema"`
	Metadata  Metadata   `json:"metadata"`
}

// Default returns the heuristic fallback model used before any training has
// run. Hard identifiers (government ID, phone, email) dominate, softer
// signals contribute smaller amounts; weights are hand-set so that a full
// exact match clears the threshold comfortably while shared geography alone
// stays well below it.
func Default(now time.Time) *Model {
	return &Model{
		ID: id.NewModelID(),
		Weights: []float64{
			2.0,  // vector_sim
			1.5,  // name_sim
			3.0,  // phone_match
			3.0,  // email_match
			4.0,  // govid_match
			1.0,  // addr_overlap
			0.5,  // city_sim
			0.25, // state_sim
			1.0,  // postal_match
			1.5,  // dob_proximity
		},
		Bias:      -6.0,
		Threshold: DefaultThreshold,
		Schema:    features.Schema(),
		Metadata: Metadata{
			TrainedAt:       now,
			ThresholdPolicy: PolicyHeuristic,
		},
	}
}
