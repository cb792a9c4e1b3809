package scoring

import (
	"math"

	"unify/internal/features"
	dErrors "unify/pkg/domain-errors"
)

// Score maps a feature vector to a duplicate probability in (0,1).
//
// The vector's signal names must match the model schema exactly, by name and
// order. A mismatch means the extractor and the model were built against
// different feature sets and fails with CodeModelSchemaMismatch rather than
// silently misaligning weights.
func (m *Model) Score(fv features.Vector) (float64, error) {
	if err := m.validateSchema(fv); err != nil {
		return 0, err
	}
	z := m.Bias
	for i, w := range m.Weights {
		z += w * fv.Values[i]
	}
	return sigmoid(z), nil
}

func (m *Model) validateSchema(fv features.Vector) error {
	names := fv.Names
	if len(names) != len(m.Schema) || len(names) != len(m.Weights) {
		return dErrors.Newf(dErrors.CodeModelSchemaMismatch,
			"feature vector has %d signals, model expects %d", len(names), len(m.Schema))
	}
	if len(fv.Values) != len(names) {
		return dErrors.Newf(dErrors.CodeModelSchemaMismatch,
			"feature vector has %d values for %d signals", len(fv.Values), len(names))
	}
	for i, name := range names {
		if name != m.Schema[i] {
			return dErrors.Newf(dErrors.CodeModelSchemaMismatch,
				"signal %d is %q, model expects %q", i, name, m.Schema[i])
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
