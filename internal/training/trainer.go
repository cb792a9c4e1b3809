// Package training fits scoring models from labeled identity pairs. Fitting
// is a pure function over (features, labels); the only randomized step is the
// holdout shuffle, driven by a fixed seed so training is reproducible.
package training

import (
	"context"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"unify/internal/domain"
	"unify/internal/features"
	"unify/internal/normalize"
	"unify/internal/scoring"
	"unify/internal/vectors"
	id "unify/pkg/domain"
	dErrors "unify/pkg/domain-errors"
)

// minPairs is the smallest labeled set worth fitting on.
const minPairs = 10

// Embedder produces identity vectors for canonical strings; training reuses
// the same gateway as the check path so the vector_sim feature is computed
// against real embeddings.
type Embedder interface {
	Embed(ctx context.Context, canonical string) ([]float32, error)
}

// Options tunes the training run. Zero values get sensible defaults.
type Options struct {
	LearningRate    float64 // default 0.5
	Iterations      int     // default 1500
	L2              float64 // default 0.01
	Seed            int64   // holdout shuffle seed, default 1
	HoldoutFraction float64 // default 0.2
	ThresholdPolicy string  // scoring.PolicyFixed (default) or scoring.PolicyMaximizeF1
	FixedThreshold  float64 // default scoring.DefaultThreshold
}

func (o Options) withDefaults() Options {
	if o.LearningRate == 0 {
		o.LearningRate = 0.5
	}
	if o.Iterations == 0 {
		o.Iterations = 1500
	}
	if o.L2 == 0 {
		o.L2 = 0.01
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	if o.HoldoutFraction == 0 {
		o.HoldoutFraction = 0.2
	}
	if o.ThresholdPolicy == "" {
		o.ThresholdPolicy = scoring.PolicyFixed
	}
	if o.FixedThreshold == 0 {
		o.FixedThreshold = scoring.DefaultThreshold
	}
	return o
}

// Trainer fits new scoring models from labeled pairs.
type Trainer struct {
	normalizer *normalize.Normalizer
	embedder   Embedder
	opts       Options
}

// NewTrainer wires a Trainer. The normalizer and embedder must be the same
// ones the check path uses, or extraction-time and training-time features
// drift apart.
func NewTrainer(normalizer *normalize.Normalizer, embedder Embedder, opts Options) *Trainer {
	return &Trainer{normalizer: normalizer, embedder: embedder, opts: opts.withDefaults()}
}

// Train fits a new model from the labeled set. The live model is untouched;
// the caller decides when to publish the result.
//
// Errors: CodeTrainingError for insufficient or single-class data, and for
// embedding failures while building features.
func (t *Trainer) Train(ctx context.Context, pairs []domain.LabeledPair, now time.Time) (*scoring.Model, error) {
	if len(pairs) < minPairs {
		return nil, dErrors.Newf(dErrors.CodeTrainingError,
			"need at least %d labeled pairs, got %d", minPairs, len(pairs))
	}

	schema := features.Schema()
	x := mat.NewDense(len(pairs), len(schema), nil)
	y := make([]float64, len(pairs))
	positives := 0
	for i, pair := range pairs {
		fv, err := t.pairFeatures(ctx, pair)
		if err != nil {
			return nil, err
		}
		x.SetRow(i, fv.Values)
		if pair.Same {
			y[i] = 1
			positives++
		}
	}
	if positives == 0 || positives == len(pairs) {
		return nil, dErrors.New(dErrors.CodeTrainingError,
			"labeled set contains a single class; need both duplicate and distinct pairs")
	}

	trainIdx, holdIdx := t.split(len(pairs))
	trainX, trainY := subset(x, y, trainIdx, len(schema))
	if !bothClasses(trainY) {
		// Degenerate shuffle; fit on everything and fall back to the fixed
		// threshold policy.
		trainX, trainY = x, y
		holdIdx = nil
	}

	weights, bias := fitLogistic(trainX, trainY, balancedWeights(trainY), solverOpts{
		learningRate: t.opts.LearningRate,
		iterations:   t.opts.Iterations,
		l2:           t.opts.L2,
	})

	model := &scoring.Model{
		ID:      id.NewModelID(),
		Weights: weights,
		Bias:    bias,
		Schema:  schema,
		Metadata: scoring.Metadata{
			PairCount:       len(pairs),
			TrainedAt:       now,
			ThresholdPolicy: t.opts.ThresholdPolicy,
		},
	}

	model.Threshold = t.opts.FixedThreshold
	if t.opts.ThresholdPolicy == scoring.PolicyMaximizeF1 && len(holdIdx) > 0 {
		holdX, holdY := subset(x, y, holdIdx, len(schema))
		if bothClasses(holdY) {
			model.Threshold = bestF1Threshold(model, holdX, holdY)
		} else {
			model.Metadata.ThresholdPolicy = scoring.PolicyFixed
		}
	}
	return model, nil
}

// pairFeatures extracts a symmetric feature vector for one labeled pair,
// embedding both canonical strings to compute the vector distance.
func (t *Trainer) pairFeatures(ctx context.Context, pair domain.LabeledPair) (features.Vector, error) {
	now := time.Now()
	left, _ := t.normalizer.Record(pair.Left, now)
	right, _ := t.normalizer.Record(pair.Right, now)

	lvec, err := t.embedder.Embed(ctx, normalize.Canonical(left))
	if err != nil {
		return features.Vector{}, dErrors.Wrap(dErrors.CodeTrainingError, "embed left record", err)
	}
	rvec, err := t.embedder.Embed(ctx, normalize.Canonical(right))
	if err != nil {
		return features.Vector{}, dErrors.Wrap(dErrors.CodeTrainingError, "embed right record", err)
	}
	return features.Extract(left, right, vectors.CosineDistance(lvec, rvec)), nil
}

// split returns deterministic train/holdout index sets.
func (t *Trainer) split(n int) (train, holdout []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(t.opts.Seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	cut := int(float64(n) * t.opts.HoldoutFraction)
	return idx[cut:], idx[:cut]
}

// balancedWeights mirrors sklearn's class_weight="balanced":
// weight = n / (2 * class_count).
func balancedWeights(y []float64) []float64 {
	pos := 0
	for _, label := range y {
		if label == 1 {
			pos++
		}
	}
	neg := len(y) - pos
	wPos := float64(len(y)) / (2 * float64(pos))
	wNeg := float64(len(y)) / (2 * float64(neg))

	out := make([]float64, len(y))
	for i, label := range y {
		if label == 1 {
			out[i] = wPos
		} else {
			out[i] = wNeg
		}
	}
	return out
}

func subset(x *mat.Dense, y []float64, idx []int, d int) (*mat.Dense, []float64) {
	outX := mat.NewDense(len(idx), d, nil)
	outY := make([]float64, len(idx))
	for i, j := range idx {
		outX.SetRow(i, mat.Row(nil, j, x))
		outY[i] = y[j]
	}
	return outX, outY
}

func bothClasses(y []float64) bool {
	if len(y) == 0 {
		return false
	}
	first := y[0]
	for _, label := range y[1:] {
		if label != first {
			return true
		}
	}
	return false
}

// bestF1Threshold sweeps candidate thresholds over the holdout scores and
// returns the one maximizing F1, preferring higher thresholds on ties.
func bestF1Threshold(model *scoring.Model, x *mat.Dense, y []float64) float64 {
	n, _ := x.Dims()
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		fv := features.Vector{Names: model.Schema, Values: mat.Row(nil, i, x)}
		p, err := model.Score(fv)
		if err != nil {
			// Schema comes from the same extractor; a mismatch here is a bug.
			return scoring.DefaultThreshold
		}
		scores[i] = p
	}

	best := scoring.DefaultThreshold
	bestF1 := -1.0
	for _, threshold := range scores {
		f1 := f1At(scores, y, threshold)
		if f1 > bestF1 || (f1 == bestF1 && threshold > best) {
			bestF1 = f1
			best = threshold
		}
	}
	return best
}

func f1At(scores, y []float64, threshold float64) float64 {
	var tp, fp, fn float64
	for i, s := range scores {
		predicted := s >= threshold
		actual := y[i] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	return 2 * tp / (2*tp + fp + fn)
}
