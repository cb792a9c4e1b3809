package training

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unify/internal/domain"
	"unify/internal/features"
	"unify/internal/normalize"
	"unify/internal/scoring"
	dErrors "unify/pkg/domain-errors"
)

// constantEmbedder returns the same vector for every input so vector_sim is a
// constant signal and the solver must rely on the field features.
type constantEmbedder struct{}

func (constantEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// govIDSeparatedPairs builds 50 duplicate pairs that always share a
// government ID and 50 distinct pairs that never do. Other signals carry
// deliberate noise so no field except gov_id separates the classes cleanly.
func govIDSeparatedPairs() []domain.LabeledPair {
	var pairs []domain.LabeledPair
	for i := 0; i < 50; i++ {
		govID := fmt.Sprintf("GOV%04d", i)
		pairs = append(pairs, domain.LabeledPair{
			Left:  domain.RawRecord{FullName: fmt.Sprintf("Person %d", i), DOB: "1990-03-15", GovID: govID},
			Right: domain.RawRecord{FullName: fmt.Sprintf("Persn %d", i), DOB: "1990-03-15", GovID: govID},
			Same:  true,
		})
	}
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("Person %d", i)
		otherName := fmt.Sprintf("Someone %d", i)
		dob := fmt.Sprintf("19%02d-07-01", 60+i%30)
		otherDOB := fmt.Sprintf("19%02d-01-01", 60+(i+5)%30)
		if i%5 == 0 {
			// Noise: some distinct people share a name or birthday.
			otherName = name
			otherDOB = dob
		}
		pairs = append(pairs, domain.LabeledPair{
			Left:  domain.RawRecord{FullName: name, DOB: dob, GovID: fmt.Sprintf("GOVA%04d", i)},
			Right: domain.RawRecord{FullName: otherName, DOB: otherDOB, GovID: fmt.Sprintf("GOVB%04d", i)},
			Same:  false,
		})
	}
	return pairs
}

func newTrainer(opts Options) *Trainer {
	return NewTrainer(normalize.New(), constantEmbedder{}, opts)
}

func TestTrain(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("government id signal dominates when it separates the classes", func(t *testing.T) {
		model, err := newTrainer(Options{}).Train(ctx, govIDSeparatedPairs(), now)
		require.NoError(t, err)

		byName := make(map[string]float64, len(model.Schema))
		for i, name := range model.Schema {
			byName[name] = model.Weights[i]
		}
		govWeight := byName[features.SignalGovIDMatch]
		assert.Greater(t, govWeight, 0.0)

		magnitudes := append([]float64{}, model.Weights...)
		for i := range magnitudes {
			if magnitudes[i] < 0 {
				magnitudes[i] = -magnitudes[i]
			}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(magnitudes)))
		assert.GreaterOrEqual(t, govWeight, magnitudes[2],
			"gov id weight should be among the largest magnitudes")
	})

	t.Run("fitted model separates the training classes", func(t *testing.T) {
		trainer := newTrainer(Options{})
		model, err := trainer.Train(ctx, govIDSeparatedPairs(), now)
		require.NoError(t, err)

		dup, err := trainer.pairFeatures(ctx, domain.LabeledPair{
			Left:  domain.RawRecord{FullName: "New Person", DOB: "1988-02-02", GovID: "GOVX1"},
			Right: domain.RawRecord{FullName: "New Persn", DOB: "1988-02-02", GovID: "GOVX1"},
		})
		require.NoError(t, err)
		pDup, err := model.Score(dup)
		require.NoError(t, err)

		distinct, err := trainer.pairFeatures(ctx, domain.LabeledPair{
			Left:  domain.RawRecord{FullName: "New Person", DOB: "1988-02-02", GovID: "GOVX1"},
			Right: domain.RawRecord{FullName: "Entirely Other", DOB: "1971-11-30", GovID: "GOVY2"},
		})
		require.NoError(t, err)
		pDistinct, err := model.Score(distinct)
		require.NoError(t, err)

		assert.Greater(t, pDup, pDistinct)
	})

	t.Run("training is deterministic for a fixed seed", func(t *testing.T) {
		pairs := govIDSeparatedPairs()
		a, err := newTrainer(Options{Seed: 7}).Train(ctx, pairs, now)
		require.NoError(t, err)
		b, err := newTrainer(Options{Seed: 7}).Train(ctx, pairs, now)
		require.NoError(t, err)
		assert.Equal(t, a.Weights, b.Weights)
		assert.Equal(t, a.Bias, b.Bias)
		assert.Equal(t, a.Threshold, b.Threshold)
	})

	t.Run("rejects too few pairs", func(t *testing.T) {
		_, err := newTrainer(Options{}).Train(ctx, govIDSeparatedPairs()[:5], now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTrainingError))
	})

	t.Run("rejects single-class data", func(t *testing.T) {
		pairs := govIDSeparatedPairs()[:50] // all duplicates
		_, err := newTrainer(Options{}).Train(ctx, pairs, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTrainingError))
	})

	t.Run("fixed policy uses the configured threshold", func(t *testing.T) {
		model, err := newTrainer(Options{FixedThreshold: 0.9}).Train(ctx, govIDSeparatedPairs(), now)
		require.NoError(t, err)
		assert.Equal(t, 0.9, model.Threshold)
		assert.Equal(t, scoring.PolicyFixed, model.Metadata.ThresholdPolicy)
	})

	t.Run("f1 policy selects a threshold from the holdout", func(t *testing.T) {
		model, err := newTrainer(Options{ThresholdPolicy: scoring.PolicyMaximizeF1}).
			Train(ctx, govIDSeparatedPairs(), now)
		require.NoError(t, err)
		assert.Greater(t, model.Threshold, 0.0)
		assert.Less(t, model.Threshold, 1.0)
		assert.Equal(t, scoring.PolicyMaximizeF1, model.Metadata.ThresholdPolicy)
	})

	t.Run("metadata records the run", func(t *testing.T) {
		pairs := govIDSeparatedPairs()
		model, err := newTrainer(Options{}).Train(ctx, pairs, now)
		require.NoError(t, err)
		assert.Equal(t, len(pairs), model.Metadata.PairCount)
		assert.Equal(t, now, model.Metadata.TrainedAt)
		assert.False(t, model.ID.IsZero())
	})
}

func TestLoadPairsCSV(t *testing.T) {
	header := strings.Join(pairColumns, ",")

	t.Run("parses rows into pairs", func(t *testing.T) {
		data := header + "\n" +
			"John Smith,1990-01-01,+15551230000,a@x.com,AB12,,,,,US," +
			"Jon Smith,1990-01-01,+15551230000,a@x.com,AB12,,,,,US,1\n" +
			"John Smith,1990-01-01,,,,,,,,US," +
			"Mary Major,1971-06-01,,,,,,,,US,0\n"
		pairs, err := LoadPairsCSV(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		assert.True(t, pairs[0].Same)
		assert.False(t, pairs[1].Same)
		assert.Equal(t, "Jon Smith", pairs[0].Right.FullName)
	})

	t.Run("rejects wrong header", func(t *testing.T) {
		_, err := LoadPairsCSV(strings.NewReader("a,b,c\n"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects bad label", func(t *testing.T) {
		row := strings.Repeat(",", 20) + "maybe"
		_, err := LoadPairsCSV(strings.NewReader(header + "\n" + row + "\n"))
		require.Error(t, err)
	})
}
