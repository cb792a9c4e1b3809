// Package metrics provides observability for the duplicate-check pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's prometheus instruments. A nil *Metrics is
// valid and records nothing, so tests can skip wiring it.
type Metrics struct {
	// Full check latency including embedding and candidate generation.
	CheckLatency prometheus.Histogram

	// Stage latencies within a check.
	StageLatency *prometheus.HistogramVec

	// Candidate set sizes per check.
	CandidateCount prometheus.Histogram

	// Check outcomes: duplicate, unique, error.
	CheckOutcome *prometheus.CounterVec

	// Ingested entities.
	IngestTotal prometheus.Counter

	// Training runs by result: published, failed.
	TrainTotal *prometheus.CounterVec
}

// New creates a Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "unify_check_duration_seconds",
			Help:    "Duration of full duplicate checks",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unify_check_stage_duration_seconds",
			Help:    "Duration of check stages",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}), // stage: "embed", "candidates", "score"
		CandidateCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "unify_check_candidates",
			Help:    "Candidate set size per check",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		CheckOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "unify_check_outcomes_total",
			Help: "Total check outcomes",
		}, []string{"outcome"}),
		IngestTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unify_ingest_total",
			Help: "Total ingested identities",
		}),
		TrainTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "unify_train_total",
			Help: "Total training runs by result",
		}, []string{"result"}),
	}
}

// ObserveCheck records the duration and outcome of one check.
func (m *Metrics) ObserveCheck(d time.Duration, outcome string) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
		m.CheckOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveStage records one stage's duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveCandidates records the candidate set size of one check.
func (m *Metrics) ObserveCandidates(n int) {
	if m != nil {
		m.CandidateCount.Observe(float64(n))
	}
}

// IncrementIngest records one ingested identity.
func (m *Metrics) IncrementIngest() {
	if m != nil {
		m.IngestTotal.Inc()
	}
}

// IncrementTrain records one training run.
func (m *Metrics) IncrementTrain(result string) {
	if m != nil {
		m.TrainTotal.WithLabelValues(result).Inc()
	}
}
