// Package dedup orchestrates the duplicate-check pipeline: normalization,
// embedding, candidate generation, feature scoring, and decisioning, plus
// model training and publication.
package dedup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"unify/internal/audit"
	"unify/internal/candidates"
	"unify/internal/decision"
	"unify/internal/dedup/metrics"
	"unify/internal/domain"
	"unify/internal/features"
	"unify/internal/normalize"
	"unify/internal/scoring"
	id "unify/pkg/domain"
	dErrors "unify/pkg/domain-errors"
	"unify/pkg/sentinel"
)

// EntityStore persists identities append-only.
type EntityStore interface {
	Append(ctx context.Context, entity domain.StoredEntity) error
}

// ModelStore persists published scoring models.
type ModelStore interface {
	Save(ctx context.Context, model *scoring.Model) error
	Latest(ctx context.Context) (*scoring.Model, error)
}

// Embedder turns a canonical identity string into a vector.
type Embedder interface {
	Embed(ctx context.Context, canonical string) ([]float32, error)
}

// Trainer fits a scoring model from labeled pairs.
type Trainer interface {
	Train(ctx context.Context, pairs []domain.LabeledPair, now time.Time) (*scoring.Model, error)
}

// Service wires the pipeline stages together. Checks are read-only against
// the entity store and race freely with ingests; the live model is swapped
// atomically so a single check always scores against one model.
type Service struct {
	normalizer *normalize.Normalizer
	embedder   Embedder
	generator  *candidates.Generator
	engine     *decision.Engine
	entities   EntityStore
	models     ModelStore
	trainer    Trainer
	ref        *scoring.Ref

	logger          *slog.Logger
	metrics         *metrics.Metrics
	auditor         *audit.Publisher
	tracer          trace.Tracer
	now             func() time.Time
	upstreamTimeout time.Duration
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithUpstreamTimeout bounds each call to the embedding service.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) { s.upstreamTimeout = d }
}

// New creates the pipeline service. The model reference starts with the
// heuristic default; call Bootstrap to restore the latest persisted model.
func New(
	normalizer *normalize.Normalizer,
	embedder Embedder,
	generator *candidates.Generator,
	engine *decision.Engine,
	entities EntityStore,
	models ModelStore,
	trainer Trainer,
	opts ...Option,
) *Service {
	s := &Service{
		normalizer:      normalizer,
		embedder:        embedder,
		generator:       generator,
		engine:          engine,
		entities:        entities,
		models:          models,
		trainer:         trainer,
		logger:          slog.Default(),
		tracer:          otel.Tracer("unify/dedup"),
		now:             time.Now,
		upstreamTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ref = scoring.NewRef(scoring.Default(s.now()))
	return s
}

// Bootstrap loads the most recently published model into the live reference.
// With no persisted model the heuristic default stays active.
func (s *Service) Bootstrap(ctx context.Context) error {
	model, err := s.models.Latest(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Info("no persisted model, using heuristic default",
				"model_id", s.ref.Load().ID.String())
			return nil
		}
		return err
	}
	s.ref.Swap(model)
	s.logger.Info("restored persisted model", "model_id", model.ID.String())
	return nil
}

// CurrentModel returns the model checks are scoring against right now.
func (s *Service) CurrentModel() *scoring.Model {
	return s.ref.Load()
}

// Ingest normalizes and embeds one identity and appends it to the store.
// Any malformed present field rejects the whole record; corrections arrive
// as new records, never as mutations.
func (s *Service) Ingest(ctx context.Context, raw domain.RawRecord) (domain.StoredEntity, error) {
	ctx, span := s.tracer.Start(ctx, "dedup.ingest")
	defer span.End()

	rec, ferrs := s.normalizer.Record(raw, s.now())
	if err := ferrs.Err(); err != nil {
		return domain.StoredEntity{}, err
	}
	canonical := normalize.Canonical(rec)
	if !hasAnyField(rec) {
		return domain.StoredEntity{}, dErrors.New(dErrors.CodeBadRequest, "record has no fields")
	}

	vec, err := s.embed(ctx, canonical)
	if err != nil {
		return domain.StoredEntity{}, err
	}

	entity := domain.StoredEntity{
		ID:         id.NewEntityID(),
		Record:     rec,
		Vector:     vec,
		IngestedAt: s.now(),
	}
	if err := s.entities.Append(ctx, entity); err != nil {
		return domain.StoredEntity{}, err
	}

	s.metrics.IncrementIngest()
	s.emitAudit(audit.Event{
		Timestamp: s.now(),
		Action:    audit.ActionIngest,
		EntityID:  entity.ID.String(),
		Outcome:   "stored",
	})
	s.logger.InfoContext(ctx, "identity ingested", "entity_id", entity.ID.String())
	return entity, nil
}

// Check runs the full duplicate-check pipeline for one record without
// persisting it. The model reference is read once, so every candidate in a
// check is scored by the same model even if training publishes mid-flight.
func (s *Service) Check(ctx context.Context, raw domain.RawRecord) (domain.DuplicateCheckResult, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "dedup.check")
	defer span.End()

	rec, ferrs := s.normalizer.Record(raw, start)
	if err := ferrs.Err(); err != nil {
		s.metrics.ObserveCheck(s.now().Sub(start), "error")
		return domain.DuplicateCheckResult{}, err
	}
	if !hasAnyField(rec) {
		s.metrics.ObserveCheck(s.now().Sub(start), "error")
		return domain.DuplicateCheckResult{}, dErrors.New(dErrors.CodeBadRequest, "record has no fields")
	}

	vec, err := s.embed(ctx, normalize.Canonical(rec))
	if err != nil {
		s.metrics.ObserveCheck(s.now().Sub(start), "error")
		return domain.DuplicateCheckResult{}, err
	}

	candidateSet, err := s.generate(ctx, rec, vec)
	if err != nil {
		s.metrics.ObserveCheck(s.now().Sub(start), "error")
		return domain.DuplicateCheckResult{}, err
	}
	s.metrics.ObserveCandidates(len(candidateSet))

	model := s.ref.Load()
	scored, err := s.score(ctx, model, rec, candidateSet)
	if err != nil {
		s.metrics.ObserveCheck(s.now().Sub(start), "error")
		return domain.DuplicateCheckResult{}, err
	}

	result := s.engine.Decide(scored, model.Threshold)
	result.ModelID = model.ID

	outcome := "unique"
	if result.IsDuplicate {
		outcome = "duplicate"
	}
	s.metrics.ObserveCheck(s.now().Sub(start), outcome)
	event := audit.Event{
		Timestamp: start,
		Action:    audit.ActionCheck,
		ModelID:   model.ID.String(),
		Outcome:   outcome,
	}
	if result.BestMatch != nil {
		event.EntityID = result.BestMatch.Entity.ID.String()
	}
	s.emitAudit(event)
	s.logger.InfoContext(ctx, "duplicate check completed",
		"outcome", outcome,
		"candidates", len(candidateSet),
		"score", result.Score,
		"model_id", model.ID.String())
	return result, nil
}

// Train fits a new model from labeled pairs, persists it, and atomically
// makes it live. The previous model keeps serving on any failure.
func (s *Service) Train(ctx context.Context, pairs []domain.LabeledPair) (*scoring.Model, error) {
	ctx, span := s.tracer.Start(ctx, "dedup.train")
	defer span.End()

	model, err := s.trainer.Train(ctx, pairs, s.now())
	if err != nil {
		s.metrics.IncrementTrain("failed")
		return nil, err
	}
	if err := s.models.Save(ctx, model); err != nil {
		s.metrics.IncrementTrain("failed")
		return nil, dErrors.Wrap(dErrors.CodeTrainingError, "persist model", err)
	}
	s.ref.Swap(model)

	s.metrics.IncrementTrain("published")
	s.emitAudit(audit.Event{
		Timestamp: s.now(),
		Action:    audit.ActionTrain,
		ModelID:   model.ID.String(),
		Outcome:   "published",
	})
	s.logger.InfoContext(ctx, "model published",
		"model_id", model.ID.String(),
		"pairs", model.Metadata.PairCount,
		"threshold", model.Threshold,
		"policy", model.Metadata.ThresholdPolicy)
	return model, nil
}

func (s *Service) embed(ctx context.Context, canonical string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "dedup.embed")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	start := s.now()
	vec, err := s.embedder.Embed(ctx, canonical)
	s.metrics.ObserveStage("embed", s.now().Sub(start))
	return vec, err
}

func (s *Service) generate(ctx context.Context, rec domain.IdentityRecord, vec []float32) ([]domain.Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "dedup.candidates")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	start := s.now()
	set, err := s.generator.Generate(ctx, rec, vec)
	s.metrics.ObserveStage("candidates", s.now().Sub(start))
	return set, err
}

func (s *Service) score(ctx context.Context, model *scoring.Model, query domain.IdentityRecord, set []domain.Candidate) ([]domain.Candidate, error) {
	_, span := s.tracer.Start(ctx, "dedup.score")
	defer span.End()

	start := s.now()
	scored := make([]domain.Candidate, len(set))
	for i, cand := range set {
		fv := features.Extract(query, cand.Entity.Record, cand.Distance)
		score, err := model.Score(fv)
		if err != nil {
			return nil, err
		}
		cand.Score = score
		scored[i] = cand
	}
	s.metrics.ObserveStage("score", s.now().Sub(start))
	return scored, nil
}

func (s *Service) emitAudit(event audit.Event) {
	if s.auditor == nil {
		return
	}
	if !s.auditor.Emit(event) {
		s.logger.Warn("audit event dropped", "action", event.Action)
	}
}

func hasAnyField(rec domain.IdentityRecord) bool {
	return rec.FullName != nil || rec.DOB != nil || rec.PhoneE164 != nil ||
		rec.Email != nil || rec.GovID != nil || rec.AddrLine != nil ||
		rec.City != nil || rec.State != nil || rec.PostalCode != nil ||
		rec.Country != nil
}
