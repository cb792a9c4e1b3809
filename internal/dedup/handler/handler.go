// Package handler exposes the duplicate-check pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"unify/internal/domain"
	"unify/internal/scoring"
	"unify/internal/training"
	dErrors "unify/pkg/domain-errors"
	"unify/pkg/platform/httputil"
	"unify/pkg/requestcontext"
)

// Service defines the pipeline operations the handler needs.
type Service interface {
	Ingest(ctx context.Context, raw domain.RawRecord) (domain.StoredEntity, error)
	Check(ctx context.Context, raw domain.RawRecord) (domain.DuplicateCheckResult, error)
	Train(ctx context.Context, pairs []domain.LabeledPair) (*scoring.Model, error)
	CurrentModel() *scoring.Model
}

// Handler wires identity and model endpoints to the pipeline service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the pipeline endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/identities", h.HandleIngest)
	r.Post("/v1/identities/check", h.HandleCheck)
	r.Post("/v1/models/train", h.HandleTrain)
	r.Get("/v1/models/current", h.HandleCurrentModel)
}

// HandleIngest handles POST /v1/identities.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[IdentityRequest](w, r)
	if !ok {
		return
	}

	entity, err := h.service.Ingest(ctx, req.Raw())
	if err != nil {
		h.logger.ErrorContext(ctx, "ingest failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromEntity(entity))
}

// HandleCheck handles POST /v1/identities/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	req, ok := httputil.Decode[IdentityRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Check(ctx, req.Raw())
	if err != nil {
		h.logger.ErrorContext(ctx, "duplicate check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "duplicate check served",
		"request_id", requestcontext.RequestID(ctx),
		"is_duplicate", result.IsDuplicate,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromResult(result))
}

// HandleTrain handles POST /v1/models/train. The body is either a JSON
// TrainRequest or CSV labeled pairs, selected by Content-Type.
func (h *Handler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var pairs []domain.LabeledPair
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		loaded, err := training.LoadPairsCSV(r.Body)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		pairs = loaded
	} else {
		req, ok := httputil.Decode[TrainRequest](w, r)
		if !ok {
			return
		}
		if err := req.Validate(); err != nil {
			httputil.WriteError(w, err)
			return
		}
		pairs = req.Pairs
	}

	model, err := h.service.Train(ctx, pairs)
	if err != nil {
		h.logger.ErrorContext(ctx, "training failed",
			"request_id", requestcontext.RequestID(ctx),
			"pairs", len(pairs),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromModel(model))
}

// HandleCurrentModel handles GET /v1/models/current.
func (h *Handler) HandleCurrentModel(w http.ResponseWriter, r *http.Request) {
	model := h.service.CurrentModel()
	if model == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no model published"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromModel(model))
}
