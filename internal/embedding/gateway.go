package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"

	platformredis "unify/internal/platform/redis"
	dErrors "unify/pkg/domain-errors"
	"unify/pkg/platform/circuit"
)

const cacheKeyPrefix = "unify:embed:"

// Gateway adapts an Embedder for the check pipeline: it enforces the declared
// dimensionality, rejects non-finite values, and optionally caches vectors in
// Redis keyed by a hash of the canonical string. A circuit breaker tracks
// provider health for the readiness probe. The gateway never retries; that
// policy belongs to the caller.
type Gateway struct {
	embedder Embedder
	dim      int
	cache    *platformredis.Client // nil disables caching
	cacheTTL time.Duration
	breaker  *circuit.Breaker
}

// NewGateway wraps embedder with validation for the given dimension. cache
// may be nil.
func NewGateway(embedder Embedder, dim int, cache *platformredis.Client, cacheTTL time.Duration) *Gateway {
	return &Gateway{
		embedder: embedder,
		dim:      dim,
		cache:    cache,
		cacheTTL: cacheTTL,
		breaker:  circuit.New("embeddings", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
}

// Embed produces a validated identity vector for the canonical string.
//
// Errors: CodeUpstreamTimeout when the context deadline expires mid-call,
// CodeEmbeddingError for dimension mismatches, non-finite values, or provider
// failures.
func (g *Gateway) Embed(ctx context.Context, canonical string) ([]float32, error) {
	key := cacheKeyPrefix + hashKey(canonical)
	if vec, ok := g.cacheGet(ctx, key); ok {
		return vec, nil
	}
	vec, err := g.embedder.Embed(ctx, canonical)
	if err != nil {
		g.breaker.RecordFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(dErrors.CodeUpstreamTimeout, "embedding call timed out", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeEmbeddingError, "embedding provider failed", err)
	}
	g.breaker.RecordSuccess()

	if len(vec) != g.dim {
		return nil, dErrors.Newf(dErrors.CodeEmbeddingError,
			"embedding has %d dimensions, expected %d", len(vec), g.dim)
	}
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, dErrors.Newf(dErrors.CodeEmbeddingError, "embedding component %d is not finite", i)
		}
	}

	g.cachePut(ctx, key, vec)
	return vec, nil
}

// Healthy reports whether the embedding circuit is closed.
func (g *Gateway) Healthy() bool {
	return !g.breaker.IsOpen()
}

func (g *Gateway) cacheGet(ctx context.Context, key string) ([]float32, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, err := g.cache.Get(ctx, key).Bytes()
	if err != nil || len(raw) != g.dim*4 {
		return nil, false
	}
	return decodeVector(raw), true
}

func (g *Gateway) cachePut(ctx context.Context, key string, vec []float32) {
	if g.cache == nil {
		return
	}
	// Cache is best-effort; a write failure must not fail the check.
	g.cache.Set(ctx, key, encodeVector(vec), g.cacheTTL)
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) []float32 {
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
