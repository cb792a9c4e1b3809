package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "unify/pkg/domain-errors"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

func vectorOf(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestGateway(t *testing.T) {
	t.Run("passes through a valid vector", func(t *testing.T) {
		g := NewGateway(&stubEmbedder{vec: vectorOf(8, 0.5)}, 8, nil, 0)
		vec, err := g.Embed(context.Background(), "name:A")
		require.NoError(t, err)
		assert.Len(t, vec, 8)
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		g := NewGateway(&stubEmbedder{vec: vectorOf(4, 0.5)}, 8, nil, 0)
		_, err := g.Embed(context.Background(), "name:A")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEmbeddingError))
	})

	t.Run("rejects non-finite components", func(t *testing.T) {
		vec := vectorOf(8, 0.5)
		vec[3] = float32(math.NaN())
		g := NewGateway(&stubEmbedder{vec: vec}, 8, nil, 0)
		_, err := g.Embed(context.Background(), "name:A")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEmbeddingError))
	})

	t.Run("maps deadline expiry to upstream timeout", func(t *testing.T) {
		g := NewGateway(&stubEmbedder{err: context.DeadlineExceeded}, 8, nil, 0)
		_, err := g.Embed(context.Background(), "name:A")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstreamTimeout))
		assert.True(t, dErrors.Retryable(err))
	})

	t.Run("provider failure is an embedding error, not a timeout", func(t *testing.T) {
		g := NewGateway(&stubEmbedder{err: assert.AnError}, 8, nil, 0)
		_, err := g.Embed(context.Background(), "name:A")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEmbeddingError))
		assert.False(t, dErrors.Retryable(err))
	})

	t.Run("repeated provider failures trip the health probe", func(t *testing.T) {
		stub := &stubEmbedder{err: assert.AnError}
		g := NewGateway(stub, 8, nil, 0)
		assert.True(t, g.Healthy())

		for i := 0; i < 5; i++ {
			_, err := g.Embed(context.Background(), "name:A")
			require.Error(t, err)
		}
		assert.False(t, g.Healthy())

		stub.err = nil
		stub.vec = vectorOf(8, 0.5)
		for i := 0; i < 2; i++ {
			_, err := g.Embed(context.Background(), "name:A")
			require.NoError(t, err)
		}
		assert.True(t, g.Healthy())
	})
}

func TestClient(t *testing.T) {
	t.Run("sends OpenAI-compatible request and parses response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			require.Len(t, req.Input, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"embedding": []float32{0.1, 0.2}, "index": 0}},
			})
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{Endpoint: srv.URL, Model: "test-model"})
		vec, err := c.Embed(context.Background(), "name:A | dob:-")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2}, vec)
	})

	t.Run("surfaces non-200 responses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{Endpoint: srv.URL, Model: "test-model"})
		_, err := c.Embed(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("honors context deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{Endpoint: srv.URL, Model: "test-model"})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := c.Embed(ctx, "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rejects empty data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{Endpoint: srv.URL, Model: "test-model"})
		_, err := c.Embed(context.Background(), "x")
		require.Error(t, err)
	})
}
