// Package embedding turns canonical identity strings into fixed-dimension
// vectors. The provider is any OpenAI-compatible /v1/embeddings endpoint
// (Ollama, OpenAI, or an internal serving layer); the Gateway wraps it with
// validation and optional caching.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder generates an embedding vector for one input text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ClientConfig configures the HTTP embedding client.
type ClientConfig struct {
	Endpoint string // full /v1/embeddings URL
	Model    string
	APIKey   string // optional bearer token
	Timeout  time.Duration
}

// Client calls an OpenAI-compatible embeddings endpoint. One request per
// input; retry and backoff policy belongs to the caller.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient builds an embedding client. The HTTP client timeout is a hard
// backstop; per-call deadlines come from the caller's context.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed requests a single embedding. Context cancellation and deadlines are
// propagated to the HTTP request.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("embedding endpoint returned no vectors")
	}
	return parsed.Data[0].Embedding, nil
}
