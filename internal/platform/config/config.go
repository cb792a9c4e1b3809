// Package config builds runtime configuration from the environment so main
// stays lean. A .env file is honored when present (development convenience);
// real environments set variables directly.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server needs to wire the pipeline.
type Config struct {
	Addr string

	// PostgresURL enables the postgres-backed entity and model stores. Empty
	// means in-memory stores (tests, demos).
	PostgresURL string

	// RedisURL enables the embedding vector cache. Empty disables caching.
	RedisURL string

	Embedding Embedding

	// TopK bounds the candidate set per check.
	TopK int
	// Threshold is the decision threshold used until a trained model overrides it.
	Threshold float64
	// EvidenceSize caps how many ranked candidates a check response carries.
	EvidenceSize int
	// DefaultRegion is the country calling code assumed for national phone numbers.
	DefaultRegion string
	// UpstreamTimeout bounds embedding and k-NN calls within a check.
	UpstreamTimeout time.Duration
}

// Embedding configures the embedding provider adapter.
type Embedding struct {
	Endpoint string // OpenAI-compatible /v1/embeddings URL
	Model    string
	APIKey   string
	CacheTTL time.Duration
}

// FromEnv loads configuration with sane defaults for local development.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:        getEnv("UNIFY_ADDR", ":8080"),
		PostgresURL: os.Getenv("UNIFY_POSTGRES_URL"),
		RedisURL:    os.Getenv("UNIFY_REDIS_URL"),
		Embedding: Embedding{
			Endpoint: getEnv("UNIFY_EMBED_ENDPOINT", "http://localhost:11434/v1/embeddings"),
			Model:    getEnv("UNIFY_EMBED_MODEL", "all-minilm"),
			APIKey:   os.Getenv("UNIFY_EMBED_API_KEY"),
			CacheTTL: getDuration("UNIFY_EMBED_CACHE_TTL", 24*time.Hour),
		},
		TopK:            getInt("UNIFY_TOPK", 200),
		Threshold:       getFloat("UNIFY_THRESHOLD", 0.82),
		EvidenceSize:    getInt("UNIFY_EVIDENCE_SIZE", 10),
		DefaultRegion:   getEnv("UNIFY_DEFAULT_REGION", "1"),
		UpstreamTimeout: getDuration("UNIFY_UPSTREAM_TIMEOUT", 3*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
