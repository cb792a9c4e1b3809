// Command server runs the identity duplicate-check service: ingest, check,
// and model training over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"unify/internal/audit"
	"unify/internal/candidates"
	"unify/internal/decision"
	"unify/internal/dedup"
	dedupHandler "unify/internal/dedup/handler"
	"unify/internal/dedup/metrics"
	"unify/internal/domain"
	"unify/internal/embedding"
	httpapi "unify/internal/http"
	"unify/internal/normalize"
	"unify/internal/platform/config"
	"unify/internal/platform/httpserver"
	"unify/internal/platform/logger"
	platformpg "unify/internal/platform/postgres"
	platformredis "unify/internal/platform/redis"
	"unify/internal/store"
	"unify/internal/training"
)

const auditInboxSize = 1024

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		entities interface {
			dedup.EntityStore
			candidates.VectorSearcher
			candidates.ExactMatcher
			candidates.EntityFetcher
		}
		models      dedup.ModelStore
		pgHealth    httpapi.HealthChecker
		redisHealth httpapi.HealthChecker
	)
	if cfg.PostgresURL != "" {
		pool, err := platformpg.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		entities = store.NewPostgres(pool)
		models = store.NewPostgresModels(pool)
		pgHealth = func(r *http.Request) error { return pool.Ping(r.Context()) }
		log.Info("using postgres stores")
	} else {
		mem := store.NewMemory()
		entities = mem
		models = store.NewMemoryModels()
		log.Warn("no postgres configured, using in-memory stores")
	}

	cache, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		redisHealth = func(r *http.Request) error { return cache.Health(r.Context()) }
		log.Info("embedding cache enabled")
	}

	embedClient := embedding.NewClient(embedding.ClientConfig{
		Endpoint: cfg.Embedding.Endpoint,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
	})
	gateway := embedding.NewGateway(embedClient, domain.VectorDim, cache, cfg.Embedding.CacheTTL)

	normalizer := normalize.New(normalize.WithDefaultRegion(cfg.DefaultRegion))
	trainer := training.NewTrainer(normalizer, gateway, training.Options{
		FixedThreshold: cfg.Threshold,
	})

	auditInbox := make(chan audit.Event, auditInboxSize)
	auditWorker := audit.NewWorker(audit.NewMemoryStore(), auditInbox)

	svc := dedup.New(
		normalizer,
		gateway,
		candidates.NewGenerator(entities, entities, entities, cfg.TopK),
		decision.NewEngine(cfg.EvidenceSize),
		entities,
		models,
		trainer,
		dedup.WithLogger(log),
		dedup.WithMetrics(metrics.New()),
		dedup.WithAuditor(audit.NewPublisher(auditInbox)),
		dedup.WithUpstreamTimeout(cfg.UpstreamTimeout),
	)
	if err := svc.Bootstrap(ctx); err != nil {
		return err
	}

	router := httpapi.NewRouter(
		dedupHandler.New(svc, log),
		map[string]httpapi.HealthChecker{
			"postgres": pgHealth,
			"redis":    redisHealth,
			"embeddings": func(*http.Request) error {
				if !gateway.Healthy() {
					return errors.New("embedding circuit open")
				}
				return nil
			},
		},
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
