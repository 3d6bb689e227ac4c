package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/graph"
	"github.com/efebarandurmaz/codefinder/internal/graph/neo4j"
	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/observability"
	"github.com/efebarandurmaz/codefinder/internal/vector"
	"github.com/efebarandurmaz/codefinder/internal/vector/pgvector"
	"github.com/efebarandurmaz/codefinder/internal/vector/qdrant"
)

// loadConfig reads configuration, applies flag overrides and checks the
// variables mode needs. A missing required variable is fatal.
func loadConfig(path string, mode config.Mode, o config.Overrides) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	cfg.Apply(o)
	logger := logging.Setup(cfg.Log)
	if err := cfg.Require(mode); err != nil {
		logger.Error("configuration incomplete", "error", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore connects the configured vector backend.
func openStore(ctx context.Context, cfg config.VectorConfig) (vector.Store, error) {
	switch cfg.Backend {
	case "", "qdrant":
		return qdrant.New(qdrant.Options{URL: cfg.URL, APIKey: cfg.APIKey, GRPCPort: cfg.GRPCPort})
	case "pgvector":
		return pgvector.New(ctx, cfg.PostgresDSN)
	case "memory":
		return vector.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// openGraph connects the provenance graph. It returns nil when no URI is
// configured or the database is unreachable; provenance is optional.
func openGraph(ctx context.Context, cfg config.GraphConfig, logger *slog.Logger) graph.Repository {
	if cfg.URI == "" {
		return nil
	}
	repo, err := neo4j.NewNeo4j(ctx, cfg.URI, cfg.Username, cfg.Password)
	if err != nil {
		logger.Warn("provenance graph disabled", "uri", cfg.URI, "error", err)
		return nil
	}
	return repo
}

func initTracing(ctx context.Context, cfg config.TracingConfig, service string) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.SampleRate,
	})
}
