package main

import (
	"context"
	"flag"
	"log"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/github"
	"github.com/efebarandurmaz/codefinder/internal/graph"
	"github.com/efebarandurmaz/codefinder/internal/graph/neo4j"
	"github.com/efebarandurmaz/codefinder/internal/llmutil"
	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/server"
	"github.com/efebarandurmaz/codefinder/internal/splitter"
	temporalmod "github.com/efebarandurmaz/codefinder/internal/temporal"
	"github.com/efebarandurmaz/codefinder/internal/vector"
	"github.com/efebarandurmaz/codefinder/internal/vector/pgvector"
	"github.com/efebarandurmaz/codefinder/internal/vector/qdrant"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Require(config.ModeIngest); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log)
	ctx := context.Background()

	provider, err := llmutil.NewProvider(cfg.LLM)
	if err != nil {
		log.Fatalf("creating LLM provider: %v", err)
	}

	fetcher, err := github.New(ctx, github.Options{
		Token:             cfg.GitHub.Token,
		Extensions:        cfg.GitHub.Extensions,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		log.Fatalf("github: %v", err)
	}

	var store vector.Store
	switch cfg.Vector.Backend {
	case "pgvector":
		store, err = pgvector.New(ctx, cfg.Vector.PostgresDSN)
	default:
		store, err = qdrant.New(qdrant.Options{URL: cfg.Vector.URL, APIKey: cfg.Vector.APIKey, GRPCPort: cfg.Vector.GRPCPort})
	}
	if err != nil {
		log.Fatalf("vector store: %v", err)
	}

	var g graph.Repository
	if cfg.Graph.URI != "" {
		repo, err := neo4j.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			logger.Warn("provenance graph disabled", "error", err)
		} else {
			g = repo
		}
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, &temporalmod.Activities{
		Fetcher: fetcher,
		Splitter: splitter.New(splitter.Policy{
			ChunkSize:    cfg.Splitter.ChunkSize,
			ChunkOverlap: cfg.Splitter.ChunkOverlap,
			Encoding:     cfg.Splitter.Encoding,
		}, splitter.WithLogger(logger)),
		Builder:     vector.NewEmbedder(provider),
		Collections: vector.NewCollectionManager(store, logger),
		Graph:       g,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "collection", cfg.Vector.Collection)

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{Logger: logger})
	shutdown.Register(server.TemporalWorkerHook(w.Stop))
	shutdown.Register(server.CloserHook("vector-store", store.Close))
	if g != nil {
		shutdown.RegisterHook("graph", 50, g.Close)
	}
	shutdown.Start()
	shutdown.Wait()

	logger.Info("worker stopped")
}
