package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/codefinder/internal/api"
	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/hello"
	"github.com/efebarandurmaz/codefinder/internal/llmutil"
	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/observability"
	"github.com/efebarandurmaz/codefinder/internal/rag"
	"github.com/efebarandurmaz/codefinder/internal/rerank"
	"github.com/efebarandurmaz/codefinder/internal/server"
	"github.com/efebarandurmaz/codefinder/internal/tui"
	"github.com/efebarandurmaz/codefinder/internal/vector"
)

func newServeCmd(configPath *string) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API and the ops listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, backend)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "Vector backend override: qdrant, pgvector or memory")
	return cmd
}

func runServe(ctx context.Context, configPath, backend string) error {
	cfg, logger, err := loadConfig(configPath, config.ModeServe, config.Overrides{Backend: backend})
	if err != nil {
		return err
	}

	tp, err := initTracing(ctx, cfg.Tracing, "codefinder-api")
	if err != nil {
		return err
	}
	m := observability.NewMetrics()

	provider, err := llmutil.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Vector)
	if err != nil {
		return err
	}
	mgr := vector.NewCollectionManager(store, logger)

	reranker, err := rerank.New(cfg.Rerank, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	engine := rag.NewEngine(
		vector.NewEmbedder(provider),
		mgr,
		reranker,
		observability.InstrumentCompleter(provider, provider.Name(), cfg.LLM.Model, m),
		rag.Options{
			Collection:  cfg.Vector.Collection,
			TopK:        cfg.Vector.TopK,
			TopN:        cfg.Rerank.TopN,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Logger:      logger,
			Hooks:       observability.StageHooks(m),
		},
	)
	app := api.NewApp(engine, api.Options{Collection: cfg.Vector.Collection, Metrics: m, Logger: logger})

	gs := server.NewGracefulServer(
		&server.HealthConfig{Version: version, Logger: logger},
		&server.ShutdownConfig{Logger: logger},
	)
	gs.Health.Mount("/metrics", m.Handler())
	gs.Health.RegisterCheck("vector_backend", server.DependencyChecker(cfg.Vector.Backend, true, func(ctx context.Context) error {
		_, err := store.ListCollections(ctx)
		return err
	}))
	gs.Health.RegisterCheck("vector_store", server.CollectionChecker(cfg.Vector.Collection, mgr.Count))
	gs.Health.RegisterCheck("llm", server.LLMChecker(provider.Name(), cfg.LLM.Model))

	gs.RegisterHook(server.HTTPServerHook("query-api", app.ShutdownWithContext))
	if c, ok := reranker.(io.Closer); ok {
		gs.RegisterHook(server.CloserHook("reranker", c.Close))
	}
	gs.RegisterHook(server.CloserHook("vector-store", store.Close))
	gs.RegisterHook(server.TracingHook(tp.Shutdown))

	gs.Start(cfg.Server.OpsAddr)

	apiErr := make(chan error, 1)
	go func() {
		logger.Info("query API listening", "addr", cfg.Server.Addr, "collection", cfg.Vector.Collection)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			apiErr <- err
		}
	}()

	select {
	case err = <-apiErr:
		err = fmt.Errorf("query API: %w", err)
	case err = <-gs.Err():
		err = fmt.Errorf("ops listener: %w", err)
	case <-gs.Shutdown.ShutdownCh():
	}
	gs.Shutdown.Shutdown()
	gs.Wait()
	logger.Info("shutdown complete")
	return err
}

func newUICmd() *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the Find Your Code query screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := tui.Run(cmd.Context(), endpoint)
			return err
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", tui.DefaultEndpoint, "Query API endpoint")
	return cmd
}

func newHelloCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Serve the hello-world API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.Log)
			app := hello.NewApp(cfg.Hello)

			go func() {
				<-cmd.Context().Done()
				_ = app.Shutdown()
			}()
			logger.Info("hello API listening", "addr", cfg.Hello.Addr, "title", cfg.Hello.Title)
			return app.Listen(cfg.Hello.Addr)
		},
	}
}
