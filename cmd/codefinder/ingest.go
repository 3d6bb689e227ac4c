package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/github"
	"github.com/efebarandurmaz/codefinder/internal/ingest"
	"github.com/efebarandurmaz/codefinder/internal/llmutil"
	"github.com/efebarandurmaz/codefinder/internal/observability"
	"github.com/efebarandurmaz/codefinder/internal/splitter"
	temporalmod "github.com/efebarandurmaz/codefinder/internal/temporal"
	"github.com/efebarandurmaz/codefinder/internal/vector"
)

type ingestFlags struct {
	user       string
	backend    string
	temporal   bool
	jsonReport bool
}

func newIngestCmd(configPath *string) *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, split, embed and store a GitHub user's Python files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, config.ModeIngest, config.Overrides{
				Backend:  f.backend,
				Username: f.user,
			})
			if err != nil {
				return err
			}
			f.user = cfg.GitHub.Username
			if f.temporal {
				return runIngestWorkflow(cmd.Context(), cmd.OutOrStdout(), cfg, f)
			}
			return runIngest(cmd.Context(), cmd.OutOrStdout(), cfg, logger, f)
		},
	}
	cmd.Flags().StringVar(&f.user, "user", "", "GitHub user to index (default GITHUB_USERNAME)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Vector backend override: qdrant, pgvector or memory")
	cmd.Flags().BoolVar(&f.temporal, "temporal", false, "Submit the run to the Temporal worker instead of running in-process")
	cmd.Flags().BoolVar(&f.jsonReport, "json", false, "Print the ingestion report as JSON")
	return cmd
}

func runIngest(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, f ingestFlags) error {
	tp, err := initTracing(ctx, cfg.Tracing, "codefinder-ingest")
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	provider, err := llmutil.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	fetcher, err := github.New(ctx, github.Options{
		Token:             cfg.GitHub.Token,
		Extensions:        cfg.GitHub.Extensions,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Vector)
	if err != nil {
		return err
	}
	defer store.Close()

	g := openGraph(ctx, cfg.Graph, logger)
	if g != nil {
		defer func() { _ = g.Close(context.Background()) }()
	}

	sp := splitter.New(splitter.Policy{
		ChunkSize:    cfg.Splitter.ChunkSize,
		ChunkOverlap: cfg.Splitter.ChunkOverlap,
		Encoding:     cfg.Splitter.Encoding,
	}, splitter.WithLogger(logger))

	p := ingest.New(fetcher, sp, vector.NewEmbedder(provider), vector.NewCollectionManager(store, logger), ingest.Options{
		Collection: cfg.Vector.Collection,
		Graph:      g,
		Metrics:    observability.NewMetrics(),
		Logger:     logger,
	})

	report, err := p.Run(ctx, f.user)
	if f.jsonReport {
		data, jerr := report.JSON()
		if jerr != nil {
			return jerr
		}
		fmt.Fprintln(out, string(data))
	} else {
		report.PrintSummary(out)
	}
	return err
}

func runIngestWorkflow(ctx context.Context, out io.Writer, cfg *config.Config, f ingestFlags) error {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	res, err := temporalmod.RunIngest(ctx, c, cfg.Temporal.TaskQueue, temporalmod.IngestInput{
		Username:   f.user,
		Collection: cfg.Vector.Collection,
	})
	if err != nil {
		return err
	}

	if f.jsonReport {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprintf(out, "Workflow %s finished\n", temporalmod.WorkflowID(f.user))
	fmt.Fprintf(out, "  Documents:  %d\n", res.Documents)
	fmt.Fprintf(out, "  Chunks:     %d\n", res.Chunks)
	fmt.Fprintf(out, "  Upserted:   %d\n", res.RecordsUpserted)
	fmt.Fprintf(out, "  Collection: %s (%d points, created=%t)\n", cfg.Vector.Collection, res.CollectionSize, res.CollectionCreated)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  Error:      %s\n", e)
	}
	return nil
}
