// Package ingest loads a user's repositories into the vector collection:
// fetch, split, embed, upsert, and optionally record provenance.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/codefinder/internal/document"
	"github.com/efebarandurmaz/codefinder/internal/graph"
	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/metrics"
	"github.com/efebarandurmaz/codefinder/internal/observability"
	"github.com/efebarandurmaz/codefinder/internal/vector"
)

// Fetcher loads source documents for a user.
type Fetcher interface {
	FetchDocuments(ctx context.Context, username string) []document.SourceDocument
}

// Splitter chunks source documents.
type Splitter interface {
	SplitDocuments(ctx context.Context, docs []document.SourceDocument) []document.Chunk
}

// RecordBuilder embeds chunks into storable records.
type RecordBuilder interface {
	BuildRecords(ctx context.Context, chunks []document.Chunk) ([]vector.Record, error)
}

// Collections is the subset of vector.CollectionManager used here.
type Collections interface {
	EnsureCollection(ctx context.Context, name string) (bool, error)
	Upsert(ctx context.Context, name string, records []vector.Record) error
	Count(ctx context.Context, name string) (int, error)
}

// Options configures a Pipeline. Graph and Metrics are optional.
type Options struct {
	Collection string
	Graph      graph.Repository
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Pipeline runs one ingestion at a time; it keeps no state between runs.
type Pipeline struct {
	fetcher     Fetcher
	splitter    Splitter
	builder     RecordBuilder
	collections Collections
	opts        Options
	logger      *slog.Logger
}

// New wires a pipeline.
func New(fetcher Fetcher, splitter Splitter, builder RecordBuilder, collections Collections, opts Options) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		splitter:    splitter,
		builder:     builder,
		collections: collections,
		opts:        opts,
		logger:      logging.OrDiscard(opts.Logger),
	}
}

// Run ingests every matching file of username's repositories. The report is
// returned even when a stage fails, covering the stages that ran.
func (p *Pipeline) Run(ctx context.Context, username string) (report *metrics.IngestReport, err error) {
	ctx, span := observability.StartIngestSpan(ctx, username, p.opts.Collection)
	report = metrics.New(username, p.opts.Collection)
	defer func() {
		report.Finish()
		observability.RecordIngestResult(span, report.Source.Documents, report.Chunks.Count, report.RecordsUpserted)
		observability.RecordError(span, err)
		span.End()
		p.opts.Metrics.RecordIngest(report.Duration, report.Source.Documents, report.Chunks.Count, report.RecordsUpserted, err)
	}()

	var docs []document.SourceDocument
	p.stage(ctx, report, "fetch", func(ctx context.Context) error {
		docs = p.fetcher.FetchDocuments(ctx, username)
		return nil
	})
	report.CollectDocuments(docs)
	if len(docs) == 0 {
		p.logger.Info("no documents to process", "user", username)
		return report, nil
	}

	var chunks []document.Chunk
	p.stage(ctx, report, "split", func(ctx context.Context) error {
		chunks = p.splitter.SplitDocuments(ctx, docs)
		return nil
	})
	report.CollectChunks(chunks)

	if err := p.stage(ctx, report, "ensure", func(ctx context.Context) error {
		created, err := p.collections.EnsureCollection(ctx, p.opts.Collection)
		report.CollectionCreated = created
		return err
	}); err != nil {
		return report, fmt.Errorf("ensuring collection %q: %w", p.opts.Collection, err)
	}

	var records []vector.Record
	if err := p.stage(ctx, report, "embed", func(ctx context.Context) error {
		var err error
		records, err = p.builder.BuildRecords(ctx, chunks)
		return err
	}); err != nil {
		return report, fmt.Errorf("embedding chunks: %w", err)
	}

	if err := p.stage(ctx, report, "upsert", func(ctx context.Context) error {
		return p.collections.Upsert(ctx, p.opts.Collection, records)
	}); err != nil {
		return report, fmt.Errorf("upserting records: %w", err)
	}
	report.RecordsUpserted = len(records)

	if p.opts.Graph != nil {
		// Provenance failures are logged, not returned.
		if err := p.stage(ctx, report, "graph", func(ctx context.Context) error {
			return p.opts.Graph.StoreProvenance(ctx, graph.Build(username, docs, chunks))
		}); err != nil {
			p.logger.Error("failed to store provenance", "error", err)
		}
	}

	if n, err := p.collections.Count(ctx, p.opts.Collection); err != nil {
		p.logger.Warn("could not count collection", "collection", p.opts.Collection, "error", err)
	} else {
		report.CollectionSize = n
	}

	p.logger.Info("ingestion finished",
		"user", username,
		"documents", len(docs),
		"chunks", len(chunks),
		"records", len(records))
	return report, nil
}

func (p *Pipeline) stage(ctx context.Context, report *metrics.IngestReport, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartStageSpan(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	report.AddStage(name, time.Since(start), err)
	observability.RecordError(span, err)
	return err
}
