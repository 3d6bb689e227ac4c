package temporal

import (
	"context"
	"log/slog"

	"github.com/efebarandurmaz/codefinder/internal/graph"
	"github.com/efebarandurmaz/codefinder/internal/ingest"
	"github.com/efebarandurmaz/codefinder/internal/observability"
)

// Activities hosts ingestion on a worker. Register a pointer with
// worker.RegisterActivity; every exported method becomes an activity.
//
// Documents, chunks and vectors never leave the worker: the activity takes
// a username and returns counts, so workflow history stays a few hundred
// bytes no matter how large the repositories are.
type Activities struct {
	Fetcher     ingest.Fetcher
	Splitter    ingest.Splitter
	Builder     ingest.RecordBuilder
	Collections ingest.Collections
	Graph       graph.Repository       // optional
	Metrics     *observability.Metrics // optional
	Logger      *slog.Logger
}

// IngestRepositories runs the whole fetch, split, ensure, embed and upsert
// pipeline for one user and reports what it wrote.
func (a *Activities) IngestRepositories(ctx context.Context, in IngestInput) (IngestOutput, error) {
	p := ingest.New(a.Fetcher, a.Splitter, a.Builder, a.Collections, ingest.Options{
		Collection: in.Collection,
		Graph:      a.Graph,
		Metrics:    a.Metrics,
		Logger:     a.Logger,
	})
	report, err := p.Run(ctx, in.Username)
	if err != nil {
		return IngestOutput{}, err
	}
	return IngestOutput{
		Documents:         report.Source.Documents,
		Chunks:            report.Chunks.Count,
		CollectionCreated: report.CollectionCreated,
		RecordsUpserted:   report.RecordsUpserted,
		CollectionSize:    report.CollectionSize,
		Errors:            report.Errors,
	}, nil
}
