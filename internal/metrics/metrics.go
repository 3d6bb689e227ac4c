// Package metrics summarizes a single ingestion run.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/codefinder/internal/document"
)

// IngestReport collects statistics for one ingestion run.
type IngestReport struct {
	User       string        `json:"user"`
	Collection string        `json:"collection"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms,omitempty"`

	Repositories []string      `json:"repositories"`
	Source       SourceMetrics `json:"source"`
	Chunks       ChunkMetrics  `json:"chunks"`

	CollectionCreated bool           `json:"collection_created"`
	RecordsUpserted   int            `json:"records_upserted"`
	CollectionSize    int            `json:"collection_size"`
	Stages            []StageMetrics `json:"stages"`
	Errors            []string       `json:"errors,omitempty"`
}

type SourceMetrics struct {
	Documents  int `json:"documents"`
	TotalBytes int `json:"total_bytes"`
}

type ChunkMetrics struct {
	Count    int `json:"count"`
	MinBytes int `json:"min_bytes"`
	MaxBytes int `json:"max_bytes"`
}

type StageMetrics struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Err        string        `json:"error,omitempty"`
}

// New starts tracking an ingestion run.
func New(user, collection string) *IngestReport {
	return &IngestReport{User: user, Collection: collection, StartedAt: time.Now()}
}

// CollectDocuments records the fetched documents.
func (r *IngestReport) CollectDocuments(docs []document.SourceDocument) {
	r.Repositories = document.Repositories(docs)
	r.Source.Documents = len(docs)
	for _, d := range docs {
		r.Source.TotalBytes += len(d.Text)
	}
}

// CollectChunks records the split result.
func (r *IngestReport) CollectChunks(chunks []document.Chunk) {
	r.Chunks = ChunkMetrics{Count: len(chunks)}
	for i, c := range chunks {
		n := len(c.Text)
		if i == 0 || n < r.Chunks.MinBytes {
			r.Chunks.MinBytes = n
		}
		if n > r.Chunks.MaxBytes {
			r.Chunks.MaxBytes = n
		}
	}
}

// AddStage records a single stage's timing and outcome.
func (r *IngestReport) AddStage(name string, d time.Duration, err error) {
	s := StageMetrics{Name: name, Duration: d, DurationMS: d.Milliseconds()}
	if err != nil {
		s.Err = err.Error()
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", name, err))
	}
	r.Stages = append(r.Stages, s)
}

// Finish marks the run as complete.
func (r *IngestReport) Finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.DurationMS = r.Duration.Milliseconds()
}

// PrintSummary writes a human-readable summary.
func (r *IngestReport) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║      CODEFINDER INGESTION REPORT     ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ User:        %-23s║\n", r.User)
	fmt.Fprintf(w, "║ Collection:  %-23s║\n", r.Collection)
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ SOURCE\n")
	fmt.Fprintf(w, "║   Repositories: %d\n", len(r.Repositories))
	fmt.Fprintf(w, "║   Documents:    %d\n", r.Source.Documents)
	fmt.Fprintf(w, "║   Total Size:   %s\n", formatBytes(r.Source.TotalBytes))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ INDEX\n")
	fmt.Fprintf(w, "║   Chunks:       %d (%s to %s)\n", r.Chunks.Count, formatBytes(r.Chunks.MinBytes), formatBytes(r.Chunks.MaxBytes))
	fmt.Fprintf(w, "║   Created:      %t\n", r.CollectionCreated)
	fmt.Fprintf(w, "║   Upserted:     %d\n", r.RecordsUpserted)
	fmt.Fprintf(w, "║   Collection:   %d records\n", r.CollectionSize)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STAGES\n")
	for _, s := range r.Stages {
		status := "OK"
		if s.Err != "" {
			status = "FAILED"
		}
		fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (r *IngestReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func formatBytes(b int) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
