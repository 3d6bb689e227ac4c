package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/efebarandurmaz/codefinder/internal/document"
)

func TestIngestReport_Collect(t *testing.T) {
	r := New("octocat", "code")
	r.CollectDocuments([]document.SourceDocument{
		{Repository: "octocat/app", Text: "abc"},
		{Repository: "octocat/app", Text: "de"},
		{Repository: "octocat/lib", Text: "f"},
	})
	r.CollectChunks([]document.Chunk{{Text: "12345"}, {Text: "1"}, {Text: "123"}})

	if got := r.Repositories; len(got) != 2 || got[0] != "octocat/app" || got[1] != "octocat/lib" {
		t.Errorf("repositories = %v", got)
	}
	if r.Source.Documents != 3 || r.Source.TotalBytes != 6 {
		t.Errorf("source = %+v", r.Source)
	}
	if r.Chunks != (ChunkMetrics{Count: 3, MinBytes: 1, MaxBytes: 5}) {
		t.Errorf("chunks = %+v", r.Chunks)
	}
}

func TestIngestReport_StagesAndErrors(t *testing.T) {
	r := New("octocat", "code")
	r.AddStage("fetch", 10*time.Millisecond, nil)
	r.AddStage("upsert", time.Millisecond, errors.New("unavailable"))
	r.Finish()

	if len(r.Stages) != 2 || r.Stages[1].Err != "unavailable" {
		t.Errorf("stages = %+v", r.Stages)
	}
	if len(r.Errors) != 1 || r.Errors[0] != "upsert: unavailable" {
		t.Errorf("errors = %v", r.Errors)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Error("finished before started")
	}
}

func TestIngestReport_PrintSummary(t *testing.T) {
	r := New("octocat", "code")
	r.RecordsUpserted = 42
	r.AddStage("split", 0, nil)
	r.Finish()

	var buf bytes.Buffer
	r.PrintSummary(&buf)
	out := buf.String()
	for _, want := range []string{"CODEFINDER INGESTION REPORT", "octocat", "Upserted:     42", "split"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestIngestReport_JSON(t *testing.T) {
	r := New("octocat", "code")
	r.CollectionCreated = true
	data, err := r.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["collection"] != "code" || decoded["collection_created"] != true {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestIngestReport_JSONDurationsInMilliseconds(t *testing.T) {
	r := New("octocat", "code")
	r.StartedAt = time.Now().Add(-1500 * time.Millisecond)
	r.AddStage("embed", 250*time.Millisecond, nil)
	r.Finish()

	data, err := r.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		DurationMS int64 `json:"duration_ms"`
		Stages     []struct {
			DurationMS int64 `json:"duration_ms"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.DurationMS < 1500 || decoded.DurationMS > 60_000 {
		t.Errorf("duration_ms = %d, want about 1500", decoded.DurationMS)
	}
	if len(decoded.Stages) != 1 || decoded.Stages[0].DurationMS != 250 {
		t.Errorf("stages = %+v", decoded.Stages)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int]string{0: "0 B", 512: "512 B", 2048: "2.0 KB", 3 << 20: "3.0 MB"}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
