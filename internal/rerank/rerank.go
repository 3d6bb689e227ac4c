// Package rerank reorders retrieval candidates by relevance to the query.
package rerank

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/vector"
)

// DefaultTopN is how many candidates survive re-ranking.
const DefaultTopN = 3

// Reranker keeps the topN candidates most relevant to query, best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []vector.SearchResult, topN int) ([]vector.SearchResult, error)
}

// ScoreOrder keeps the vector store's similarity order.
type ScoreOrder struct{}

func (ScoreOrder) Rerank(_ context.Context, _ string, candidates []vector.SearchResult, topN int) ([]vector.SearchResult, error) {
	out := append([]vector.SearchResult(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, topN), nil
}

func truncate(rs []vector.SearchResult, n int) []vector.SearchResult {
	if n >= 0 && len(rs) > n {
		return rs[:n]
	}
	return rs
}

// New returns the configured reranker. An empty model or "none" selects
// ScoreOrder.
func New(cfg config.RerankConfig, logger *slog.Logger) (Reranker, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" || strings.EqualFold(model, "none") {
		return ScoreOrder{}, nil
	}
	return NewCrossEncoder(CrossEncoderOptions{Model: model, ModelDir: cfg.ModelDir, Logger: logger})
}
