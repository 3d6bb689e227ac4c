// Package rag answers natural-language questions over the indexed code:
// retrieve, re-rank, then synthesize with the QA prompt.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/efebarandurmaz/codefinder/internal/llm"
	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/rerank"
	"github.com/efebarandurmaz/codefinder/internal/vector"
)

// DefaultTopK is how many chunks are retrieved before re-ranking.
const DefaultTopK = 2

// QueryEmbedder embeds the query text.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs the similarity search.
type Searcher interface {
	Search(ctx context.Context, name string, vec []float32, k int) ([]vector.SearchResult, error)
}

// Answer is a synthesized response.
type Answer struct {
	Text string
	// NoAnswer is set when the model replied with the no-answer sentinel.
	// The text is still returned as-is.
	NoAnswer bool
	Sources  []vector.SearchResult
}

// Options tunes the engine.
type Options struct {
	Collection  string
	TopK        int
	TopN        int
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
	Hooks       Hooks
}

// Hooks observe each stage. Nil fields are skipped.
type Hooks struct {
	StartStage func(ctx context.Context, stage string) (context.Context, func(error))
}

// Engine runs the query pipeline. It holds no per-request state and is safe
// for concurrent use when its collaborators are.
type Engine struct {
	embedder  QueryEmbedder
	searcher  Searcher
	reranker  rerank.Reranker
	completer llm.Completer
	opts      Options
	logger    *slog.Logger
}

// NewEngine wires the pipeline. A nil reranker keeps vector-score order.
func NewEngine(embedder QueryEmbedder, searcher Searcher, reranker rerank.Reranker, completer llm.Completer, opts Options) *Engine {
	if reranker == nil {
		reranker = rerank.ScoreOrder{}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.TopN <= 0 {
		opts.TopN = rerank.DefaultTopN
	}
	return &Engine{
		embedder:  embedder,
		searcher:  searcher,
		reranker:  reranker,
		completer: completer,
		opts:      opts,
		logger:    logging.OrDiscard(opts.Logger),
	}
}

// Query answers query from the configured collection. A nil Answer with a
// nil error means there was nothing to answer from or the model returned no
// text.
func (e *Engine) Query(ctx context.Context, query string) (*Answer, error) {
	candidates, err := stage(ctx, e.opts.Hooks, "retrieve", func(ctx context.Context) ([]vector.SearchResult, error) {
		vec, err := e.embedder.EmbedText(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		return e.searcher.Search(ctx, e.opts.Collection, vec, e.opts.TopK)
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.logger.Info("no candidates retrieved", "collection", e.opts.Collection)
		return nil, nil
	}

	top, err := stage(ctx, e.opts.Hooks, "rerank", func(ctx context.Context) ([]vector.SearchResult, error) {
		return e.reranker.Rerank(ctx, query, candidates, e.opts.TopN)
	})
	if err != nil {
		return nil, fmt.Errorf("reranking: %w", err)
	}

	resp, err := stage(ctx, e.opts.Hooks, "synthesize", func(ctx context.Context) (*llm.Response, error) {
		contexts := make([]string, len(top))
		for i, r := range top {
			contexts[i] = r.Payload.Text
		}
		reqOpts := llm.WithTemperature(e.opts.Temperature).WithMaxTokens(e.opts.MaxTokens)
		return e.completer.Complete(ctx, llm.UserPrompt(RenderPrompt(query, contexts)), reqOpts)
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing: %w", err)
	}
	if resp.Empty() {
		e.logger.Info("empty completion", "query_len", len(query))
		return nil, nil
	}

	e.logger.Debug("query answered", "candidates", len(candidates), "context_chunks", len(top))
	return &Answer{
		Text:     resp.Content,
		NoAnswer: strings.Contains(resp.Content, NoAnswerSentinel),
		Sources:  top,
	}, nil
}

func stage[T any](ctx context.Context, h Hooks, name string, fn func(context.Context) (T, error)) (T, error) {
	if h.StartStage == nil {
		return fn(ctx)
	}
	ctx, end := h.StartStage(ctx, name)
	v, err := fn(ctx)
	end(err)
	return v, err
}
