package rerank

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/vector"
)

// CrossEncoderOptions selects the model.
type CrossEncoderOptions struct {
	// Model is a Hugging Face id such as cross-encoder/ms-marco-MiniLM-L-2-v2.
	Model string
	// ModelDir caches downloaded models. Defaults to ./models.
	ModelDir string
	Logger   *slog.Logger
}

// scorer scores each document against query.
type scorer interface {
	score(query string, docs []string) ([]float32, error)
}

// CrossEncoder scores (query, chunk) pairs with a local ONNX model.
type CrossEncoder struct {
	mu      sync.Mutex
	scorer  scorer
	session *hugot.Session
	logger  *slog.Logger
}

// NewCrossEncoder downloads the model if needed and loads it into a pure-Go
// hugot session.
func NewCrossEncoder(opts CrossEncoderOptions) (*CrossEncoder, error) {
	logger := logging.OrDiscard(opts.Logger)
	modelPath, err := prepareModel(opts.Model, opts.ModelDir, logger)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("creating hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.CrossEncoderConfig{
		ModelPath: modelPath,
		Name:      "rerank-pipeline",
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("creating cross-encoder pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("creating cross-encoder pipeline: %w", err)
	}

	return &CrossEncoder{
		scorer:  hugotScorer{pipeline: pipeline},
		session: session,
		logger:  logger,
	}, nil
}

func prepareModel(model, dir string, logger *slog.Logger) (string, error) {
	if model == "" {
		return "", errors.New("rerank: no cross-encoder model configured")
	}
	if dir == "" {
		dir = "./models"
	}
	modelPath := filepath.Join(dir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking model directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating model directory: %w", err)
	}
	logger.Info("downloading cross-encoder model", "model", model, "dir", dir)
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(model, dir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("downloading model %s: %w", model, err)
	}
	return downloaded, nil
}

// Rerank scores every candidate against query and keeps the best topN.
// Calls are serialized; the pipeline is not safe for concurrent use.
func (c *CrossEncoder) Rerank(ctx context.Context, query string, candidates []vector.SearchResult, topN int) ([]vector.SearchResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Payload.Text
	}

	c.mu.Lock()
	scores, err := c.scorer.score(query, docs)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("cross-encoder: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("cross-encoder: got %d scores for %d candidates", len(scores), len(candidates))
	}

	out := make([]vector.SearchResult, len(candidates))
	for i, cand := range candidates {
		cand.Score = scores[i]
		out[i] = cand
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, topN), nil
}

// Close releases the hugot session.
func (c *CrossEncoder) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Destroy()
}

type hugotScorer struct {
	pipeline *pipelines.CrossEncoderPipeline
}

func (h hugotScorer) score(query string, docs []string) ([]float32, error) {
	result, err := h.pipeline.RunPipeline(query, docs)
	if err != nil {
		return nil, err
	}
	scores := make([]float32, len(docs))
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, fmt.Errorf("result index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}
