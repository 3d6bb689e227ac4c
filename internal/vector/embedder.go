package vector

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/codefinder/internal/document"
	"github.com/efebarandurmaz/codefinder/internal/llm"
)

// Embedder turns chunks into records using a remote embedding model.
type Embedder struct {
	model llm.Embedder
	dim   int
}

// NewEmbedder creates an Embedder that expects Dimension-wide vectors.
func NewEmbedder(model llm.Embedder) *Embedder {
	return &Embedder{model: model, dim: Dimension}
}

// EmbedText embeds a single text with one remote call.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.model.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding: got %d vectors for 1 text", len(vecs))
	}
	if len(vecs[0]) != e.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vecs[0]), e.dim)
	}
	return vecs[0], nil
}

// BuildRecords embeds every chunk, one call each, and pairs the vectors with
// their payloads. The record id is the chunk id.
func (e *Embedder) BuildRecords(ctx context.Context, chunks []document.Chunk) ([]Record, error) {
	records := make([]Record, 0, len(chunks))
	for _, c := range chunks {
		vec, err := e.EmbedText(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		records = append(records, Record{
			ID:     c.ID,
			Vector: vec,
			Payload: Payload{
				Text:       c.Text,
				DocumentID: c.ID,
				Metadata: Metadata{
					QdrantID: c.ID,
					Source:   c.Source,
					FileName: c.FileName,
				},
			},
		})
	}
	return records, nil
}
