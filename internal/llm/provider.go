// Package llm defines the embedding and completion contract shared by the
// ingestion and query pipelines.
package llm

import "context"

// Embedder turns texts into vectors. Implementations return one vector per
// input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer answers a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
}

// Provider is the interface all model backends must implement.
type Provider interface {
	Embedder
	Completer
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}
