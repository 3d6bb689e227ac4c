package llm

import (
	"fmt"
	"sort"
	"time"
)

// ProviderConfig holds all configuration needed to create a provider.
type ProviderConfig struct {
	Provider   string // "openai", "ollama", "custom"
	APIKey     string
	Model      string // completion model
	EmbedModel string // must produce 1536-dim vectors for the shared collection
	BaseURL    string // override for self-hosted / proxy endpoints

	// Retry wrapping is off unless one of these is set.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultProviderConfig returns the OpenAI defaults used by both pipelines.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Provider:   "openai",
		Model:      "gpt-3.5-turbo",
		EmbedModel: "text-embedding-ada-002",
	}
}

// ProviderFactory creates Provider instances from config.
type ProviderFactory struct {
	constructors map[string]ProviderConstructor
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// NewFactory creates an empty factory.
func NewFactory() *ProviderFactory {
	return &ProviderFactory{
		constructors: make(map[string]ProviderConstructor),
	}
}

// Register adds a provider constructor under the given name.
func (f *ProviderFactory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config. An empty provider name selects
// "openai". The result is wrapped with retry logic when Timeout or
// MaxRetries is set.
func (f *ProviderFactory) Create(cfg ProviderConfig) (Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}

	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (registered: %v)", name, f.names())
	}

	provider, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", name, err)
	}

	if cfg.Timeout > 0 || cfg.MaxRetries > 0 {
		return WrapWithRetry(provider, cfg), nil
	}
	return provider, nil
}

func (f *ProviderFactory) names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KnownProviders lists the OpenAI-compatible presets and their default base
// URLs. Any of them can serve completions; embeddings must come from a model
// that yields 1536 dimensions or ingestion rejects them.
var KnownProviders = map[string]string{
	"openai": "https://api.openai.com/v1",
	"ollama": "http://localhost:11434/v1",
}
