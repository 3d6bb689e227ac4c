// Package llmutil wires the built-in model providers into an llm factory so
// every binary constructs them the same way.
package llmutil

import (
	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/llm"
	"github.com/efebarandurmaz/codefinder/internal/llm/openai"
)

// RegisterDefaultProviders registers the OpenAI client and every
// OpenAI-compatible preset, plus "custom" which requires a base URL.
// cmd/codefinder and cmd/worker both call this.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	for name, url := range llm.KnownProviders {
		url := url
		factory.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}
	factory.Register("custom", func(c llm.ProviderConfig) (llm.Provider, error) {
		if c.BaseURL == "" {
			return nil, errMissingBaseURL
		}
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
}

// ProviderConfigFrom maps the llm config section onto a provider config.
func ProviderConfigFrom(cfg config.LLMConfig) llm.ProviderConfig {
	pc := llm.DefaultProviderConfig()
	if cfg.Provider != "" {
		pc.Provider = cfg.Provider
	}
	if cfg.Model != "" {
		pc.Model = cfg.Model
	}
	if cfg.EmbedModel != "" {
		pc.EmbedModel = cfg.EmbedModel
	}
	pc.APIKey = cfg.APIKey
	pc.BaseURL = cfg.BaseURL
	pc.Timeout = cfg.Timeout
	pc.MaxRetries = cfg.MaxRetries
	return pc
}

// NewProvider builds the configured provider with the default registrations.
func NewProvider(cfg config.LLMConfig) (llm.Provider, error) {
	factory := llm.NewFactory()
	RegisterDefaultProviders(factory)
	return factory.Create(ProviderConfigFrom(cfg))
}
