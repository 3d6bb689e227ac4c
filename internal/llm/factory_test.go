package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFactoryRegister(t *testing.T) {
	f := NewFactory()
	called := false
	f.Register("test-provider", func(cfg ProviderConfig) (Provider, error) {
		called = true
		return &mockTestProvider{name: "test-provider"}, nil
	})

	if len(f.constructors) != 1 {
		t.Fatalf("expected 1 constructor, got %d", len(f.constructors))
	}
	if _, err := f.Create(ProviderConfig{Provider: "test-provider"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("constructor was not called")
	}
}

func TestFactoryCreate_EmptyProviderSelectsOpenAI(t *testing.T) {
	f := NewFactory()
	f.Register("openai", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "openai"}, nil
	})

	p, err := f.Create(ProviderConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("expected openai, got %s", p.Name())
	}
}

func TestFactoryCreate_UnknownProvider(t *testing.T) {
	f := NewFactory()
	f.Register("openai", func(cfg ProviderConfig) (Provider, error) { return nil, nil })

	_, err := f.Create(ProviderConfig{Provider: "nonexistent"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Errorf("error should list registered providers: %v", err)
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	wantErr := errors.New("missing api key")
	f.Register("failing", func(cfg ProviderConfig) (Provider, error) {
		return nil, wantErr
	})

	_, err := f.Create(ProviderConfig{Provider: "failing"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped constructor error, got %v", err)
	}
}

func TestFactoryCreate_NoRetryByDefault(t *testing.T) {
	f := NewFactory()
	f.Register("openai", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "openai"}, nil
	})

	p, err := f.Create(DefaultProviderConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RetryProvider); ok {
		t.Fatal("default config must not wrap with retries")
	}
}

func TestFactoryCreate_WithMaxRetriesWrapsRetry(t *testing.T) {
	f := NewFactory()
	f.Register("openai", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "openai"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "openai", MaxRetries: 2, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rp, ok := p.(*RetryProvider)
	if !ok {
		t.Fatalf("expected *RetryProvider, got %T", p)
	}
	if rp.config.MaxRetries != 2 || rp.config.Timeout != time.Second {
		t.Errorf("unexpected retry config: %+v", rp.config)
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()
	if cfg.EmbedModel != "text-embedding-ada-002" {
		t.Errorf("embed model = %s", cfg.EmbedModel)
	}
	if cfg.Timeout != 0 || cfg.MaxRetries != 0 {
		t.Errorf("retries must be off by default: %+v", cfg)
	}
}

func TestKnownProviders(t *testing.T) {
	if KnownProviders["openai"] != "https://api.openai.com/v1" {
		t.Errorf("openai base url = %q", KnownProviders["openai"])
	}
}

func TestUserPrompt(t *testing.T) {
	p := UserPrompt("hello")
	if len(p.Messages) != 1 || p.Messages[0].Role != RoleUser || p.Messages[0].Content != "hello" {
		t.Fatalf("unexpected prompt: %+v", p)
	}
}

func TestResponseEmpty(t *testing.T) {
	var nilResp *Response
	if !nilResp.Empty() {
		t.Error("nil response should be empty")
	}
	if !(&Response{Content: " \n"}).Empty() {
		t.Error("whitespace response should be empty")
	}
	if (&Response{Content: "I don't know!"}).Empty() {
		t.Error("sentinel answer is not empty")
	}
}

func TestRequestOptions(t *testing.T) {
	o := WithTemperature(0.1).WithMaxTokens(256)
	if o.Temperature == nil || *o.Temperature != 0.1 {
		t.Errorf("temperature not kept: %+v", o)
	}
	if o.MaxTokens == nil || *o.MaxTokens != 256 {
		t.Errorf("max tokens not set: %+v", o)
	}
	if (*RequestOptions)(nil).WithMaxTokens(0).MaxTokens != nil {
		t.Error("zero max tokens should stay unset")
	}
}

type mockTestProvider struct {
	name string
}

func (m *mockTestProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	return &Response{Content: "ok"}, nil
}

func (m *mockTestProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (m *mockTestProvider) Name() string { return m.name }
