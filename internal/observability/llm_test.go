package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/efebarandurmaz/codefinder/internal/llm"
)

type stubCompleter struct {
	resp *llm.Response
	err  error
}

func (s stubCompleter) Complete(context.Context, *llm.Prompt, *llm.RequestOptions) (*llm.Response, error) {
	return s.resp, s.err
}

func TestInstrumentCompleter(t *testing.T) {
	m := NewMetrics()
	c := InstrumentCompleter(stubCompleter{resp: &llm.Response{Content: "ok", InputTokens: 7, OutputTokens: 3}}, "openai", "gpt-3.5-turbo", m)

	resp, err := c.Complete(context.Background(), llm.UserPrompt("q"), nil)
	if err != nil || resp.Content != "ok" {
		t.Fatalf("unexpected result: %v %v", resp, err)
	}
	if testutil.ToFloat64(m.LLMTokensTotal) != 10 {
		t.Fatalf("expected 10 tokens, got %f", testutil.ToFloat64(m.LLMTokensTotal))
	}

	failing := InstrumentCompleter(stubCompleter{err: errors.New("429")}, "openai", "gpt-3.5-turbo", m)
	if _, err := failing.Complete(context.Background(), llm.UserPrompt("q"), nil); err == nil {
		t.Fatal("expected error")
	}
	if testutil.ToFloat64(m.LLMErrorsTotal) != 1 {
		t.Fatalf("expected 1 error, got %f", testutil.ToFloat64(m.LLMErrorsTotal))
	}
}

func TestInstrumentCompleter_NilMetrics(t *testing.T) {
	c := InstrumentCompleter(stubCompleter{resp: &llm.Response{}}, "openai", "m", nil)
	if _, err := c.Complete(context.Background(), llm.UserPrompt("q"), nil); err != nil {
		t.Fatal(err)
	}
}
