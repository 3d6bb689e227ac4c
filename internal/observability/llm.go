package observability

import (
	"context"
	"time"

	"github.com/efebarandurmaz/codefinder/internal/llm"
)

// InstrumentedCompleter wraps a completer with an LLM span and request
// metrics.
type InstrumentedCompleter struct {
	next     llm.Completer
	provider string
	model    string
	metrics  *Metrics
}

// InstrumentCompleter wraps next. m may be nil, in which case only spans are
// recorded.
func InstrumentCompleter(next llm.Completer, provider, model string, m *Metrics) *InstrumentedCompleter {
	return &InstrumentedCompleter{next: next, provider: provider, model: model, metrics: m}
}

func (c *InstrumentedCompleter) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	ctx, span := StartLLMSpan(ctx, c.provider, c.model, "complete")
	defer span.End()

	start := time.Now()
	resp, err := c.next.Complete(ctx, prompt, opts)
	tokens := 0
	if resp != nil {
		tokens = resp.InputTokens + resp.OutputTokens
	}
	c.metrics.RecordLLMRequest(time.Since(start), tokens, err)
	RecordLLMUsage(span, resp)
	RecordError(span, err)
	return resp, err
}

var _ llm.Completer = (*InstrumentedCompleter)(nil)
