package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/efebarandurmaz/codefinder/internal/llm"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-3.5-turbo"
	defaultEmbedModel = "text-embedding-ada-002"
)

// Client implements llm.Provider for OpenAI-compatible APIs on top of the
// official SDK. SDK retries are disabled; llm.RetryProvider owns retries.
type Client struct {
	sdk        openaisdk.Client
	model      string
	baseURL    string
	embedModel string
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The default has no
// timeout; cancellation comes from the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates an OpenAI-compatible provider.
func New(apiKey, model, baseURL, embedModel string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	c := &Client{
		model:      model,
		baseURL:    baseURL,
		embedModel: embedModel,
		http:       &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	c.sdk = openaisdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithHTTPClient(c.http),
		option.WithMaxRetries(0),
	)
	return c
}

func (c *Client) Name() string { return "openai" }

// Model returns the completion model name.
func (c *Client) Model() string { return c.model }

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	if prompt == nil {
		return nil, errors.New("openai: nil prompt")
	}

	params := openaisdk.ChatCompletionNewParams{Model: c.model}
	if prompt.SystemPrompt != "" {
		params.Messages = append(params.Messages, openaisdk.SystemMessage(prompt.SystemPrompt))
	}
	for _, m := range prompt.Messages {
		switch m.Role {
		case llm.RoleSystem:
			params.Messages = append(params.Messages, openaisdk.SystemMessage(m.Content))
		case llm.RoleAssistant:
			params.Messages = append(params.Messages, openaisdk.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openaisdk.UserMessage(m.Content))
		}
	}
	if opts != nil {
		if opts.MaxTokens != nil {
			params.MaxTokens = openaisdk.Int(int64(*opts.MaxTokens))
		}
		if opts.Temperature != nil {
			params.Temperature = openaisdk.Float(*opts.Temperature)
		}
		if opts.TopP != nil {
			params.TopP = openaisdk.Float(*opts.TopP)
		}
		if len(opts.StopSeqs) > 0 {
			params.Stop = openaisdk.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopSeqs}
		}
	}

	result, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapErr("chat", err)
	}

	resp := &llm.Response{
		Model:        result.Model,
		InputTokens:  int(result.Usage.PromptTokens),
		OutputTokens: int(result.Usage.CompletionTokens),
	}
	if len(result.Choices) > 0 {
		resp.Content = result.Choices[0].Message.Content
		resp.StopReason = result.Choices[0].FinishReason
	}
	return resp, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model:          openaisdk.EmbeddingModel(c.embedModel),
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, wrapErr("embed", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d embeddings for %d inputs", len(result.Data), len(texts))
	}

	data := result.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	embeddings := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// wrapErr turns SDK status errors into llm.APIError so the retry wrapper
// can classify them.
func wrapErr(op string, err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return &llm.APIError{Provider: "openai", Op: op, StatusCode: apiErr.StatusCode, Body: apiErr.RawJSON()}
	}
	return fmt.Errorf("openai %s: %w", op, err)
}

var _ llm.Provider = (*Client)(nil)
