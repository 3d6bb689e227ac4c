package llm

import (
	"fmt"
	"strings"
)

// Response wraps a completion result.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// Empty reports whether the completion carried no text.
func (r *Response) Empty() bool {
	return r == nil || strings.TrimSpace(r.Content) == ""
}

// APIError is a non-2xx answer from a model endpoint.
type APIError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.StatusCode, e.Body)
}
