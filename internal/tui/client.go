package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultEndpoint is the query API the forwarder posts to.
const DefaultEndpoint = "http://localhost:8000/query/"

// Client forwards queries to the API. It has no timeout and does not retry.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{Endpoint: endpoint, HTTP: &http.Client{}}
}

// Result is what the screen shows for one query.
type Result struct {
	StatusCode int
	Body       string
}

// Text is the raw body on 200 and "Error: <code>" otherwise.
func (r Result) Text() string {
	if r.StatusCode == http.StatusOK {
		return r.Body
	}
	return fmt.Sprintf("Error: %d", r.StatusCode)
}

// Ask posts {"query": query}. Transport failures are returned as errors;
// any HTTP response, including non-200, is a Result.
func (c *Client) Ask(ctx context.Context, query string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("posting query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}
	return Result{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
