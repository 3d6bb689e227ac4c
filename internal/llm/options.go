package llm

// RequestOptions tunes a single completion call. Nil fields keep the
// provider default.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}

// WithTemperature returns options carrying only a sampling temperature.
func WithTemperature(t float64) *RequestOptions {
	return &RequestOptions{Temperature: &t}
}

// WithMaxTokens returns a copy of o with MaxTokens set. Non-positive n
// leaves the provider default.
func (o *RequestOptions) WithMaxTokens(n int) *RequestOptions {
	out := RequestOptions{}
	if o != nil {
		out = *o
	}
	if n > 0 {
		out.MaxTokens = &n
	}
	return &out
}
