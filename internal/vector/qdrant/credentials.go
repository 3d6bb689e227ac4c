package qdrant

import "context"

// apiKeyCredentials attaches the api-key header to every RPC.
type apiKeyCredentials struct {
	key    string
	secure bool
}

func (c apiKeyCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"api-key": c.key}, nil
}

func (c apiKeyCredentials) RequireTransportSecurity() bool {
	return c.secure
}
