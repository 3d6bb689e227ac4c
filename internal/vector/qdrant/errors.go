package qdrant

import (
	"fmt"

	"github.com/efebarandurmaz/codefinder/internal/vector"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// wrapErr maps gRPC status codes onto the vector sentinels.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal:
		return fmt.Errorf("qdrant %s: %w: %w", op, vector.ErrResponseHandling, err)
	case codes.NotFound:
		return fmt.Errorf("qdrant %s: %w: %w", op, vector.ErrCollectionNotFound, err)
	default:
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
}
