package vector

import "errors"

var (
	// ErrResponseHandling marks transport or response decoding failures from
	// a backend. EnsureCollection tolerates them.
	ErrResponseHandling = errors.New("vector store response handling failed")

	// ErrDimensionMismatch is returned when an embedding is not Dimension
	// wide.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCollectionNotFound is returned by backends for unknown collections.
	ErrCollectionNotFound = errors.New("collection not found")
)
