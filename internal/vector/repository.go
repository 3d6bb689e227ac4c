// Package vector stores chunk embeddings and answers similarity queries.
//
// Backends implement Store; CollectionManager adds the idempotent collection
// bootstrap and logging that both pipelines rely on.
package vector

import "context"

// Dimension is the vector width of every collection. It matches the
// text-embedding-ada-002 output.
const Dimension = 1536

// Metadata is the provenance stored alongside each chunk.
type Metadata struct {
	QdrantID string `json:"qdrant_id"`
	Source   string `json:"source"`
	FileName string `json:"file_name"`
}

// Payload is the stored document body. Field names are part of the
// collection format and must not change.
type Payload struct {
	Text       string   `json:"text"`
	DocumentID string   `json:"document_id"`
	Metadata   Metadata `json:"metadata"`
}

// Record is one point written to a collection.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// SearchResult is a single match from a similarity search. Higher scores
// are more similar.
type SearchResult struct {
	ID      string
	Score   float32
	Payload Payload
}

// Store is the backend contract for a vector database.
type Store interface {
	// ListCollections returns the names of existing collections.
	ListCollections(ctx context.Context) ([]string, error)
	// CreateCollection creates a cosine-distance collection of the given
	// dimension.
	CreateCollection(ctx context.Context, name string, dim int) error
	// Upsert writes records and returns once the write is acknowledged.
	Upsert(ctx context.Context, name string, records []Record) error
	// Search returns the k nearest records to vec, best first.
	Search(ctx context.Context, name string, vec []float32, k int) ([]SearchResult, error)
	// Count returns the number of records in a collection.
	Count(ctx context.Context, name string) (int, error)
	// Close releases resources.
	Close() error
}
