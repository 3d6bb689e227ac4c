package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/efebarandurmaz/codefinder/internal/logging"
)

// CollectionManager bootstraps collections and writes records through a
// Store.
type CollectionManager struct {
	store  Store
	logger *slog.Logger
}

// NewCollectionManager creates a manager. A nil logger discards output.
func NewCollectionManager(store Store, logger *slog.Logger) *CollectionManager {
	return &CollectionManager{store: store, logger: logging.OrDiscard(logger)}
}

// Store returns the underlying backend.
func (m *CollectionManager) Store() Store { return m.store }

// EnsureCollection creates name with Dimension and cosine distance unless it
// already exists. Response handling failures are logged and swallowed;
// created is false in that case.
func (m *CollectionManager) EnsureCollection(ctx context.Context, name string) (created bool, err error) {
	created, err = m.ensure(ctx, name)
	if errors.Is(err, ErrResponseHandling) {
		m.logger.Error("error checking or creating collection", "collection", name, "error", err)
		return false, nil
	}
	return created, err
}

func (m *CollectionManager) ensure(ctx context.Context, name string) (bool, error) {
	names, err := m.store.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("listing collections: %w", err)
	}
	if slices.Contains(names, name) {
		m.logger.Info("collection already exists", "collection", name)
		return false, nil
	}
	if err := m.store.CreateCollection(ctx, name, Dimension); err != nil {
		return false, fmt.Errorf("creating collection %s: %w", name, err)
	}
	m.logger.Info("collection created", "collection", name, "dimension", Dimension)
	return true, nil
}

// Upsert writes records in a single acknowledged batch. An empty batch is a
// no-op.
func (m *CollectionManager) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := m.store.Upsert(ctx, name, records); err != nil {
		return fmt.Errorf("upserting into %s: %w", name, err)
	}
	m.logger.Info("chunked metadata upserted", "collection", name, "count", len(records))
	return nil
}

// Search returns the k nearest records to vec.
func (m *CollectionManager) Search(ctx context.Context, name string, vec []float32, k int) ([]SearchResult, error) {
	results, err := m.store.Search(ctx, name, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", name, err)
	}
	return results, nil
}

// Count returns the number of records in name.
func (m *CollectionManager) Count(ctx context.Context, name string) (int, error) {
	n, err := m.store.Count(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", name, err)
	}
	return n, nil
}
