package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store using exact cosine similarity.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dim     int
	records []Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	s.collections[name] = &memoryCollection{dim: dim}
	return nil
}

// Upsert replaces records with matching ids and appends the rest.
func (s *MemoryStore) Upsert(_ context.Context, name string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	index := make(map[string]int, len(c.records))
	for i, r := range c.records {
		index[r.ID] = i
	}
	for _, r := range records {
		if len(r.Vector) != c.dim {
			return fmt.Errorf("%w: record %s has %d, collection %s wants %d", ErrDimensionMismatch, r.ID, len(r.Vector), name, c.dim)
		}
		if i, ok := index[r.ID]; ok {
			c.records[i] = r
			continue
		}
		index[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, name string, vec []float32, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	results := make([]SearchResult, 0, len(c.records))
	for _, r := range c.records {
		results = append(results, SearchResult{ID: r.ID, Score: cosine(vec, r.Vector), Payload: r.Payload})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return len(c.records), nil
}

func (s *MemoryStore) Close() error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ Store = (*MemoryStore)(nil)
