package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SearchOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(ctx, "c", Dimension))
	require.NoError(t, s.Upsert(ctx, "c", []Record{
		{ID: "far", Vector: vec(0, 1)},
		{ID: "near", Vector: vec(1, 0)},
		{ID: "mid", Vector: vec(1, 1)},
	}))

	results, err := s.Search(ctx, "c", vec(1, 0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestMemoryStore_DuplicateCreate(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(context.Background(), "c", Dimension))
	assert.Error(t, s.CreateCollection(context.Background(), "c", Dimension))
}

func TestMemoryStore_UpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(ctx, "c", Dimension))
	require.NoError(t, s.Upsert(ctx, "c", []Record{{ID: "a", Vector: vec(1), Payload: Payload{Text: "v1"}}}))
	require.NoError(t, s.Upsert(ctx, "c", []Record{{ID: "a", Vector: vec(1), Payload: Payload{Text: "v2"}}}))

	n, err := s.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_RejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(ctx, "c", Dimension))
	err := s.Upsert(ctx, "c", []Record{{ID: "a", Vector: []float32{1, 2}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
