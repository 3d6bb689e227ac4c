package vector

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails ListCollections with the configured error.
type flakyStore struct {
	*MemoryStore
	listErr error
}

func (f *flakyStore) ListCollections(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.ListCollections(ctx)
}

func vec(head ...float32) []float32 {
	v := make([]float32, Dimension)
	copy(v, head)
	return v
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	m := NewCollectionManager(NewMemoryStore(), slog.New(slog.NewTextHandler(&buf, nil)))

	created, err := m.EnsureCollection(ctx, "code")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.EnsureCollection(ctx, "code")
	require.NoError(t, err)
	assert.False(t, created)

	names, err := m.Store().ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, names)

	assert.Contains(t, buf.String(), "collection created")
	assert.Contains(t, buf.String(), "collection already exists")
}

func TestEnsureCollection_SwallowsResponseHandling(t *testing.T) {
	var buf bytes.Buffer
	store := &flakyStore{MemoryStore: NewMemoryStore(), listErr: errors.Join(ErrResponseHandling, errors.New("connection refused"))}
	m := NewCollectionManager(store, slog.New(slog.NewTextHandler(&buf, nil)))

	created, err := m.EnsureCollection(context.Background(), "code")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Contains(t, buf.String(), "error checking or creating collection")
}

func TestEnsureCollection_PropagatesOtherErrors(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), listErr: errors.New("permission denied")}
	m := NewCollectionManager(store, nil)

	_, err := m.EnsureCollection(context.Background(), "code")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResponseHandling)
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	m := NewCollectionManager(NewMemoryStore(), nil)
	// The collection does not exist, so any store call would fail.
	require.NoError(t, m.Upsert(context.Background(), "missing", nil))
}

func TestUpsert_ReadYourWrites(t *testing.T) {
	ctx := context.Background()
	m := NewCollectionManager(NewMemoryStore(), nil)
	_, err := m.EnsureCollection(ctx, "code")
	require.NoError(t, err)

	records := []Record{
		{ID: "a", Vector: vec(1, 0), Payload: Payload{Text: "alpha"}},
		{ID: "b", Vector: vec(0, 1), Payload: Payload{Text: "beta"}},
	}
	require.NoError(t, m.Upsert(ctx, "code", records))

	n, err := m.Count(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := m.Search(ctx, "code", vec(1, 0.1), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Payload.Text)
}

func TestSearch_UnknownCollection(t *testing.T) {
	m := NewCollectionManager(NewMemoryStore(), nil)
	_, err := m.Search(context.Background(), "nope", vec(1), 2)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}
