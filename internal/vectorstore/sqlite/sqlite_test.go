package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdoc/internal/domain"
	"ragdoc/internal/vectorstore"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vectors.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func records(t *testing.T, texts []string, vectors [][]float64) []domain.Record {
	t.Helper()
	chunks := make([]domain.Chunk, len(texts))
	for i, s := range texts {
		chunks[i] = domain.Chunk{Index: i, Text: s}
	}
	recs, err := vectorstore.Records(vectors, domain.NewChunkMetadata(chunks, "notes.md"))
	require.NoError(t, err)
	return recs
}

func TestStorage_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.EnsureIndex(ctx, "notes", 3))
	recs := records(t, []string{"red", "green", "blue"}, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	require.NoError(t, s.Upsert(ctx, "notes", recs))

	res, err := s.Query(ctx, "notes", []float64{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "blue", res[0].Text)
	assert.Equal(t, recs[2].ID, res[0].ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-12)

	all, err := s.Query(ctx, "notes", []float64{1, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
}

func TestStorage_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.EnsureIndex(ctx, "notes", 2))

	first := records(t, []string{"same prefix"}, [][]float64{{1, 0}})
	require.NoError(t, s.Upsert(ctx, "notes", first))
	second := records(t, []string{"same prefix"}, [][]float64{{0, 1}})
	require.NoError(t, s.Upsert(ctx, "notes", second))

	res, err := s.Query(ctx, "notes", []float64{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 1.0, res[0].Score, 1e-12)
}

func TestStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Query(ctx, "missing", []float64{1}, 1)
	require.ErrorIs(t, err, domain.ErrVectorStore)

	require.ErrorIs(t, s.Upsert(ctx, "missing", nil), domain.ErrVectorStore)

	require.NoError(t, s.EnsureIndex(ctx, "two", 2))
	err = s.Upsert(ctx, "two", records(t, []string{"x"}, [][]float64{{1, 2, 3}}))
	require.ErrorIs(t, err, domain.ErrVectorStore)

	require.ErrorIs(t, s.EnsureIndex(ctx, "zero", 0), domain.ErrVectorStore)
}

func TestStorage_ListIndexes(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.EnsureIndex(ctx, "b", 2))
	require.NoError(t, s.EnsureIndex(ctx, "a", 2))
	require.NoError(t, s.EnsureIndex(ctx, "a", 4))

	names, err := s.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestFloat64Encoding(t *testing.T) {
	in := []float64{0, -1.5, 3.141592653589793}
	assert.Equal(t, in, decodeFloat64Slice(encodeFloat64Slice(in)))
}
