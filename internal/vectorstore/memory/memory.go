package memory

import (
	"context"
	"math"
	"sort"
	"strconv"

	"ragdoc/internal/domain"
)

// Index is a brute-force cosine index over vectors already held in memory.
// It satisfies domain.VectorStore so it can stand in for a persistent
// backend; writes are no-ops because the vectors live with their owner.
type Index struct {
	chunks  []domain.Chunk
	vectors [][]float64
}

// NewIndex wraps aligned chunks and vectors. The slices are not copied and
// must not be modified afterwards.
func NewIndex(chunks []domain.Chunk, vectors [][]float64) *Index {
	return &Index{chunks: chunks, vectors: vectors}
}

// Len is the number of searchable vectors.
func (x *Index) Len() int { return min(len(x.chunks), len(x.vectors)) }

func (x *Index) EnsureIndex(context.Context, string, int) error { return nil }

func (x *Index) ListIndexes(context.Context) ([]string, error) { return nil, nil }

func (x *Index) Upsert(context.Context, string, []domain.Record) error { return nil }

// Query ignores the index name.
func (x *Index) Query(_ context.Context, _ string, vector []float64, topK int) ([]domain.SimilarityMatch, error) {
	return x.Search(vector, topK), nil
}

// Search returns up to topK matches, best first. Equal scores keep chunk
// order.
func (x *Index) Search(query []float64, topK int) []domain.SimilarityMatch {
	n := x.Len()
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SimilarityMatch, n)
	for i := 0; i < n; i++ {
		results[i] = domain.SimilarityMatch{
			ID:    strconv.Itoa(x.chunks[i].Index),
			Score: Cosine(query, x.vectors[i]),
			Text:  x.chunks[i].Text,
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

// Cosine is dot(a, b) / (|a| |b|). It is 0 when either norm is zero or the
// lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
