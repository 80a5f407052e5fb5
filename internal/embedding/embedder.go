package embedding

import (
	"context"
	"fmt"

	"ragdoc/internal/domain"
)

// Factory builds a fresh embedding model handle.
type Factory func() (domain.Embedder, error)

// Open calls f and classifies any failure as ErrEmbeddingUnavailable.
func (f Factory) Open() (domain.Embedder, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingUnavailable)
	}
	e, err := f()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: factory returned no embedder", domain.ErrEmbeddingUnavailable)
	}
	return e, nil
}

// EmbedBatch embeds texts in order. It either returns one vector per text,
// all of the same dimension, or an ErrEmbeddingUnavailable error.
func EmbedBatch(ctx context.Context, e domain.Embedder, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingUnavailable, e.Name(), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", domain.ErrEmbeddingUnavailable, e.Name(), len(vectors), len(texts))
	}
	dim := Dimension(vectors)
	if dim == 0 {
		return nil, fmt.Errorf("%w: %s returned empty vectors", domain.ErrEmbeddingUnavailable, e.Name())
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrEmbeddingUnavailable, i, len(v), dim)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func EmbedQuery(ctx context.Context, e domain.Embedder, text string) ([]float64, error) {
	v, err := e.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingUnavailable, e.Name(), err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty query vector", domain.ErrEmbeddingUnavailable, e.Name())
	}
	return v, nil
}

// Dimension is the length of the first vector, or 0 if there is none.
func Dimension(vectors [][]float64) int {
	if len(vectors) == 0 {
		return 0
	}
	return len(vectors[0])
}
