package domain

import (
	"context"
	"iter"
	"unicode/utf8"
)

// Chunk is a contiguous span of a document used as the retrieval unit.
type Chunk struct {
	Index int
	Text  string
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int { return utf8.RuneCountInString(c.Text) }

// SimilarityMatch is one ranked retrieval hit.
type SimilarityMatch struct {
	ID    string
	Score float64
	Text  string
}

// Record is a single vector sent to a persistent index.
type Record struct {
	ID       string
	Vector   []float64
	Metadata ChunkMetadata
}

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	Name() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// VectorStore is a persistent vector index addressed by name.
type VectorStore interface {
	EnsureIndex(ctx context.Context, name string, dimension int) error
	ListIndexes(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, name string, records []Record) error
	Query(ctx context.Context, name string, vector []float64, topK int) ([]SimilarityMatch, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream yields partial output in order. The sequence is single use.
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Extractor turns raw file bytes into plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
}
