package vectorstore

import (
	"fmt"
	"hash/fnv"

	"ragdoc/internal/domain"
)

// DefaultBatchSize bounds the number of vectors per upsert request.
const DefaultBatchSize = 100

const idPrefixLen = 50

// VectorID derives the identifier of chunk i. The suffix is a short hash of
// the first 50 characters, so different documents can map to the same id.
func VectorID(i int, text string) string {
	r := []rune(text)
	if len(r) > idPrefixLen {
		r = r[:idPrefixLen]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(string(r)))
	return fmt.Sprintf("chunk_%d_%d", i, h.Sum32()%10000)
}

// Records pairs vectors with their metadata, aligned by position.
func Records(vectors [][]float64, metadata []domain.ChunkMetadata) ([]domain.Record, error) {
	if len(vectors) != len(metadata) {
		return nil, fmt.Errorf("%w: %d vectors for %d metadata entries", domain.ErrVectorStore, len(vectors), len(metadata))
	}
	out := make([]domain.Record, len(vectors))
	for i := range vectors {
		out[i] = domain.Record{
			ID:       VectorID(metadata[i].ChunkID, metadata[i].Text),
			Vector:   vectors[i],
			Metadata: metadata[i],
		}
	}
	return out, nil
}

// Batches splits records into consecutive groups of at most size.
func Batches(records []domain.Record, size int) [][]domain.Record {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]domain.Record
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}
