package domain

// DefaultSourceFile is recorded when an upload carries no file name.
const DefaultSourceFile = "uploaded_document"

const previewLen = 100

// ChunkMetadata describes a chunk. ChunkID equals the chunk index.
type ChunkMetadata struct {
	ChunkID      int    `json:"chunk_id"`
	ChunkSize    int    `json:"chunk_size"`
	SourceFile   string `json:"source_file"`
	ChunkPreview string `json:"chunk_preview"`
	Text         string `json:"text"`
}

// NewChunkMetadata builds metadata aligned one-to-one with chunks.
func NewChunkMetadata(chunks []Chunk, sourceFile string) []ChunkMetadata {
	if sourceFile == "" {
		sourceFile = DefaultSourceFile
	}
	out := make([]ChunkMetadata, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkMetadata{
			ChunkID:      c.Index,
			ChunkSize:    c.Len(),
			SourceFile:   sourceFile,
			ChunkPreview: Preview(c.Text),
			Text:         c.Text,
		}
	}
	return out
}

// Preview returns the first 100 characters of text, with "..." appended if it was cut.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLen {
		return text
	}
	return string(r[:previewLen]) + "..."
}
