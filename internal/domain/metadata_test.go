package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkMetadata(t *testing.T) {
	long := strings.Repeat("é", 120)
	chunks := []Chunk{{Index: 0, Text: "short"}, {Index: 1, Text: long}}

	meta := NewChunkMetadata(chunks, "")
	require.Len(t, meta, 2)
	assert.Equal(t, 0, meta[0].ChunkID)
	assert.Equal(t, DefaultSourceFile, meta[0].SourceFile)
	assert.Equal(t, "short", meta[0].ChunkPreview)
	assert.Equal(t, 5, meta[0].ChunkSize)

	assert.Equal(t, 1, meta[1].ChunkID)
	assert.Equal(t, 120, meta[1].ChunkSize)
	assert.Equal(t, strings.Repeat("é", 100)+"...", meta[1].ChunkPreview)
	assert.Equal(t, long, meta[1].Text)

	named := NewChunkMetadata(chunks[:1], "report.docx")
	assert.Equal(t, "report.docx", named[0].SourceFile)
}

func TestPreview_Boundary(t *testing.T) {
	exact := strings.Repeat("a", 100)
	assert.Equal(t, exact, Preview(exact))
	assert.Equal(t, exact+"...", Preview(exact+"b"))
}
