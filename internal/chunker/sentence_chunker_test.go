package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdoc/internal/domain"
)

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split("", 50, 10))
	assert.Empty(t, Split("  \n\t ", 50, 10))
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, Validate(""), domain.ErrExtraction)
	require.ErrorIs(t, Validate(" \n "), domain.ErrExtraction)
	require.NoError(t, Validate("hello"))
}

func TestSplit_ThreeSentences(t *testing.T) {
	text := "The cat sat on the mat today. Dogs chase cars in the street. Birds sing at dawn every day."
	chunks := Split(text, 50, 10)
	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50, "chunk %d too long", i)
	}
}

func TestSplit_Overlap(t *testing.T) {
	chunks := Split("A b. C d. E f. G h.", 12, 5)
	assert.Equal(t, []string{"A b. C d. ", "C d. E f. ", "E f. G h."}, chunks)
}

func TestSplit_LongSentenceKeptWhole(t *testing.T) {
	long := "This sentence is deliberately much longer than the configured chunk size limit allows."
	text := "Short one. " + long + " End."
	chunks := Split(text, 20, 5)
	require.Len(t, chunks, 3)
	assert.Equal(t, long+" ", chunks[1])
}

func TestSplit_ParagraphBreak(t *testing.T) {
	chunks := Split("Heading without period\n\nBody text here.", 25, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Heading without period\n\n", chunks[0])
	assert.Equal(t, "Body text here.", chunks[1])
}

func TestSpans_Coverage(t *testing.T) {
	texts := []string{
		"One. Two! Three? Four.",
		"  leading and trailing whitespace. Is trimmed.   ",
		strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40),
		"No terminator at all in this text",
		"Ünïcödé sentences work. Ça marche bien! 日本語の文です。 Another one.",
	}
	for _, text := range texts {
		for _, cfg := range [][2]int{{20, 5}, {50, 10}, {200, 20}, {8, 0}} {
			c := NewSentenceChunker(cfg[0], cfg[1])
			spans := c.Spans(text)
			require.NotEmpty(t, spans)

			var rebuilt strings.Builder
			prevEnd := spans[0].Start
			for i, s := range spans {
				require.LessOrEqual(t, s.Start, prevEnd, "gap before chunk %d", i)
				if i > 0 {
					prev := text[spans[i-1].Start:spans[i-1].End]
					overlap := text[s.Start:prevEnd]
					assert.True(t, strings.HasSuffix(prev, overlap))
				}
				rebuilt.WriteString(text[prevEnd:s.End])
				prevEnd = s.End
			}
			assert.Equal(t, strings.TrimSpace(text), rebuilt.String())
		}
	}
}

func TestChunk_Indexes(t *testing.T) {
	c := NewSentenceChunker(12, 5)
	chunks := c.Chunk("A b. C d. E f. G h.")
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestNewSentenceChunker_Defaults(t *testing.T) {
	c := NewSentenceChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, 0, c.chunkOverlap)

	c = NewSentenceChunker(40, 40)
	assert.Equal(t, 10, c.chunkOverlap)
}
