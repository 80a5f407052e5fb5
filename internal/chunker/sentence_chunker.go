package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ragdoc/internal/domain"
)

const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 20
)

// sentenceEnd matches the gap after a sentence terminator, or a paragraph break.
var sentenceEnd = regexp.MustCompile(`[.!?]+["'’”)\]]*\s+|\n[ \t]*\n\s*`)

// Span is a byte range [Start, End) of the source text.
type Span struct {
	Start int
	End   int
}

// SentenceChunker packs whole sentences into windows of at most chunkSize
// characters. Consecutive windows share trailing sentences that fit in
// chunkOverlap characters.
type SentenceChunker struct {
	chunkSize    int
	chunkOverlap int
}

func NewSentenceChunker(chunkSize, chunkOverlap int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}
	return &SentenceChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Validate rejects text that extraction left empty.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: document contains no text", domain.ErrExtraction)
	}
	return nil
}

// Split is a convenience wrapper returning chunk texts only.
func Split(text string, chunkSize, chunkOverlap int) []string {
	c := NewSentenceChunker(chunkSize, chunkOverlap)
	spans := c.Spans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s.Start:s.End]
	}
	return out
}

// Chunk splits text into indexed chunks. Empty text yields no chunks.
func (c *SentenceChunker) Chunk(text string) []domain.Chunk {
	spans := c.Spans(text)
	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = domain.Chunk{Index: i, Text: text[s.Start:s.End]}
	}
	return chunks
}

type sentence struct {
	start, end int
	length     int
}

// Spans returns the byte ranges of each chunk. Ranges are contiguous or
// overlapping, never leaving a gap, so the trimmed text is fully covered.
func (c *SentenceChunker) Spans(text string) []Span {
	sents := splitSentences(text)
	if len(sents) == 0 {
		return nil
	}
	// window length of sents[from:to]
	size := func(from, to int) int {
		n := 0
		for i := from; i < to; i++ {
			n += sents[i].length
		}
		return n
	}

	var spans []Span
	start, next := 0, 0
	for next < len(sents) {
		length := size(start, next)
		end := next
		for end < len(sents) {
			l := sents[end].length
			if end > next && length+l > c.chunkSize {
				break
			}
			length += l
			end++
		}
		spans = append(spans, Span{Start: sents[start].start, End: sents[end-1].end})
		if end == len(sents) {
			break
		}

		k, carried := end, 0
		for k-1 > start && carried+sents[k-1].length <= c.chunkOverlap {
			carried += sents[k-1].length
			k--
		}
		for k < end && size(k, end)+sents[end].length > c.chunkSize {
			k++
		}
		start, next = k, end
	}
	return spans
}

// splitSentences segments the trimmed text. Each sentence keeps the
// whitespace that follows it, except the last one.
func splitSentences(text string) []sentence {
	lo := len(text) - len(strings.TrimLeft(text, " \t\r\n"))
	hi := len(strings.TrimRight(text, " \t\r\n"))
	if lo >= hi {
		return nil
	}
	body := text[lo:hi]
	var out []sentence
	prev := 0
	for _, m := range sentenceEnd.FindAllStringIndex(body, -1) {
		if m[1] <= prev {
			continue
		}
		out = append(out, newSentence(body, lo, prev, m[1]))
		prev = m[1]
	}
	if prev < len(body) {
		out = append(out, newSentence(body, lo, prev, len(body)))
	}
	return out
}

func newSentence(body string, offset, from, to int) sentence {
	return sentence{
		start:  offset + from,
		end:    offset + to,
		length: utf8.RuneCountInString(body[from:to]),
	}
}
