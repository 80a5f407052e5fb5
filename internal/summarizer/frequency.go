// Package summarizer produces extractive summaries of ingested documents.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSentences caps a summary when the caller passes zero.
const DefaultMaxSentences = 3

var (
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)
)

// Frequency scores sentences by the normalized frequency of their non-stopword
// terms and keeps the best ones in document order.
type Frequency struct {
	stopwords map[string]struct{}
}

func NewFrequency() *Frequency {
	return &Frequency{stopwords: defaultStopwords()}
}

// Summarize returns at most maxSentences sentences of text.
func (f *Frequency) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	var sentences []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := f.frequencies(sentences)
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		toks := tokens(s)
		sum := 0.0
		for _, t := range toks {
			sum += freq[t]
		}
		if len(toks) > 0 {
			sum /= math.Sqrt(float64(len(toks)))
		}
		ranked[i] = scored{i, sum}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	keep := make([]int, maxSentences)
	for i := range keep {
		keep[i] = ranked[i].idx
	}
	sort.Ints(keep)
	out := make([]string, len(keep))
	for i, idx := range keep {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

// Keywords returns the n most frequent non-stopword terms, ties broken
// alphabetically.
func (f *Frequency) Keywords(text string, n int) []string {
	freq := f.frequencies([]string{text})
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if n > 0 && n < len(terms) {
		terms = terms[:n]
	}
	return terms
}

// frequencies counts terms and scales them so the most frequent is 1.
func (f *Frequency) frequencies(sentences []string) map[string]float64 {
	freq := map[string]float64{}
	top := 0.0
	for _, s := range sentences {
		for _, t := range tokens(s) {
			if _, stop := f.stopwords[t]; stop {
				continue
			}
			freq[t]++
			top = max(top, freq[t])
		}
	}
	for t, v := range freq {
		freq[t] = v / top
	}
	return freq
}

func tokens(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "out", "off", "same", "too", "very", "can",
		"will", "just", "should", "now", "not", "no", "we", "you", "they", "he", "she", "i", "our", "their",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
