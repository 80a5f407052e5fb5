// Package embeddingtest provides deterministic embedders for tests.
package embeddingtest

import (
	"context"
	"errors"
	"sync/atomic"
)

// Static returns canned vectors. Documents get Docs in order (cycling if
// there are more texts than vectors); queries are looked up in Queries and
// fall back to Query.
type Static struct {
	Docs    [][]float64
	Queries map[string][]float64
	Query   []float64
	Err     error

	docCalls   atomic.Int64
	queryCalls atomic.Int64
}

func (s *Static) Name() string { return "static" }

func (s *Static) EmbedDocuments(_ context.Context, texts []string) ([][]float64, error) {
	s.docCalls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Docs) == 0 {
		return nil, errors.New("no document vectors configured")
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = s.Docs[i%len(s.Docs)]
	}
	return out, nil
}

func (s *Static) EmbedQuery(_ context.Context, text string) ([]float64, error) {
	s.queryCalls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	if v, ok := s.Queries[text]; ok {
		return v, nil
	}
	return s.Query, nil
}

// DocCalls reports how many times EmbedDocuments ran.
func (s *Static) DocCalls() int { return int(s.docCalls.Load()) }

// QueryCalls reports how many times EmbedQuery ran.
func (s *Static) QueryCalls() int { return int(s.queryCalls.Load()) }
