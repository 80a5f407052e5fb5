package retrieval

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"ragdoc/internal/domain"
	"ragdoc/internal/embedding"
	"ragdoc/internal/state"
	"ragdoc/internal/vectorstore/memory"
)

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 5

// Engine ranks chunks for a query, either through a persistent index or
// the in-memory snapshot. Persistent failures fall back to memory.
type Engine struct {
	pipeline  *state.Pipeline
	factory   embedding.Factory
	store     domain.VectorStore
	logger    *log.Logger
	fallbacks atomic.Int64
}

// NewEngine builds an engine. store may be nil when no persistent backend
// is configured; queries naming a destination then always fall back.
func NewEngine(pipeline *state.Pipeline, factory embedding.Factory, store domain.VectorStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		pipeline: pipeline,
		factory:  factory,
		store:    store,
		logger:   logger.WithPrefix("retrieval"),
	}
}

// Fallbacks counts persistent queries that failed and were served from
// memory or answered empty.
func (e *Engine) Fallbacks() int64 { return e.fallbacks.Load() }

// Retrieve embeds query and returns at most topK matches, best first. Only
// embedding failures are returned as errors.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int, destination string) ([]domain.SimilarityMatch, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	snap := e.pipeline.Get()
	model := snap.Model
	if model == nil {
		var err error
		if model, err = e.pipeline.EnsureModel(e.factory); err != nil {
			return nil, err
		}
	}
	vec, err := embedding.EmbedQuery(ctx, model, query)
	if err != nil {
		return nil, err
	}

	if destination == "" {
		return e.search(ctx, memoryBackend(snap), destination, vec, topK)
	}
	matches, err := e.search(ctx, e.store, destination, vec, topK)
	if err == nil {
		e.logger.Debug("persistent query", "destination", destination, "matches", len(matches))
		return matches, nil
	}

	e.fallbacks.Add(1)
	if !snap.HasVectors() {
		e.logger.Warn("persistent query failed, no in-memory data", "destination", destination, "err", err)
		return []domain.SimilarityMatch{}, nil
	}
	e.logger.Warn("persistent query failed, falling back to in-memory search",
		"destination", destination, "chunks", len(snap.Chunks), "err", err)
	return e.search(ctx, memoryBackend(snap), "", vec, topK)
}

// memoryBackend serves the snapshot's vectors through the same contract as
// the persistent stores.
func memoryBackend(snap *state.Snapshot) domain.VectorStore {
	return memory.NewIndex(snap.Chunks, snap.Embeddings)
}

// search asks backend for topK matches and enforces the limit.
func (e *Engine) search(ctx context.Context, backend domain.VectorStore, destination string, vec []float64, topK int) ([]domain.SimilarityMatch, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no persistent vector store configured", domain.ErrVectorStore)
	}
	matches, err := backend.Query(ctx, destination, vec, topK)
	if err != nil {
		return nil, err
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
