// Package state holds the process-wide pipeline snapshot for the most
// recently ingested document.
package state

import (
	"fmt"
	"sync"
	"sync/atomic"

	"ragdoc/internal/domain"
	"ragdoc/internal/embedding"
)

// Snapshot is an immutable view of the loaded document. Chunks, Embeddings
// and Metadata are index aligned. An empty IndexName means vectors live
// only in memory.
type Snapshot struct {
	Chunks     []domain.Chunk
	Embeddings [][]float64
	Metadata   []domain.ChunkMetadata
	Model      domain.Embedder
	IndexName  string

	// gen identifies the ingestion that produced this snapshot. Copies made
	// by SetIndexName and EnsureModel keep it.
	gen uint64
}

// HasVectors reports whether in-memory search has anything to rank.
func (s *Snapshot) HasVectors() bool {
	return len(s.Chunks) > 0 && len(s.Embeddings) > 0
}

// Pipeline publishes snapshots atomically. Readers never block; writers
// serialize on a mutex and the last writer wins.
type Pipeline struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	gen     uint64
}

func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.current.Store(&Snapshot{})
	return p
}

// Get returns the current snapshot. Callers must not modify it.
func (p *Pipeline) Get() *Snapshot {
	return p.current.Load()
}

// Replace installs a new document wholesale and returns the installed
// snapshot. The index name is cleared; pass the returned snapshot to
// SetIndexName once the vectors are persisted.
func (p *Pipeline) Replace(chunks []domain.Chunk, embeddings [][]float64, metadata []domain.ChunkMetadata, model domain.Embedder) (*Snapshot, error) {
	if len(chunks) != len(embeddings) || len(chunks) != len(metadata) {
		return nil, fmt.Errorf("misaligned pipeline state: %d chunks, %d embeddings, %d metadata",
			len(chunks), len(embeddings), len(metadata))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	next := &Snapshot{
		Chunks:     chunks,
		Embeddings: embeddings,
		Metadata:   metadata,
		Model:      model,
		gen:        p.gen,
	}
	p.current.Store(next)
	return next, nil
}

// SetIndexName records the persistent destination of the document that
// produced snap. It reports false and changes nothing when a later Replace
// has already superseded that document.
func (p *Pipeline) SetIndexName(snap *Snapshot, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur := p.current.Load()
	if snap == nil || cur.gen != snap.gen {
		return false
	}
	next := *cur
	next.IndexName = name
	p.current.Store(&next)
	return true
}

// EnsureModel returns the cached model, building and caching one with f
// when absent. Chunks and embeddings are left untouched.
func (p *Pipeline) EnsureModel(f embedding.Factory) (domain.Embedder, error) {
	if m := p.current.Load().Model; m != nil {
		return m, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cur := p.current.Load()
	if cur.Model != nil {
		return cur.Model, nil
	}
	m, err := f.Open()
	if err != nil {
		return nil, err
	}
	next := *cur
	next.Model = m
	p.current.Store(&next)
	return m, nil
}
