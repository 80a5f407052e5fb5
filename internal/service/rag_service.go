// Package service composes extraction, chunking, embedding, storage and
// answering into the two operations the front ends expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"ragdoc/internal/answer"
	"ragdoc/internal/chunker"
	"ragdoc/internal/domain"
	"ragdoc/internal/embedding"
	"ragdoc/internal/extract"
	"ragdoc/internal/retrieval"
	"ragdoc/internal/state"
	"ragdoc/internal/summarizer"
	"ragdoc/internal/vectorstore"
)

const keywordCount = 6

// Options tune ingestion and querying. Zero values pick package defaults.
type Options struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	SummarySentences int
}

// IngestResult reports what an ingestion produced.
type IngestResult struct {
	ChunksCreated       int
	CharactersExtracted int
	// Destination is empty when vectors are kept in memory only.
	Destination string
	Summary     string
	Keywords    []string
}

// Message is the human readable outcome of an ingestion.
func (r IngestResult) Message() string {
	if r.Destination == "" {
		return "Pipeline completed successfully. Embeddings will be kept in-memory."
	}
	return fmt.Sprintf("Pipeline completed successfully. Embeddings stored in index '%s'.", r.Destination)
}

type QueryResult struct {
	Answer string
}

// RAG is safe for concurrent use. Concurrent ingestions race and the last
// one to publish its state wins.
type RAG struct {
	pipeline   *state.Pipeline
	chunker    *chunker.SentenceChunker
	factory    embedding.Factory
	store      domain.VectorStore
	engine     *retrieval.Engine
	answers    *answer.Orchestrator
	summarizer *summarizer.Frequency
	opts       Options
	logger     *log.Logger
}

// New wires a RAG. store may be nil, in which case every document stays in
// memory and destinations are rejected at ingestion.
func New(factory embedding.Factory, store domain.VectorStore, generator domain.Generator, logger *log.Logger, opts Options) *RAG {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.TopK <= 0 {
		opts.TopK = retrieval.DefaultTopK
	}
	pipeline := state.NewPipeline()
	engine := retrieval.NewEngine(pipeline, factory, store, logger)
	return &RAG{
		pipeline:   pipeline,
		chunker:    chunker.NewSentenceChunker(opts.ChunkSize, opts.ChunkOverlap),
		factory:    factory,
		store:      store,
		engine:     engine,
		answers:    answer.NewOrchestrator(engine, generator, logger),
		summarizer: summarizer.NewFrequency(),
		opts:       opts,
		logger:     logger.WithPrefix("service"),
	}
}

// Pipeline exposes the shared state, mainly for inspection.
func (s *RAG) Pipeline() *state.Pipeline { return s.pipeline }

// Fallbacks counts queries served from memory after a persistent failure.
func (s *RAG) Fallbacks() int64 { return s.engine.Fallbacks() }

// Ingest replaces the loaded document with fileName's content. When
// destination is set the vectors are also written to that index, and any
// storage failure fails the whole call.
func (s *RAG) Ingest(ctx context.Context, data []byte, fileName, destination string) (IngestResult, error) {
	text, err := extract.Text(fileName, data)
	if err != nil {
		return IngestResult{}, err
	}
	if err := chunker.Validate(text); err != nil {
		return IngestResult{}, err
	}
	chars := utf8.RuneCountInString(text)
	s.logger.Info("extracted", "file", fileName, "chars", chars)

	chunks := s.chunker.Chunk(text)
	s.logger.Info("chunked", "file", fileName, "chunks", len(chunks))

	model, err := s.factory.Open()
	if err != nil {
		return IngestResult{}, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedding.EmbedBatch(ctx, model, texts)
	if err != nil {
		return IngestResult{}, err
	}
	metadata := domain.NewChunkMetadata(chunks, fileName)
	snap, err := s.pipeline.Replace(chunks, vectors, metadata, model)
	if err != nil {
		return IngestResult{}, err
	}

	res := IngestResult{
		ChunksCreated:       len(chunks),
		CharactersExtracted: chars,
		Summary:             s.summarizer.Summarize(text, s.opts.SummarySentences),
		Keywords:            s.summarizer.Keywords(text, keywordCount),
	}
	if destination == "" {
		return res, nil
	}
	if err := s.persist(ctx, destination, vectors, metadata); err != nil {
		return res, err
	}
	res.Destination = destination
	if !s.pipeline.SetIndexName(snap, destination) {
		s.logger.Warn("document replaced while storing, index not attached",
			"file", fileName, "destination", destination)
		return res, nil
	}
	s.logger.Info("stored", "destination", destination, "vectors", len(vectors))
	return res, nil
}

func (s *RAG) persist(ctx context.Context, destination string, vectors [][]float64, metadata []domain.ChunkMetadata) error {
	if s.store == nil {
		return fmt.Errorf("%w: no persistent vector store configured for %q", domain.ErrVectorStore, destination)
	}
	if err := s.store.EnsureIndex(ctx, destination, embedding.Dimension(vectors)); err != nil {
		return fmt.Errorf("%w: create index %q: %w", domain.ErrVectorStore, destination, err)
	}
	records, err := vectorstore.Records(vectors, metadata)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, destination, records); err != nil {
		return fmt.Errorf("%w: store embeddings in %q: %w", domain.ErrVectorStore, destination, err)
	}
	return nil
}

// Query answers text against the loaded document. An empty destination
// uses the index the current document was stored in, if any.
func (s *RAG) Query(ctx context.Context, text string, topK int, destination string) (QueryResult, error) {
	res, err := s.Ask(ctx, text, topK, destination)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Answer: res.Answer}, nil
}

// Ask is Query with the matches and prompt that produced the answer.
func (s *RAG) Ask(ctx context.Context, text string, topK int, destination string) (*answer.Result, error) {
	dest, err := s.resolve(text, destination)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}
	return s.answers.Ask(ctx, text, topK, dest)
}

// Stream is Query with the answer delivered piece by piece.
func (s *RAG) Stream(ctx context.Context, text string, topK int, destination string) (iter.Seq[string], error) {
	dest, err := s.resolve(text, destination)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}
	return s.answers.Stream(ctx, text, topK, dest)
}

func (s *RAG) resolve(text, destination string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty query")
	}
	if destination != "" {
		return destination, nil
	}
	snap := s.pipeline.Get()
	if snap.Model == nil && snap.IndexName == "" {
		return "", domain.ErrNoDocument
	}
	return snap.IndexName, nil
}

// ListDestinations returns the persistent index names, or none when no
// store is configured.
func (s *RAG) ListDestinations(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return []string{}, nil
	}
	names, err := s.store.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return names, nil
}
