package retrieval

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdoc/internal/chunker"
	"ragdoc/internal/domain"
	"ragdoc/internal/embedding"
	"ragdoc/internal/embedding/embeddingtest"
	"ragdoc/internal/state"
	"ragdoc/internal/vectorstore/memory"
)

type failingStore struct {
	err     error
	queries int
}

func (f *failingStore) EnsureIndex(context.Context, string, int) error { return f.err }
func (f *failingStore) ListIndexes(context.Context) ([]string, error)  { return nil, f.err }
func (f *failingStore) Upsert(context.Context, string, []domain.Record) error {
	return f.err
}
func (f *failingStore) Query(context.Context, string, []float64, int) ([]domain.SimilarityMatch, error) {
	f.queries++
	return nil, f.err
}

type cannedStore struct {
	failingStore
	matches []domain.SimilarityMatch
}

func (c *cannedStore) Query(context.Context, string, []float64, int) ([]domain.SimilarityMatch, error) {
	return c.matches, nil
}

func factoryFor(e domain.Embedder) embedding.Factory {
	return func() (domain.Embedder, error) { return e, nil }
}

// loaded ingests the three-sentence example with one-hot document vectors.
func loaded(t *testing.T, model *embeddingtest.Static) *state.Pipeline {
	t.Helper()
	text := "The cat sat on the mat today. Dogs chase cars in the street. Birds sing at dawn every day."
	chunks := chunker.NewSentenceChunker(50, 10).Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := embedding.EmbedBatch(context.Background(), model, texts)
	require.NoError(t, err)

	p := state.NewPipeline()
	_, err = p.Replace(chunks, vecs, domain.NewChunkMetadata(chunks, "example.md"), model)
	require.NoError(t, err)
	return p
}

func oneHot() *embeddingtest.Static {
	return &embeddingtest.Static{
		Docs:  [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Query: []float64{1, 0, 0},
	}
}

func TestRetrieve_ExampleScenario(t *testing.T) {
	model := oneHot()
	p := loaded(t, model)
	e := NewEngine(p, factoryFor(model), nil, nil)

	res, err := e.Retrieve(context.Background(), "where did the cat sit", 1, "")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "0", res[0].ID)
	assert.Equal(t, p.Get().Chunks[0].Text, res[0].Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestRetrieve_TopKBounds(t *testing.T) {
	model := oneHot()
	p := loaded(t, model)
	e := NewEngine(p, factoryFor(model), nil, nil)
	n := len(p.Get().Chunks)

	res, err := e.Retrieve(context.Background(), "q", 100, "")
	require.NoError(t, err)
	assert.Len(t, res, n)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}

	res, err = e.Retrieve(context.Background(), "q", 0, "")
	require.NoError(t, err)
	assert.Len(t, res, min(n, DefaultTopK))
}

func TestRetrieve_FallbackMatchesMemorySearch(t *testing.T) {
	model := oneHot()
	p := loaded(t, model)
	var buf bytes.Buffer
	store := &failingStore{err: errors.New("index not found")}
	e := NewEngine(p, factoryFor(model), store, log.New(&buf))

	got, err := e.Retrieve(context.Background(), "q", 2, "docs")
	require.NoError(t, err)

	snap := p.Get()
	want := memory.NewIndex(snap.Chunks, snap.Embeddings).Search([]float64{1, 0, 0}, 2)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, store.queries)
	assert.Equal(t, int64(1), e.Fallbacks())
	assert.Contains(t, buf.String(), "falling back")
	assert.Contains(t, buf.String(), "docs")
}

func TestRetrieve_FallbackWithoutDataIsEmpty(t *testing.T) {
	model := oneHot()
	p := state.NewPipeline()
	e := NewEngine(p, factoryFor(model), &failingStore{err: errors.New("down")}, nil)

	res, err := e.Retrieve(context.Background(), "q", 3, "docs")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
	assert.Equal(t, int64(1), e.Fallbacks())
	assert.NotNil(t, p.Get().Model, "model handle is initialized lazily")
}

func TestRetrieve_NoStoreConfiguredFallsBack(t *testing.T) {
	model := oneHot()
	p := loaded(t, model)
	e := NewEngine(p, factoryFor(model), nil, nil)

	res, err := e.Retrieve(context.Background(), "q", 1, "docs")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(1), e.Fallbacks())
}

func TestRetrieve_PersistentResultsTruncated(t *testing.T) {
	model := oneHot()
	p := loaded(t, model)
	store := &cannedStore{matches: []domain.SimilarityMatch{
		{ID: "chunk_0_1", Score: 0.9, Text: "a"},
		{ID: "chunk_1_2", Score: 0.8, Text: "b"},
		{ID: "chunk_2_3", Score: 0.7, Text: "c"},
	}}
	e := NewEngine(p, factoryFor(model), store, nil)

	res, err := e.Retrieve(context.Background(), "q", 2, "docs")
	require.NoError(t, err)
	assert.Equal(t, store.matches[:2], res)
	assert.Zero(t, e.Fallbacks())
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	p := state.NewPipeline()
	broken := embedding.Factory(func() (domain.Embedder, error) { return nil, errors.New("missing key") })
	e := NewEngine(p, broken, nil, nil)

	_, err := e.Retrieve(context.Background(), "q", 3, "")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	model := &embeddingtest.Static{Err: errors.New("timeout")}
	e = NewEngine(p, factoryFor(model), nil, nil)
	_, err = e.Retrieve(context.Background(), "q", 3, "")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// recordingStore is a persistent backend that serves canned matches and
// remembers which index was asked.
type recordingStore struct {
	failingStore
	asked []string
}

func (r *recordingStore) Query(_ context.Context, name string, _ []float64, _ int) ([]domain.SimilarityMatch, error) {
	r.asked = append(r.asked, name)
	return []domain.SimilarityMatch{{ID: "p", Score: 1, Text: "persisted"}}, nil
}

func TestRetrieve_BackendSelectedByDestination(t *testing.T) {
	model := oneHot()
	p := loaded(t, model)
	store := &recordingStore{}
	e := NewEngine(p, factoryFor(model), store, nil)

	res, err := e.Retrieve(context.Background(), "q", 1, "")
	require.NoError(t, err)
	assert.Equal(t, "0", res[0].ID)
	assert.Empty(t, store.asked, "no destination stays in memory")

	res, err = e.Retrieve(context.Background(), "q", 1, "docs")
	require.NoError(t, err)
	assert.Equal(t, "persisted", res[0].Text)
	assert.Equal(t, []string{"docs"}, store.asked)
}
