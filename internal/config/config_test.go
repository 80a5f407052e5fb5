package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "none", cfg.VectorStore.Type)
	assert.Equal(t, 200, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 300, cfg.Generator.TimeoutSecs)
	assert.Equal(t, "http://localhost:11434", cfg.Generator.Host)
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeFile(t, `
embedder:
  type: ollama
vector_store:
  type: sqlite
chunker:
  chunk_size: 120
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.ChunkOverlap)
	require.NotNil(t, cfg.Embedder.Ollama)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Ollama.Model)
	require.NotNil(t, cfg.VectorStore.SQLite)
	assert.Equal(t, "ragdoc.db", cfg.VectorStore.SQLite.Path)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExplicitZeroOverlap(t *testing.T) {
	cfg, err := Load(writeFile(t, "chunker:\n  chunk_size: 120\n  chunk_overlap: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Chunker.ChunkSize)
	assert.Zero(t, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu:11434")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_API_KEY", "secret")
	path := writeFile(t, `
embedder:
  type: ollama
vector_store:
  type: qdrant
  qdrant:
    url: http://localhost:6333
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gpu:11434", cfg.Generator.Host)
	assert.Equal(t, "http://gpu:11434", cfg.Embedder.Ollama.Host)
	assert.Equal(t, "http://qdrant:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "secret", cfg.VectorStore.Qdrant.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "vector_store:\n  type: pinecone\n"))
	require.ErrorContains(t, err, "pinecone")

	_, err = Load(writeFile(t, "embedder: [unclosed"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 9
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
