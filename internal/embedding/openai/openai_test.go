package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func fakeServer(t *testing.T, failFirst int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if n <= failFirst {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		// reversed so the client has to restore order by index
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Embedding: []float32{float32(len(req.Input[j])), 1}, Index: j}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("RAGDOC_TEST_OPENAI_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "RAGDOC_TEST_OPENAI_KEY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAGDOC_TEST_OPENAI_KEY")
}

func TestEmbedDocuments_BatchesAndOrder(t *testing.T) {
	srv, calls := fakeServer(t, 0)
	t.Setenv("RAGDOC_TEST_OPENAI_KEY", "test-key")

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "RAGDOC_TEST_OPENAI_KEY", BatchSize: 2})
	require.NoError(t, err)

	vecs, err := c.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float64{1, 1}, vecs[0])
	assert.Equal(t, []float64{2, 1}, vecs[1])
	assert.Equal(t, []float64{3, 1}, vecs[2])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedQuery_RetriesTransientErrors(t *testing.T) {
	srv, calls := fakeServer(t, 1)
	t.Setenv("RAGDOC_TEST_OPENAI_KEY", "test-key")

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "RAGDOC_TEST_OPENAI_KEY", MaxRetries: 2})
	require.NoError(t, err)

	v, err := c.EmbedQuery(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1}, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedQuery_NoRetryBudget(t *testing.T) {
	srv, _ := fakeServer(t, 1)
	t.Setenv("RAGDOC_TEST_OPENAI_KEY", "test-key")

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "RAGDOC_TEST_OPENAI_KEY"})
	require.NoError(t, err)

	_, err = c.EmbedQuery(context.Background(), "four")
	require.Error(t, err)
}
