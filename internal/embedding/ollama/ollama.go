package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Config holds configuration for Ollama embeddings
type Config struct {
	Host    string // e.g., "http://localhost:11434"
	Model   string // e.g., "nomic-embed-text"
	Timeout time.Duration
}

// Client wraps the Ollama API client for generating embeddings
type Client struct {
	model  string
	client *api.Client
}

// NewClient creates a new Ollama embeddings client. An empty host falls
// back to OLLAMA_HOST.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	var client *api.Client
	if cfg.Host != "" {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host: %w", err)
		}
		client = api.NewClient(u, &http.Client{Timeout: cfg.Timeout})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client from environment: %w", err)
		}
	}
	return &Client{model: cfg.Model, client: client}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "ollama:" + c.model }

// EmbedDocuments embeds all texts in one request.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	return c.embed(ctx, texts)
}

// EmbedQuery embeds a single text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, e32 := range resp.Embeddings {
		v := make([]float64, len(e32))
		for j, x := range e32 {
			v[j] = float64(x)
		}
		out[i] = v
	}
	return out, nil
}
