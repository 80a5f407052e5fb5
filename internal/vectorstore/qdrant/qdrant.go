package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"ragdoc/internal/domain"
	"ragdoc/internal/vectorstore"
)

// pointNamespace seeds the UUIDv5 point ids. Qdrant accepts only UUIDs or
// unsigned integers as point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragdoc/qdrant/points"))

// Storage is a minimal REST client to Qdrant. Each destination index is a
// collection using cosine distance.
type Storage struct {
	url       string
	apiKey    string
	batchSize int
	client    *http.Client
}

type Config struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	BatchSize int
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = vectorstore.DefaultBatchSize
	}
	return &Storage{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: timeout},
	}
}

type payload struct {
	VectorID string `json:"vector_id"`
	domain.ChunkMetadata
}

// PointID maps a chunk vector id onto the UUID stored in Qdrant.
func PointID(vectorID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(vectorID)).String()
}

// EnsureIndex creates a cosine collection of the given dimension unless it
// already exists.
func (s *Storage) EnsureIndex(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	var exists struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionURL(name)+"/exists", nil, &exists); err != nil {
		return err
	}
	if exists.Result.Exists {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(name), body, nil)
}

// ListIndexes returns collection names in lexical order.
func (s *Storage) ListIndexes(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.url+"/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Upsert writes records in batches. It stops at the first failed batch.
func (s *Storage) Upsert(ctx context.Context, name string, records []domain.Record) error {
	batches := vectorstore.Batches(records, s.batchSize)
	for n, batch := range batches {
		points := make([]map[string]any, len(batch))
		for i, r := range batch {
			points[i] = map[string]any{
				"id":      PointID(r.ID),
				"vector":  r.Vector,
				"payload": payload{VectorID: r.ID, ChunkMetadata: r.Metadata},
			}
		}
		body := map[string]any{"points": points}
		if err := s.do(ctx, http.MethodPut, s.collectionURL(name)+"/points?wait=true", body, nil); err != nil {
			return fmt.Errorf("batch %d/%d: %w", n+1, len(batches), err)
		}
	}
	return nil
}

// Query returns the topK nearest points with their stored text.
func (s *Storage) Query(ctx context.Context, name string, vector []float64, topK int) ([]domain.SimilarityMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL(name)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SimilarityMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		id := r.Payload.VectorID
		if id == "" {
			id = fmt.Sprint(r.ID)
		}
		results = append(results, domain.SimilarityMatch{ID: id, Score: r.Score, Text: r.Payload.Text})
	}
	return results, nil
}

func (s *Storage) collectionURL(name string) string {
	return s.url + "/collections/" + url.PathEscape(name)
}

func (s *Storage) do(ctx context.Context, method, endpoint string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", domain.ErrVectorStore, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s: %v", domain.ErrVectorStore, method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: qdrant %s %s failed: %s %s", domain.ErrVectorStore, method, endpoint, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode qdrant response: %v", domain.ErrVectorStore, err)
	}
	return nil
}
