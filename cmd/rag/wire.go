package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"ragdoc/internal/config"
	"ragdoc/internal/domain"
	"ragdoc/internal/embedding"
	"ragdoc/internal/embedding/ollama"
	"ragdoc/internal/embedding/openai"
	"ragdoc/internal/embedding/tfidf"
	"ragdoc/internal/llm"
	"ragdoc/internal/service"
	"ragdoc/internal/vectorstore/qdrant"
	"ragdoc/internal/vectorstore/sqlite"
)

func newLogger(cfg *config.AppConfig) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", cfg.Log.Level)
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

// embedderFactory builds a fresh model per ingestion so TF-IDF refits on
// every document.
func embedderFactory(cfg config.EmbedderConfig) (embedding.Factory, error) {
	switch cfg.Type {
	case "tfidf":
		return func() (domain.Embedder, error) { return tfidf.NewEmbedder(), nil }, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		oc := *cfg.OpenAI
		return func() (domain.Embedder, error) {
			c, err := openai.NewClient(openai.Config{
				BaseURL:    oc.BaseURL,
				APIKeyEnv:  oc.APIKeyEnv,
				Model:      oc.Model,
				Timeout:    config.Timeout(oc.TimeoutSecs),
				BatchSize:  oc.BatchSize,
				MaxRetries: oc.MaxRetries,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	case "ollama":
		oc := *cfg.Ollama
		return func() (domain.Embedder, error) {
			c, err := ollama.NewClient(ollama.Config{
				Host:    oc.Host,
				Model:   oc.Model,
				Timeout: config.Timeout(oc.TimeoutSecs),
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore returns nil for type none. The closer is always safe to call.
func openStore(cfg config.VectorStoreConfig) (domain.VectorStore, io.Closer, error) {
	switch cfg.Type {
	case "none":
		return nil, nopCloser{}, nil
	case "qdrant":
		st := qdrant.NewStorage(qdrant.Config{
			URL:       cfg.Qdrant.URL,
			APIKey:    cfg.Qdrant.APIKey,
			Timeout:   config.Timeout(cfg.Qdrant.TimeoutSecs),
			BatchSize: cfg.BatchSize,
		})
		return st, nopCloser{}, nil
	case "sqlite":
		st, err := sqlite.Open(cfg.SQLite.Path, cfg.BatchSize)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

type app struct {
	cfg    *config.AppConfig
	logger *log.Logger
	rag    *service.RAG
	closer io.Closer
}

func newApp() (*app, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	factory, err := embedderFactory(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, closer, err := openStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	gen, err := llm.NewClient(llm.Config{
		Host:    cfg.Generator.Host,
		Model:   cfg.Generator.Model,
		Timeout: config.Timeout(cfg.Generator.TimeoutSecs),
	})
	if err != nil {
		closer.Close()
		return nil, err
	}
	rag := service.New(factory, store, gen, logger, service.Options{
		ChunkSize:        cfg.Chunker.ChunkSize,
		ChunkOverlap:     cfg.Chunker.ChunkOverlap,
		TopK:             cfg.Retrieval.TopK,
		SummarySentences: cfg.Summarizer.MaxSentences,
	})
	logger.Debug("configured", "embedder", cfg.Embedder.Type, "store", cfg.VectorStore.Type, "model", cfg.Generator.Model)
	return &app{cfg: cfg, logger: logger, rag: rag, closer: closer}, nil
}
