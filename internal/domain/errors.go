package domain

import "errors"

var (
	// ErrExtraction means no text could be extracted from the upload.
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmbeddingUnavailable means the embedding model could not be built or called.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	// ErrVectorStore means a persistent index operation failed.
	ErrVectorStore = errors.New("vector store error")
	// ErrGeneration means the language model call failed.
	ErrGeneration = errors.New("generation failed")
	// ErrNoDocument means a query arrived before any document was ingested.
	ErrNoDocument = errors.New("no document processed yet")
)
