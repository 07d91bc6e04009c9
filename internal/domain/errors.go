package domain

import "errors"

var (
	// ErrEmptyInput signals empty or whitespace-only input text.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidLimit signals a non-positive result count.
	ErrInvalidLimit = errors.New("invalid result limit")
	// ErrModelUnavailable signals that the embedding or rerank model failed to initialize.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrDimensionMismatch signals a query vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrRetrievalUnavailable signals that both retrieval channels failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrRerankUnavailable signals a reranker failure; callers fall back to fused ordering.
	ErrRerankUnavailable = errors.New("rerank unavailable")
	// ErrCacheUnavailable signals a cache backend failure; callers proceed uncached.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrDocumentNotFound signals a missing corpus document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
