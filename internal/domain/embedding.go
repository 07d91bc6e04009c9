package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single call. One bad item never
// fails the whole batch: each BatchItem carries its own result or error.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]BatchItem, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchItem is the per-text outcome of a batch embedding call.
type BatchItem struct {
	Embedding []float32
	Err       error
}

// BatchFallback calls Embed once per text for providers without native batch
// support, preserving per-item error semantics.
func BatchFallback(ctx context.Context, e Embedder, texts []string) ([]BatchItem, error) {
	items := make([]BatchItem, len(texts))
	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			items[i] = BatchItem{Err: err}
			continue
		}
		items[i] = BatchItem{Embedding: res.Embedding}
	}
	return items, nil
}
