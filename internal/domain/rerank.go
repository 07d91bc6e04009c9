package domain

import "context"

// RerankCandidate is a document candidate for the reranking stage.
type RerankCandidate struct {
	DocumentID string
	Text       string
	FusedScore float64
}

// RerankResult maps a candidate back to its recomputed relevance score.
type RerankResult struct {
	DocumentID string
	Score      float64
}

// Reranker recomputes fine-grained relevance for a bounded candidate set.
// Implementations must be pure functions of their inputs and return exactly
// one result per candidate (no silent drops). On error, callers fall back to
// the pre-rerank ordering.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)
}
