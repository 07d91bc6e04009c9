package retrieval

import (
	"context"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
)

// LexicalSearcher is the keyword retrieval channel.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int, filters filter.Expression) ([]candidate.Hit, error)
}

// VectorSearcher is the dense retrieval channel.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]candidate.Hit, error)
}

// Embedder vectorizes the query for the dense channel.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ResultCache stores computed responses keyed by request. GetOrCompute
// coalesces concurrent misses for the same key into one computation.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (Response, error)) (Response, bool, error)
}
