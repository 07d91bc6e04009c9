package retrieval

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/henribesnard/ohadai-sub001/internal/cache"
	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/request"
)

type mockLexical struct {
	searchFn func(ctx context.Context, query string, limit int, filters filter.Expression) ([]candidate.Hit, error)
	calls    int
}

func (m *mockLexical) Search(ctx context.Context, query string, limit int, filters filter.Expression) ([]candidate.Hit, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit, filters)
	}
	return []candidate.Hit{}, nil
}

type mockVector struct {
	searchFn func(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]candidate.Hit, error)
	calls    int
}

func (m *mockVector) Search(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]candidate.Hit, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, vector, limit, filters)
	}
	return []candidate.Hit{}, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 7}, nil
}

type mockReranker struct {
	rerankFn func(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error)
	calls    int
}

func (m *mockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	m.calls++
	if m.rerankFn != nil {
		return m.rerankFn(ctx, query, candidates)
	}
	results := make([]domain.RerankResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.RerankResult{DocumentID: c.DocumentID, Score: c.FusedScore}
	}
	return results, nil
}

type testEnv struct {
	lexical  *mockLexical
	vector   *mockVector
	embedder *mockEmbedder
	reranker *mockReranker
	service  *Service
}

func newTestService(t *testing.T, cfg Config, withCache bool) *testEnv {
	t.Helper()
	env := &testEnv{
		lexical:  &mockLexical{},
		vector:   &mockVector{},
		embedder: &mockEmbedder{},
		reranker: &mockReranker{},
	}

	var rc ResultCache
	if withCache {
		c, err := cache.New[Response](128, time.Minute)
		if err != nil {
			t.Fatalf("cache.New: %v", err)
		}
		rc = c
	}

	env.service = New(env.lexical, env.vector, env.embedder, env.reranker, rc, cfg, zap.NewNop())
	return env
}

func mustRequest(t *testing.T, query string, nResults int, rerank bool) *request.Request {
	t.Helper()
	req, err := request.New(query, nResults, "", "", rerank, false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func hit(id string, score float64) candidate.Hit {
	return candidate.Hit{
		DocumentID: id,
		Score:      score,
		Text:       "texte " + id,
		Metadata:   map[string]string{"collection": "plan_comptable"},
	}
}

func hitsOf(hits ...candidate.Hit) func(context.Context, string, int, filter.Expression) ([]candidate.Hit, error) {
	return func(context.Context, string, int, filter.Expression) ([]candidate.Hit, error) {
		return hits, nil
	}
}

func vecHitsOf(hits ...candidate.Hit) func(context.Context, []float32, int, filter.Expression) ([]candidate.Hit, error) {
	return func(context.Context, []float32, int, filter.Expression) ([]candidate.Hit, error) {
		return hits, nil
	}
}
