// Package ohadai embeds the hybrid retrieval engine for in-process use: a
// lexical BM25 index and a vector KNN index over the OHADA accounting corpus,
// fused and optionally reranked, without running the HTTP server.
package ohadai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/henribesnard/ohadai-sub001/internal/cache"
	"github.com/henribesnard/ohadai-sub001/internal/db"
	dbMemory "github.com/henribesnard/ohadai-sub001/internal/db/memory"
	dbRedis "github.com/henribesnard/ohadai-sub001/internal/db/redis"
	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/index/lexical"
	"github.com/henribesnard/ohadai-sub001/internal/repository/corpus"
	"github.com/henribesnard/ohadai-sub001/internal/repository/vector"
	embeddinguc "github.com/henribesnard/ohadai-sub001/internal/usecase/embedding"
	healthuc "github.com/henribesnard/ohadai-sub001/internal/usecase/health"
	rerankuc "github.com/henribesnard/ohadai-sub001/internal/usecase/rerank"
	retrievaluc "github.com/henribesnard/ohadai-sub001/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Embedder vectorizes query and document text. Satisfied by any
// OpenAI-compatible provider; see WithEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult = domain.EmbeddingResult

// Client is the embedded retrieval engine entry point.
type Client struct {
	store     db.Store
	lexical   *lexical.Index
	loader    *corpus.Loader
	retrieval *retrievaluc.Service
	health    *healthuc.Service
}

// New creates a Client. Without options it uses the in-memory store and
// serves lexical-only retrieval; add WithEmbedder for the vector channel.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(&cfg)
	}

	store, err := createStore(&cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ohadai: database not ready: %w", err)
	}

	return wireClient(store, &cfg)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "memory":
		return dbMemory.NewStore(), nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("ohadai: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("ohadai: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	lexIndex := lexical.New(lexical.Params{K1: cfg.bm25K1, B: cfg.bm25B})

	embedder := wrapEmbedder(cfg.embedder)
	loader := corpus.New(store, lexIndex, batchOf(cfg.embedder), cfg.indexName, cfg.dimensions, cfg.logger)
	vecRepo := vector.New(store, cfg.indexName, cfg.dimensions)

	var reranker domain.Reranker
	if !cfg.disableRerank {
		reranker = rerankuc.New()
	}

	var resultCache retrievaluc.ResultCache
	if cfg.cacheEntries > 0 {
		c, err := cache.New[retrievaluc.Response](cfg.cacheEntries, cfg.cacheTTL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("ohadai: create result cache: %w", err)
		}
		resultCache = c
	}

	retrievalSvc := retrievaluc.New(
		lexIndex, vecRepo, embedder, reranker, resultCache,
		retrievaluc.Config{
			LexicalWeight:       cfg.lexicalWeight,
			VectorWeight:        cfg.vectorWeight,
			Strategy:            retrievaluc.Strategy(cfg.strategy),
			CandidateMultiplier: cfg.candidateMultiplier,
			RerankTopN:          cfg.rerankTopN,
		},
		cfg.logger,
	)

	var embHealth healthuc.EmbeddingChecker
	if hc, ok := cfg.embedder.(healthuc.EmbeddingChecker); ok {
		embHealth = hc
	}

	return &Client{
		store:     store,
		lexical:   lexIndex,
		loader:    loader,
		retrieval: retrievalSvc,
		health:    healthuc.New(store, embHealth, lexIndex),
	}, nil
}

// wrapEmbedder adapts the public Embedder to the retrieval contract. A nil
// embedder becomes an always-failing provider, which degrades retrieval to
// lexical-only per request.
func wrapEmbedder(e Embedder) retrievaluc.Embedder {
	if e == nil {
		return embeddinguc.NewLazyProvider(func() (domain.Embedder, error) {
			return nil, errors.New("no embedder configured")
		})
	}
	return embedderAdapter{e}
}

type embedderAdapter struct{ e Embedder }

func (a embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return a.e.Embed(ctx, text)
}

func (a embedderAdapter) EmbedBatch(ctx context.Context, texts []string) ([]domain.BatchItem, error) {
	if b, ok := a.e.(domain.BatchEmbedder); ok {
		return b.EmbedBatch(ctx, texts)
	}
	return domain.BatchFallback(ctx, a, texts)
}

// batchOf returns the batch view of the configured embedder, or nil when no
// embedder is set; the corpus loader then requires precomputed embeddings.
func batchOf(e Embedder) domain.BatchEmbedder {
	if e == nil {
		return nil
	}
	return embedderAdapter{e}
}

// LoadCorpus ingests a prepared JSON chunk file into the document store, the
// vector index and the lexical index. Returns the number of documents loaded.
func (c *Client) LoadCorpus(ctx context.Context, path string) (int, error) {
	n, err := c.loader.Load(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("ohadai: load corpus: %w", err)
	}
	return n, nil
}

// Documents returns the number of documents in the lexical index.
func (c *Client) Documents() int {
	return c.lexical.Len()
}

// Health reports component availability.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthReport{Status: string(report.Status), Checks: checks}
}

// HealthReport aggregates component check outcomes.
type HealthReport struct {
	Status string
	Checks map[string]string
}

// Close releases the underlying store connection.
func (c *Client) Close() {
	c.store.Close()
}
