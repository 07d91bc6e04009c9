package ohadai

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string
	addrs    []string
	password string

	indexName  string
	dimensions int

	embedder Embedder

	lexicalWeight       float64
	vectorWeight        float64
	strategy            string
	candidateMultiplier int
	rerankTopN          int
	disableRerank       bool

	cacheEntries int
	cacheTTL     time.Duration

	bm25K1 float64
	bm25B  float64

	logger *zap.Logger
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		driver:       "memory",
		indexName:    "ohadai:idx",
		dimensions:   1536,
		strategy:     "weighted",
		cacheEntries: 512,
		cacheTTL:     5 * time.Minute,
		bm25K1:       1.2,
		bm25B:        0.75,
		logger:       zap.NewNop(),
	}
}

// WithRedis stores documents and vectors in Redis with RediSearch.
func WithRedis(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
		c.password = password
	}
}

// WithMemory uses the in-process store. This is the default.
func WithMemory() Option {
	return func(c *clientConfig) {
		c.driver = "memory"
	}
}

// WithEmbedder enables the vector channel with the given provider.
func WithEmbedder(e Embedder, dimensions int) Option {
	return func(c *clientConfig) {
		c.embedder = e
		if dimensions > 0 {
			c.dimensions = dimensions
		}
	}
}

// WithDimensions sets the vector index dimension (default 1536). It must
// match the corpus embeddings.
func WithDimensions(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.dimensions = n
		}
	}
}

// WithIndexName overrides the vector index name.
func WithIndexName(name string) Option {
	return func(c *clientConfig) {
		c.indexName = name
	}
}

// WithWeights sets the channel weights for weighted fusion.
func WithWeights(lexical, vector float64) Option {
	return func(c *clientConfig) {
		c.lexicalWeight = lexical
		c.vectorWeight = vector
	}
}

// WithRRF selects reciprocal-rank fusion instead of weighted scores.
func WithRRF() Option {
	return func(c *clientConfig) {
		c.strategy = "rrf"
	}
}

// WithCandidateMultiplier scales the per-channel candidate limit.
func WithCandidateMultiplier(m int) Option {
	return func(c *clientConfig) {
		c.candidateMultiplier = m
	}
}

// WithRerankTopN bounds how many fused candidates enter the rerank stage.
func WithRerankTopN(n int) Option {
	return func(c *clientConfig) {
		c.rerankTopN = n
	}
}

// WithoutRerank disables the rerank stage entirely; rerank requests fall
// back to fused ordering.
func WithoutRerank() Option {
	return func(c *clientConfig) {
		c.disableRerank = true
	}
}

// WithResultCache sizes the response cache. maxEntries <= 0 disables caching.
func WithResultCache(maxEntries int, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheEntries = maxEntries
		c.cacheTTL = ttl
	}
}

// WithBM25 overrides the lexical scoring parameters.
func WithBM25(k1, b float64) Option {
	return func(c *clientConfig) {
		c.bm25K1 = k1
		c.bm25B = b
	}
}

// WithLogger attaches a zap logger; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
