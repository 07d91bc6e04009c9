// Package retrieval implements the hybrid retrieval core: lexical and vector
// channels issued concurrently, weighted score fusion, optional reranking and
// response caching. Channel failures degrade the response instead of failing
// it; only malformed requests and the loss of both channels are hard errors.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/request"
	"github.com/henribesnard/ohadai-sub001/internal/metrics"
)

// Config tunes the fusion pipeline.
type Config struct {
	// LexicalWeight and VectorWeight apply to the weighted strategy. They
	// default to favoring vector relevance without excluding lexical signal.
	LexicalWeight float64
	VectorWeight  float64
	// Strategy selects weighted-sum or RRF fusion.
	Strategy Strategy
	// CandidateMultiplier scales the per-channel limit relative to the
	// requested result count, giving fusion enough candidates to rank.
	CandidateMultiplier int
	// RerankTopN bounds how many fused candidates enter the rerank stage.
	RerankTopN int
}

// Default fusion parameters.
const (
	DefaultLexicalWeight       = 0.3
	DefaultVectorWeight        = 0.7
	DefaultCandidateMultiplier = 4
	DefaultRerankTopN          = 10
)

func (c Config) withDefaults() Config {
	if c.LexicalWeight == 0 && c.VectorWeight == 0 {
		c.LexicalWeight = DefaultLexicalWeight
		c.VectorWeight = DefaultVectorWeight
	}
	if c.Strategy == "" {
		c.Strategy = StrategyWeighted
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if c.RerankTopN <= 0 {
		c.RerankTopN = DefaultRerankTopN
	}
	return c
}

// Response is the ranked outcome of one retrieval request.
type Response struct {
	Results []candidate.Candidate

	// Degraded is set when one channel failed and the results carry only
	// the surviving channel's signal.
	Degraded         bool
	DegradedChannels []string

	// Reranked is set when the rerank stage ran and its scores govern the
	// head of the ranking. RerankDegraded is set when rerank was requested
	// but the results kept fused ordering instead.
	Reranked       bool
	RerankDegraded bool

	// CacheHit is set on responses served from the result cache. It is
	// never part of the cached value itself.
	CacheHit bool

	// EmbeddingTokens is the token usage of the query embedding, zero on
	// cache hits and lexical-only degradation.
	EmbeddingTokens int
}

// Service orchestrates the retrieval pipeline.
type Service struct {
	lexical  LexicalSearcher
	vector   VectorSearcher
	embed    Embedder
	reranker domain.Reranker
	cache    ResultCache
	cfg      Config
	logger   *zap.Logger
}

// New creates the retrieval service. cache and reranker may be nil; a nil
// cache disables response caching and a nil reranker makes rerank requests
// fall back to fused ordering.
func New(
	lexical LexicalSearcher, vector VectorSearcher, embed Embedder,
	reranker domain.Reranker, cache ResultCache, cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		lexical:  lexical,
		vector:   vector,
		embed:    embed,
		reranker: reranker,
		cache:    cache,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Retrieve runs the pipeline without phase signaling.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) (Response, error) {
	return s.RetrieveWithPhases(ctx, req, nil)
}

// RetrieveWithPhases runs the pipeline and emits coarse phase markers for a
// streaming transport. A cached response emits only the final marker.
func (s *Service) RetrieveWithPhases(ctx context.Context, req *request.Request, listener domain.PhaseListener) (Response, error) {
	emit := func(p domain.Phase) {
		if listener != nil {
			listener(p)
		}
	}

	start := time.Now()

	if s.cache == nil {
		resp, err := s.compute(ctx, req, emit)
		if err != nil {
			metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
			return Response{}, err
		}
		s.observe(resp, start)
		emit(domain.PhaseDone)
		return resp, nil
	}

	resp, hit, err := s.cache.GetOrCompute(ctx, req.CacheKey(), func(cctx context.Context) (Response, error) {
		return s.compute(cctx, req, emit)
	})
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return Response{}, err
	}

	if hit {
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		resp.CacheHit = true
		resp.EmbeddingTokens = 0
	} else {
		metrics.ResultCacheTotal.WithLabelValues("miss").Inc()
	}

	s.observe(resp, start)
	emit(domain.PhaseDone)
	return resp, nil
}

func (s *Service) observe(resp Response, start time.Time) {
	metrics.RetrievalDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	status := "ok"
	if resp.Degraded {
		status = "degraded"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(status).Inc()
}

type channelResult struct {
	hits   []candidate.Hit
	tokens int
	err    error
}

// compute runs both channels concurrently, fuses, and optionally reranks.
func (s *Service) compute(ctx context.Context, req *request.Request, emit func(domain.Phase)) (Response, error) {
	emit(domain.PhaseRetrieving)

	limit := req.NResults() * s.cfg.CandidateMultiplier

	searchStart := time.Now()
	lexCh := make(chan channelResult, 1)
	vecCh := make(chan channelResult, 1)

	go func() {
		hits, err := s.lexical.Search(ctx, req.Query(), limit, req.Filters())
		lexCh <- channelResult{hits: hits, err: err}
	}()
	go func() {
		emb, err := s.embed.Embed(ctx, req.Query())
		if err != nil {
			vecCh <- channelResult{err: fmt.Errorf("vectorize query: %w", err)}
			return
		}
		hits, err := s.vector.Search(ctx, emb.Embedding, limit, req.Filters())
		vecCh <- channelResult{hits: hits, tokens: emb.TotalTokens, err: err}
	}()

	lex := <-lexCh
	vec := <-vecCh
	metrics.RetrievalDuration.WithLabelValues("search").Observe(time.Since(searchStart).Seconds())

	// Cancellation boundary after the search stage.
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	if lex.err != nil && vec.err != nil {
		s.logger.Error("Both retrieval channels failed",
			zap.NamedError("lexical", lex.err),
			zap.NamedError("vector", vec.err),
		)
		return Response{}, fmt.Errorf("lexical: %v; vector: %v: %w", lex.err, vec.err, domain.ErrRetrievalUnavailable)
	}

	resp := Response{EmbeddingTokens: vec.tokens}
	if lex.err != nil {
		s.absorbChannelFailure(&resp, candidate.ChannelLexical, lex.err)
	}
	if vec.err != nil {
		s.absorbChannelFailure(&resp, candidate.ChannelVector, vec.err)
	}

	switch s.cfg.Strategy {
	case StrategyRRF:
		resp.Results = fuseRRF(lex.hits, vec.hits)
	default:
		resp.Results = fuseWeighted(lex.hits, vec.hits, s.cfg.LexicalWeight, s.cfg.VectorWeight)
	}

	if req.Rerank() && len(resp.Results) > 0 {
		// Cancellation boundary before the rerank stage.
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		emit(domain.PhaseReranking)
		s.rerank(ctx, req.Query(), &resp)
	}

	if len(resp.Results) > req.NResults() {
		resp.Results = resp.Results[:req.NResults()]
	}

	return resp, nil
}

func (s *Service) absorbChannelFailure(resp *Response, channel string, err error) {
	s.logger.Warn("Retrieval channel failed, degrading",
		zap.String("channel", channel),
		zap.Error(err),
	)
	metrics.RetrievalChannelFailures.WithLabelValues(channel).Inc()
	resp.Degraded = true
	resp.DegradedChannels = append(resp.DegradedChannels, channel)
}

// rerank rescores the top candidates. Any reranker failure falls back to the
// fused ordering; it never propagates.
func (s *Service) rerank(ctx context.Context, query string, resp *Response) {
	if s.reranker == nil {
		metrics.RerankTotal.WithLabelValues("fallback").Inc()
		resp.RerankDegraded = true
		return
	}

	n := min(s.cfg.RerankTopN, len(resp.Results))
	head := resp.Results[:n]

	rcs := make([]domain.RerankCandidate, n)
	for i, c := range head {
		rcs[i] = domain.RerankCandidate{
			DocumentID: c.DocumentID,
			Text:       c.Text,
			FusedScore: c.FusedScore,
		}
	}

	start := time.Now()
	results, err := s.reranker.Rerank(ctx, query, rcs)
	metrics.RetrievalDuration.WithLabelValues("rerank").Observe(time.Since(start).Seconds())

	if err != nil || len(results) != n {
		if err == nil {
			err = fmt.Errorf("reranker returned %d results for %d candidates: %w", len(results), n, domain.ErrRerankUnavailable)
		}
		s.logger.Warn("Rerank failed, keeping fused ordering", zap.Error(err))
		metrics.RerankTotal.WithLabelValues("fallback").Inc()
		resp.RerankDegraded = true
		return
	}

	scores := make(map[string]float64, n)
	for _, r := range results {
		scores[r.DocumentID] = r.Score
	}
	for i := range head {
		if _, ok := scores[head[i].DocumentID]; !ok {
			s.logger.Warn("Rerank result missing candidate, keeping fused ordering",
				zap.String("document_id", head[i].DocumentID))
			metrics.RerankTotal.WithLabelValues("fallback").Inc()
			resp.RerankDegraded = true
			return
		}
	}
	for i := range head {
		head[i].RerankScore = scores[head[i].DocumentID]
		head[i].Reranked = true
	}

	sort.SliceStable(head, func(i, j int) bool {
		if head[i].RerankScore != head[j].RerankScore {
			return head[i].RerankScore > head[j].RerankScore
		}
		return head[i].DocumentID < head[j].DocumentID
	})

	metrics.RerankTotal.WithLabelValues("ok").Inc()
	resp.Reranked = true
}
