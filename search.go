package ohadai

import (
	"context"
	"fmt"

	"github.com/henribesnard/ohadai-sub001/internal/domain/search/request"
	retrievaluc "github.com/henribesnard/ohadai-sub001/internal/usecase/retrieval"
)

// SearchOption tunes a single search call.
type SearchOption func(*searchParams)

type searchParams struct {
	nResults       int
	collection     string
	partie         string
	rerank         bool
	includeSources bool
}

// Limit sets the number of results to return (default 5, max 50).
func Limit(n int) SearchOption {
	return func(p *searchParams) { p.nResults = n }
}

// InCollection restricts results to one corpus collection.
func InCollection(name string) SearchOption {
	return func(p *searchParams) { p.collection = name }
}

// InPartie restricts results to one structural part of the corpus.
func InPartie(name string) SearchOption {
	return func(p *searchParams) { p.partie = name }
}

// Rerank enables the rerank stage for this query.
func Rerank() SearchOption {
	return func(p *searchParams) { p.rerank = true }
}

// IncludeSources adds per-channel provenance scores to each result.
func IncludeSources() SearchOption {
	return func(p *searchParams) { p.includeSources = true }
}

// Result is one ranked passage.
type Result struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float64

	// Provenance, populated when IncludeSources is set.
	Channels    []string
	BM25Score   *float64
	VectorScore *float64
	RerankScore *float64
}

// SearchResponse is the ranked outcome of one query.
type SearchResponse struct {
	Results          []Result
	Degraded         bool
	DegradedChannels []string
	Reranked         bool
	RerankDegraded   bool
	CacheHit         bool
	EmbeddingTokens  int
}

// Search runs the hybrid retrieval pipeline for a query.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (SearchResponse, error) {
	var p searchParams
	for _, o := range opts {
		o(&p)
	}

	req, err := request.New(query, p.nResults, p.collection, p.partie, p.rerank, p.includeSources)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("ohadai: %w", err)
	}

	resp, err := c.retrieval.Retrieve(ctx, &req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("ohadai: search: %w", err)
	}

	return responseFromDomain(resp, p.includeSources), nil
}

func responseFromDomain(resp retrievaluc.Response, includeSources bool) SearchResponse {
	out := SearchResponse{
		Results:          make([]Result, len(resp.Results)),
		Degraded:         resp.Degraded,
		DegradedChannels: resp.DegradedChannels,
		Reranked:         resp.Reranked,
		RerankDegraded:   resp.RerankDegraded,
		CacheHit:         resp.CacheHit,
		EmbeddingTokens:  resp.EmbeddingTokens,
	}
	for i := range resp.Results {
		c := &resp.Results[i]
		r := Result{
			ID:       c.DocumentID,
			Text:     c.Text,
			Metadata: c.Metadata,
			Score:    c.RelevanceScore(),
		}
		if includeSources {
			r.Channels = c.Channels()
			if c.HasBM25 {
				v := c.BM25Score
				r.BM25Score = &v
			}
			if c.HasVector {
				v := c.VectorScore
				r.VectorScore = &v
			}
			if c.Reranked {
				v := c.RerankScore
				r.RerankScore = &v
			}
		}
		out.Results[i] = r
	}
	return out
}
