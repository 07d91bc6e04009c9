// Package rerank refines fused candidate scores with a lightweight lexical
// signal: a query-token overlap ratio blended with the normalized fused
// score. It runs in-process with no model dependency, so rerank latency is
// bounded by tokenization alone.
package rerank

import (
	"context"
	"strings"
	"unicode"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
)

// Blend weights between the normalized fused score and the token overlap.
const (
	fusedWeight   = 0.7
	overlapWeight = 0.3
)

// OverlapReranker implements domain.Reranker.
type OverlapReranker struct{}

// New creates an overlap reranker.
func New() *OverlapReranker {
	return &OverlapReranker{}
}

// Rerank returns exactly one result per candidate, in candidate order. The
// fused scores are min-max normalized within the batch before blending so the
// overlap signal carries the same weight regardless of absolute score ranges.
func (r *OverlapReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}

	queryTokens := toTokenSet(query)

	minScore := candidates[0].FusedScore
	maxScore := candidates[0].FusedScore
	for _, c := range candidates[1:] {
		if c.FusedScore < minScore {
			minScore = c.FusedScore
		}
		if c.FusedScore > maxScore {
			maxScore = c.FusedScore
		}
	}

	scoreRange := maxScore - minScore
	normalize := func(v float64) float64 {
		if scoreRange <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / scoreRange
	}

	results := make([]domain.RerankResult, len(candidates))
	for i, c := range candidates {
		overlap := tokenOverlap(queryTokens, toTokenSet(c.Text))
		results[i] = domain.RerankResult{
			DocumentID: c.DocumentID,
			Score:      fusedWeight*normalize(c.FusedScore) + overlapWeight*overlap,
		}
	}
	return results, nil
}

// tokenOverlap is the fraction of query tokens present in the chunk.
func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

// splitAlphaNumLower lowercases and folds French diacritics while splitting
// on every other rune, so accented and unaccented spellings overlap.
func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		r = foldRune(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

func foldRune(r rune) rune {
	switch r {
	case 'à', 'â', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'î', 'ï':
		return 'i'
	case 'ô', 'ö':
		return 'o'
	case 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	default:
		return r
	}
}
