package retrieval

import (
	"sort"

	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
)

// Strategy selects the fusion algorithm.
type Strategy string

const (
	// StrategyWeighted is the default: min-max normalize each channel to
	// [0,1], then fuse with a weighted sum.
	StrategyWeighted Strategy = "weighted"
	// StrategyRRF fuses by reciprocal rank instead of score magnitude.
	StrategyRRF Strategy = "rrf"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseWeighted merges the two channel result lists into one deduplicated,
// ranked candidate list. Raw scores are min-max normalized within their
// channel before weighting, so BM25 magnitudes and cosine similarities
// become comparable. A document found by only one channel contributes 0 for
// the missing channel and is never dropped.
func fuseWeighted(lex, vec []candidate.Hit, wLex, wVec float64) []candidate.Candidate {
	lexNorm := minMaxNormalize(lex)
	vecNorm := minMaxNormalize(vec)

	merged := make(map[string]*candidate.Candidate, len(lex)+len(vec))

	for i, hit := range lex {
		c := upsert(merged, hit)
		c.BM25Score = hit.Score
		c.HasBM25 = true
		c.FusedScore += wLex * lexNorm[i]
	}
	for i, hit := range vec {
		c := upsert(merged, hit)
		c.VectorScore = hit.Score
		c.HasVector = true
		c.FusedScore += wVec * vecNorm[i]
	}

	return sortCandidates(merged)
}

// fuseRRF merges by reciprocal rank: score(d) = sum of 1/(k + rank_i(d))
// over each channel ranking where d appears.
func fuseRRF(lex, vec []candidate.Hit) []candidate.Candidate {
	merged := make(map[string]*candidate.Candidate, len(lex)+len(vec))

	for rank, hit := range lex {
		c := upsert(merged, hit)
		c.BM25Score = hit.Score
		c.HasBM25 = true
		c.FusedScore += 1.0 / float64(rrfK+rank+1)
	}
	for rank, hit := range vec {
		c := upsert(merged, hit)
		c.VectorScore = hit.Score
		c.HasVector = true
		c.FusedScore += 1.0 / float64(rrfK+rank+1)
	}

	return sortCandidates(merged)
}

// upsert returns the existing candidate for the hit's document or inserts a
// new one. Text and metadata are filled from whichever channel carried them,
// so fusion needs no separate hydration pass.
func upsert(merged map[string]*candidate.Candidate, hit candidate.Hit) *candidate.Candidate {
	c, ok := merged[hit.DocumentID]
	if !ok {
		c = &candidate.Candidate{DocumentID: hit.DocumentID}
		merged[hit.DocumentID] = c
	}
	if c.Text == "" && hit.Text != "" {
		c.Text = hit.Text
	}
	if c.Metadata == nil && hit.Metadata != nil {
		c.Metadata = hit.Metadata
	}
	return c
}

// minMaxNormalize rescales the hit scores to [0,1]. A degenerate range maps
// positive scores to 1 and the rest to 0, matching the single-result case.
func minMaxNormalize(hits []candidate.Hit) []float64 {
	norms := make([]float64, len(hits))
	if len(hits) == 0 {
		return norms
	}

	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}

	span := hi - lo
	for i, h := range hits {
		if span <= 0 {
			if h.Score > 0 {
				norms[i] = 1
			}
			continue
		}
		norms[i] = (h.Score - lo) / span
	}
	return norms
}

// sortCandidates orders by fused score descending, document ID ascending on
// ties, so equal-score orderings are deterministic.
func sortCandidates(merged map[string]*candidate.Candidate) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}
