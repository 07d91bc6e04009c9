// Package candidate defines the transient scored records that flow through
// the fusion pipeline. Candidates reference corpus documents and are
// discarded once the response is returned; the engine never mutates the
// underlying Document.
package candidate

// Retrieval channel names, recorded as provenance on fused candidates.
const (
	ChannelLexical = "lexical"
	ChannelVector  = "vector"
)

// Hit is a single per-channel result before fusion: a document reference with
// the channel's native score (BM25 weight or cosine similarity).
type Hit struct {
	DocumentID string
	Score      float64
	Text       string
	Metadata   map[string]string
}

// Candidate is a deduplicated retrieval candidate with per-channel
// provenance. Raw channel scores are kept alongside the fused score so the
// caller can explain why a passage was selected.
type Candidate struct {
	DocumentID string
	Text       string
	Metadata   map[string]string

	// Raw channel scores. Has* flags distinguish "scored zero" from
	// "not returned by this channel".
	BM25Score   float64
	HasBM25     bool
	VectorScore float64
	HasVector   bool

	FusedScore  float64
	RerankScore float64
	Reranked    bool
}

// Channels lists the retrieval channels that contributed to this candidate.
func (c *Candidate) Channels() []string {
	channels := make([]string, 0, 2)
	if c.HasBM25 {
		channels = append(channels, ChannelLexical)
	}
	if c.HasVector {
		channels = append(channels, ChannelVector)
	}
	return channels
}

// RelevanceScore returns the governing score: the rerank score when the
// rerank stage ran, the fused score otherwise.
func (c *Candidate) RelevanceScore() float64 {
	if c.Reranked {
		return c.RerankScore
	}
	return c.FusedScore
}
