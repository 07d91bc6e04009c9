// Package lexical implements the in-process keyword channel: an inverted
// index with Okapi BM25 scoring over the corpus text. The index is built
// once at startup and immutable afterwards, so searches run lock-free in
// practice and fully in parallel with the vector channel.
package lexical

import (
	"context"
	"sort"
	"sync"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
)

// Params are the BM25 tuning constants.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the standard Okapi constants.
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75}
}

type docEntry struct {
	text     string
	metadata map[string]string
	length   int
}

// Index is an inverted index with BM25 scoring.
type Index struct {
	mu       sync.RWMutex
	params   Params
	docs     map[string]*docEntry
	postings map[string]map[string]int // term -> docID -> frequency
	totalLen int
}

// New creates an empty index with the given BM25 parameters.
func New(params Params) *Index {
	if params.K1 <= 0 {
		params.K1 = DefaultParams().K1
	}
	if params.B < 0 || params.B > 1 {
		params.B = DefaultParams().B
	}
	return &Index{
		params:   params,
		docs:     make(map[string]*docEntry),
		postings: make(map[string]map[string]int),
	}
}

// Add indexes one document. Re-adding an ID replaces its previous entry.
func (ix *Index) Add(doc domain.Document) {
	tokens := tokenize(doc.Text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.docs[doc.ID]; ok {
		ix.removeLocked(doc.ID, old)
	}

	entry := &docEntry{
		text:     doc.Text,
		metadata: doc.Metadata,
		length:   len(tokens),
	}
	ix.docs[doc.ID] = entry
	ix.totalLen += entry.length

	for _, tok := range tokens {
		posting, ok := ix.postings[tok]
		if !ok {
			posting = make(map[string]int)
			ix.postings[tok] = posting
		}
		posting[doc.ID]++
	}
}

// AddBatch indexes a slice of documents.
func (ix *Index) AddBatch(docs []domain.Document) {
	for _, d := range docs {
		ix.Add(d)
	}
}

func (ix *Index) removeLocked(id string, entry *docEntry) {
	for _, tok := range tokenize(entry.text) {
		posting := ix.postings[tok]
		delete(posting, id)
		if len(posting) == 0 {
			delete(ix.postings, tok)
		}
	}
	ix.totalLen -= entry.length
	delete(ix.docs, id)
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search scores documents against the query with BM25 and returns up to
// limit hits, descending score with document ID ascending as tie-break.
// Filters apply before scoring: excluded documents never occupy a slot.
// An empty query, an empty corpus, or a query of only stopwords yields an
// empty result, not an error.
func (ix *Index) Search(ctx context.Context, query string, limit int, filters filter.Expression) ([]candidate.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []candidate.Hit{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []candidate.Hit{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.docs)
	if n == 0 {
		return []candidate.Hit{}, nil
	}
	avgdl := float64(ix.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range terms {
		posting, ok := ix.postings[term]
		if !ok {
			continue
		}
		idf := okapiIDF(n, len(posting))
		for id, tf := range posting {
			entry := ix.docs[id]
			if !filters.Matches(entry.metadata) {
				continue
			}
			scores[id] += idf * saturate(float64(tf), float64(entry.length), avgdl, ix.params)
		}
	}

	hits := make([]candidate.Hit, 0, len(scores))
	for id, score := range scores {
		entry := ix.docs[id]
		hits = append(hits, candidate.Hit{
			DocumentID: id,
			Score:      score,
			Text:       entry.text,
			Metadata:   entry.metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
