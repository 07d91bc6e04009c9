// Package vector adapts the store's KNN search into the retrieval engine's
// dense channel: query embedding in, scored candidate hits out.
package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/henribesnard/ohadai-sub001/internal/db"
	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/candidate"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
)

// FieldContent and FieldVector are the hash fields holding document text and
// the embedding blob, matching the index schema created at ingestion.
const (
	FieldContent = "content"
	FieldVector  = "vector"
)

// scoreField is the FT.SEARCH score alias returned alongside the hash fields.
const scoreField = "__vector_score"

// store is the consumer interface for KNN search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the dense retrieval channel over a vector index.
type Repo struct {
	store     store
	indexName string
	dim       int
}

// New creates a vector search repository. dim is the expected embedding
// dimension; queries with a different dimension are rejected before they
// reach the store.
func New(s store, indexName string, dim int) *Repo {
	return &Repo{store: s, indexName: indexName, dim: dim}
}

// Search runs a KNN query and returns up to limit hits with text and
// metadata hydrated from the stored hash fields.
func (r *Repo) Search(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]candidate.Hit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector: %w", domain.ErrEmptyInput)
	}
	if r.dim > 0 && len(vector) != r.dim {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d: %w",
			len(vector), r.dim, domain.ErrDimensionMismatch)
	}
	if limit <= 0 {
		return []candidate.Hit{}, nil
	}

	q := &db.KNNQuery{
		IndexName: r.indexName,
		Filters:   filters,
		Vector:    vector,
		K:         limit,
		ReturnFields: []string{
			FieldContent,
			domain.MetaCollection, domain.MetaTitre, domain.MetaPartie,
			domain.MetaChapitre, domain.MetaArticle,
			scoreField,
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}

	return parseHits(sr), nil
}

func parseHits(sr *db.SearchResult) []candidate.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return []candidate.Hit{}
	}

	hits := make([]candidate.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hit := candidate.Hit{
			DocumentID: strings.TrimPrefix(entry.Key, domain.KeyPrefix),
			Score:      entry.Score,
			Metadata:   make(map[string]string),
		}
		for k, v := range entry.Fields {
			switch k {
			case FieldContent:
				hit.Text = v
			case FieldVector, scoreField:
				// blob and score alias are not metadata
			default:
				hit.Metadata[k] = v
			}
		}
		hits = append(hits, hit)
	}
	return hits
}
