package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/henribesnard/ohadai-sub001/internal/db"
)

// vectorField is the hash field holding the little-endian float32 blob,
// matching the attribute name the redis driver queries with @vector.
const vectorField = "vector"

// SearchKNN runs a brute-force cosine similarity scan over the hashes
// covered by the index prefixes. Filters apply before scoring, so excluded
// documents never occupy K slots. Results are ordered by similarity
// descending with key ascending as tie-break.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	prefixes, ok := s.indexPrefixes(q.IndexName)
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	items := s.hashesUnderPrefixes(prefixes)

	entries := make([]db.SearchEntry, 0, len(items))
	for _, item := range items {
		if !q.Filters.Matches(item.Fields) {
			continue
		}

		blob, ok := item.Fields[vectorField]
		if !ok {
			continue
		}
		vec, err := db.BlobToVector(blob)
		if err != nil || len(vec) != len(q.Vector) {
			continue
		}

		score := cosineSimilarity(q.Vector, vec)
		entries = append(entries, db.SearchEntry{
			Key:    item.Key,
			Score:  math.Max(0, score),
			Fields: selectFields(item.Fields, q.ReturnFields),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})

	total := len(entries)
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func selectFields(fields map[string]string, returnFields []string) map[string]string {
	out := make(map[string]string)
	if len(returnFields) > 0 {
		for _, name := range returnFields {
			if v, ok := fields[name]; ok {
				out[name] = v
			}
		}
		return out
	}
	for k, v := range fields {
		if k == vectorField {
			continue
		}
		out[k] = v
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
