// Package request defines the validated search request value object: the sole
// inbound contract between the serving layer and the retrieval engine.
package request

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
)

// Search parameter limits.
const (
	MaxQueryLength = 4096
	DefaultResults = 5
	MaxResults     = 50
)

// Request is a validated, immutable search request.
type Request struct {
	query          string
	nResults       int
	collection     string
	partie         string
	rerank         bool
	includeSources bool
	filters        filter.Expression
}

// New validates and normalizes search parameters.
// The query must contain at least one non-whitespace rune; nResults <= 0
// selects the default, nResults > MaxResults is rejected.
func New(query string, nResults int, collection, partie string, rerank, includeSources bool) (Request, error) {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrEmptyInput)
	}
	if len(normalized) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrEmptyInput)
	}
	if nResults == 0 {
		nResults = DefaultResults
	}
	if nResults < 0 || nResults > MaxResults {
		return Request{}, fmt.Errorf("n_results must be between 1 and %d, got %d: %w",
			MaxResults, nResults, domain.ErrInvalidLimit)
	}

	var conds []filter.Condition
	if collection != "" {
		c, err := filter.NewMatch(domain.MetaCollection, collection)
		if err != nil {
			return Request{}, fmt.Errorf("collection filter: %w", err)
		}
		conds = append(conds, c)
	}
	if partie != "" {
		c, err := filter.NewMatch(domain.MetaPartie, partie)
		if err != nil {
			return Request{}, fmt.Errorf("partie filter: %w", err)
		}
		conds = append(conds, c)
	}
	filters, err := filter.NewExpression(conds)
	if err != nil {
		return Request{}, fmt.Errorf("build filters: %w", err)
	}

	return Request{
		query:          normalized,
		nResults:       nResults,
		collection:     collection,
		partie:         partie,
		rerank:         rerank,
		includeSources: includeSources,
		filters:        filters,
	}, nil
}

// Query returns the whitespace-normalized query text.
func (r *Request) Query() string { return r.query }

// NResults returns the requested result count after fusion.
func (r *Request) NResults() int { return r.nResults }

// Collection returns the optional collection filter value.
func (r *Request) Collection() string { return r.collection }

// Partie returns the optional structural filter value.
func (r *Request) Partie() string { return r.partie }

// Rerank reports whether the rerank stage is requested.
func (r *Request) Rerank() bool { return r.rerank }

// IncludeSources reports whether per-channel scores are included in results.
func (r *Request) IncludeSources() bool { return r.includeSources }

// Filters returns the metadata pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// CacheKey derives a deterministic key from every parameter that affects the
// response. The same logical request always maps to the same key regardless
// of optional-parameter construction order.
func (r *Request) CacheKey() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(r.query)
	b.WriteString("|n=")
	b.WriteString(strconv.Itoa(r.nResults))
	b.WriteString("|f=")
	b.WriteString(r.filters.Canonical())
	b.WriteString("|rerank=")
	b.WriteString(strconv.FormatBool(r.rerank))
	b.WriteString("|sources=")
	b.WriteString(strconv.FormatBool(r.includeSources))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// normalizeQuery trims and collapses internal whitespace runs to one space.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
