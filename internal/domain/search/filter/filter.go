// Package filter defines metadata pre-filters applied by both retrieval
// channels before ranking: a filtered-out document never occupies a result
// slot.
package filter

import (
	"fmt"
	"sort"
	"strings"
)

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 16

// Condition is a single exact-match clause on a metadata field.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact metadata match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the metadata field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Expression is a conjunction of match conditions.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must []Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Must returns the conjunction conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches reports whether the metadata satisfies every condition.
func (e Expression) Matches(metadata map[string]string) bool {
	for _, c := range e.must {
		if metadata[c.key] != c.match {
			return false
		}
	}
	return true
}

// Canonical returns a deterministic encoding of the expression, independent
// of construction order. Used for cache key derivation.
func (e Expression) Canonical() string {
	if len(e.must) == 0 {
		return ""
	}
	parts := make([]string, len(e.must))
	for i, c := range e.must {
		parts[i] = c.key + "=" + c.match
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}
