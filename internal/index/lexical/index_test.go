package lexical

import (
	"context"
	"reflect"
	"testing"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/domain/search/filter"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercase and diacritic folding",
			input: "Amortissement Dégressif",
			want:  []string{"amortissement", "degressif"},
		},
		{
			name:  "elision and stopwords",
			input: "l'amortissement de la provision pour les risques",
			want:  []string{"amortissement", "provision", "risques"},
		},
		{
			name:  "punctuation and digits",
			input: "article 45-2: comptes consolidés",
			want:  []string{"article", "45", "comptes", "consolides"},
		},
		{
			name:  "only stopwords",
			input: "le la les de du",
			want:  nil,
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func seedIndex(t *testing.T) *Index {
	t.Helper()
	ix := New(DefaultParams())
	ix.AddBatch([]domain.Document{
		{
			ID:       "doc:amort",
			Text:     "L'amortissement dégressif s'applique aux immobilisations par annuités décroissantes.",
			Metadata: map[string]string{"collection": "plan_comptable"},
		},
		{
			ID:       "doc:prov",
			Text:     "Les provisions pour risques couvrent des charges probables. Une provision se comptabilise au passif.",
			Metadata: map[string]string{"collection": "plan_comptable"},
		},
		{
			ID:       "doc:droit",
			Text:     "Le droit comptable OHADA fixe les obligations des entités. Les provisions y sont encadrées.",
			Metadata: map[string]string{"collection": "droit_comptable"},
		},
	})
	return ix
}

func TestSearchRanking(t *testing.T) {
	ix := seedIndex(t)

	hits, err := ix.Search(context.Background(), "provisions pour risques", 10, filter.Expression{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].DocumentID != "doc:prov" {
		t.Fatalf("top hit = %s, want doc:prov", hits[0].DocumentID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("scores not descending at %d", i)
		}
	}
	if hits[0].Text == "" || hits[0].Metadata["collection"] != "plan_comptable" {
		t.Fatalf("hit missing text or metadata: %+v", hits[0])
	}
}

func TestSearchDiacriticInsensitive(t *testing.T) {
	ix := seedIndex(t)

	for _, q := range []string{"amortissement dégressif", "amortissement degressif"} {
		hits, err := ix.Search(context.Background(), q, 5, filter.Expression{})
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(hits) == 0 || hits[0].DocumentID != "doc:amort" {
			t.Fatalf("Search(%q) top hit = %+v, want doc:amort", q, hits)
		}
	}
}

func TestSearchFilter(t *testing.T) {
	ix := seedIndex(t)

	cond, err := filter.NewMatch("collection", "droit_comptable")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	expr, err := filter.NewExpression([]filter.Condition{cond})
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}

	hits, err := ix.Search(context.Background(), "provisions", 10, expr)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "doc:droit" {
		t.Fatalf("filter not applied: %+v", hits)
	}
}

func TestSearchLimitAndTieBreak(t *testing.T) {
	ix := New(DefaultParams())
	// Identical texts produce identical scores.
	ix.AddBatch([]domain.Document{
		{ID: "doc:b", Text: "bilan comptable annuel"},
		{ID: "doc:a", Text: "bilan comptable annuel"},
		{ID: "doc:c", Text: "bilan comptable annuel"},
	})

	hits, err := ix.Search(context.Background(), "bilan", 2, filter.Expression{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].DocumentID != "doc:a" || hits[1].DocumentID != "doc:b" {
		t.Fatalf("tie-break by ID failed: %s, %s", hits[0].DocumentID, hits[1].DocumentID)
	}
}

func TestSearchEmptyCases(t *testing.T) {
	ctx := context.Background()

	empty := New(DefaultParams())
	hits, err := empty.Search(ctx, "provisions", 5, filter.Expression{})
	if err != nil {
		t.Fatalf("Search on empty corpus: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("empty corpus returned %d hits", len(hits))
	}

	ix := seedIndex(t)
	hits, err = ix.Search(ctx, "le de la", 5, filter.Expression{})
	if err != nil {
		t.Fatalf("Search stopword query: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("stopword-only query returned %d hits", len(hits))
	}

	hits, err = ix.Search(ctx, "mot inconnu introuvable", 5, filter.Expression{})
	if err != nil {
		t.Fatalf("Search unknown terms: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("unknown terms returned %d hits", len(hits))
	}
}

func TestSearchCancelled(t *testing.T) {
	ix := seedIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ix.Search(ctx, "provisions", 5, filter.Expression{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestReAddReplacesDocument(t *testing.T) {
	ix := New(DefaultParams())
	ix.Add(domain.Document{ID: "doc:x", Text: "tresorerie nette"})
	ix.Add(domain.Document{ID: "doc:x", Text: "resultat net comptable"})

	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ix.Len())
	}

	hits, _ := ix.Search(context.Background(), "tresorerie", 5, filter.Expression{})
	if len(hits) != 0 {
		t.Fatal("stale postings survived re-add")
	}
	hits, _ = ix.Search(context.Background(), "resultat", 5, filter.Expression{})
	if len(hits) != 1 {
		t.Fatal("replacement document not searchable")
	}
}
