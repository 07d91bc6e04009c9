package domain

import "strings"

// KeyPrefix namespaces all store keys written by this service.
const KeyPrefix = "ohadai:"

// Well-known metadata keys for OHADA corpus documents.
const (
	MetaCollection = "collection"
	MetaTitre      = "titre"
	MetaPartie     = "partie"
	MetaChapitre   = "chapitre"
	MetaArticle    = "article"
)

// Document is an immutable corpus unit: one chunk of the OHADA accounting
// corpus with its hierarchical locators. Documents are created at ingestion
// time and read-only during retrieval.
type Document struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Embedding []float32
}

// Preview returns the first n runes of the document text, for source listings.
func (d Document) Preview(n int) string {
	text := strings.TrimSpace(d.Text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// Collection returns the collection metadata value, if any.
func (d Document) Collection() string { return d.Metadata[MetaCollection] }
