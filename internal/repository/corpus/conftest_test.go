package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/henribesnard/ohadai-sub001/internal/db"
	"github.com/henribesnard/ohadai-sub001/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	mu          sync.Mutex
	hashes      map[string]map[string]string
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	createFn    func(ctx context.Context, def *db.IndexDefinition) error
	existsFn    func(ctx context.Context, name string) (bool, error)
	created     []*db.IndexDefinition
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.hashes[item.Key] = item.Fields
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.mu.Lock()
	m.created = append(m.created, def)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return false, nil
}

// mockLexical records documents fed to the keyword index.
type mockLexical struct {
	mu   sync.Mutex
	docs []domain.Document
}

func (m *mockLexical) AddBatch(docs []domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
}

// mockEmbedder returns a fixed-dimension vector per text.
type mockEmbedder struct {
	embedBatchFn func(ctx context.Context, texts []string) ([]domain.BatchItem, error)
	calls        int
	mu           sync.Mutex
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]domain.BatchItem, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedBatchFn != nil {
		return m.embedBatchFn(ctx, texts)
	}
	items := make([]domain.BatchItem, len(texts))
	for i := range texts {
		items[i] = domain.BatchItem{Embedding: []float32{0.1, 0.2, 0.3}}
	}
	return items, nil
}

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus file: %v", err)
	}
	return path
}

func newTestLoader(t *testing.T) (*Loader, *mockStore, *mockLexical, *mockEmbedder) {
	t.Helper()
	ms := newMockStore()
	lex := &mockLexical{}
	emb := &mockEmbedder{}
	l := New(ms, lex, emb, "ohadai:idx", 3, zap.NewNop())
	return l, ms, lex, emb
}
