// Package corpus loads the prepared OHADA corpus into the serving stores:
// document hashes and the vector index in the database, plus the in-process
// lexical index. Chunks shipped without embeddings are vectorized at load
// time through the embedding provider.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/henribesnard/ohadai-sub001/internal/db"
	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/repository/vector"
)

const (
	// hsetBatchSize bounds the number of hashes per pipelined write.
	hsetBatchSize = 100
	// embedBatchSize bounds texts per embedding API call.
	embedBatchSize = 64
	// embedWorkers bounds concurrent embedding batches.
	embedWorkers = 4
)

// store is the consumer interface for corpus ingestion (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// lexicalIndex receives the loaded documents for the keyword channel.
type lexicalIndex interface {
	AddBatch(docs []domain.Document)
}

// chunkRecord is the on-disk JSON shape of one corpus chunk.
type chunkRecord struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
	Embedding []float32         `json:"embedding,omitempty"`
}

// Loader ingests a prepared corpus file.
type Loader struct {
	store     store
	lexical   lexicalIndex
	embedder  domain.BatchEmbedder
	indexName string
	dim       int
	log       *zap.Logger
}

// New creates a corpus loader. embedder may be nil when every chunk ships
// with a precomputed embedding.
func New(s store, lex lexicalIndex, embedder domain.BatchEmbedder, indexName string, dim int, log *zap.Logger) *Loader {
	return &Loader{
		store:     s,
		lexical:   lex,
		embedder:  embedder,
		indexName: indexName,
		dim:       dim,
		log:       log,
	}
}

// Load reads the corpus file, ensures the vector index exists, embeds chunks
// missing a vector, writes document hashes and feeds the lexical index.
// Returns the number of documents loaded.
func (l *Loader) Load(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var chunks []chunkRecord
	if err := json.Unmarshal(data, &chunks); err != nil {
		return 0, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	docs, err := l.toDocuments(chunks)
	if err != nil {
		return 0, err
	}

	if err := l.ensureIndex(ctx); err != nil {
		return 0, err
	}

	if err := l.embedMissing(ctx, docs); err != nil {
		return 0, err
	}

	if err := l.writeHashes(ctx, docs); err != nil {
		return 0, err
	}

	l.lexical.AddBatch(docs)

	l.log.Info("corpus loaded",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
	)
	return len(docs), nil
}

func (l *Loader) toDocuments(chunks []chunkRecord) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))

	for i, c := range chunks {
		if c.ID == "" {
			return nil, fmt.Errorf("chunk %d: missing id", i)
		}
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, domain.ErrEmptyInput)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("chunk %s: duplicate id", c.ID)
		}
		seen[c.ID] = struct{}{}

		if len(c.Embedding) > 0 && len(c.Embedding) != l.dim {
			return nil, fmt.Errorf("chunk %s: embedding has %d dimensions, index expects %d: %w",
				c.ID, len(c.Embedding), l.dim, domain.ErrDimensionMismatch)
		}

		docs = append(docs, domain.Document{
			ID:        c.ID,
			Text:      c.Text,
			Metadata:  c.Metadata,
			Embedding: c.Embedding,
		})
	}
	return docs, nil
}

func (l *Loader) ensureIndex(ctx context.Context) error {
	exists, err := l.store.IndexExists(ctx, l.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", l.indexName, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     l.indexName,
		Prefixes: []string{domain.KeyPrefix},
		Fields: []db.IndexField{
			{Name: domain.MetaCollection, Type: db.IndexFieldTag},
			{Name: domain.MetaPartie, Type: db.IndexFieldTag},
			{Name: domain.MetaChapitre, Type: db.IndexFieldTag},
			{Name: vector.FieldContent, Type: db.IndexFieldText},
			{
				Name:           vector.FieldVector,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      l.dim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	if err := l.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", l.indexName, err)
	}
	return nil
}

// embedMissing vectorizes chunks that shipped without an embedding, in
// bounded-concurrency batches.
func (l *Loader) embedMissing(ctx context.Context, docs []domain.Document) error {
	var missing []int
	for i := range docs {
		if len(docs[i].Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if l.embedder == nil {
		return fmt.Errorf("%d chunks lack embeddings and no embedder is configured: %w",
			len(missing), domain.ErrModelUnavailable)
	}

	l.log.Info("embedding corpus chunks", zap.Int("count", len(missing)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	for start := 0; start < len(missing); start += embedBatchSize {
		end := min(start+embedBatchSize, len(missing))
		batch := missing[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, idx := range batch {
				texts[i] = docs[idx].Text
			}

			items, err := l.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}

			mu.Lock()
			defer mu.Unlock()
			for i, item := range items {
				if item.Err != nil {
					return fmt.Errorf("embed chunk %s: %w", docs[batch[i]].ID, item.Err)
				}
				docs[batch[i]].Embedding = item.Embedding
			}
			return nil
		})
	}

	return g.Wait()
}

func (l *Loader) writeHashes(ctx context.Context, docs []domain.Document) error {
	for start := 0; start < len(docs); start += hsetBatchSize {
		end := min(start+hsetBatchSize, len(docs))

		items := make([]db.HashSetItem, 0, end-start)
		for _, doc := range docs[start:end] {
			items = append(items, db.HashSetItem{
				Key:    domain.KeyPrefix + doc.ID,
				Fields: buildHashFields(doc),
			})
		}
		if err := l.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("write documents: %w", err)
		}
	}
	return nil
}

// buildHashFields flattens a document into the hash layout the vector index
// and the search repository expect.
func buildHashFields(doc domain.Document) map[string]string {
	m := make(map[string]string, 2+len(doc.Metadata))
	m[vector.FieldContent] = doc.Text
	m[vector.FieldVector] = db.VectorToBlob(doc.Embedding)
	for k, v := range doc.Metadata {
		m[k] = v
	}
	return m
}
