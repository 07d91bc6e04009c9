// Package embedding wraps the embedding transport with the process-level
// concerns: lazy one-time initialization, input validation and logging.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
)

// MaxInputRunes bounds a single embedding input.
const MaxInputRunes = 8192

// Factory constructs the underlying embedder on first use. It is called
// under the provider lock, at most once per failed attempt.
type Factory func() (domain.Embedder, error)

// LazyProvider defers embedder construction to the first Embed call. A failed
// load is retried on the next call instead of being latched, so a transient
// startup failure does not disable embeddings for the process lifetime.
// Concurrent first callers share one initialization.
type LazyProvider struct {
	factory Factory

	mu  sync.Mutex
	emb domain.Embedder
}

// NewLazyProvider creates a provider around the given factory.
func NewLazyProvider(factory Factory) *LazyProvider {
	return &LazyProvider{factory: factory}
}

func (p *LazyProvider) get() (domain.Embedder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.emb != nil {
		return p.emb, nil
	}

	emb, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("load embedding model: %w: %w", domain.ErrModelUnavailable, err)
	}
	p.emb = emb
	return emb, nil
}

// Embed validates the input and delegates to the lazily loaded embedder.
func (p *LazyProvider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := validateInput(text); err != nil {
		return domain.EmbeddingResult{}, err
	}

	emb, err := p.get()
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return emb.Embed(ctx, text)
}

// EmbedBatch validates each input and delegates. Invalid items fail per-item,
// not the whole batch.
func (p *LazyProvider) EmbedBatch(ctx context.Context, texts []string) ([]domain.BatchItem, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	emb, err := p.get()
	if err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(texts))
	validIdx := make([]int, 0, len(texts))
	items := make([]domain.BatchItem, len(texts))
	for i, text := range texts {
		if verr := validateInput(text); verr != nil {
			items[i] = domain.BatchItem{Err: verr}
			continue
		}
		valid = append(valid, text)
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return items, nil
	}

	var computed []domain.BatchItem
	if batcher, ok := emb.(domain.BatchEmbedder); ok {
		computed, err = batcher.EmbedBatch(ctx, valid)
	} else {
		computed, err = domain.BatchFallback(ctx, emb, valid)
	}
	if err != nil {
		return nil, err
	}

	for j, item := range computed {
		items[validIdx[j]] = item
	}
	return items, nil
}

// HealthCheck forces initialization and probes the underlying provider.
func (p *LazyProvider) HealthCheck(ctx context.Context) error {
	emb, err := p.get()
	if err != nil {
		return err
	}
	if hc, ok := emb.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func validateInput(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.ErrEmptyInput
	}
	if len([]rune(trimmed)) > MaxInputRunes {
		return fmt.Errorf("input exceeds %d runes: %w", MaxInputRunes, domain.ErrEmptyInput)
	}
	return nil
}
