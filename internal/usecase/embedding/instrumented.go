package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
)

// InstrumentedEmbedder wraps an Embedder with request logging. Transport
// metrics (requests, duration, tokens) are recorded in transport/openai;
// this layer logs outcomes with provider context.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// EmbedBatch delegates to the inner batch embedder and logs the outcome.
func (p *InstrumentedEmbedder) EmbedBatch(
	ctx context.Context, texts []string,
) ([]domain.BatchItem, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()

	var items []domain.BatchItem
	var err error
	if batcher, ok := p.inner.(domain.BatchEmbedder); ok {
		items, err = batcher.EmbedBatch(ctx, texts)
	} else {
		items, err = domain.BatchFallback(ctx, p.inner, texts)
	}

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Batch embedding failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("batch_size", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("batch_size", len(texts)),
		zap.Int("failed_items", failed),
	)

	return items, nil
}
