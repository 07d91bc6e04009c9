package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/henribesnard/ohadai-sub001/internal/domain"
)

// mockEmbedder is shared by provider and instrumented tests.
type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchCalls int
	embedCalls atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.embedCalls.Add(1)
	return m.result, m.err
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([]domain.BatchItem, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	items := make([]domain.BatchItem, len(texts))
	for i := range texts {
		items[i] = domain.BatchItem{Embedding: m.result.Embedding, Err: m.err}
	}
	return items, nil
}

func TestLazyProvider_EmptyInput(t *testing.T) {
	var factoryCalls atomic.Int32
	p := NewLazyProvider(func() (domain.Embedder, error) {
		factoryCalls.Add(1)
		return &mockEmbedder{}, nil
	})

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := p.Embed(context.Background(), input); !errors.Is(err, domain.ErrEmptyInput) {
			t.Fatalf("Embed(%q): expected ErrEmptyInput, got %v", input, err)
		}
	}
	if factoryCalls.Load() != 0 {
		t.Fatal("factory called for invalid input")
	}
}

func TestLazyProvider_InputTooLong(t *testing.T) {
	p := NewLazyProvider(func() (domain.Embedder, error) {
		return &mockEmbedder{}, nil
	})

	long := strings.Repeat("a", MaxInputRunes+1)
	if _, err := p.Embed(context.Background(), long); err == nil {
		t.Fatal("expected error for oversized input")
	}
}

func TestLazyProvider_InitOnce(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	var factoryCalls atomic.Int32
	p := NewLazyProvider(func() (domain.Embedder, error) {
		factoryCalls.Add(1)
		return inner, nil
	})

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Embed(context.Background(), "texte")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	if factoryCalls.Load() != 1 {
		t.Fatalf("factory called %d times under concurrency, want 1", factoryCalls.Load())
	}
}

func TestLazyProvider_RetryAfterFailedLoad(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	var factoryCalls atomic.Int32
	p := NewLazyProvider(func() (domain.Embedder, error) {
		if factoryCalls.Add(1) == 1 {
			return nil, errors.New("model file locked")
		}
		return inner, nil
	})

	_, err := p.Embed(context.Background(), "texte")
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("first call: expected ErrModelUnavailable, got %v", err)
	}

	// A failed load must not latch: the next call retries.
	if _, err := p.Embed(context.Background(), "texte"); err != nil {
		t.Fatalf("second call should retry and succeed: %v", err)
	}
	if factoryCalls.Load() != 2 {
		t.Fatalf("factory calls = %d, want 2", factoryCalls.Load())
	}
}

func TestLazyProvider_EmbedBatch_PerItemValidation(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	p := NewLazyProvider(func() (domain.Embedder, error) { return inner, nil })

	items, err := p.EmbedBatch(context.Background(), []string{"valide", "  ", "aussi valide"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Err != nil || items[2].Err != nil {
		t.Fatalf("valid items failed: %v, %v", items[0].Err, items[2].Err)
	}
	if !errors.Is(items[1].Err, domain.ErrEmptyInput) {
		t.Fatalf("blank item: expected ErrEmptyInput, got %v", items[1].Err)
	}
}

func TestLazyProvider_HealthCheckInitializes(t *testing.T) {
	var factoryCalls atomic.Int32
	p := NewLazyProvider(func() (domain.Embedder, error) {
		factoryCalls.Add(1)
		return &mockEmbedder{}, nil
	})

	if err := p.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if factoryCalls.Load() != 1 {
		t.Fatal("HealthCheck did not initialize the provider")
	}
}
