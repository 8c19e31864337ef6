package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/docforge/docqa/internal/core/domain"
)

type backendFake struct {
	vectors [][]float32
	err     error
	calls   int
}

func (f *backendFake) Embed(context.Context, []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func TestEmbedReturnsBackendVectors(t *testing.T) {
	backend := &backendFake{vectors: [][]float32{{1, 2, 3}, {4, 5, 6}}}
	embedder, err := NewResilient(backend, 3)
	if err != nil {
		t.Fatalf("NewResilient() error = %v", err)
	}

	embeddings, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	for i, e := range embeddings {
		if e.Degraded {
			t.Fatalf("embedding %d unexpectedly degraded", i)
		}
	}
}

func TestEmbedFallsBackWhenBackendFails(t *testing.T) {
	backend := &backendFake{err: errors.New("connection refused")}
	observed := 0
	embedder, _ := NewResilient(backend, 4, WithFallbackObserver(func(n int) { observed += n }))

	embeddings, err := embedder.Embed(context.Background(), []string{"ab", "cd"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	for i, e := range embeddings {
		if !e.Degraded {
			t.Fatalf("embedding %d should be degraded", i)
		}
		if len(e.Vector) != 4 {
			t.Fatalf("embedding %d has dimension %d, want 4", i, len(e.Vector))
		}
	}
	if observed != 2 {
		t.Fatalf("expected 2 observed fallbacks, got %d", observed)
	}
}

func TestEmbedFallbackIsDeterministic(t *testing.T) {
	backend := &backendFake{err: errors.New("down")}
	embedder, _ := NewResilient(backend, 8)

	first, _ := embedder.Embed(context.Background(), []string{"same text"})
	second, _ := embedder.Embed(context.Background(), []string{"same text"})
	for i := range first[0].Vector {
		if first[0].Vector[i] != second[0].Vector[i] {
			t.Fatalf("fallback vectors differ at %d", i)
		}
	}
	if first[0].Vector[0] != float32('s') {
		t.Fatalf("expected char-code vector, got %v", first[0].Vector[0])
	}
}

func TestEmbedPartialBackendResultDegradesOnlyMissingItems(t *testing.T) {
	backend := &backendFake{vectors: [][]float32{{1, 2}}}
	embedder, _ := NewResilient(backend, 2)

	embeddings, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if embeddings[0].Degraded {
		t.Fatalf("first item should use backend vector")
	}
	if !embeddings[1].Degraded {
		t.Fatalf("second item should degrade to fallback")
	}
}

func TestEmbedDimensionMismatchIsConfigurationError(t *testing.T) {
	backend := &backendFake{vectors: [][]float32{{1, 2, 3}}}
	embedder, _ := NewResilient(backend, 8)

	_, err := embedder.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestEmbedQueryReturnsSingleEmbedding(t *testing.T) {
	backend := &backendFake{vectors: [][]float32{{0.5, 0.5}}}
	embedder, _ := NewResilient(backend, 2)

	embedding, err := embedder.EmbedQuery(context.Background(), "question")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(embedding.Vector) != 2 || embedding.Degraded {
		t.Fatalf("unexpected embedding: %+v", embedding)
	}
}

func TestNewResilientRejectsBadDimension(t *testing.T) {
	_, err := NewResilient(&backendFake{}, 0)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
