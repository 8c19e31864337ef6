// Package embedding wraps an embedding backend with timeouts, retries and a
// deterministic degraded-mode fallback so ingestion stays available during
// backend outages.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/docforge/docqa/internal/core/domain"
	"github.com/docforge/docqa/internal/infrastructure/resilience"
)

// Backend produces one fixed-dimension vector per input text.
type Backend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const defaultTimeout = 30 * time.Second

type Resilient struct {
	backend    Backend
	dimension  int
	timeout    time.Duration
	executor   *resilience.Executor
	onFallback func(count int)
}

type Option func(*Resilient)

func WithExecutor(executor *resilience.Executor) Option {
	return func(r *Resilient) { r.executor = executor }
}

func WithTimeout(timeout time.Duration) Option {
	return func(r *Resilient) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithFallbackObserver registers a hook called with the number of degraded
// vectors produced by a batch, for metrics.
func WithFallbackObserver(fn func(count int)) Option {
	return func(r *Resilient) { r.onFallback = fn }
}

func NewResilient(backend Backend, dimension int, opts ...Option) (*Resilient, error) {
	if backend == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "new embedder", errors.New("backend is nil"))
	}
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "new embedder",
			fmt.Errorf("dimension must be positive, got %d", dimension))
	}

	r := &Resilient{
		backend:   backend,
		dimension: dimension,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Embed vectorizes texts. A backend outage degrades the affected items to
// deterministic fallback vectors instead of failing the batch; only a
// dimension mismatch is an error, since that means the index and the backend
// disagree about the vector space.
func (r *Resilient) Embed(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, backendErr := r.callBackend(ctx, texts)
	if backendErr != nil {
		slog.Warn("embedding_backend_unavailable", "error", backendErr, "texts", len(texts))
	}

	out := make([]domain.Embedding, len(texts))
	degraded := 0
	for i, text := range texts {
		if backendErr == nil && i < len(vectors) && len(vectors[i]) > 0 {
			if len(vectors[i]) != r.dimension {
				return nil, domain.WrapError(domain.ErrConfiguration, "embed",
					fmt.Errorf("backend returned dimension %d, index expects %d", len(vectors[i]), r.dimension))
			}
			out[i] = domain.Embedding{Vector: vectors[i]}
			continue
		}
		out[i] = domain.Embedding{Vector: fallbackVector(text, r.dimension), Degraded: true}
		degraded++
	}

	if degraded > 0 && r.onFallback != nil {
		r.onFallback(degraded)
	}
	return out, nil
}

func (r *Resilient) EmbedQuery(ctx context.Context, text string) (domain.Embedding, error) {
	embeddings, err := r.Embed(ctx, []string{text})
	if err != nil {
		return domain.Embedding{}, err
	}
	if len(embeddings) == 0 {
		return domain.Embedding{}, fmt.Errorf("empty embedding result")
	}
	return embeddings[0], nil
}

func (r *Resilient) callBackend(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var vectors [][]float32
	call := func(ctx context.Context) error {
		result, err := r.backend.Embed(ctx, texts)
		if err != nil {
			return err
		}
		vectors = result
		return nil
	}

	if r.executor == nil {
		return vectors, call(callCtx)
	}
	if err := r.executor.Execute(callCtx, "embedding.embed", call, classifyBackendError); err != nil {
		return nil, err
	}
	return vectors, nil
}

func classifyBackendError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Timed-out calls go straight to the fallback path.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

// fallbackVector derives a deterministic placeholder vector from the text's
// character codes, clipped or zero-padded to the index dimension. Degraded
// vectors stay in the same similarity space as real ones, so queries keep
// working during an outage at reduced quality.
func fallbackVector(text string, dimension int) []float32 {
	vector := make([]float32, dimension)
	i := 0
	for _, r := range text {
		if i >= dimension {
			break
		}
		vector[i] = float32(r)
		i++
	}
	return vector
}
