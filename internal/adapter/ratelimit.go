package adapter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// limitedAdapter gates every provider call behind a shared token bucket.
type limitedAdapter struct {
	next    LLMAdapter
	limiter *rate.Limiter
}

// WithRateLimit wraps a so that at most perSecond calls (with the given burst)
// reach the provider. A non-positive perSecond returns a unchanged.
func WithRateLimit(a LLMAdapter, perSecond float64, burst int) LLMAdapter {
	if perSecond <= 0 {
		return a
	}
	if burst < 1 {
		burst = 1
	}
	return &limitedAdapter{next: a, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *limitedAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("adapter: rate limit: %w", err)
	}
	return l.next.Complete(ctx, req)
}

func (l *limitedAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("adapter: rate limit: %w", err)
	}
	return l.next.Embed(ctx, texts)
}

func (l *limitedAdapter) Info() ModelInfo {
	return l.next.Info()
}
