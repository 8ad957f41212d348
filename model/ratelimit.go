package model

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedModel wraps a Model with a token-bucket gate so bursts of step
// loops cannot exceed a provider's request budget. The gate is awaited before
// the inner stream starts; once granted, the stream passes through untouched.
type RateLimitedModel struct {
	inner   Model
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter allowing rps requests per second
// with the given burst size.
func NewRateLimited(inner Model, rps float64, burst int) *RateLimitedModel {
	return &RateLimitedModel{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Stream implements Model. It blocks on the limiter inside the producing
// goroutine, then forwards the inner stream.
func (m *RateLimitedModel) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	eventCh := make(chan Event)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		if err := m.limiter.Wait(ctx); err != nil {
			errCh <- fmt.Errorf("rate limit wait: %w", err)
			return
		}

		events, errs := m.inner.Stream(ctx, req)
		for ev := range events {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case eventCh <- ev:
			}
		}
		if err := <-errs; err != nil {
			errCh <- err
		}
	}()

	return eventCh, errCh
}

// Info implements Model by delegating to the wrapped implementation.
func (m *RateLimitedModel) Info() Info { return m.inner.Info() }
