package ratelimit

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket is an in-process limiter. A nil *TokenBucket never blocks.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket returns nil when rps <= 0, meaning unlimited.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or ctx ends.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if b == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("ratelimit: nil context")
	}
	return b.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed now without waiting.
func (b *TokenBucket) Allow() bool {
	if b == nil {
		return true
	}
	return b.limiter.Allow()
}
