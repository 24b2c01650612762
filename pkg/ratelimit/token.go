package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenLimiter is a fixed window budget of tokens, refilled to capacity
// once per refill period. It meters model tokens, not requests.
type TokenLimiter struct {
	sync.Mutex
	capacity     int
	remaining    int
	refillPeriod time.Duration
	lastRefill   time.Time
	now          func() time.Time
}

func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return newTokenLimiter(tokensPerMinute, time.Minute, time.Now)
}

func newTokenLimiter(capacity int, period time.Duration, now func() time.Time) *TokenLimiter {
	return &TokenLimiter{
		capacity:     capacity,
		remaining:    capacity,
		refillPeriod: period,
		lastRefill:   now(),
		now:          now,
	}
}

// Wait blocks until tokens are available or ctx is done. A request larger
// than the whole budget can never be served and fails immediately.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if tokens > l.capacity {
		return fmt.Errorf("requested %d tokens exceeds the limit of %d per period", tokens, l.capacity)
	}

	for {
		if l.take(tokens) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (l *TokenLimiter) take(tokens int) bool {
	l.Lock()
	defer l.Unlock()

	if now := l.now(); now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
	if l.remaining < tokens {
		return false
	}
	l.remaining -= tokens
	return true
}

func (l *TokenLimiter) GetRemaining() int {
	l.Lock()
	defer l.Unlock()
	return l.remaining
}
