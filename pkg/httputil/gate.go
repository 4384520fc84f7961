package httputil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between outbound calls.
// Callers queue on the mutex, so calls leave one at a time no matter
// how many goroutines share the gate.
type Gate struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
}

// NewGate creates a gate that lets one call through per interval.
// A non-positive interval disables waiting.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Wait blocks until the caller may fire its call or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limiter.Wait(ctx)
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	if g == nil {
		return 0
	}
	return g.interval
}
