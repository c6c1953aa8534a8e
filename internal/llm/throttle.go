package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum spacing between outbound model calls. One
// Throttle shared by several adapters serializes all of their calls.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows one call per interval. The first call is not delayed.
// A non-positive interval disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
