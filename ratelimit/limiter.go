package ratelimit

import (
	"context"
	"time"

	"github.com/goliatone/go-epo-ops/core"
	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests with a token bucket so a burst of calls
// stays under the quota OPS grants per application.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter returns nil when requestsPerSecond is not positive, which the
// client treats as no pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// FromConfig builds the limiter described by the throttle section.
func FromConfig(cfg core.ThrottleConfig) *Limiter {
	return NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
}

func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return core.NewCancelledError(ctx.Err())
		}
		// The deadline is closer than the next free slot.
		return core.NewRateLimitError("ratelimit: request would exceed client pacing before deadline", l.delay())
	}
	return nil
}

func (l *Limiter) delay() time.Duration {
	limit := l.limiter.Limit()
	if limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}

var _ core.Limiter = (*Limiter)(nil)
