package resilience

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/wessley-remap/pkg/fn"
)

var ErrRateLimited = errors.New("rate limited")

// NewLimiter returns a token bucket refilled at perSecond with the given
// burst. perSecond <= 0 disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// LimiterStage waits for a token before running stage. A wait that cannot
// finish before ctx's deadline fails with ErrRateLimited.
func LimiterStage[In, Out any](l *rate.Limiter, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	return func(ctx context.Context, in In) fn.Result[Out] {
		if err := l.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return fn.Err[Out](ctx.Err())
			}
			return fn.Err[Out](fmt.Errorf("%w: %v", ErrRateLimited, err))
		}
		return stage(ctx, in)
	}
}
