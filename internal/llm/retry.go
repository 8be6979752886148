package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// retrying resends requests that failed transiently. A reply that arrived but
// is unusable (truncated, not JSON) is returned at once; whether to pay for
// another generation is the caller's call.
type retrying struct {
	next   Provider
	policy RetryConfig
}

func WithRetry(p Provider, policy RetryConfig) Provider {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retrying{next: p, policy: policy}
}

func (r *retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := r.next.Generate(ctx, req)
		if err == nil || attempt >= r.policy.MaxAttempts || !transient(ctx, err) {
			return resp, err
		}

		timer := time.NewTimer(r.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *retrying) ModelID() string { return r.next.ModelID() }

func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *Error
	return errors.As(err, &e) && e.Transient()
}

// delay is the wait after the given 1-based attempt: the provider's hint if
// any, else exponential backoff capped at MaxWait with ±20% jitter.
func (r *retrying) delay(attempt int, err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter
	}

	wait := r.policy.InitialWait
	for i := 1; i < attempt; i++ {
		if r.policy.Multiplier > 1 {
			wait = time.Duration(float64(wait) * r.policy.Multiplier)
		}
		if r.policy.MaxWait > 0 && wait >= r.policy.MaxWait {
			wait = r.policy.MaxWait
			break
		}
	}
	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(wait))
	return max(wait+jitter, 0)
}
