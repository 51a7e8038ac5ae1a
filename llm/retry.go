package llm

import (
	"context"
	"errors"
	"time"

	"github.com/streetrace-ai/streetrace-sub005/errs"
)

const (
	maxAttempts  = 7
	waitStart    = 30 * time.Second
	waitStep     = 30 * time.Second
	waitCap      = 10 * time.Minute
)

// RetryingClient wraps a Client with the transient-error retry policy:
// up to 7 attempts, an incrementing wait (30s, 60s, 90s, ... capped at 10m)
// between attempts, retrying only errs.TransientError/ErrRateLimited and
// reraising every other error immediately. Streaming calls bypass this
// policy entirely and pass through to the wrapped client untouched.
type RetryingClient struct {
	inner Client
	// sleep is overridable in tests to avoid real waits.
	sleep func(context.Context, time.Duration) error
}

// NewRetryingClient wraps inner with the standard retry policy.
func NewRetryingClient(inner Client) *RetryingClient {
	return &RetryingClient{inner: inner, sleep: ctxSleep}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RetryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	wait := waitStart
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := r.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isTransient(err) {
			return Response{}, err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return Response{}, sleepErr
		}
		wait += waitStep
		if wait > waitCap {
			wait = waitCap
		}
	}
	return Response{}, &errs.LLMFatalError{Provider: "retry", Cause: lastErr}
}

// Stream bypasses the retry policy; streaming requests are not retried.
func (r *RetryingClient) Stream(ctx context.Context, req Request) (Streamer, error) {
	return r.inner.Stream(ctx, req)
}

func (r *RetryingClient) EstimateTokenCount(text string) int {
	return r.inner.EstimateTokenCount(text)
}

func isTransient(err error) bool {
	var transient *errs.TransientError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, ErrRateLimited)
}
