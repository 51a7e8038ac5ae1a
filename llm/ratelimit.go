package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client with a token-per-minute budget enforced
// via a token-bucket limiter, grounded on goadesign-goa-ai's
// features/model/middleware.AdaptiveRateLimiter — simplified to a fixed
// per-process budget since this system carries no goa.design/pulse
// rmap.Map (Redis-backed shared map) to coordinate a budget across
// processes; each process enforces its own budget independently.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner with a limiter permitting up to
// tokensPerMinute estimated tokens of request text per minute, bursting up
// to tokensPerMinute/60*10 (ten seconds' worth) at once.
func NewRateLimitedClient(inner Client, tokensPerMinute int) *RateLimitedClient {
	burst := tokensPerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), burst),
	}
}

func (r *RateLimitedClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := r.wait(ctx, req); err != nil {
		return Response{}, err
	}
	return r.inner.Complete(ctx, req)
}

func (r *RateLimitedClient) Stream(ctx context.Context, req Request) (Streamer, error) {
	if err := r.wait(ctx, req); err != nil {
		return nil, err
	}
	return r.inner.Stream(ctx, req)
}

func (r *RateLimitedClient) EstimateTokenCount(text string) int {
	return r.inner.EstimateTokenCount(text)
}

func (r *RateLimitedClient) wait(ctx context.Context, req Request) error {
	n := 0
	for _, m := range req.Messages {
		n += r.inner.EstimateTokenCount(m.Text)
	}
	if n < 1 {
		n = 1
	}
	return r.limiter.WaitN(ctx, n)
}
