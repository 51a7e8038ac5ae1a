package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	completeCalls int
}

func (f *fakeClient) Complete(ctx context.Context, req Request) (Response, error) {
	f.completeCalls++
	return Response{Text: "ok"}, nil
}

func (f *fakeClient) Stream(ctx context.Context, req Request) (Streamer, error) {
	return nil, nil
}

func (f *fakeClient) EstimateTokenCount(text string) int {
	return len(text) / 4
}

func TestRateLimitedClient_PassesThroughUnderBudget(t *testing.T) {
	t.Parallel()

	inner := &fakeClient{}
	client := NewRateLimitedClient(inner, 60000)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Text: "hello"}},
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
	require.Equal(t, 1, inner.completeCalls)
}

func TestRateLimitedClient_RequestThatCannotBeAdmittedNeverReachesInner(t *testing.T) {
	t.Parallel()

	inner := &fakeClient{}
	// A budget of 1 token per minute gives a burst of 1, so a request
	// estimated at 2500 tokens can never be admitted and fails without
	// reaching the inner client.
	client := NewRateLimitedClient(inner, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	big := make([]byte, 10000)
	for i := range big {
		big[i] = 'x'
	}
	_, err := client.Complete(ctx, Request{
		Messages: []Message{{Role: RoleUser, Text: string(big)}},
	})
	require.Error(t, err)
	require.Equal(t, 0, inner.completeCalls)
}

func TestRateLimitedClient_EstimateTokenCountDelegates(t *testing.T) {
	t.Parallel()

	inner := &fakeClient{}
	client := NewRateLimitedClient(inner, 60000)
	require.Equal(t, inner.EstimateTokenCount("abcd"), client.EstimateTokenCount("abcd"))
}
