package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesResultOrder(t *testing.T) {
	t.Parallel()

	branches := make([]Branch, 5)
	for i := range branches {
		i := i
		branches[i] = func(ctx context.Context) (any, error) { return i * 10, nil }
	}

	results, err := Run(context.Background(), branches)
	require.NoError(t, err)
	for i, r := range results {
		require.Equal(t, i*10, r)
	}
}

func TestRun_FirstErrorWins(t *testing.T) {
	t.Parallel()

	boom := errors.New("branch failed")
	branches := []Branch{
		func(ctx context.Context) (any, error) { return "ok", nil },
		func(ctx context.Context) (any, error) { return nil, boom },
	}

	_, err := Run(context.Background(), branches)
	require.ErrorIs(t, err, boom)
}

func TestRunBounded_DefaultsWhenLimitNonPositive(t *testing.T) {
	t.Parallel()

	results, err := RunBounded(context.Background(), 0, []Branch{
		func(ctx context.Context) (any, error) { return "a", nil },
	})
	require.NoError(t, err)
	require.Equal(t, []any{"a"}, results)
}

// TestRunBounded_NeverExceedsLimit is a property check: for any limit and
// any number of branches, the number of branches observed running
// concurrently never exceeds the declared limit.
func TestRunBounded_NeverExceedsLimit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent branches stay within limit", prop.ForAll(
		func(limit, n int) bool {
			var current, peak int64
			branches := make([]Branch, n)
			for i := range branches {
				branches[i] = func(ctx context.Context) (any, error) {
					c := atomic.AddInt64(&current, 1)
					for {
						p := atomic.LoadInt64(&peak)
						if c <= p || atomic.CompareAndSwapInt64(&peak, p, c) {
							break
						}
					}
					atomic.AddInt64(&current, -1)
					return nil, nil
				}
			}
			_, err := RunBounded(context.Background(), limit, branches)
			if err != nil {
				return false
			}
			return int(atomic.LoadInt64(&peak)) <= limit
		},
		gen.IntRange(1, 6),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
