// Package concurrency provides the workflow-level concurrency primitives
// dsl/interp uses to execute `parallel` blocks and `for ... parallel`
// loops: bounded fan-out over golang.org/x/sync/errgroup, the same
// package kadirpekel-hector's workflowagent.runParallel builds its
// sub-agent fan-out on, adapted here from "one branch per sub-agent" to
// "one goroutine per DSL branch or loop item" and given an explicit
// concurrency cap (hector's ParallelAgent fans out unbounded).
package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds a for-parallel loop when the DSL doesn't declare
// one explicitly.
const DefaultLimit = 8

// Branch is one unit of parallel work: an isolated closure that returns
// its result or an error. Branches receive a context cancelled the
// moment any sibling branch (in the same Run call) returns an error,
// matching errgroup.WithContext's first-error-wins cancellation.
type Branch func(ctx context.Context) (any, error)

// Run executes branches concurrently, one goroutine each, and returns
// their results in the same order as the input slice. If any branch
// returns an error, Run cancels the remaining branches' context and
// returns the first error encountered; results for branches that never
// completed are nil.
func Run(ctx context.Context, branches []Branch) ([]any, error) {
	results := make([]any, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, branch := range branches {
		i, branch := i, branch
		g.Go(func() error {
			res, err := branch(gctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// RunBounded is Run with a concurrency cap: at most limit branches
// execute at any moment. A limit <= 0 uses DefaultLimit. This backs
// `for ... parallel` loops, where the loop body becomes one Branch per
// item and the DSL's declared concurrency cap becomes limit.
func RunBounded(ctx context.Context, limit int, branches []Branch) ([]any, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	results := make([]any, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, branch := range branches {
		i, branch := i, branch
		g.Go(func() error {
			res, err := branch(gctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
