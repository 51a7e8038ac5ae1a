package workload

import "context"

// Resolution is the input to a Loader: a logical workload name plus the
// search paths discovery should consider, in preference order.
type Resolution struct {
	Name        string
	SearchPaths []string
}

// Loader resolves a Resolution into a WorkloadDefinition. Each of the three
// strategies (programmatic, declarative, compiled DSL) implements Loader;
// WorkloadManager tries each in turn until one succeeds.
type Loader interface {
	// Load returns a WorkloadDefinition for res, or an error wrapping
	// errs.ErrAgentNotFound if this loader has nothing for res.Name.
	Load(ctx context.Context, res Resolution) (*WorkloadDefinition, error)
	// Discover returns every workload this loader can find across
	// searchPaths without being asked for a specific name.
	Discover(ctx context.Context, searchPaths []string) ([]*WorkloadDefinition, error)
}
