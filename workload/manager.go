package workload

import (
	"context"
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// Manager ties the three loader strategies together behind one Resolve
// call, trying each in a fixed preference order: programmatic first (an
// in-process registration always wins over anything found on disk),
// declarative second, compiled DSL last. This mirrors
// original_source/src/streetrace/agents/agent_manager.py's AgentManager,
// which tries its python_loader ahead of its yaml_loader for the same
// reason — a hand-written agent implementation should not be silently
// shadowed by a same-named spec file.
type Manager struct {
	Programmatic *ProgrammaticLoader
	Declarative  *DeclarativeLoader
	CompiledDSL  *CompiledDSLLoader

	// SearchPaths lists directories consulted by Resolve and Discover, in
	// preference order: typically the working directory, a user config
	// directory, then a system-wide one.
	SearchPaths []string
}

// NewManager builds a Manager with a fresh ProgrammaticLoader and
// DeclarativeLoader, and a CompiledDSLLoader backed by a cache of
// cacheSize entries. Call Programmatic.Register before any Resolve for
// workloads the embedding application builds in-process.
func NewManager(searchPaths []string, cacheSize int) (*Manager, error) {
	compiled, err := NewCompiledDSLLoader(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Programmatic: NewProgrammaticLoader(),
		Declarative:  NewDeclarativeLoader(),
		CompiledDSL:  compiled,
		SearchPaths:  searchPaths,
	}, nil
}

// loaders returns the three strategies in resolution preference order.
func (m *Manager) loaders() []Loader {
	return []Loader{m.Programmatic, m.Declarative, m.CompiledDSL}
}

// Resolve looks up name across all three loaders in preference order,
// returning the first match. If every loader reports the name unknown,
// the returned error wraps errs.ErrAgentNotFound.
func (m *Manager) Resolve(ctx context.Context, name string) (*WorkloadDefinition, error) {
	res := Resolution{Name: name, SearchPaths: m.SearchPaths}
	var lastErr error
	for _, l := range m.loaders() {
		def, err := l.Load(ctx, res)
		if err == nil {
			return def, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("workload: %w: %q not found by any loader: %v", errs.ErrAgentNotFound, name, lastErr)
}

// Discover merges the results of every loader's Discover across
// SearchPaths. Later loaders' definitions of an already-seen name are
// skipped, preserving the same programmatic > declarative > compiled-DSL
// precedence Resolve uses.
func (m *Manager) Discover(ctx context.Context) ([]*WorkloadDefinition, error) {
	seen := make(map[string]bool)
	var all []*WorkloadDefinition
	for _, l := range m.loaders() {
		defs, err := l.Discover(ctx, m.SearchPaths)
		if err != nil {
			continue
		}
		for _, def := range defs {
			if seen[def.Name] {
				continue
			}
			seen[def.Name] = true
			all = append(all, def)
		}
	}
	return all, nil
}
