package workload

import (
	"context"
	"fmt"
	"sync"

	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// ProgrammaticLoader resolves workloads built in-process by the embedding
// application. original_source's PythonAgentLoader walks a directory,
// imports each agent.py it finds off disk, and discovers the agent class by
// checking the imported module's class hierarchy for the StreetRaceAgent
// base-class name. A compiled Go binary cannot import a path discovered at
// runtime, so ProgrammaticLoader instead requires the embedding application
// to call Register for every agent it ships, ahead of any Resolve call —
// the same registry-over-dynamic-import adaptation tool.Provider uses for
// direct-callable tools.
type ProgrammaticLoader struct {
	mu        sync.RWMutex
	factories map[string]ProgrammaticFactory
}

// NewProgrammaticLoader returns an empty ProgrammaticLoader.
func NewProgrammaticLoader() *ProgrammaticLoader {
	return &ProgrammaticLoader{factories: make(map[string]ProgrammaticFactory)}
}

// Register adds a named factory, overwriting any existing registration
// under the same name.
func (l *ProgrammaticLoader) Register(name string, factory ProgrammaticFactory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[name] = factory
}

// Load implements Loader.
func (l *ProgrammaticLoader) Load(_ context.Context, res Resolution) (*WorkloadDefinition, error) {
	l.mu.RLock()
	factory, ok := l.factories[res.Name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workload: %w: programmatic %q", errs.ErrAgentNotFound, res.Name)
	}
	def, err := factory()
	if err != nil {
		return nil, fmt.Errorf("workload: constructing %q: %w", res.Name, err)
	}
	def.Source = SourceProgrammatic
	def.Factory = factory
	return def, nil
}

// Discover implements Loader, returning every registered factory's
// definition regardless of searchPaths (registration, not filesystem
// discovery, is this loader's source of truth).
func (l *ProgrammaticLoader) Discover(_ context.Context, _ []string) ([]*WorkloadDefinition, error) {
	l.mu.RLock()
	names := make([]string, 0, len(l.factories))
	factories := make(map[string]ProgrammaticFactory, len(l.factories))
	for name, f := range l.factories {
		names = append(names, name)
		factories[name] = f
	}
	l.mu.RUnlock()

	defs := make([]*WorkloadDefinition, 0, len(names))
	for _, name := range names {
		def, err := factories[name]()
		if err != nil {
			continue
		}
		def.Source = SourceProgrammatic
		def.Factory = factories[name]
		defs = append(defs, def)
	}
	return defs, nil
}
