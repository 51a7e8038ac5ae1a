package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/streetrace-ai/streetrace-sub005/dsl/compiler"
	"github.com/streetrace-ai/streetrace-sub005/dsl/interp"
	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// CompiledDSLLoader compiles a <name>.streetrace source file through
// dsl/compiler.Driver and wraps the resulting ast.Program with dsl/interp so
// its agents and flows are directly executable.
type CompiledDSLLoader struct {
	driver *compiler.Driver
}

// NewCompiledDSLLoader builds a loader backed by a fresh bytecode cache of
// cacheSize entries.
func NewCompiledDSLLoader(cacheSize int) (*CompiledDSLLoader, error) {
	driver, err := compiler.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("workload: constructing compile driver: %w", err)
	}
	return &CompiledDSLLoader{driver: driver}, nil
}

const dslExtension = ".streetrace"

// Load implements Loader.
func (l *CompiledDSLLoader) Load(_ context.Context, res Resolution) (*WorkloadDefinition, error) {
	path := l.findSourceFile(res.Name, res.SearchPaths)
	if path == "" {
		return nil, fmt.Errorf("workload: %w: compiled-dsl %q", errs.ErrAgentNotFound, res.Name)
	}
	return l.loadPath(path)
}

// Discover implements Loader, compiling every *.streetrace file found in
// searchPaths.
func (l *CompiledDSLLoader) Discover(_ context.Context, searchPaths []string) ([]*WorkloadDefinition, error) {
	var defs []*WorkloadDefinition
	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != dslExtension {
				continue
			}
			def, err := l.loadPath(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func (l *CompiledDSLLoader) findSourceFile(name string, searchPaths []string) string {
	for _, dir := range searchPaths {
		path := filepath.Join(dir, name+dslExtension)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (l *CompiledDSLLoader) loadPath(path string) (*WorkloadDefinition, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workload: reading %s: %w", path, err)
	}
	result, err := l.driver.Compile(path, string(source))
	if err != nil {
		return nil, fmt.Errorf("workload: %w: compiling %s: %v", errs.ErrLoadFailed, path, err)
	}
	if result.Diagnostics.HasErrors() {
		return nil, fmt.Errorf("workload: %w: %s has %d diagnostic(s)", errs.ErrLoadFailed, path, result.Diagnostics.Len())
	}
	program := interp.Compile(result.Program)

	name := filepath.Base(path)
	name = name[:len(name)-len(dslExtension)]
	return &WorkloadDefinition{
		Name:   name,
		Source: SourceCompiledDSL,
		Program: program,
	}, nil
}
