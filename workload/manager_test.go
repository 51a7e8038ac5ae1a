package workload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/errs"
)

func TestManager_Resolve_ProgrammaticBeatsDeclarative(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeYAMLWorkload(t, dir, "greeter.yaml", "name: greeter\ndescription: from disk\n")

	mgr, err := NewManager([]string{dir}, 10)
	require.NoError(t, err)

	mgr.Programmatic.Register("greeter", func() (*WorkloadDefinition, error) {
		return &WorkloadDefinition{Name: "greeter", Description: "in process"}, nil
	})

	def, err := mgr.Resolve(context.Background(), "greeter")
	require.NoError(t, err)
	require.Equal(t, SourceProgrammatic, def.Source)
	require.Equal(t, "in process", def.Description)
}

func TestManager_Resolve_FallsBackToDeclarative(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeYAMLWorkload(t, dir, "filer.yaml", "name: filer\ndescription: reads files\nmodel: anthropic/claude-sonnet\n")

	mgr, err := NewManager([]string{dir}, 10)
	require.NoError(t, err)

	def, err := mgr.Resolve(context.Background(), "filer")
	require.NoError(t, err)
	require.Equal(t, SourceDeclarative, def.Source)
	require.Equal(t, "anthropic/claude-sonnet", def.Model)
}

func TestManager_Resolve_NotFoundWrapsSentinel(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager([]string{t.TempDir()}, 10)
	require.NoError(t, err)

	_, err = mgr.Resolve(context.Background(), "nonexistent")
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrAgentNotFound)
}

func TestManager_Discover_PrecedenceAndDedup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeYAMLWorkload(t, dir, "dup.yaml", "name: dup\ndescription: from disk\n")
	writeYAMLWorkload(t, dir, "onlydecl.yaml", "name: onlydecl\ndescription: disk only\n")

	mgr, err := NewManager([]string{dir}, 10)
	require.NoError(t, err)
	mgr.Programmatic.Register("dup", func() (*WorkloadDefinition, error) {
		return &WorkloadDefinition{Name: "dup", Description: "in process"}, nil
	})

	defs, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	byName := map[string]*WorkloadDefinition{}
	for _, d := range defs {
		byName[d.Name] = d
	}
	require.Equal(t, "in process", byName["dup"].Description)
	require.Equal(t, "disk only", byName["onlydecl"].Description)
}

func writeYAMLWorkload(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}
