package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
)

func TestProvider_MaterializeBuiltin(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	p.RegisterBuiltin("builtin", "echo", func(ctx context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})

	tl, err := p.Materialize(&ast.ToolDef{Name: "echo", Kind: ast.ToolRefBuiltin, Module: "builtin", Function: "echo"})
	require.NoError(t, err)
	require.Equal(t, "echo", tl.Name())

	out, err := tl.Call(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", out)
}

func TestProvider_MaterializeBuiltin_Unregistered(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	_, err := p.Materialize(&ast.ToolDef{Name: "missing", Kind: ast.ToolRefBuiltin, Module: "builtin", Function: "missing"})
	require.Error(t, err)
}

func TestProvider_MaterializeDirect(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	p.RegisterDirect("pkg.module.fn", func(ctx context.Context, args map[string]any) (any, error) {
		return "direct-result", nil
	})

	tl, err := p.Materialize(&ast.ToolDef{Name: "direct", Kind: ast.ToolRefDirect, ImportPath: "pkg.module.fn"})
	require.NoError(t, err)

	out, err := tl.Call(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "direct-result", out)
}

func TestProvider_MaterializeRemote_UnknownTransportRejected(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	_, err := p.Materialize(&ast.ToolDef{Name: "remote", Kind: ast.ToolRefRemote, Transport: "carrier-pigeon"})
	require.Error(t, err)
}

func TestProvider_MaterializeRemote_HTTPTransportAccepted(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	tl, err := p.Materialize(&ast.ToolDef{Name: "remote", Kind: ast.ToolRefRemote, Transport: "http", URL: "http://localhost:9"})
	require.NoError(t, err)
	require.Equal(t, "remote", tl.Name())
}

func TestRemoteTool_Call_RejectsNameOutsideAllowList(t *testing.T) {
	t.Parallel()

	tl, err := NewProvider().Materialize(&ast.ToolDef{
		Name:      "deploy",
		Kind:      ast.ToolRefRemote,
		Transport: "stdio",
		Command:   "does-not-matter",
		Allow:     []string{"read_*"},
	})
	require.NoError(t, err)

	_, err = tl.Call(context.Background(), nil)
	require.Error(t, err)
}

func TestAllowListPermits(t *testing.T) {
	t.Parallel()

	require.True(t, allowListPermits(nil, "anything"))
	require.True(t, allowListPermits([]string{"read_*", "list_*"}, "read_file"))
	require.False(t, allowListPermits([]string{"read_*"}, "write_file"))
}

func TestProvider_MaterializeWithSchema_RejectsInvalidArgs(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	p.RegisterBuiltin("builtin", "write", func(ctx context.Context, args map[string]any) (any, error) {
		return "wrote", nil
	})

	schema := []byte(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)
	tl, err := p.Materialize(&ast.ToolDef{
		Name: "write", Kind: ast.ToolRefBuiltin, Module: "builtin", Function: "write", Schema: schema,
	})
	require.NoError(t, err)

	_, err = tl.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	out, err := tl.Call(context.Background(), map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	require.Equal(t, "wrote", out)
}
