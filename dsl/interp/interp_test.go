package interp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/lexer"
	"github.com/streetrace-ai/streetrace-sub005/dsl/parser"
)

// recordingHooks implements Hooks, recording every call it receives so
// tests can assert on interaction order and arguments. Branches of a
// ParallelStmt run on separate goroutines, so every recorded slice is
// guarded by mu.
type recordingHooks struct {
	mu         sync.Mutex
	toolCalls  []string
	agentCalls []string
	logs       []string
	notifies   []string
	toolResult any
	toolErr    error
}

func (h *recordingHooks) RunAgent(ctx context.Context, name string, args []any) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agentCalls = append(h.agentCalls, name)
	return "agent-result", nil
}

func (h *recordingHooks) CallTool(ctx context.Context, name string, args []any) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toolCalls = append(h.toolCalls, name)
	if h.toolErr != nil {
		return nil, h.toolErr
	}
	if h.toolResult != nil {
		return h.toolResult, nil
	}
	return "tool-result", nil
}

func (h *recordingHooks) CallLLM(ctx context.Context, prompt string) (any, error) {
	return "llm-result", nil
}

func (h *recordingHooks) Log(ctx context.Context, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = append(h.logs, message)
}

func (h *recordingHooks) Notify(ctx context.Context, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifies = append(h.notifies, message)
}

func compileFlow(t *testing.T, src string) *Program {
	t.Helper()
	toks, err := lexer.New("t.sr", src).Tokens()
	require.NoError(t, err)
	prog, err := parser.New("t.sr", toks).Parse()
	require.NoError(t, err)
	return Compile(prog)
}

func TestRunFlow_AssignAndReturn(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow main():
    $x = 1 + 2
    return $x
`)
	result, err := p.RunFlow(context.Background(), "main", nil, &recordingHooks{})
	require.NoError(t, err)
	require.Equal(t, float64(3), result)
}

func TestRunFlow_UnknownFlowIsAnError(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow main():
    return 1
`)
	_, err := p.RunFlow(context.Background(), "missing", nil, &recordingHooks{})
	require.Error(t, err)
}

func TestRunFlow_ParametersBindToPositionalArgs(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow greet(name):
    return $name
`)
	result, err := p.RunFlow(context.Background(), "greet", []any{"ada"}, &recordingHooks{})
	require.NoError(t, err)
	require.Equal(t, "ada", result)
}

func TestRunFlow_CallToolAndRunAgentInvokeHooks(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow main():
    call tool reader() -> $r
    run agent helper() -> $a
    return $a
`)
	hooks := &recordingHooks{}
	result, err := p.RunFlow(context.Background(), "main", nil, hooks)
	require.NoError(t, err)
	require.Equal(t, "agent-result", result)
	require.Equal(t, []string{"reader"}, hooks.toolCalls)
	require.Equal(t, []string{"helper"}, hooks.agentCalls)
}

func TestRunFlow_ToolErrorAbortsTheFlow(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow main():
    call tool reader() -> $r
    return $r
`)
	boom := errors.New("tool failed")
	hooks := &recordingHooks{toolErr: boom}
	_, err := p.RunFlow(context.Background(), "main", nil, hooks)
	require.ErrorIs(t, err, boom)
}

func TestRunFlow_ForLoopBodyRunsOncePerElement(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow main():
    for $item in $items:
        log $item
    return 1
`)
	hooks := &recordingHooks{}
	env := NewEnv(map[string]any{"items": []any{"a", "b", "c"}})
	flow, _ := p.Flow("main")
	ctrl, err := p.execStmts(context.Background(), flow.Body, env, hooks)
	require.NoError(t, err)
	require.Equal(t, 1, ctrl.value)
	require.Equal(t, []string{"a", "b", "c"}, hooks.logs)
}

func TestRunFlow_ParallelBranchesRunIndependently(t *testing.T) {
	t.Parallel()

	p := compileFlow(t, `streetrace v1
flow main():
    parallel:
        branch:
            log "one"
        branch:
            log "two"
    return 1
`)
	hooks := &recordingHooks{}
	_, err := p.RunFlow(context.Background(), "main", nil, hooks)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"one", "two"}, hooks.logs)
}

func TestEnv_CloneIsolatesWrites(t *testing.T) {
	t.Parallel()

	base := NewEnv(map[string]any{"x": 1})
	child := base.Clone()
	child.Set("x", 2)

	baseVal, _ := base.Get("x")
	childVal, _ := child.Get("x")
	require.Equal(t, 1, baseVal)
	require.Equal(t, 2, childVal)
}

func TestSetProperty_NestedPathCreatesIntermediateMaps(t *testing.T) {
	t.Parallel()

	out := setProperty(nil, []string{"a", "b"}, "v")
	m := out.(map[string]any)
	inner := m["a"].(map[string]any)
	require.Equal(t, "v", inner["b"])
}
