package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/llm"
	"github.com/streetrace-ai/streetrace-sub005/tool"
)

type scriptedModel struct {
	responses []llm.Response
	errs      []error
	calls     int
}

func (m *scriptedModel) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return llm.Response{}, m.errs[i]
	}
	return m.responses[i], nil
}

func (m *scriptedModel) Stream(ctx context.Context, req llm.Request) (llm.Streamer, error) {
	return nil, nil
}

func (m *scriptedModel) EstimateTokenCount(text string) int { return len(text) }

type stubTool struct {
	name string
	out  any
}

func (s *stubTool) Name() string { return s.name }
func (s *stubTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return s.out, nil
}

func TestAgentLoop_Run_NoToolCallsReturnsFinalText(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []llm.Response{{Text: "hello there"}}}
	loop := &AgentLoop{
		Model: model,
		Agent: &ast.AgentDef{Name: "greeter", Instruction: "be nice"},
	}

	result, err := loop.Run(context.Background(), nil, "hi")
	require.NoError(t, err)
	require.Equal(t, "hello there", result.FinalText)
	require.Equal(t, 1, model.calls)
}

func TestAgentLoop_Run_InvokesToolThenReturnsFinalText(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(map[string]any{"path": "a.txt"})
	require.NoError(t, err)

	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "read_file", Payload: payload}}},
		{Text: "file says hi"},
	}}
	loop := &AgentLoop{
		Model: model,
		Tools: map[string]tool.Tool{"read_file": &stubTool{name: "read_file", out: "contents"}},
		Agent: &ast.AgentDef{Name: "reader"},
	}

	result, err := loop.Run(context.Background(), nil, "read a.txt")
	require.NoError(t, err)
	require.Equal(t, "file says hi", result.FinalText)
	require.Equal(t, 2, model.calls)
}

func TestAgentLoop_Run_UnknownToolSurfacesError(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "does_not_exist"}}},
		{Text: "recovered"},
	}}
	loop := &AgentLoop{
		Model: model,
		Tools: map[string]tool.Tool{},
		Agent: &ast.AgentDef{Name: "reader"},
	}

	result, err := loop.Run(context.Background(), nil, "go")
	require.NoError(t, err)
	require.Equal(t, "recovered", result.FinalText)
}

func TestAgentLoop_Run_ModelErrorStillReturnsUserEvent(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{
		responses: []llm.Response{{}},
		errs:      []error{errors.New("upstream unavailable")},
	}
	loop := &AgentLoop{
		Model: model,
		Agent: &ast.AgentDef{Name: "flaky"},
	}

	result, err := loop.Run(context.Background(), nil, "hello")
	require.Error(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Events, 1)
}
