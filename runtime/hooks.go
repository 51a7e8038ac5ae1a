package runtime

import (
	"context"
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/dsl/interp"
	"github.com/streetrace-ai/streetrace-sub005/errs"
	"github.com/streetrace-ai/streetrace-sub005/eventbus"
	"github.com/streetrace-ai/streetrace-sub005/llm"
	"github.com/streetrace-ai/streetrace-sub005/tool"
)

// FlowHooks implements dsl/interp.Hooks for one running turn: CallTool
// dispatches against the turn's materialized tool set, CallLLM issues a
// direct model call bypassing the agent loop entirely (the `call llm`
// statement), RunAgent delegates to a named sub-workload via Dispatcher,
// and Log/Notify publish to the event bus instead of writing to a
// terminal the way a CLI-bound implementation would.
type FlowHooks struct {
	Model      llm.Client
	Tools      map[string]tool.Tool
	Bus        *eventbus.Bus
	Dispatcher Dispatcher
	Workload   string
	RunID      string
}

// Dispatcher resolves and runs a named sub-workload, used by
// FlowHooks.RunAgent for a flow's `run agent` statements. Implemented by
// *Supervisor.
type Dispatcher interface {
	RunWorkload(ctx context.Context, name, input string) (string, error)
}

var _ interp.Hooks = (*FlowHooks)(nil)

// CallTool implements interp.Hooks.
func (h *FlowHooks) CallTool(ctx context.Context, toolName string, args []any) (any, error) {
	t, ok := h.Tools[toolName]
	if !ok {
		return nil, fmt.Errorf("runtime: %w: tool %q not available to this flow", errs.ErrLoadFailed, toolName)
	}
	h.publish(ctx, eventbus.KindToolCall, toolName)
	out, err := t.Call(ctx, positionalToNamed(args))
	if err != nil {
		h.publish(ctx, eventbus.KindToolResponse, eventbus.ToolResponsePayload{ToolName: toolName, Success: false, Error: err.Error()})
		return nil, err
	}
	h.publish(ctx, eventbus.KindToolResponse, eventbus.ToolResponsePayload{ToolName: toolName, Success: true})
	return out, nil
}

// CallLLM implements interp.Hooks: `call llm <prompt>` bypasses the agent
// loop and invokes the model directly with no tool set.
func (h *FlowHooks) CallLLM(ctx context.Context, prompt string) (any, error) {
	h.publish(ctx, eventbus.KindLLMCall, prompt)
	resp, err := h.Model.Complete(ctx, llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Text: prompt}}})
	if err != nil {
		return nil, err
	}
	h.publish(ctx, eventbus.KindLLMResponse, resp.Text)
	return resp.Text, nil
}

// RunAgent implements interp.Hooks, delegating to a sub-workload by name.
// args is flattened into a single text input: the DSL passes at most one
// positional argument to run_agent today (the sub-agent's prompt).
func (h *FlowHooks) RunAgent(ctx context.Context, agentName string, args []any) (any, error) {
	if h.Dispatcher == nil {
		return nil, fmt.Errorf("runtime: %w: no dispatcher configured for run_agent", errs.ErrLoadFailed)
	}
	input := ""
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			input = s
		}
	}
	return h.Dispatcher.RunWorkload(ctx, agentName, input)
}

// Log implements interp.Hooks.
func (h *FlowHooks) Log(ctx context.Context, message string) {
	h.publish(ctx, eventbus.KindInfo, message)
}

// Notify implements interp.Hooks.
func (h *FlowHooks) Notify(ctx context.Context, message string) {
	h.publish(ctx, eventbus.KindInfo, message)
}

func (h *FlowHooks) publish(ctx context.Context, kind eventbus.Kind, payload any) {
	if h.Bus == nil {
		return
	}
	h.Bus.Publish(ctx, eventbus.Event{Kind: kind, Workload: h.Workload, RunID: h.RunID, Payload: payload})
}

// positionalToNamed adapts a flow's positional call-site arguments to the
// map[string]any shape every tool.Tool.Call expects, under the
// conventional names arg0, arg1, ... A compiled-DSL tool call only ever
// reaches this path for built-ins and direct callables whose Go
// implementation accepts this convention; schema-validated remote tools
// are called with their named JSON args via the agent loop instead, not
// through this hook.
func positionalToNamed(args []any) map[string]any {
	named := make(map[string]any, len(args))
	for i, a := range args {
		named[fmt.Sprintf("arg%d", i)] = a
	}
	return named
}
