package builtin

import (
	"context"
	"fmt"
)

// AgentInfo describes one agent available for delegation via run_agent.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ToolInfo describes one tool available to agents.
type ToolInfo struct {
	Name string `json:"name"`
}

var defaultTools = []ToolInfo{
	{Name: "list_directory"},
	{Name: "read_file"},
	{Name: "write_file"},
	{Name: "append_to_file"},
	{Name: "create_directory"},
	{Name: "find_in_files"},
	{Name: "execute_cli_command"},
	{Name: "apply_unified_patch_content"},
	{Name: "list_agents"},
	{Name: "list_tools"},
	{Name: "run_agent"},
}

// Introspection exposes the list_agents/list_tools/run_agent builtins.
// Unlike original_source/tools/definitions/list_agents.py, which imports
// each agent.py module off disk with importlib to read its metadata, a
// compiled Go binary cannot discover agents that way: AgentLister and
// RunAgentFunc are supplied by the embedding runtime, which already holds
// the resolved workload registry.
type Introspection struct {
	// AgentLister returns the agents currently registered with the
	// runtime. Required for ListAgents to return anything.
	AgentLister func() []AgentInfo
	// ExtraTools names additional tools beyond the built-in set, mirroring
	// list_tools.py's tools.yaml overlay.
	ExtraTools []ToolInfo
	// RunAgentFunc delegates to the named agent with input_text and
	// returns its final textual response. Required for RunAgent.
	RunAgentFunc func(ctx context.Context, agentName, inputText string) (string, error)
}

// ListAgents returns the agents the runtime currently knows about.
func (i Introspection) ListAgents(_ context.Context, _ map[string]any) (any, error) {
	if i.AgentLister == nil {
		return ok([]AgentInfo{}), nil
	}
	return ok(i.AgentLister()), nil
}

// ListTools returns the built-in tool set plus any runtime-specific
// additions.
func (i Introspection) ListTools(_ context.Context, _ map[string]any) (any, error) {
	tools := make([]ToolInfo, 0, len(defaultTools)+len(i.ExtraTools))
	tools = append(tools, defaultTools...)
	tools = append(tools, i.ExtraTools...)
	return ok(tools), nil
}

// RunAgent delegates to args["agent_name"] with args["input_text"].
func (i Introspection) RunAgent(ctx context.Context, args map[string]any) (any, error) {
	if i.RunAgentFunc == nil {
		return fail(fmt.Errorf("run_agent: not wired to a runtime")), nil
	}
	agentName, _ := args["agent_name"].(string)
	inputText, _ := args["input_text"].(string)
	if agentName == "" {
		return fail(fmt.Errorf("run_agent: agent_name is required")), nil
	}
	result, err := i.RunAgentFunc(ctx, agentName, inputText)
	if err != nil {
		return fail(fmt.Errorf("run_agent: %w", err)), nil
	}
	return ok(result), nil
}
