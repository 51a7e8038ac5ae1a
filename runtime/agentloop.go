// Package runtime wires the DSL front end, the tool provider, the LLM
// interface, the event bus, and the session store into the supervisor's
// single turn-execution path. Grounded on goadesign-goa-ai's
// runtime/agent/planner package: that planner's PlanStart/PlanResume
// cycle (call the model, act on tool calls, resume with tool results,
// repeat until a final response) is the same shape this package's
// AgentLoop implements, stripped of the durable-workflow apparatus
// (run.Context, policy engine, retry hints) since nothing in this system
// needs Temporal-grade replay — a single in-process loop per turn is
// sufficient.
package runtime

import (
	"context"
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/errs"
	"github.com/streetrace-ai/streetrace-sub005/eventbus"
	"github.com/streetrace-ai/streetrace-sub005/llm"
	"github.com/streetrace-ai/streetrace-sub005/session"
	"github.com/streetrace-ai/streetrace-sub005/tool"
)

// maxLoopIterations bounds a single agent turn's model/tool round trips,
// guarding against a model that never stops requesting tools.
const maxLoopIterations = 25

// AgentLoop drives one AgentDef through the model/tool cycle: it sends
// the conversation to the model, and for every tool call the model
// requests, invokes the matching tool.Tool and feeds the result back,
// until the model returns a response with no tool calls.
type AgentLoop struct {
	Model    llm.Client
	Tools    map[string]tool.Tool
	Bus      *eventbus.Bus
	Agent    *ast.AgentDef
	Workload string
	RunID    string
}

// Result is the outcome of one AgentLoop.Run call.
type Result struct {
	FinalText string
	Events    []session.Event
	Usage     llm.Usage
}

// Run executes the loop starting from history (the session's prior
// events translated into messages) plus the new user input, appending
// every model/tool exchange as session.Events so the caller can persist
// them via session.Store.Append.
func (a *AgentLoop) Run(ctx context.Context, history []session.Event, userText string) (*Result, error) {
	messages := eventsToMessages(history)
	if a.Agent.Instruction != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Text: a.Agent.Instruction}}, messages...)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: userText})

	result := &Result{
		Events: []session.Event{userEvent(userText)},
	}

	tools := a.toolDefs()

	for i := 0; i < maxLoopIterations; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		a.publish(ctx, eventbus.KindLLMCall, nil)
		resp, err := a.Model.Complete(ctx, llm.Request{Model: a.Agent.Model, Messages: messages, Tools: tools})
		if err != nil {
			a.publish(ctx, eventbus.KindError, err.Error())
			// result.Events already holds the user's message (and any prior
			// tool exchanges from earlier iterations); the caller persists
			// it even though the turn failed, so nothing already appended
			// to the conversation is lost.
			return result, err
		}
		a.publish(ctx, eventbus.KindLLMResponse, resp.Text)
		a.publish(ctx, eventbus.KindUsage, eventbus.UsagePayload{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			CostUSD:          resp.Usage.CostUSD,
		})
		result.Usage.PromptTokens += resp.Usage.PromptTokens
		result.Usage.CompletionTokens += resp.Usage.CompletionTokens
		result.Usage.TotalTokens += resp.Usage.TotalTokens

		if len(resp.ToolCalls) == 0 {
			result.FinalText = resp.Text
			result.Events = append(result.Events, assistantTextEvent(resp.Text))
			return result, nil
		}

		messages = append(messages, assistantToolCallMessage(resp))
		for _, call := range resp.ToolCalls {
			event, msg, err := a.invokeTool(ctx, call)
			result.Events = append(result.Events, event)
			messages = append(messages, msg)
			if err != nil {
				a.publish(ctx, eventbus.KindError, err.Error())
			}
		}
	}
	return result, fmt.Errorf("runtime: agent %q: %w: exceeded %d tool round trips", a.Agent.Name, errs.ErrLoadFailed, maxLoopIterations)
}

func (a *AgentLoop) invokeTool(ctx context.Context, call llm.ToolCall) (session.Event, llm.Message, error) {
	a.publish(ctx, eventbus.KindToolCall, call.Name)

	t, ok := a.Tools[call.Name]
	if !ok {
		err := fmt.Errorf("runtime: %w: tool %q not exposed to agent %q", errs.ErrLoadFailed, call.Name, a.Agent.Name)
		a.publish(ctx, eventbus.KindToolResponse, eventbus.ToolResponsePayload{ToolName: call.Name, Success: false, Error: err.Error()})
		return toolEvent(call.Name, call.ID, err.Error()), toolResultMessage(call, err.Error()), err
	}

	args := decodeToolArgs(call.Payload)
	out, err := t.Call(ctx, args)
	if err != nil {
		a.publish(ctx, eventbus.KindToolResponse, eventbus.ToolResponsePayload{ToolName: call.Name, Success: false, Error: err.Error()})
		return toolEvent(call.Name, call.ID, err.Error()), toolResultMessage(call, err.Error()), err
	}
	a.publish(ctx, eventbus.KindToolResponse, eventbus.ToolResponsePayload{ToolName: call.Name, Success: true})
	return toolEvent(call.Name, call.ID, out), toolResultMessage(call, out), nil
}

func (a *AgentLoop) toolDefs() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(a.Tools))
	for name := range a.Tools {
		defs = append(defs, llm.ToolDefinition{Name: name})
	}
	return defs
}

func (a *AgentLoop) publish(ctx context.Context, kind eventbus.Kind, payload any) {
	if a.Bus == nil {
		return
	}
	a.Bus.Publish(ctx, eventbus.Event{Kind: kind, Workload: a.Workload, Agent: a.Agent.Name, RunID: a.RunID, Payload: payload})
}
