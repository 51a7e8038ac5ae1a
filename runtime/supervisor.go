package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/errs"
	"github.com/streetrace-ai/streetrace-sub005/eventbus"
	"github.com/streetrace-ai/streetrace-sub005/llm"
	"github.com/streetrace-ai/streetrace-sub005/session"
	"github.com/streetrace-ai/streetrace-sub005/tool"
	"github.com/streetrace-ai/streetrace-sub005/workload"
)

// Supervisor is the single entry point for running a user turn: resolve
// the workload, instantiate it, load its session, append the user's
// message, run it to a final response, and persist the result. For its
// overall shape (resolve -> instantiate -> run -> close), grounded on
// goadesign-goa-ai/runtime/agent/engine's RegisterWorkflow/StartWorkflow
// split — simplified to a single synchronous call since this system
// carries no go.temporal.io/sdk workflow engine underneath it (no
// crash-recovery/resume-from-checkpoint requirement calls for one).
type Supervisor struct {
	Workloads *workload.Manager
	Tools     *tool.Provider
	Model     llm.Client
	Sessions  session.Store
	Compactor *session.Compactor
	Bus       *eventbus.Bus
}

// TurnRequest names the workload to run and the user's input for this
// turn.
type TurnRequest struct {
	App       string
	User      string
	SessionID string
	Workload  string
	Prompt    string
}

// TurnResult is the supervisor's output: the final assistant text plus
// the usage accrued across the turn.
type TurnResult struct {
	FinalText string
	Usage     llm.Usage
}

// RunTurn implements the six-step lifecycle described above.
func (s *Supervisor) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = time.Now().UTC().Format("20060102T150405.000000000Z")
	}
	key := session.Key{App: req.App, User: req.User, ID: sessionID}

	def, err := s.Workloads.Resolve(ctx, req.Workload)
	if err != nil {
		return nil, err
	}

	sess, err := s.Sessions.CreateOrLoad(ctx, key)
	if err != nil {
		return nil, err
	}

	runID := generateRunID(req.Workload)
	s.publish(ctx, req.Workload, runID, eventbus.KindTurnStarted, nil)

	result, runErr := s.runWorkload(ctx, req.Workload, runID, def, sess, req.Prompt)

	closeKind := eventbus.KindTurnCompleted
	if runErr != nil {
		closeKind = eventbus.KindError
	}
	s.publish(ctx, req.Workload, runID, closeKind, runErr)

	if result != nil {
		if _, err := s.Sessions.Append(ctx, key, result.Events...); err != nil {
			return nil, fmt.Errorf("runtime: persisting session %s: %w", sessionID, err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return &TurnResult{FinalText: result.FinalText, Usage: result.Usage}, nil
}

// runWorkload dispatches to either the compiled-DSL interpreter (a
// workload with a top-level flow named "main") or the model-driven agent
// loop, depending on the resolved definition's shape.
func (s *Supervisor) runWorkload(ctx context.Context, name, runID string, def *workload.WorkloadDefinition, sess session.Session, prompt string) (*Result, error) {
	tools, err := materializeTools(s.Tools, def.Tools)
	if err != nil {
		return nil, err
	}

	if def.Program != nil {
		if _, ok := def.Program.Flow("main"); ok {
			return s.runFlow(ctx, name, runID, def, tools)
		}
		if agentDef, ok := firstAgent(def.Program); ok {
			return s.runAgentTurn(ctx, name, runID, agentDef, tools, sess, prompt)
		}
		return nil, fmt.Errorf("runtime: %w: compiled workload %q declares neither a main flow nor an agent", errs.ErrLoadFailed, name)
	}

	return s.runAgentTurn(ctx, name, runID, definitionToAgentDef(def), tools, sess, prompt)
}

func (s *Supervisor) runFlow(ctx context.Context, name, runID string, def *workload.WorkloadDefinition, tools map[string]tool.Tool) (*Result, error) {
	hooks := &FlowHooks{Model: s.Model, Tools: tools, Bus: s.Bus, Dispatcher: s, Workload: name, RunID: runID}
	out, err := def.Program.RunFlow(ctx, "main", nil, hooks)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, name, runID, eventbus.KindFlowResult, eventbus.FlowResultPayload{Flow: "main", Result: out})
	return &Result{FinalText: fmt.Sprint(out)}, nil
}

func (s *Supervisor) runAgentTurn(ctx context.Context, name, runID string, agentDef *ast.AgentDef, tools map[string]tool.Tool, sess session.Session, prompt string) (*Result, error) {
	loop := &AgentLoop{Model: s.Model, Tools: tools, Bus: s.Bus, Agent: agentDef, Workload: name, RunID: runID}
	result, err := loop.Run(ctx, sess.Events, prompt)
	if err != nil {
		// result still carries whatever events the loop appended before
		// failing (at minimum the user's own message); return it alongside
		// the error so RunTurn can persist it instead of losing the turn.
		return result, err
	}

	if s.Compactor == nil || agentDef.MaxInputTokens <= 0 {
		return result, nil
	}
	policy := compactionPolicy(agentDef.Compaction)
	merged := append(append([]session.Event{}, sess.Events...), result.Events...)
	kept, payload, err := s.Compactor.Compact(ctx, session.Session{Key: sess.Key, Events: merged}, policy, agentDef.MaxInputTokens)
	if err == nil && payload != nil {
		// The compacted log already holds this turn's events, so it
		// replaces the stored history and nothing is left to append.
		if _, err := s.Sessions.Replace(ctx, sess.Key, kept); err == nil {
			s.publish(ctx, name, runID, eventbus.KindHistoryCompaction, payload)
			result.Events = nil
		}
	}
	return result, nil
}

// RunWorkload implements Dispatcher, letting flow hooks and built-in
// tools (list_agents/run_agent) recurse into a sub-workload by name.
func (s *Supervisor) RunWorkload(ctx context.Context, name, input string) (string, error) {
	def, err := s.Workloads.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	sess := session.Session{Key: session.Key{App: "sub-agent", User: "sub-agent", ID: name}}
	result, err := s.runWorkload(ctx, name, generateRunID(name), def, sess, input)
	if err != nil {
		return "", err
	}
	return result.FinalText, nil
}

func (s *Supervisor) publish(ctx context.Context, workload, runID string, kind eventbus.Kind, payload any) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(ctx, eventbus.Event{Kind: kind, Workload: workload, RunID: runID, Payload: payload})
}
