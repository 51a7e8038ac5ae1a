// Package interp executes a validated ast.Program directly (no bytecode
// or textual codegen step is executable in Go — see package codegen's
// doc comment). It is the "compiled
// workload" behind the workload package's DSL loader strategy.
//
// Execution is a straightforward tree-walking interpreter over
// dsl/ast's statement and expression nodes. Host behaviors — running a
// sub-agent, calling a tool, calling an LLM directly, emitting a log or
// notify event — are supplied by the Hooks interface so this package has
// no dependency on runtime/tool/llm and cannot import-cycle with them.
package interp

import (
	"context"
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// Hooks supplies the host behaviors a flow body can invoke. The
// supervisor/runtime package implements this over the tool provider, the
// LLM interface, and the event bus.
type Hooks interface {
	RunAgent(ctx context.Context, agentName string, args []any) (any, error)
	CallTool(ctx context.Context, toolName string, args []any) (any, error)
	CallLLM(ctx context.Context, prompt string) (any, error)
	Log(ctx context.Context, message string)
	Notify(ctx context.Context, message string)
}

// Env is a flow's variable table: name -> runtime value. Parallel
// branches receive a Clone so writes stay isolated until the branch
// joins.
type Env struct {
	vars map[string]any
}

// NewEnv returns an Env seeded with the given parameter bindings.
func NewEnv(params map[string]any) *Env {
	e := &Env{vars: make(map[string]any, len(params))}
	for k, v := range params {
		e.vars[k] = v
	}
	return e
}

// Clone returns a copy-on-write child Env: a snapshot of the current
// bindings that accumulates its own writes independently of the parent.
func (e *Env) Clone() *Env {
	child := &Env{vars: make(map[string]any, len(e.vars))}
	for k, v := range e.vars {
		child.vars[k] = v
	}
	return child
}

// Get returns the binding for name and whether it exists.
func (e *Env) Get(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds name to value in this Env.
func (e *Env) Set(name string, value any) { e.vars[name] = value }

// writes returns the env's names diffed against base (used to merge a
// parallel branch's child Env back into its parent).
func (e *Env) writes(base *Env) map[string]any {
	out := make(map[string]any)
	for k, v := range e.vars {
		if bv, ok := base.vars[k]; !ok || !valuesEqual(bv, v) {
			out[k] = v
		}
	}
	return out
}

func valuesEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Program indexes a validated ast.Program's definitions for execution.
type Program struct {
	source *ast.Program
	models map[string]*ast.ModelDef
	tools  map[string]*ast.ToolDef
	agents map[string]*ast.AgentDef
	flows  map[string]*ast.FlowDef
}

// Compile indexes prog's definitions for lookup during execution. The
// name "Compile" matches the vocabulary the DSL uses elsewhere
//; no further transformation happens here.
func Compile(prog *ast.Program) *Program {
	p := &Program{
		source: prog,
		models: make(map[string]*ast.ModelDef),
		tools:  make(map[string]*ast.ToolDef),
		agents: make(map[string]*ast.AgentDef),
		flows:  make(map[string]*ast.FlowDef),
	}
	for _, def := range prog.Definitions {
		switch d := def.(type) {
		case *ast.ModelDef:
			p.models[d.Name] = d
		case *ast.ToolDef:
			p.tools[d.Name] = d
		case *ast.AgentDef:
			p.agents[d.Name] = d
		case *ast.FlowDef:
			p.flows[d.Name] = d
		}
	}
	return p
}

// Agent returns the named agent definition, if any.
func (p *Program) Agent(name string) (*ast.AgentDef, bool) {
	d, ok := p.agents[name]
	return d, ok
}

// Flow returns the named flow definition, if any.
func (p *Program) Flow(name string) (*ast.FlowDef, bool) {
	d, ok := p.flows[name]
	return d, ok
}

// Agents returns every agent definition in the program.
func (p *Program) Agents() map[string]*ast.AgentDef { return p.agents }

// control signals a non-local exit from a statement list: a `return`
// (possibly carrying a value) or a `continue` inside a for/match body.
type control struct {
	kind  controlKind
	value any
}

type controlKind int

const (
	controlNone controlKind = iota
	controlReturn
	controlContinue
)

// RunFlow executes the named flow with the given positional arguments
// bound to its declared parameters, in source order, and returns its
// return value (nil if the flow never executes a return statement).
func (p *Program) RunFlow(ctx context.Context, name string, args []any, hooks Hooks) (any, error) {
	flow, ok := p.flows[name]
	if !ok {
		return nil, fmt.Errorf("interp: %w: flow %q", errs.ErrAgentNotFound, name)
	}
	params := make(map[string]any, len(flow.Parameters))
	for i, pname := range flow.Parameters {
		if i < len(args) {
			params[pname] = args[i]
		}
	}
	env := NewEnv(params)
	ctrl, err := p.execStmts(ctx, flow.Body, env, hooks)
	if err != nil {
		return nil, err
	}
	return ctrl.value, nil
}

func (p *Program) execStmts(ctx context.Context, stmts []ast.Stmt, env *Env, hooks Hooks) (control, error) {
	for _, s := range stmts {
		if err := ctx.Err(); err != nil {
			return control{}, err
		}
		ctrl, err := p.execStmt(ctx, s, env, hooks)
		if err != nil {
			return control{}, err
		}
		if ctrl.kind != controlNone {
			return ctrl, nil
		}
	}
	return control{}, nil
}

func (p *Program) execStmt(ctx context.Context, s ast.Stmt, env *Env, hooks Hooks) (control, error) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		v, err := p.eval(ctx, st.Value, env, hooks)
		if err != nil {
			return control{}, err
		}
		env.Set(st.Name, v)
		return control{}, nil

	case *ast.PropertyAssignStmt:
		v, err := p.eval(ctx, st.Value, env, hooks)
		if err != nil {
			return control{}, err
		}
		base, _ := env.Get(st.Name)
		env.Set(st.Name, setProperty(base, st.Path, v))
		return control{}, nil

	case *ast.RunAgentStmt:
		args, err := p.evalArgs(ctx, st.Args, env, hooks)
		if err != nil {
			return control{}, err
		}
		result, err := hooks.RunAgent(ctx, st.AgentName, args)
		if err != nil {
			return control{}, err
		}
		if st.ResultVar != "" {
			env.Set(st.ResultVar, result)
		}
		return control{}, nil

	case *ast.CallToolStmt:
		args, err := p.evalArgs(ctx, st.Args, env, hooks)
		if err != nil {
			return control{}, err
		}
		result, err := hooks.CallTool(ctx, st.ToolName, args)
		if err != nil {
			return control{}, err
		}
		if st.ResultVar != "" {
			env.Set(st.ResultVar, result)
		}
		return control{}, nil

	case *ast.CallLLMStmt:
		prompt, err := p.eval(ctx, st.Prompt, env, hooks)
		if err != nil {
			return control{}, err
		}
		result, err := hooks.CallLLM(ctx, fmt.Sprint(prompt))
		if err != nil {
			return control{}, err
		}
		if st.ResultVar != "" {
			env.Set(st.ResultVar, result)
		}
		return control{}, nil

	case *ast.LogStmt:
		v, err := p.eval(ctx, st.Message, env, hooks)
		if err != nil {
			return control{}, err
		}
		hooks.Log(ctx, fmt.Sprint(v))
		return control{}, nil

	case *ast.NotifyStmt:
		v, err := p.eval(ctx, st.Message, env, hooks)
		if err != nil {
			return control{}, err
		}
		hooks.Notify(ctx, fmt.Sprint(v))
		return control{}, nil

	case *ast.ParallelStmt:
		return control{}, p.execParallel(ctx, st, env, hooks)

	case *ast.ForStmt:
		return p.execFor(ctx, st, env, hooks)

	case *ast.MatchStmt:
		return p.execMatch(ctx, st, env, hooks)

	case *ast.ReturnStmt:
		var v any
		if st.Value != nil {
			var err error
			v, err = p.eval(ctx, st.Value, env, hooks)
			if err != nil {
				return control{}, err
			}
		}
		return control{kind: controlReturn, value: v}, nil

	case *ast.ContinueStmt:
		return control{kind: controlContinue}, nil

	case *ast.ExprStmt:
		_, err := p.eval(ctx, st.Value, env, hooks)
		return control{}, err

	default:
		return control{}, fmt.Errorf("interp: unsupported statement %T", s)
	}
}

func (p *Program) evalArgs(ctx context.Context, exprs []ast.Expr, env *Env, hooks Hooks) ([]any, error) {
	out := make([]any, 0, len(exprs))
	for _, e := range exprs {
		v, err := p.eval(ctx, e, env, hooks)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func setProperty(base any, path []string, value any) any {
	m, ok := base.(map[string]any)
	if !ok {
		m = make(map[string]any)
	} else {
		clone := make(map[string]any, len(m))
		for k, v := range m {
			clone[k] = v
		}
		m = clone
	}
	cur := m
	for i, key := range path {
		if i == len(path)-1 {
			cur[key] = value
			break
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
		}
		cur[key] = next
		cur = next
	}
	return m
}
