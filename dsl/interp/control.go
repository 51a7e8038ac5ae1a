package interp

import (
	"context"
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/concurrency"
	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// execParallel runs each branch concurrently over an isolated
// copy-on-write child Env (package concurrency fans out and joins them),
// then merges child writes back into env: distinct names merge by
// last-writer-wins in branch order, and two branches writing the same
// name is a runtime conflict. A fatal error in any branch cancels its
// peers via the group's derived context and is returned once every
// branch has stopped.
func (p *Program) execParallel(ctx context.Context, st *ast.ParallelStmt, env *Env, hooks Hooks) error {
	if len(st.Branches) == 1 {
		_, err := p.execStmts(ctx, st.Branches[0], env, hooks)
		return err
	}

	children := make([]*Env, len(st.Branches))
	branches := make([]concurrency.Branch, len(st.Branches))
	for i, branch := range st.Branches {
		i, branch := i, branch
		child := env.Clone()
		children[i] = child
		branches[i] = func(bctx context.Context) (any, error) {
			_, err := p.execStmts(bctx, branch, child, hooks)
			return nil, err
		}
	}
	if _, err := concurrency.Run(ctx, branches); err != nil {
		return err
	}

	merged := make(map[string]any)
	writers := make(map[string]int)
	for i, child := range children {
		for name, value := range child.writes(env) {
			if other, ok := writers[name]; ok && other != i {
				return &errs.MergeConflictError{Name: name}
			}
			writers[name] = i
			merged[name] = value
		}
	}
	for name, value := range merged {
		env.Set(name, value)
	}
	return nil
}

// execFor iterates $var over seq's elements, running body once per
// element unless body is itself a single parallel block, in which case
// iterations fan out concurrently. A
// `continue` inside body ends that iteration only; `return` propagates
// out of the loop entirely.
func (p *Program) execFor(ctx context.Context, st *ast.ForStmt, env *Env, hooks Hooks) (control, error) {
	seqVal, err := p.eval(ctx, st.Seq, env, hooks)
	if err != nil {
		return control{}, err
	}
	items, err := toSlice(seqVal)
	if err != nil {
		return control{}, err
	}

	if isSoleParallelBody(st.Body) {
		return control{}, p.execForParallel(ctx, st, items, env, hooks)
	}

	for _, item := range items {
		child := env.Clone()
		child.Set(st.Var, item)
		ctrl, err := p.execStmts(ctx, st.Body, child, hooks)
		if err != nil {
			return control{}, err
		}
		for k, v := range child.writes(env) {
			env.Set(k, v)
		}
		if ctrl.kind == controlReturn {
			return ctrl, nil
		}
	}
	return control{}, nil
}

func isSoleParallelBody(body []ast.Stmt) bool {
	if len(body) != 1 {
		return false
	}
	_, ok := body[0].(*ast.ParallelStmt)
	return ok
}

func (p *Program) execForParallel(ctx context.Context, st *ast.ForStmt, items []any, env *Env, hooks Hooks) error {
	branches := make([]concurrency.Branch, len(items))
	for i, item := range items {
		item := item
		branches[i] = func(bctx context.Context) (any, error) {
			child := env.Clone()
			child.Set(st.Var, item)
			_, err := p.execStmts(bctx, st.Body, child, hooks)
			return nil, err
		}
	}
	_, err := concurrency.RunBounded(ctx, concurrency.DefaultLimit, branches)
	return err
}

// execMatch evaluates subject and runs the first case whose pattern
// equals it (a nil pattern is the wildcard/default arm, which must be
// last to ever be reached).
func (p *Program) execMatch(ctx context.Context, st *ast.MatchStmt, env *Env, hooks Hooks) (control, error) {
	subject, err := p.eval(ctx, st.Subject, env, hooks)
	if err != nil {
		return control{}, err
	}
	for _, c := range st.Cases {
		matched := c.Pattern == nil
		if !matched {
			patVal, err := p.eval(ctx, c.Pattern, env, hooks)
			if err != nil {
				return control{}, err
			}
			matched = valuesEqual(subject, patVal)
		}
		if !matched {
			continue
		}
		child := env.Clone()
		ctrl, err := p.execStmts(ctx, c.Body, child, hooks)
		if err != nil {
			return control{}, err
		}
		for k, v := range child.writes(env) {
			env.Set(k, v)
		}
		if ctrl.kind == controlReturn {
			return ctrl, nil
		}
		return control{}, nil
	}
	return control{}, nil
}

func toSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("interp: value of type %T is not iterable", v)
	}
}
