package interp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
)

// eval evaluates e against env, invoking hooks for the rare expression
// forms that require a host call (currently none — calls inside
// interpolated strings are limited to pure helper functions, see
// evalCall).
func (p *Program) eval(ctx context.Context, e ast.Expr, env *Env, hooks Hooks) (any, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return evalLiteral(ex)
	case *ast.VarRef:
		v, ok := env.Get(ex.Name)
		if !ok {
			return nil, fmt.Errorf("interp: variable $%s has no binding", ex.Name)
		}
		return v, nil
	case *ast.PropertyAccess:
		base, err := p.eval(ctx, ex.Target, env, hooks)
		if err != nil {
			return nil, err
		}
		return walkProperty(base, ex.Path), nil
	case *ast.BinOp:
		return p.evalBinOp(ctx, ex, env, hooks)
	case *ast.CallExpr:
		return p.evalCall(ctx, ex, env, hooks)
	case *ast.ComposedString:
		var sb strings.Builder
		for _, part := range ex.Parts {
			v, err := p.eval(ctx, part, env, hooks)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			sb.WriteString(fmt.Sprint(v))
		}
		return sb.String(), nil
	default:
		return nil, fmt.Errorf("interp: unsupported expression %T", e)
	}
}

func evalLiteral(l *ast.Literal) (any, error) {
	switch l.Kind {
	case ast.LitString:
		return l.Text, nil
	case ast.LitNumber:
		if strings.Contains(l.Text, ".") {
			return strconv.ParseFloat(l.Text, 64)
		}
		return strconv.Atoi(l.Text)
	case ast.LitBool:
		return l.Text == "true", nil
	case ast.LitNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("interp: unknown literal kind %d", l.Kind)
	}
}

// walkProperty follows a dotted property chain over a JSON-like value
// (map[string]any / []any / scalars), returning nil on any miss rather
// than panicking, so a missing property renders as an empty string
// instead of aborting the flow.
func walkProperty(base any, path []string) any {
	cur := base
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func (p *Program) evalBinOp(ctx context.Context, b *ast.BinOp, env *Env, hooks Hooks) (any, error) {
	if b.Op == "not" {
		v, err := p.eval(ctx, b.Right, env, hooks)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	left, err := p.eval(ctx, b.Left, env, hooks)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "and":
		if !truthy(left) {
			return false, nil
		}
		right, err := p.eval(ctx, b.Right, env, hooks)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "or":
		if truthy(left) {
			return true, nil
		}
		right, err := p.eval(ctx, b.Right, env, hooks)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}
	right, err := p.eval(ctx, b.Right, env, hooks)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "==":
		return valuesEqual(left, right), nil
	case "!=":
		return !valuesEqual(left, right), nil
	case "+", "-", "*", "/", "<", ">", "<=", ">=":
		return arith(b.Op, left, right)
	default:
		return nil, fmt.Errorf("interp: unsupported operator %q", b.Op)
	}
}

func arith(op string, left, right any) (any, error) {
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if op == "+" {
		ls, lIsStr := left.(string)
		rs, rIsStr := right.(string)
		if lIsStr || rIsStr {
			return fmt.Sprint(ls) + fmt.Sprint(rs), nil
		}
	}
	if !lok || !rok {
		return nil, fmt.Errorf("interp: operator %q requires numeric operands, got %T and %T", op, left, right)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("interp: division by zero")
		}
		return lf / rf, nil
	case "<":
		return lf < rf, nil
	case ">":
		return lf > rf, nil
	case "<=":
		return lf <= rf, nil
	case ">=":
		return lf >= rf, nil
	default:
		return nil, fmt.Errorf("interp: unsupported operator %q", op)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

// evalCall handles the small set of pure helper functions usable inside
// `${...}` interpolation, e.g. `${len(x)}`.
func (p *Program) evalCall(ctx context.Context, c *ast.CallExpr, env *Env, hooks Hooks) (any, error) {
	args, err := p.evalArgs(ctx, c.Args, env, hooks)
	if err != nil {
		return nil, err
	}
	switch c.Func {
	case "len":
		if len(args) != 1 {
			return nil, fmt.Errorf("interp: len() takes exactly one argument")
		}
		return length(args[0]), nil
	default:
		return nil, fmt.Errorf("interp: unknown function %q", c.Func)
	}
}

func length(v any) int {
	switch x := v.(type) {
	case string:
		return len(x)
	case []any:
		return len(x)
	case map[string]any:
		return len(x)
	default:
		return 0
	}
}
