package codegen

import (
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/sourcemap"
)

// Generate renders prog as a commented pseudo-Go listing annotated with
// source positions, for debug inspection.
// It returns the listing and the mappings recorded while emitting it;
// neither is consumed by program execution (package interp walks prog
// directly), so Generate's only job is human- and tool-readability.
func Generate(prog *ast.Program) (string, []sourcemap.Mapping) {
	e := New(prog.File)
	e.EmitRaw(fmt.Sprintf("// generated from %s (streetrace v%d.%d)", prog.File, prog.Version.Major, prog.Version.Minor))
	e.EmitBlank()
	for _, def := range prog.Definitions {
		emitDefinition(e, def)
		e.EmitBlank()
	}
	return e.Code(), e.Mappings()
}

func emitDefinition(e *Emitter, def ast.Node) {
	switch d := def.(type) {
	case *ast.ModelDef:
		e.Emit(fmt.Sprintf("var Model_%s = %q", d.Name, d.Identifier), d.Pos().Line)
	case *ast.ToolDef:
		e.Emit(fmt.Sprintf("var Tool_%s toolref", d.Name), d.Pos().Line)
	case *ast.SchemaDef:
		e.Emit(fmt.Sprintf("type %s struct {", d.Name), d.Pos().Line)
		e.Indent()
		for _, f := range d.Fields {
			e.EmitComment(fmt.Sprintf("%s %s (optional=%v)", f.Name, f.Type, f.Optional))
		}
		e.Dedent()
		e.EmitRaw("}")
	case *ast.PromptDef:
		e.Emit(fmt.Sprintf("const Prompt_%s = %q", d.Name, d.Text), d.Pos().Line)
	case *ast.AgentDef:
		e.Emit(fmt.Sprintf("func NewAgent_%s() *agentDef {", d.Name), d.Pos().Line)
		e.Indent()
		e.EmitComment(fmt.Sprintf("model=%s tools=%v uses=%v delegate=%v", d.Model, d.Tools, d.Uses, d.Delegate))
		e.Dedent()
		e.EmitRaw("}")
	case *ast.FlowDef:
		e.Emit(fmt.Sprintf("func Flow_%s(%v) {", d.Name, d.Parameters), d.Pos().Line)
		e.Indent()
		if len(d.Body) == 0 {
			e.Emit("return", 0)
		}
		emitStmts(e, d.Body)
		e.Dedent()
		e.EmitRaw("}")
	}
}

func emitStmts(e *Emitter, stmts []ast.Stmt) {
	for _, s := range stmts {
		emitStmt(e, s)
	}
}

func emitStmt(e *Emitter, s ast.Stmt) {
	line := s.Pos().Line
	switch st := s.(type) {
	case *ast.AssignStmt:
		e.Emit(fmt.Sprintf("%s := %s", st.Name, describeExpr(st.Value)), line)
	case *ast.PropertyAssignStmt:
		e.Emit(fmt.Sprintf("%s.%v = %s", st.Name, st.Path, describeExpr(st.Value)), line)
	case *ast.RunAgentStmt:
		e.Emit(fmt.Sprintf("%s := runAgent(%q, ...)", resultOrBlank(st.ResultVar), st.AgentName), line)
	case *ast.CallToolStmt:
		e.Emit(fmt.Sprintf("%s := callTool(%q, ...)", resultOrBlank(st.ResultVar), st.ToolName), line)
	case *ast.CallLLMStmt:
		e.Emit(fmt.Sprintf("%s := callLLM(%s)", resultOrBlank(st.ResultVar), describeExpr(st.Prompt)), line)
	case *ast.LogStmt:
		e.Emit(fmt.Sprintf("log(%s)", describeExpr(st.Message)), line)
	case *ast.NotifyStmt:
		e.Emit(fmt.Sprintf("notify(%s)", describeExpr(st.Message)), line)
	case *ast.ParallelStmt:
		e.Emit("parallel {", line)
		e.Indent()
		for i, branch := range st.Branches {
			e.EmitComment(fmt.Sprintf("branch %d", i))
			emitStmts(e, branch)
		}
		e.Dedent()
		e.EmitRaw("}")
	case *ast.ForStmt:
		e.Emit(fmt.Sprintf("for %s := range %s {", st.Var, describeExpr(st.Seq)), line)
		e.Indent()
		emitStmts(e, st.Body)
		e.Dedent()
		e.EmitRaw("}")
	case *ast.MatchStmt:
		e.Emit(fmt.Sprintf("switch %s {", describeExpr(st.Subject)), line)
		e.Indent()
		for _, c := range st.Cases {
			if c.Pattern == nil {
				e.EmitComment("default:")
			} else {
				e.EmitComment(fmt.Sprintf("case %s:", describeExpr(c.Pattern)))
			}
			emitStmts(e, c.Body)
		}
		e.Dedent()
		e.EmitRaw("}")
	case *ast.ReturnStmt:
		if st.Value != nil {
			e.Emit(fmt.Sprintf("return %s", describeExpr(st.Value)), line)
		} else {
			e.Emit("return", line)
		}
	case *ast.ContinueStmt:
		e.Emit("continue", line)
	case *ast.ExprStmt:
		e.Emit(describeExpr(st.Value), line)
	}
}

func resultOrBlank(name string) string {
	if name == "" {
		return "_"
	}
	return name
}

func describeExpr(e ast.Expr) string {
	switch ex := e.(type) {
	case *ast.Literal:
		return ex.Text
	case *ast.VarRef:
		return "$" + ex.Name
	case *ast.PropertyAccess:
		return fmt.Sprintf("%s.%v", describeExpr(ex.Target), ex.Path)
	case *ast.BinOp:
		if ex.Left == nil {
			return fmt.Sprintf("%s %s", ex.Op, describeExpr(ex.Right))
		}
		return fmt.Sprintf("%s %s %s", describeExpr(ex.Left), ex.Op, describeExpr(ex.Right))
	case *ast.CallExpr:
		return fmt.Sprintf("%s(...)", ex.Func)
	case *ast.ComposedString:
		return "f-string"
	default:
		return "<expr>"
	}
}
