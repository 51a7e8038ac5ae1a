package semantic

import (
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/diag"
)

// Analyzer runs the five-step semantic pass over a parsed Program:
// (1) register every global definition, checking for duplicates;
// (2) validate agent bodies (required instruction, tool/use/delegate
// references, delegate+use interaction, delegate-graph cycles);
// (3) validate prompt variable references;
// (4) validate flow bodies (variable-before-assignment, tool/agent/flow
// call targets); (5) validate event-handler guardrail actions.
// Grounded on original_source/src/streetrace/dsl/semantic/{scope,errors}.py,
// reshaped around dsl/diag's stable error-code table.
type Analyzer struct {
	global *Scope
	bag    *diag.Bag
	file   string

	agents map[string]*ast.AgentDef
	tools  map[string]*ast.ToolDef
}

// New returns an Analyzer ready to check prog.
func New(file string) *Analyzer {
	return &Analyzer{
		global: NewScope(ScopeGlobal, nil),
		bag:    &diag.Bag{},
		file:   file,
		agents: make(map[string]*ast.AgentDef),
		tools:  make(map[string]*ast.ToolDef),
	}
}

func toDiagPos(p ast.Position) diag.Position {
	return diag.Position{File: p.File, Line: p.Line, Column: p.Column}
}

// Analyze runs the full pass and returns the accumulated diagnostics.
// HasErrors on the returned Bag reports whether code generation should be
// blocked.
func (a *Analyzer) Analyze(prog *ast.Program) *diag.Bag {
	a.registerGlobals(prog)
	for _, def := range prog.Definitions {
		switch d := def.(type) {
		case *ast.AgentDef:
			a.checkAgent(d)
		case *ast.PromptDef:
			a.checkPrompt(d)
		case *ast.FlowDef:
			a.checkFlow(d)
		}
	}
	a.checkDelegateCycles()
	return a.bag
}

// registerGlobals is step 1: define every top-level name, reporting
// duplicates (E0003) without overwriting the first definition.
func (a *Analyzer) registerGlobals(prog *ast.Program) {
	define := func(name string, kind SymbolKind, node ast.Node) {
		if a.global.IsDefinedLocally(name) {
			a.bag.Add(diag.New(diag.CodeDuplicateDefinition, diag.SeverityError, toDiagPos(node.Pos()), kind.String(), name))
			return
		}
		a.global.Define(name, kind, node)
	}
	for _, def := range prog.Definitions {
		switch d := def.(type) {
		case *ast.ModelDef:
			define(d.Name, SymModel, d)
		case *ast.ToolDef:
			define(d.Name, SymTool, d)
			a.tools[d.Name] = d
		case *ast.SchemaDef:
			define(d.Name, SymSchema, d)
		case *ast.PromptDef:
			define(d.Name, SymPrompt, d)
		case *ast.AgentDef:
			define(d.Name, SymAgent, d)
			a.agents[d.Name] = d
		case *ast.FlowDef:
			define(d.Name, SymFlow, d)
		case *ast.RetryPolicy:
			define(d.Name, SymRetryPolicy, d)
		case *ast.TimeoutPolicy:
			define(d.Name, SymTimeoutPolicy, d)
		}
	}
}

// checkAgent is step 2: required instruction (E0010), tool/use/delegate
// reference resolution (E0001 with did-you-mean), and the delegate+use
// co-occurrence warning (W0002).
func (a *Analyzer) checkAgent(d *ast.AgentDef) {
	pos := toDiagPos(d.Pos())
	if d.Instruction == "" && d.InstructionNode == nil {
		a.bag.Add(diag.New(diag.CodeMissingRequiredProperty, diag.SeverityError, pos, "instruction", "agent", d.Name))
	}
	for _, tname := range d.Tools {
		if _, ok := a.global.Lookup(tname); !ok {
			a.reportUndefined(pos, "tool", tname, SymTool)
		}
	}
	for _, aname := range d.Uses {
		a.checkAgentRef(pos, aname)
	}
	for _, aname := range d.Delegate {
		a.checkAgentRef(pos, aname)
	}
	if len(d.Delegate) > 0 && len(d.Uses) > 0 {
		a.bag.Add(diag.New(diag.CodeDelegateAndUse, diag.SeverityWarning, pos, d.Name))
	}
	for _, h := range d.Handlers {
		a.checkEventHandler(h)
	}
}

func (a *Analyzer) checkAgentRef(pos diag.Position, name string) {
	if _, ok := a.global.Lookup(name); !ok {
		a.reportUndefined(pos, "agent", name, SymAgent)
	}
}

func (a *Analyzer) reportUndefined(pos diag.Position, kind, name string, symKind SymbolKind) {
	d := diag.New(diag.CodeUndefinedReference, diag.SeverityError, pos, kind, name)
	if s := suggestClosest(name, a.global.NamesOfKind(symKind)); s != "" {
		d = d.WithSuggestion(fmt.Sprintf("did you mean %q?", s))
	}
	a.bag.Add(d)
}

// checkEventHandler is step 5: every guardrail action carries the
// arguments its kind requires (E0009).
func (a *Analyzer) checkEventHandler(h ast.EventHandler) {
	for _, act := range h.Actions {
		pos := toDiagPos(act.Pos())
		switch act.Kind {
		case ast.GuardrailMask:
			if act.GuardrailName == "" {
				a.bag.Add(diag.New(diag.CodeInvalidGuardrailAction, diag.SeverityError, pos, "mask", h.EventType))
			}
		case ast.GuardrailRetry:
			if act.Condition == "" || act.Message == "" {
				a.bag.Add(diag.New(diag.CodeInvalidGuardrailAction, diag.SeverityError, pos, "retry", h.EventType))
			}
		}
	}
}

// checkPrompt is step 3: every `$name` substitution inside a prompt body
// must resolve to a global variable-capable symbol, and an instruction
// prompt (materialized once at agent construction) may not reference a
// runtime-only flow variable (E0016).
func (a *Analyzer) checkPrompt(d *ast.PromptDef) {
	for _, name := range extractPromptVars(d.Text) {
		if d.Kind == ast.PromptInstruction {
			a.bag.Add(diag.New(diag.CodeInstructionRuntimeVariable, diag.SeverityError, toDiagPos(d.Pos()), d.Name, name))
			continue
		}
		if _, ok := a.global.Lookup(name); !ok {
			a.bag.Add(diag.New(diag.CodePromptUndefinedVariable, diag.SeverityError, toDiagPos(d.Pos()), d.Name, name))
		}
	}
}

// extractPromptVars scans raw prompt text for `${name...}` and bare
// `$name` substitution markers, returning the leading identifier of each.
func extractPromptVars(text string) []string {
	var names []string
	for i := 0; i < len(text); i++ {
		if text[i] != '$' {
			continue
		}
		j := i + 1
		brace := false
		if j < len(text) && text[j] == '{' {
			brace = true
			j++
		}
		start := j
		for j < len(text) && (isNameByte(text[j])) {
			j++
		}
		if j > start {
			names = append(names, text[start:j])
		}
		if brace {
			for j < len(text) && text[j] != '}' {
				j++
			}
		}
		i = j
	}
	return names
}

func isNameByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// checkFlow is step 4: parameters seed the flow scope, then each
// statement is checked for variable-before-assignment (E0002) and
// undefined tool/agent/flow call targets (E0001).
func (a *Analyzer) checkFlow(d *ast.FlowDef) {
	scope := NewScope(ScopeFlow, a.global)
	for _, p := range d.Parameters {
		scope.Define(p, SymParameter, d)
	}
	a.checkStmts(d.Body, scope)
}

func (a *Analyzer) checkStmts(stmts []ast.Stmt, scope *Scope) {
	for _, s := range stmts {
		a.checkStmt(s, scope)
	}
}

func (a *Analyzer) checkStmt(s ast.Stmt, scope *Scope) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		a.checkExpr(st.Value, scope)
		scope.Define(st.Name, SymVariable, st)
	case *ast.PropertyAssignStmt:
		a.checkVarUse(st.Name, toDiagPos(st.Pos()), scope)
		a.checkExpr(st.Value, scope)
	case *ast.RunAgentStmt:
		a.checkAgentRef(toDiagPos(st.Pos()), st.AgentName)
		for _, arg := range st.Args {
			a.checkExpr(arg, scope)
		}
		if st.ResultVar != "" {
			scope.Define(st.ResultVar, SymVariable, st)
		}
	case *ast.CallToolStmt:
		if _, ok := a.global.Lookup(st.ToolName); !ok {
			a.reportUndefined(toDiagPos(st.Pos()), "tool", st.ToolName, SymTool)
		}
		for _, arg := range st.Args {
			a.checkExpr(arg, scope)
		}
		if st.ResultVar != "" {
			scope.Define(st.ResultVar, SymVariable, st)
		}
	case *ast.CallLLMStmt:
		a.checkExpr(st.Prompt, scope)
		if st.ResultVar != "" {
			scope.Define(st.ResultVar, SymVariable, st)
		}
	case *ast.LogStmt:
		a.checkExpr(st.Message, scope)
	case *ast.NotifyStmt:
		a.checkExpr(st.Message, scope)
	case *ast.ParallelStmt:
		for _, branch := range st.Branches {
			// Each branch runs in an isolated copy-on-write child scope;
			// writes inside one branch never become visible to a sibling.
			child := NewScope(ScopeBlock, scope)
			a.checkStmts(branch, child)
		}
	case *ast.ForStmt:
		a.checkExpr(st.Seq, scope)
		child := NewScope(ScopeBlock, scope)
		child.Define(st.Var, SymVariable, st)
		a.checkStmts(st.Body, child)
	case *ast.MatchStmt:
		a.checkExpr(st.Subject, scope)
		for _, c := range st.Cases {
			if c.Pattern != nil {
				a.checkExpr(c.Pattern, scope)
			}
			child := NewScope(ScopeBlock, scope)
			a.checkStmts(c.Body, child)
		}
	case *ast.ReturnStmt:
		if st.Value != nil {
			a.checkExpr(st.Value, scope)
		}
	case *ast.ExprStmt:
		a.checkExpr(st.Value, scope)
	}
}

func (a *Analyzer) checkExpr(e ast.Expr, scope *Scope) {
	switch ex := e.(type) {
	case *ast.VarRef:
		a.checkVarUse(ex.Name, toDiagPos(ex.Pos()), scope)
	case *ast.PropertyAccess:
		a.checkExpr(ex.Target, scope)
	case *ast.BinOp:
		if ex.Left != nil {
			a.checkExpr(ex.Left, scope)
		}
		if ex.Right != nil {
			a.checkExpr(ex.Right, scope)
		}
	case *ast.CallExpr:
		for _, arg := range ex.Args {
			a.checkExpr(arg, scope)
		}
	case *ast.ComposedString:
		for _, part := range ex.Parts {
			a.checkExpr(part, scope)
		}
	}
}

// checkVarUse is the variable-before-assignment check (E0002): a
// reference must resolve to a variable/parameter already defined in an
// enclosing flow/block scope.
func (a *Analyzer) checkVarUse(name string, pos diag.Position, scope *Scope) {
	if sym, ok := scope.Lookup(name); ok && (sym.Kind == SymVariable || sym.Kind == SymParameter) {
		return
	}
	a.bag.Add(diag.New(diag.CodeUsedBeforeDefinition, diag.SeverityError, pos, name))
}

// checkDelegateCycles is the final step: detect cycles in the agent
// delegate graph (E0011) via a recursive DFS with white/gray/black
// colouring, where reaching a gray node closes a cycle.
func (a *Analyzer) checkDelegateCycles() {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(a.agents))
	var visit func(name string, path []string) []string
	visit = func(name string, path []string) []string {
		color[name] = gray
		path = append(path, name)
		ag, ok := a.agents[name]
		if ok {
			for _, next := range ag.Delegate {
				if _, known := a.agents[next]; !known {
					continue
				}
				switch color[next] {
				case gray:
					return append(append([]string(nil), path...), next)
				case white:
					if cyc := visit(next, path); cyc != nil {
						return cyc
					}
				}
			}
		}
		color[name] = black
		return nil
	}
	for name, ag := range a.agents {
		if color[name] != white {
			continue
		}
		if cyc := visit(name, nil); cyc != nil {
			a.bag.Add(diag.New(diag.CodeCircularAgentReference, diag.SeverityError, toDiagPos(ag.Pos()), formatCycle(cyc)))
		}
	}
}

func formatCycle(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}
