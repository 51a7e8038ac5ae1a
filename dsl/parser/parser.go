// Package parser implements a hand-rolled recursive-descent parser for the
// StreetRace DSL over the indentation-aware token stream produced by
// package lexer. Go's ecosystem has no maintained Earley runtime, so
// recursive descent is used here, with indentation already resolved into
// INDENT/DEDENT tokens by the lexer.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/lexer"
)

// ParseError is returned for a syntax error the parser cannot recover from.
type ParseError struct {
	Pos lexer.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Parser consumes a token slice produced by lexer.Lexer.Tokens and builds
// an ast.Program. Token positions propagate directly into every node.
type Parser struct {
	toks []lexer.Token
	pos  int
	file string
}

// New returns a Parser over toks, originating from file (used only for
// error messages; node positions already carry their own file from the
// lexer).
func New(file string, toks []lexer.Token) *Parser {
	return &Parser{toks: toks, file: file}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool       { return p.cur().Kind == lexer.EOF }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) checkKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == lexer.KEYWORD && strings.EqualFold(t.Text, kw)
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if !p.check(k) {
		return lexer.Token{}, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("expected %s, got %q", what, p.cur().Text)}
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) (lexer.Token, error) {
	if !p.checkKeyword(kw) {
		return lexer.Token{}, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("expected keyword %q, got %q", kw, p.cur().Text)}
	}
	return p.advance(), nil
}

// skipNewlines consumes zero or more NEWLINE tokens, used between
// statements and around blank lines.
func (p *Parser) skipNewlines() {
	for p.check(lexer.NEWLINE) {
		p.advance()
	}
}

// Parse parses the entire token stream into a Program, or returns the
// first syntax error encountered. Diagnostics for recoverable issues are
// not produced by this stage — the hand-rolled parser treats all syntax
// problems as fatal; only the semantic analyzer emits recoverable
// diagnostics.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{File: p.file}
	p.skipNewlines()

	if p.atEOF() {
		return nil, &ParseError{Pos: p.cur().Pos, Msg: "empty source file: missing version declaration"}
	}

	ver, err := p.parseVersion()
	if err != nil {
		return nil, err
	}
	prog.Version = ver
	p.skipNewlines()

	for !p.atEOF() {
		def, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		if def != nil {
			prog.Definitions = append(prog.Definitions, def)
		}
		p.skipNewlines()
	}
	return prog, nil
}

func (p *Parser) parseVersion() (ast.VersionDecl, error) {
	start := p.cur().Pos
	if _, err := p.expectKeyword("streetrace"); err != nil {
		return ast.VersionDecl{}, &ParseError{Pos: start, Msg: "missing version declaration: expected 'streetrace v<major>.<minor>'"}
	}
	tok, err := p.expect(lexer.IDENT, "version literal (e.g. v1)")
	if err != nil {
		return ast.VersionDecl{}, err
	}
	text := strings.TrimPrefix(strings.ToLower(tok.Text), "v")
	major, minor := 1, 0
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		major, _ = strconv.Atoi(text[:dot])
		minor, _ = strconv.Atoi(text[dot+1:])
	} else if text != "" {
		major, _ = strconv.Atoi(text)
	}
	p.skipNewlines()
	return ast.VersionDecl{Major: major, Minor: minor}, nil
}

func (p *Parser) parseTopLevel() (ast.Node, error) {
	switch {
	case p.checkKeyword("model"):
		return p.parseModel()
	case p.checkKeyword("tool"):
		return p.parseTool()
	case p.checkKeyword("schema"):
		return p.parseSchema()
	case p.checkKeyword("prompt"):
		return p.parsePrompt(ast.PromptFlowLevel)
	case p.checkKeyword("agent"):
		return p.parseAgent()
	case p.checkKeyword("flow"):
		return p.parseFlow()
	default:
		return nil, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("unexpected top-level token %q", p.cur().Text)}
	}
}

func (p *Parser) parseModel() (*ast.ModelDef, error) {
	p.advance() // 'model'
	name, err := p.expect(lexer.IDENT, "model name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	str, err := p.expect(lexer.STRING, "model identifier string")
	if err != nil {
		return nil, err
	}
	return &ast.ModelDef{Name: name.Text, Identifier: str.Text}, nil
}

func (p *Parser) parseTool() (*ast.ToolDef, error) {
	start := p.advance().Pos // 'tool'
	name, err := p.expect(lexer.IDENT, "tool name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	def := &ast.ToolDef{Name: name.Text}
	def.StartPos = start
	switch {
	case p.checkKeyword("builtin"):
		p.advance()
		mod, err := p.parseDottedPath()
		if err != nil {
			return nil, err
		}
		def.Kind = ast.ToolRefBuiltin
		idx := strings.LastIndex(mod, ".")
		if idx < 0 {
			def.Module, def.Function = mod, ""
		} else {
			def.Module, def.Function = mod[:idx], mod[idx+1:]
		}
	case p.checkKeyword("mcp"):
		p.advance()
		def.Kind = ast.ToolRefRemote
		urlOrCmd, err := p.expect(lexer.STRING, "transport target (command or URL)")
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(urlOrCmd.Text, "http") {
			def.Transport = "http"
			def.URL = urlOrCmd.Text
		} else {
			def.Transport = "stdio"
			def.Command = urlOrCmd.Text
		}
	default:
		tok, err := p.expect(lexer.STRING, "direct callable import path")
		if err != nil {
			return nil, err
		}
		def.Kind = ast.ToolRefDirect
		def.ImportPath = tok.Text
	}
	return def, nil
}

func (p *Parser) parseDottedPath() (string, error) {
	var sb strings.Builder
	tok, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return "", err
	}
	sb.WriteString(tok.Text)
	for p.check(lexer.DOT) {
		p.advance()
		tok, err := p.expect(lexer.IDENT, "identifier")
		if err != nil {
			return "", err
		}
		sb.WriteByte('.')
		sb.WriteString(tok.Text)
	}
	return sb.String(), nil
}

func (p *Parser) parseSchema() (*ast.SchemaDef, error) {
	p.advance() // 'schema'
	name, err := p.expect(lexer.IDENT, "schema name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.INDENT, "indented schema body"); err != nil {
		return nil, err
	}
	def := &ast.SchemaDef{Name: name.Text}
	for !p.check(lexer.DEDENT) && !p.atEOF() {
		field, err := p.parseSchemaField()
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, field)
		p.skipNewlines()
	}
	if p.check(lexer.DEDENT) {
		p.advance()
	}
	return def, nil
}

func (p *Parser) parseSchemaField() (ast.SchemaField, error) {
	name, err := p.expect(lexer.IDENT, "field name")
	if err != nil {
		return ast.SchemaField{}, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return ast.SchemaField{}, err
	}
	field := ast.SchemaField{Name: name.Text}
	if p.check(lexer.IDENT) && p.cur().Text == "list" {
		p.advance()
		// tolerate "list string" without 'of'
		if p.check(lexer.IDENT) && p.cur().Text == "of" {
			p.advance()
		}
		elem, err := p.expect(lexer.IDENT, "element type")
		if err != nil {
			return ast.SchemaField{}, err
		}
		field.Type = "list"
		field.ListOf = elem.Text
		return field, nil
	}
	typ, err := p.expect(lexer.IDENT, "field type")
	if err != nil {
		return ast.SchemaField{}, err
	}
	field.Type = typ.Text
	if p.checkOp("?") {
		p.advance()
		field.Optional = true
	}
	return field, nil
}

func (p *Parser) checkOp(op string) bool {
	t := p.cur()
	return t.Kind == lexer.OP && t.Text == op
}

func (p *Parser) parsePrompt(kind ast.PromptKind) (*ast.PromptDef, error) {
	p.advance() // 'prompt'
	name, err := p.expect(lexer.IDENT, "prompt name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	text := ""
	if p.check(lexer.INDENT) {
		p.advance()
		if p.check(lexer.STRING) {
			text = p.advance().Text
			p.skipNewlines()
		}
		for !p.check(lexer.DEDENT) && !p.atEOF() {
			p.advance()
		}
		if p.check(lexer.DEDENT) {
			p.advance()
		}
	} else if p.check(lexer.STRING) {
		text = p.advance().Text
	}
	return &ast.PromptDef{Name: name.Text, Kind: kind, Text: text}, nil
}

func (p *Parser) parseAgent() (*ast.AgentDef, error) {
	p.advance() // 'agent'
	name, err := p.expect(lexer.IDENT, "agent name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.INDENT, "indented agent body"); err != nil {
		return nil, err
	}
	def := &ast.AgentDef{Name: name.Text}
	for !p.check(lexer.DEDENT) && !p.atEOF() {
		if err := p.parseAgentMember(def); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	if p.check(lexer.DEDENT) {
		p.advance()
	}
	return def, nil
}

func (p *Parser) parseAgentMember(def *ast.AgentDef) error {
	switch {
	case p.checkKeyword("instruction"):
		p.advance()
		tok, err := p.expect(lexer.STRING, "instruction text")
		if err != nil {
			return err
		}
		def.Instruction = tok.Text
		return nil
	case p.checkKeyword("tools"):
		p.advance()
		names, err := p.parseIdentList()
		if err != nil {
			return err
		}
		def.Tools = names
		return nil
	case p.checkKeyword("model"):
		p.advance()
		tok, err := p.expect(lexer.IDENT, "model name")
		if err != nil {
			return err
		}
		def.Model = tok.Text
		return nil
	case p.checkKeyword("uses"):
		p.advance()
		names, err := p.parseNameBlockOrList()
		if err != nil {
			return err
		}
		def.Uses = names
		return nil
	case p.checkKeyword("delegate"):
		p.advance()
		names, err := p.parseNameBlockOrList()
		if err != nil {
			return err
		}
		def.Delegate = names
		return nil
	case p.checkKeyword("exports"):
		p.advance()
		names, err := p.parseNameBlockOrList()
		if err != nil {
			return err
		}
		def.Exports = names
		return nil
	case p.check(lexer.IDENT) && p.cur().Text == "history":
		p.advance()
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return err
		}
		tok, err := p.expect(lexer.IDENT, "compaction strategy")
		if err != nil {
			return err
		}
		switch tok.Text {
		case "truncate":
			def.Compaction = ast.CompactionTruncate
		case "summarize":
			def.Compaction = ast.CompactionSummarize
		}
		return nil
	case p.check(lexer.IDENT) && p.cur().Text == "max_input_tokens":
		p.advance()
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return err
		}
		tok, err := p.expect(lexer.NUMBER, "token count")
		if err != nil {
			return err
		}
		n, _ := strconv.Atoi(tok.Text)
		def.MaxInputTokens = n
		return nil
	case p.checkKeyword("on"):
		h, err := p.parseEventHandler()
		if err != nil {
			return err
		}
		def.Handlers = append(def.Handlers, h)
		return nil
	default:
		return &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("unexpected agent member %q", p.cur().Text)}
	}
}

// parseNameBlockOrList parses either `uses name1, name2` on one line, or
// `uses:` followed by an indented block of one name per line.
func (p *Parser) parseNameBlockOrList() ([]string, error) {
	if p.check(lexer.COLON) {
		p.advance()
		p.skipNewlines()
		var names []string
		if p.check(lexer.INDENT) {
			p.advance()
			for !p.check(lexer.DEDENT) && !p.atEOF() {
				tok, err := p.expect(lexer.IDENT, "name")
				if err != nil {
					return nil, err
				}
				names = append(names, tok.Text)
				p.skipNewlines()
			}
			if p.check(lexer.DEDENT) {
				p.advance()
			}
		}
		return names, nil
	}
	return p.parseIdentList()
}

func (p *Parser) parseIdentList() ([]string, error) {
	var names []string
	tok, err := p.expect(lexer.IDENT, "name")
	if err != nil {
		return nil, err
	}
	names = append(names, tok.Text)
	for p.check(lexer.COMMA) {
		p.advance()
		tok, err := p.expect(lexer.IDENT, "name")
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Text)
	}
	return names, nil
}

func (p *Parser) parseEventHandler() (ast.EventHandler, error) {
	p.advance() // 'on'
	if _, err := p.expectKeyword("event"); err != nil {
		return ast.EventHandler{}, err
	}
	name, err := p.expect(lexer.IDENT, "event type")
	if err != nil {
		return ast.EventHandler{}, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return ast.EventHandler{}, err
	}
	p.skipNewlines()
	h := ast.EventHandler{EventType: name.Text}
	if _, err := p.expect(lexer.INDENT, "indented handler body"); err != nil {
		return ast.EventHandler{}, err
	}
	for !p.check(lexer.DEDENT) && !p.atEOF() {
		action, err := p.parseGuardrailAction()
		if err != nil {
			return ast.EventHandler{}, err
		}
		h.Actions = append(h.Actions, action)
		p.skipNewlines()
	}
	if p.check(lexer.DEDENT) {
		p.advance()
	}
	return h, nil
}

func (p *Parser) parseGuardrailAction() (ast.GuardrailAction, error) {
	switch {
	case p.checkKeyword("mask"):
		p.advance()
		tok, err := p.expect(lexer.IDENT, "guardrail name")
		if err != nil {
			return ast.GuardrailAction{}, err
		}
		return ast.GuardrailAction{Kind: ast.GuardrailMask, GuardrailName: tok.Text}, nil
	case p.checkKeyword("block"):
		p.advance()
		msg := ""
		if p.check(lexer.STRING) {
			msg = p.advance().Text
		}
		return ast.GuardrailAction{Kind: ast.GuardrailBlock, Message: msg}, nil
	case p.checkKeyword("warn"):
		p.advance()
		msg := ""
		if p.check(lexer.STRING) {
			msg = p.advance().Text
		}
		return ast.GuardrailAction{Kind: ast.GuardrailWarn, Message: msg}, nil
	case p.checkKeyword("retry"):
		p.advance()
		cond, msg := "", ""
		if p.check(lexer.IDENT) && p.cur().Text == "condition" {
			p.advance()
			if p.check(lexer.STRING) {
				cond = p.advance().Text
			}
		}
		if p.check(lexer.IDENT) && p.cur().Text == "message" {
			p.advance()
			if p.check(lexer.STRING) {
				msg = p.advance().Text
			}
		}
		return ast.GuardrailAction{Kind: ast.GuardrailRetry, Condition: cond, Message: msg}, nil
	default:
		return ast.GuardrailAction{}, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("unknown guardrail action %q", p.cur().Text)}
	}
}

func (p *Parser) parseFlow() (*ast.FlowDef, error) {
	p.advance() // 'flow'
	name, err := p.expect(lexer.IDENT, "flow name")
	if err != nil {
		return nil, err
	}
	def := &ast.FlowDef{Name: name.Text}
	if p.check(lexer.LPAREN) {
		p.advance()
		for !p.check(lexer.RPAREN) {
			tok, err := p.expect(lexer.IDENT, "parameter name")
			if err != nil {
				return nil, err
			}
			def.Parameters = append(def.Parameters, tok.Text)
			if p.check(lexer.COMMA) {
				p.advance()
			}
		}
		p.advance() // ')'
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	def.Body = body
	return def, nil
}

// parseBlock parses an INDENT ... DEDENT delimited statement list. An
// empty block (no statements before DEDENT) is legal: the code generator
// emits a single pass-through statement for it.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.INDENT, "indented block"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.check(lexer.DEDENT) && !p.atEOF() {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			stmts = append(stmts, s)
		}
		p.skipNewlines()
	}
	if p.check(lexer.DEDENT) {
		p.advance()
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.check(lexer.DOLLAR):
		return p.parseAssignOrProperty()
	case p.checkKeyword("run"):
		return p.parseRunAgent()
	case p.checkKeyword("call"):
		return p.parseCall()
	case p.checkKeyword("log"):
		return p.parseLogOrNotify(false)
	case p.checkKeyword("notify"):
		return p.parseLogOrNotify(true)
	case p.checkKeyword("parallel"):
		return p.parseParallel()
	case p.checkKeyword("for"):
		return p.parseFor()
	case p.checkKeyword("match"):
		return p.parseMatch()
	case p.checkKeyword("return"):
		return p.parseReturn()
	case p.checkKeyword("continue"):
		p.advance()
		return &ast.ContinueStmt{}, nil
	default:
		return nil, &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf("unexpected statement start %q", p.cur().Text)}
	}
}

func (p *Parser) parseAssignOrProperty() (ast.Stmt, error) {
	p.advance() // '$'
	name, err := p.expect(lexer.IDENT, "variable name")
	if err != nil {
		return nil, err
	}
	var path []string
	for p.check(lexer.DOT) {
		p.advance()
		tok, err := p.expect(lexer.IDENT, "property name")
		if err != nil {
			return nil, err
		}
		path = append(path, tok.Text)
	}
	if _, err := p.expect(lexer.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return &ast.AssignStmt{Name: name.Text, Value: val}, nil
	}
	return &ast.PropertyAssignStmt{Name: name.Text, Path: path, Value: val}, nil
}

func (p *Parser) parseRunAgent() (ast.Stmt, error) {
	p.advance() // 'run'
	if _, err := p.expectKeyword("agent"); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT, "agent name")
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	resultVar, err := p.parseArrowResult()
	if err != nil {
		return nil, err
	}
	return &ast.RunAgentStmt{AgentName: name.Text, Args: args, ResultVar: resultVar}, nil
}

func (p *Parser) parseCall() (ast.Stmt, error) {
	p.advance() // 'call'
	switch {
	case p.checkKeyword("tool"):
		p.advance()
		name, err := p.parseDottedPath()
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		resultVar, err := p.parseArrowResult()
		if err != nil {
			return nil, err
		}
		return &ast.CallToolStmt{ToolName: name, Args: args, ResultVar: resultVar}, nil
	case p.checkKeyword("llm"):
		p.advance()
		prompt, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		resultVar, err := p.parseArrowResult()
		if err != nil {
			return nil, err
		}
		return &ast.CallLLMStmt{Prompt: prompt, ResultVar: resultVar}, nil
	default:
		return nil, &ParseError{Pos: p.cur().Pos, Msg: "expected 'tool' or 'llm' after 'call'"}
	}
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if !p.check(lexer.LPAREN) {
		return nil, nil
	}
	p.advance()
	var args []ast.Expr
	for !p.check(lexer.RPAREN) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.check(lexer.COMMA) {
			p.advance()
		}
	}
	p.advance() // ')'
	return args, nil
}

// parseArrowResult parses an optional `-> $name` suffix, used by
// run-agent/call-tool/call-llm statements to bind their result.
func (p *Parser) parseArrowResult() (string, error) {
	if p.checkOp("-") && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == lexer.OP && p.toks[p.pos+1].Text == ">" {
		p.advance()
		p.advance()
	} else if p.checkOp("->") {
		p.advance()
	} else {
		return "", nil
	}
	if !p.check(lexer.DOLLAR) {
		return "", &ParseError{Pos: p.cur().Pos, Msg: "expected '$name' after '->'"}
	}
	p.advance()
	tok, err := p.expect(lexer.IDENT, "result variable name")
	if err != nil {
		return "", err
	}
	return tok.Text, nil
}

func (p *Parser) parseLogOrNotify(notify bool) (ast.Stmt, error) {
	p.advance() // 'log' | 'notify'
	msg, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if notify {
		return &ast.NotifyStmt{Message: msg}, nil
	}
	return &ast.LogStmt{Message: msg}, nil
}

func (p *Parser) parseParallel() (ast.Stmt, error) {
	p.advance() // 'parallel'
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.INDENT, "indented parallel block"); err != nil {
		return nil, err
	}
	stmt := &ast.ParallelStmt{}
	for !p.check(lexer.DEDENT) && !p.atEOF() {
		if p.check(lexer.IDENT) && p.cur().Text == "branch" {
			p.advance()
			if _, err := p.expect(lexer.COLON, "':'"); err != nil {
				return nil, err
			}
			p.skipNewlines()
			branch, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Branches = append(stmt.Branches, branch)
		} else {
			// Flat form: bare statements each become a single-statement branch.
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			stmt.Branches = append(stmt.Branches, []ast.Stmt{s})
		}
		p.skipNewlines()
	}
	if p.check(lexer.DEDENT) {
		p.advance()
	}
	return stmt, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	p.advance() // 'for'
	if !p.check(lexer.DOLLAR) {
		return nil, &ParseError{Pos: p.cur().Pos, Msg: "expected '$var' after 'for'"}
	}
	p.advance()
	v, err := p.expect(lexer.IDENT, "loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	seq, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Var: v.Text, Seq: seq, Body: body}, nil
}

func (p *Parser) parseMatch() (ast.Stmt, error) {
	p.advance() // 'match'
	subject, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.INDENT, "indented match body"); err != nil {
		return nil, err
	}
	stmt := &ast.MatchStmt{Subject: subject}
	for !p.check(lexer.DEDENT) && !p.atEOF() {
		if _, err := p.expectKeyword("case"); err != nil {
			return nil, err
		}
		var pattern ast.Expr
		if p.check(lexer.IDENT) && p.cur().Text == "_" {
			p.advance()
		} else {
			pattern, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return nil, err
		}
		p.skipNewlines()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, ast.MatchCase{Pattern: pattern, Body: body})
		p.skipNewlines()
	}
	if p.check(lexer.DEDENT) {
		p.advance()
	}
	return stmt, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	p.advance() // 'return'
	if p.check(lexer.NEWLINE) || p.check(lexer.DEDENT) || p.atEOF() {
		return &ast.ReturnStmt{}, nil
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: v}, nil
}

// --- Expressions ---
// Precedence (low to high): or, and, comparison/equality, additive,
// multiplicative, unary, primary/postfix.

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.checkKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.checkKeyword("and") {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.OP && (p.cur().Text == "==" || p.cur().Text == "!=" || p.cur().Text == "<" || p.cur().Text == ">" || p.cur().Text == "<=" || p.cur().Text == ">=") {
		op := p.advance().Text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.OP && (p.cur().Text == "+" || p.cur().Text == "-") {
		op := p.advance().Text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.OP && (p.cur().Text == "*" || p.cur().Text == "/") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.checkKeyword("not") || (p.cur().Kind == lexer.OP && p.cur().Text == "!") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{Op: "not", Right: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.DOT) {
		p.advance()
		tok, err := p.expect(lexer.IDENT, "property name")
		if err != nil {
			return nil, err
		}
		pa, ok := e.(*ast.PropertyAccess)
		if ok {
			pa.Path = append(pa.Path, tok.Text)
		} else {
			e = &ast.PropertyAccess{Target: e, Path: []string{tok.Text}}
		}
	}
	return e, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.cur().Pos
	switch {
	case p.check(lexer.STRING):
		tok := p.advance()
		return parseStringLiteral(tok)
	case p.check(lexer.NUMBER):
		tok := p.advance()
		return &ast.Literal{Kind: ast.LitNumber, Text: tok.Text}, nil
	case p.checkKeyword("true"), p.checkKeyword("false"):
		tok := p.advance()
		return &ast.Literal{Kind: ast.LitBool, Text: strings.ToLower(tok.Text)}, nil
	case p.checkKeyword("none"):
		p.advance()
		return &ast.Literal{Kind: ast.LitNone}, nil
	case p.check(lexer.DOLLAR):
		p.advance()
		tok, err := p.expect(lexer.IDENT, "variable name")
		if err != nil {
			return nil, err
		}
		return &ast.VarRef{Name: tok.Text}, nil
	case p.check(lexer.LPAREN):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case p.check(lexer.IDENT):
		name := p.advance().Text
		if p.check(lexer.LPAREN) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{Func: name, Args: args}, nil
		}
		return &ast.VarRef{Name: name}, nil
	default:
		return nil, &ParseError{Pos: pos, Msg: fmt.Sprintf("unexpected expression token %q", p.cur().Text)}
	}
}

// parseStringLiteral lowers a raw string token into either a plain Literal
// or a ComposedString when it contains `${...}` interpolation markers.
func parseStringLiteral(tok lexer.Token) (ast.Expr, error) {
	if !strings.Contains(tok.Text, "${") {
		return &ast.Literal{Kind: ast.LitString, Text: tok.Text}, nil
	}
	return interpolate(tok)
}

func interpolate(tok lexer.Token) (ast.Expr, error) {
	src := tok.Text
	var parts []ast.Expr
	i := 0
	for i < len(src) {
		j := strings.Index(src[i:], "${")
		if j < 0 {
			parts = append(parts, &ast.Literal{Kind: ast.LitString, Text: src[i:]})
			break
		}
		if j > 0 {
			parts = append(parts, &ast.Literal{Kind: ast.LitString, Text: src[i : i+j]})
		}
		start := i + j + 2
		depth := 1
		k := start
		for k < len(src) && depth > 0 {
			switch src[k] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				break
			}
			k++
		}
		if depth != 0 {
			return nil, &ParseError{Pos: tok.Pos, Msg: "unterminated ${...} interpolation"}
		}
		inner := src[start:k]
		sub, err := parseInterpolationExpr(tok.Pos, inner)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub)
		i = k + 1
	}
	return &ast.ComposedString{Parts: parts}, nil
}

// parseInterpolationExpr parses the contents of `${...}` as a standalone
// expression by running a nested lexer/parser over the fragment text.
func parseInterpolationExpr(pos lexer.Position, src string) (ast.Expr, error) {
	lx := lexer.New(pos.File, src+"\n")
	toks, err := lx.Tokens()
	if err != nil {
		return nil, err
	}
	sub := New(pos.File, toks)
	return sub.parseExpr()
}
