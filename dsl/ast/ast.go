// Package ast defines the StreetRace DSL abstract syntax tree. Every node
// is a tagged-union value carrying a source Position. Go has no native sum
// types, so each variant is its own struct implementing the Node marker
// interface.
package ast

import "github.com/streetrace-ai/streetrace-sub005/dsl/lexer"

// Position is re-exported from the lexer so downstream packages only need
// to import ast.
type Position = lexer.Position

// Node is implemented by every AST variant. Pos returns the node's origin
// for diagnostics and source-map generation; End returns the position just
// past the node when known (zero Position otherwise).
type Node interface {
	Pos() Position
	End() Position
}

// base is embedded by every concrete node to provide Pos/End without
// repeating the boilerplate in each variant.
type base struct {
	StartPos Position
	EndPos   Position
}

func (b base) Pos() Position { return b.StartPos }
func (b base) End() Position { return b.EndPos }

// Program is the root of a compiled source file: a version declaration
// followed by top-level definitions (models, tools, schemas, prompts,
// agents, flows) in source order.
type Program struct {
	base
	File        string
	Version     VersionDecl
	Definitions []Node
}

// VersionDecl is the mandatory `streetrace v<major>.<minor>` header.
type VersionDecl struct {
	base
	Major, Minor int
}

// ModelDef declares a named model binding (`model m = "provider/name"`).
type ModelDef struct {
	base
	Name       string
	Identifier string
}

// ToolRefKind distinguishes the three tool-reference shapes a ToolDef can
// take: builtin, remote (MCP), and direct (registered Go callable).
type ToolRefKind int

const (
	ToolRefBuiltin ToolRefKind = iota
	ToolRefRemote
	ToolRefDirect
)

// ToolDef declares a named tool reference.
type ToolDef struct {
	base
	Name string
	Kind ToolRefKind

	// ToolRefBuiltin
	Module, Function string

	// ToolRefRemote
	Transport  string // "stdio" | "http" | "sse"
	Command    string
	Args       []string
	URL        string
	AuthEnvVar string // env var holding the bearer token sent as an Authorization header
	TimeoutSec int
	Allow      []string // tool-name allow-list, wildcards permitted

	// ToolRefDirect
	ImportPath string

	// Schema is an optional JSON Schema document constraining this
	// tool's call arguments; Provider.Materialize wraps the tool in a
	// validating decorator when non-empty.
	Schema []byte
}

// SchemaField is one field of a `schema` block.
type SchemaField struct {
	Name     string
	Type     string // "string" | "int" | "float" | "bool" | "list" | a schema name
	ListOf   string // element type when Type == "list"
	Optional bool
}

// SchemaDef declares a structured-output schema.
type SchemaDef struct {
	base
	Name   string
	Fields []SchemaField
}

// PromptKind distinguishes instruction prompts (agent-level, materialized
// once at agent creation) from flow-level prompts (materialized per call).
type PromptKind int

const (
	PromptInstruction PromptKind = iota
	PromptFlowLevel
)

// PromptDef declares a named prompt body, possibly containing $name and
// ${expr} substitutions.
type PromptDef struct {
	base
	Name string
	Kind PromptKind
	Text string
}

// RetryPolicy and TimeoutPolicy capture the corresponding named policy
// definitions referenced from agent run policies.
type RetryPolicy struct {
	base
	Name          string
	MaxAttempts   int
	InitialWaitMS int
	StepWaitMS    int
	MaxWaitMS     int
}

type TimeoutPolicy struct {
	base
	Name       string
	TimeoutSec int
}

// GuardrailActionKind enumerates the four event-handler actions.
type GuardrailActionKind int

const (
	GuardrailMask GuardrailActionKind = iota
	GuardrailBlock
	GuardrailWarn
	GuardrailRetry
)

// GuardrailAction is one action clause inside an EventHandler.
type GuardrailAction struct {
	base
	Kind          GuardrailActionKind
	GuardrailName string // required for Mask
	Condition     string // required for Retry
	Message       string // required for Retry; free text for Warn/Block
}

// EventHandler declares `on event <name>: <actions>`.
type EventHandler struct {
	base
	EventType string
	Actions   []GuardrailAction
}

// CompactionStrategy is the per-agent history compaction policy.
type CompactionStrategy int

const (
	CompactionNone CompactionStrategy = iota
	CompactionTruncate
	CompactionSummarize
)

// AgentDef declares an agent: instruction, tools, optional sub-agents via
// Uses/Delegate, optional Exports, and a compaction policy.
type AgentDef struct {
	base
	Name            string
	Description     string
	Instruction     string // inline instruction text, or PromptDef.Name reference
	InstructionNode *PromptDef
	Tools           []string // tool names referenced via `tools a, b`
	Uses            []string // sub-agent names (composition, not ownership)
	Delegate        []string // sub-agent names (delegation — run_agent capable)
	Exports         []string // toolset names exported to parents
	Model           string
	Compaction      CompactionStrategy
	MaxInputTokens  int
	Handlers        []EventHandler
}

// FlowDef declares a named imperative block of statements.
type FlowDef struct {
	base
	Name       string
	Parameters []string
	Body       []Stmt
}

// Stmt is implemented by every statement variant.
type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct{ base }

func (stmtBase) stmtNode() {}

// AssignStmt is `$name = expr`.
type AssignStmt struct {
	stmtBase
	Name  string
	Value Expr
}

// PropertyAssignStmt is `$name.prop = expr`.
type PropertyAssignStmt struct {
	stmtBase
	Name  string
	Path  []string
	Value Expr
}

// RunAgentStmt is `run agent <name>(args) -> $result`.
type RunAgentStmt struct {
	stmtBase
	AgentName string
	Args      []Expr
	ResultVar string
}

// CallToolStmt is `call tool <name>(args) -> $result`.
type CallToolStmt struct {
	stmtBase
	ToolName  string
	Args      []Expr
	ResultVar string
}

// CallLLMStmt is `call llm <prompt> -> $result` (bypasses the agent loop
// entirely).
type CallLLMStmt struct {
	stmtBase
	Prompt    Expr
	ResultVar string
}

// LogStmt / NotifyStmt are `log "..."` / `notify "..."` with possible
// ${expr} interpolation, already lowered by the transformer into a
// composed-string Expr.
type LogStmt struct {
	stmtBase
	Message Expr
}

type NotifyStmt struct {
	stmtBase
	Message Expr
}

// ParallelStmt is a `parallel: <branches>` block; each branch is itself a
// list of statements run in an isolated child context.
type ParallelStmt struct {
	stmtBase
	Branches [][]Stmt
}

// ForStmt is `for $x in $seq: <body>`.
type ForStmt struct {
	stmtBase
	Var  string
	Seq  Expr
	Body []Stmt
}

// MatchCase is one `case <pattern>:` arm of a MatchStmt.
type MatchCase struct {
	Pattern Expr // nil for the wildcard/default arm
	Body    []Stmt
}

// MatchStmt is `match expr: case ...`.
type MatchStmt struct {
	stmtBase
	Subject Expr
	Cases   []MatchCase
}

// ReturnStmt is `return expr`, a flow's explicit result.
type ReturnStmt struct {
	stmtBase
	Value Expr
}

// ContinueStmt is `continue`.
type ContinueStmt struct {
	stmtBase
}

// ExprStmt wraps a bare expression statement (mainly call-tool/run-agent
// spelled without assignment).
type ExprStmt struct {
	stmtBase
	Value Expr
}

// Expr is implemented by every expression variant.
type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ base }

func (exprBase) exprNode() {}

// LiteralKind enumerates literal expression kinds.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitNumber
	LitBool
	LitNone
)

type Literal struct {
	exprBase
	Kind LiteralKind
	Text string
}

// VarRef is `$name`.
type VarRef struct {
	exprBase
	Name string
}

// PropertyAccess is `$name.a.b.c` or `${expr.a.b}`.
type PropertyAccess struct {
	exprBase
	Target Expr
	Path   []string
}

// BinOp is a binary expression `a op b`.
type BinOp struct {
	exprBase
	Op          string
	Left, Right Expr
}

// CallExpr is a function-style call inside an interpolated string, e.g.
// `len(x)` in `${len(x)}`.
type CallExpr struct {
	exprBase
	Func string
	Args []Expr
}

// ComposedString is the lowered form of a `"... ${expr} ..."` interpolation
// literal: an ordered list of literal text and substitution expressions
// concatenated at evaluation time.
type ComposedString struct {
	exprBase
	Parts []Expr // each part is a Literal(LitString) or a substitution Expr
}
