// Package lexer tokenizes StreetRace DSL source text. The lexer is
// indentation-sensitive in the manner of Python: a dedent stack tracks
// nesting depth and synthesizes INDENT/DEDENT tokens around logical lines,
// while token pairs nested inside parens/brackets/braces suppress
// indentation tracking entirely.
package lexer

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

// Token kinds. NEWLINE/INDENT/DEDENT are synthetic: NEWLINE is emitted once
// per logical (non-blank, non-continuation) source line; INDENT/DEDENT are
// emitted by the dedent-stack bookkeeping in Lexer.Next.
const (
	EOF Kind = iota
	NEWLINE
	INDENT
	DEDENT
	IDENT
	STRING
	NUMBER
	KEYWORD
	OP
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	COLON
	COMMA
	DOT
	DOLLAR
	ASSIGN
)

// Keywords recognized by the DSL. Identifiers matching one of these lex as
// KEYWORD instead of IDENT; the parser dispatches on Token.Text for these.
var Keywords = map[string]bool{
	"streetrace": true, "model": true, "tool": true, "schema": true,
	"prompt": true, "agent": true, "flow": true, "instruction": true,
	"tools": true, "uses": true, "exports": true, "delegate": true,
	"use": true, "run": true, "call": true, "llm": true, "parallel": true,
	"for": true, "in": true, "match": true, "case": true, "return": true,
	"continue": true, "log": true, "notify": true, "on": true, "event": true,
	"mask": true, "block": true, "warn": true, "retry": true, "builtin": true,
	"mcp": true, "import": true, "true": true, "false": true, "none": true,
	"and": true, "or": true, "not": true,
}

// Position is a source location: file name plus 1-indexed line/column.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Token is a single lexical unit with its originating position.
type Token struct {
	Kind Kind
	Text string
	Pos  Position
}

func (t Token) String() string {
	return fmt.Sprintf("%v(%q)@%s", t.Kind, t.Text, t.Pos)
}
