// Package compiler is the DSL compile driver: it wires together
// dsl/lexer, dsl/parser, dsl/semantic, dsl/codegen, dsl/sourcemap, and
// dsl/cache into a single entry point. A successful Compile produces a
// validated ast.Program ready for package interp to execute, plus a
// debug listing and source maps; a failing one returns the accumulated
// diagnostics without a usable Program.
package compiler

import (
	"fmt"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/cache"
	"github.com/streetrace-ai/streetrace-sub005/dsl/codegen"
	"github.com/streetrace-ai/streetrace-sub005/dsl/diag"
	"github.com/streetrace-ai/streetrace-sub005/dsl/lexer"
	"github.com/streetrace-ai/streetrace-sub005/dsl/parser"
	"github.com/streetrace-ai/streetrace-sub005/dsl/semantic"
	"github.com/streetrace-ai/streetrace-sub005/dsl/sourcemap"
)

// Result is the outcome of compiling one source file.
type Result struct {
	Program     *ast.Program
	Diagnostics *diag.Bag
	Generated   string
	Mappings    []sourcemap.Mapping
	FromCache   bool
}

// Driver owns the compile-time content-addressed cache so repeated
// compiles of unchanged source skip re-lexing/parsing/analyzing.
type Driver struct {
	cache *cache.Cache
}

// New returns a Driver with an LRU cache of the given capacity (0 uses
// cache.DefaultMaxSize).
func New(cacheSize int) (*Driver, error) {
	c, err := cache.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return &Driver{cache: c}, nil
}

// Compile lexes, parses, and semantically analyzes source (originating
// from file, used only in diagnostics), caching compiled work by the
// SHA-256 of source. The cache is consulted first: on a hit the stored
// Program, Generated listing, and Mappings are returned without lexing,
// parsing, analysis, or codegen.Generate, so two successive Compile
// calls on identical source return the same *ast.Program by identity.
// A cache hit carries an empty Diagnostics bag. Sources with errors are
// never cached.
func (d *Driver) Compile(file, source string) (*Result, error) {
	if entry, ok := d.cache.Get(source); ok {
		return &Result{
			Program:     entry.Program,
			Diagnostics: &diag.Bag{},
			Generated:   entry.Generated,
			Mappings:    entry.Mappings,
			FromCache:   true,
		}, nil
	}

	lx := lexer.New(file, source)
	toks, err := lx.Tokens()
	if err != nil {
		return d.lexError(file, err), nil
	}

	p := parser.New(file, toks)
	prog, err := p.Parse()
	if err != nil {
		return d.parseError(file, err), nil
	}

	analyzer := semantic.New(file)
	bag := analyzer.Analyze(prog)

	result := &Result{Program: prog, Diagnostics: bag}
	if bag.HasErrors() {
		return result, nil
	}

	generated, mappings := codegen.Generate(prog)
	d.cache.Put(source, cache.Entry{Program: prog, Generated: generated, Mappings: mappings})
	result.Generated = generated
	result.Mappings = mappings
	return result, nil
}

func (d *Driver) lexError(file string, err error) *Result {
	bag := &diag.Bag{}
	pos := diag.Position{File: file}
	msg := err.Error()
	switch e := err.(type) {
	case *lexer.IndentError:
		pos = diag.Position{File: e.Pos.File, Line: e.Pos.Line, Column: e.Pos.Column}
		bag.Add(diag.Diagnostic{Code: diag.CodeIndentError, Severity: diag.SeverityError, Message: e.Msg, Position: pos})
	case *lexer.SyntaxError:
		pos = diag.Position{File: e.Pos.File, Line: e.Pos.Line, Column: e.Pos.Column}
		bag.Add(diag.Diagnostic{Code: diag.CodeSyntaxError, Severity: diag.SeverityError, Message: e.Msg, Position: pos})
	default:
		bag.Add(diag.Diagnostic{Code: diag.CodeSyntaxError, Severity: diag.SeverityError, Message: msg, Position: pos})
	}
	return &Result{Diagnostics: bag}
}

func (d *Driver) parseError(file string, err error) *Result {
	bag := &diag.Bag{}
	pos := diag.Position{File: file}
	msg := err.Error()
	if pe, ok := err.(*parser.ParseError); ok {
		pos = diag.Position{File: pe.Pos.File, Line: pe.Pos.Line, Column: pe.Pos.Column}
		msg = pe.Msg
	}
	bag.Add(diag.Diagnostic{Code: diag.CodeSyntaxError, Severity: diag.SeverityError, Message: msg, Position: pos})
	return &Result{Diagnostics: bag}
}
