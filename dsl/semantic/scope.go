// Package semantic implements the StreetRace DSL semantic analysis pass:
// hierarchical scope tracking, symbol resolution, and name-resolution
// diagnostics. Grounded on
// original_source/src/streetrace/dsl/semantic/scope.go and errors.py,
// translated from dataclasses into a parent-linked Go struct.
package semantic

import "github.com/streetrace-ai/streetrace-sub005/dsl/ast"

// SymbolKind classifies an entry in a Scope's symbol table.
type SymbolKind int

const (
	SymModel SymbolKind = iota
	SymSchema
	SymTool
	SymPrompt
	SymAgent
	SymFlow
	SymVariable
	SymParameter
	SymRetryPolicy
	SymTimeoutPolicy
)

func (k SymbolKind) String() string {
	switch k {
	case SymModel:
		return "model"
	case SymSchema:
		return "schema"
	case SymTool:
		return "tool"
	case SymPrompt:
		return "prompt"
	case SymAgent:
		return "agent"
	case SymFlow:
		return "flow"
	case SymVariable:
		return "variable"
	case SymParameter:
		return "parameter"
	case SymRetryPolicy:
		return "retry policy"
	case SymTimeoutPolicy:
		return "timeout policy"
	default:
		return "symbol"
	}
}

// ScopeType distinguishes the four nesting levels a DSL source file can
// introduce: global definitions, a flow body, an event handler body, and
// a nested block (parallel branch, for body, match arm).
type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeFlow
	ScopeHandler
	ScopeBlock
)

// Symbol is one named entity visible to DSL source, tracked for
// resolution and duplicate-definition checks.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	DefinedAt ast.Node
	TypeInfo  string
}

// Scope is a symbol table with parent-chain lookup, mirroring the
// source's hierarchical scope design.
type Scope struct {
	Type    ScopeType
	Parent  *Scope
	symbols map[string]Symbol
}

// NewScope returns an empty Scope of the given type, optionally nested
// under parent.
func NewScope(t ScopeType, parent *Scope) *Scope {
	return &Scope{Type: t, Parent: parent, symbols: make(map[string]Symbol)}
}

// Define adds name to this scope's local symbol table, overwriting any
// existing local entry. Callers that need duplicate-definition checks
// should call IsDefinedLocally first.
func (s *Scope) Define(name string, kind SymbolKind, node ast.Node) Symbol {
	sym := Symbol{Name: name, Kind: kind, DefinedAt: node}
	s.symbols[name] = sym
	return sym
}

// Lookup searches this scope and then each ancestor in turn.
func (s *Scope) Lookup(name string) (Symbol, bool) {
	if sym, ok := s.symbols[name]; ok {
		return sym, true
	}
	if s.Parent != nil {
		return s.Parent.Lookup(name)
	}
	return Symbol{}, false
}

// LookupLocal searches only this scope's own symbol table.
func (s *Scope) LookupLocal(name string) (Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// IsDefinedLocally reports whether name is already defined in this scope
// (not an ancestor).
func (s *Scope) IsDefinedLocally(name string) bool {
	_, ok := s.symbols[name]
	return ok
}

// AllSymbols returns a snapshot of this scope's local symbol table.
func (s *Scope) AllSymbols() map[string]Symbol {
	out := make(map[string]Symbol, len(s.symbols))
	for k, v := range s.symbols {
		out[k] = v
	}
	return out
}

// SymbolsOfKind returns every local symbol matching kind, for building
// did-you-mean candidate lists scoped to the reference's expected kind.
func (s *Scope) SymbolsOfKind(kind SymbolKind) []Symbol {
	var out []Symbol
	for _, sym := range s.symbols {
		if sym.Kind == kind {
			out = append(out, sym)
		}
	}
	return out
}

// NamesOfKind walks this scope and every ancestor, collecting all names
// of the given kind visible from here — the candidate pool for
// did-you-mean suggestions.
func (s *Scope) NamesOfKind(kind SymbolKind) []string {
	seen := map[string]bool{}
	var out []string
	for sc := s; sc != nil; sc = sc.Parent {
		for _, sym := range sc.SymbolsOfKind(kind) {
			if !seen[sym.Name] {
				seen[sym.Name] = true
				out = append(out, sym.Name)
			}
		}
	}
	return out
}
