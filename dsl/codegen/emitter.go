// Package codegen renders a validated ast.Program into a human-readable
// generated-source listing with per-line source comments, and records
// the corresponding sourcemap.Mapping entries. It does not produce an
// executable artifact — Go has no runtime eval, so the executable form
// of a compiled program is the tree-walking representation built by
// package interp directly from the same ast.Program (see DESIGN.md,
// "compiled workload" entry). Emitter exists for debug listings and for
// the source maps that translate runtime errors back to DSL lines.
// Grounded on
// original_source/src/streetrace/dsl/codegen/emitter.go.
package codegen

import (
	"strings"

	"github.com/streetrace-ai/streetrace-sub005/dsl/sourcemap"
)

// DefaultIndent is the emitter's indentation unit.
const DefaultIndent = "    "

// Emitter accumulates generated lines with indentation and source-line
// tracking.
type Emitter struct {
	lines      []string
	indentStep string
	level      int
	sourceFile string
	mappings   []sourcemap.Mapping
}

// New returns an Emitter for sourceFile, the DSL file the generated
// output is derived from.
func New(sourceFile string) *Emitter {
	return &Emitter{indentStep: DefaultIndent, sourceFile: sourceFile}
}

// Emit appends one line of generated code at the current indentation
// level. When sourceLine > 0, a `// <file>:<line>` comment precedes
// it and a Mapping is recorded for the resulting generated line.
func (e *Emitter) Emit(code string, sourceLine int) {
	if sourceLine > 0 {
		e.emitSourceComment(sourceLine)
	}
	indent := strings.Repeat(e.indentStep, e.level)
	e.lines = append(e.lines, indent+code)
	if sourceLine > 0 {
		e.mappings = append(e.mappings, sourcemap.Mapping{
			GeneratedLine:   len(e.lines),
			GeneratedColumn: len(indent),
			SourceFile:      e.sourceFile,
			SourceLine:      sourceLine,
		})
	}
}

func (e *Emitter) emitSourceComment(sourceLine int) {
	indent := strings.Repeat(e.indentStep, e.level)
	e.lines = append(e.lines, indent+"// "+e.sourceFile+":"+itoa(sourceLine))
}

// EmitComment appends a comment-only line at the current indentation.
func (e *Emitter) EmitComment(text string) {
	indent := strings.Repeat(e.indentStep, e.level)
	e.lines = append(e.lines, indent+"// "+text)
}

// EmitBlank appends an empty line.
func (e *Emitter) EmitBlank() { e.lines = append(e.lines, "") }

// EmitRaw appends code with no indentation applied.
func (e *Emitter) EmitRaw(code string) { e.lines = append(e.lines, code) }

// Indent increases the current indentation level by one.
func (e *Emitter) Indent() { e.level++ }

// Dedent decreases the current indentation level by one, floored at zero.
func (e *Emitter) Dedent() {
	if e.level > 0 {
		e.level--
	}
}

// Code returns the full generated listing, newline-terminated.
func (e *Emitter) Code() string {
	if len(e.lines) == 0 {
		return ""
	}
	return strings.Join(e.lines, "\n") + "\n"
}

// Mappings returns the source mappings recorded so far.
func (e *Emitter) Mappings() []sourcemap.Mapping {
	out := make([]sourcemap.Mapping, len(e.mappings))
	copy(out, e.mappings)
	return out
}

// LineCount reports how many lines have been emitted.
func (e *Emitter) LineCount() int { return len(e.lines) }

// IndentLevel reports the current indentation depth.
func (e *Emitter) IndentLevel() int { return e.level }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
