// Package diag defines DSL compiler diagnostics: a stable error-code
// table and the Diagnostic value emitted by the lexer, parser, and
// semantic analyzer. Grounded on
// original_source/src/streetrace/dsl/errors/codes.py and
// dsl/semantic/errors.py, translated from a Python Enum + dataclass pair
// into a Go const block + struct.
package diag

import "fmt"

// Code is a stable diagnostic identifier following the E00xx/W0xxx
// convention.
type Code string

const (
	// CodeUndefinedReference: undefined reference to model/tool/agent/prompt.
	CodeUndefinedReference Code = "E0001"
	// CodeUsedBeforeDefinition: a flow variable read before assignment.
	CodeUsedBeforeDefinition Code = "E0002"
	// CodeDuplicateDefinition: a name redefined within the same scope.
	CodeDuplicateDefinition Code = "E0003"
	// CodeTypeMismatch: schema/type mismatch in an expression.
	CodeTypeMismatch Code = "E0004"
	// CodeImportNotFound: an imported/$ref file could not be located.
	CodeImportNotFound Code = "E0005"
	// CodeCircularImport: a $ref chain revisits a file already in progress.
	CodeCircularImport Code = "E0006"
	// CodeSyntaxError: invalid token or unexpected end of input.
	CodeSyntaxError Code = "E0007"
	// CodeIndentError: mismatched indentation (distinct from E0007).
	CodeIndentError Code = "E0008"
	// CodeInvalidGuardrailAction: a guardrail action unsupported for its
	// handler's event type, or missing a required argument.
	CodeInvalidGuardrailAction Code = "E0009"
	// CodeMissingRequiredProperty: e.g. an agent missing `instruction`.
	CodeMissingRequiredProperty Code = "E0010"
	// CodeCircularAgentReference: a cycle in the agent delegate graph.
	CodeCircularAgentReference Code = "E0011"
	// CodePromptUndefinedVariable: a prompt references a name not in scope.
	CodePromptUndefinedVariable Code = "E0015"
	// CodeInstructionRuntimeVariable: an instruction prompt references a
	// runtime-only ($var) variable.
	CodeInstructionRuntimeVariable Code = "E0016"
	// CodeDelegateAndUse: an agent declares both `delegate` and `use`
	// (warning only — the two relations are orthogonal).
	CodeDelegateAndUse Code = "W0002"
)

// Severity classifies a Diagnostic; only Error severity blocks code
// generation.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Position is the minimal source location carried by a Diagnostic; kept
// structurally identical to lexer.Position without importing it, so diag
// has no dependency on the lexer package.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Diagnostic is one compiler-reported finding.
type Diagnostic struct {
	Code       Code
	Severity   Severity
	Message    string
	Position   Position
	Suggestion string
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s[%s]: %s\n  --> %s", d.Severity, d.Code, d.Message, d.Position)
	if d.Suggestion != "" {
		s += fmt.Sprintf("\n  = help: %s", d.Suggestion)
	}
	return s
}

// messageTemplates mirrors ERROR_MESSAGES in errors/codes.py.
var messageTemplates = map[Code]string{
	CodeUndefinedReference:        "undefined reference to %s %q",
	CodeUsedBeforeDefinition:      "variable '$%s' used before definition",
	CodeDuplicateDefinition:       "duplicate definition of %s %q",
	CodeTypeMismatch:              "type mismatch: expected %s, got %s",
	CodeImportNotFound:            "import file not found: %s",
	CodeCircularImport:            "circular import detected: %s",
	CodeSyntaxError:               "invalid token or unexpected end of input: %s",
	CodeIndentError:               "mismatched indentation: %s",
	CodeInvalidGuardrailAction:    "invalid guardrail action %q in %s context",
	CodeMissingRequiredProperty:   "missing required property %q in %s %q",
	CodeCircularAgentReference:    "circular agent reference detected: %s",
	CodePromptUndefinedVariable:   "prompt %q references undefined variable '$%s'",
	CodeInstructionRuntimeVariable: "instruction %q references runtime variable '$%s'",
	CodeDelegateAndUse:            "agent %q has both delegate and use (unusual pattern)",
}

// New builds a Diagnostic, formatting its message from the code's template.
func New(code Code, sev Severity, pos Position, args ...any) Diagnostic {
	tmpl, ok := messageTemplates[code]
	msg := ""
	if ok {
		msg = fmt.Sprintf(tmpl, args...)
	}
	return Diagnostic{Code: code, Severity: sev, Message: msg, Position: pos}
}

// WithSuggestion returns a copy of d carrying a did-you-mean suggestion.
func (d Diagnostic) WithSuggestion(s string) Diagnostic {
	d.Suggestion = s
	return d
}

// Bag accumulates diagnostics across a single-file analysis pass.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic)         { b.items = append(b.items, d) }
func (b *Bag) All() []Diagnostic        { return append([]Diagnostic(nil), b.items...) }
func (b *Bag) Len() int                 { return len(b.items) }
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
