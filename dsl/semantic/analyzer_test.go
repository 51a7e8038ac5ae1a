package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/diag"
	"github.com/streetrace-ai/streetrace-sub005/dsl/lexer"
	"github.com/streetrace-ai/streetrace-sub005/dsl/parser"
)

func analyze(t *testing.T, src string) *diag.Bag {
	t.Helper()
	toks, err := lexer.New("t.sr", src).Tokens()
	require.NoError(t, err)
	prog, err := parser.New("t.sr", toks).Parse()
	require.NoError(t, err)
	return New("t.sr").Analyze(prog)
}

func codesOf(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestAnalyze_MissingInstructionReportsCodeAndText(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
agent helper:
    tools a
`)
	require.True(t, bag.HasErrors())
	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeMissingRequiredProperty {
			found = true
			require.Equal(t, `missing required property "instruction" in agent "helper"`, d.Message)
		}
	}
	require.True(t, found, "expected a missing-instruction diagnostic")
}

func TestAnalyze_UndefinedToolReferenceSuggestsClosestName(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
tool reader = builtin fs.read_file
agent helper:
    instruction "hi"
    tools raeder
`)
	var found diag.Diagnostic
	for _, d := range bag.All() {
		if d.Code == diag.CodeUndefinedReference {
			found = d
		}
	}
	require.Equal(t, diag.CodeUndefinedReference, found.Code)
	require.Contains(t, found.Suggestion, "reader")
}

func TestAnalyze_DuplicateDefinitionDoesNotOverwriteFirst(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
model m = "a/one"
model m = "b/two"
`)
	require.Contains(t, codesOf(bag), diag.CodeDuplicateDefinition)
}

func TestAnalyze_DelegateAndUseTogetherIsOnlyAWarning(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
agent a:
    instruction "hi"
agent helper:
    instruction "hi"
    uses a
    delegate a
`)
	require.Contains(t, codesOf(bag), diag.CodeDelegateAndUse)
	require.False(t, bag.HasErrors(), "delegate+use is a warning, not an error")
}

func TestAnalyze_CircularDelegateReferenceIsDetected(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
agent a:
    instruction "hi"
    delegate b
agent b:
    instruction "hi"
    delegate a
`)
	require.Contains(t, codesOf(bag), diag.CodeCircularAgentReference)
}

func TestAnalyze_VariableUsedBeforeAssignmentInFlow(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
flow main():
    $y = $x
`)
	require.Contains(t, codesOf(bag), diag.CodeUsedBeforeDefinition)
}

func TestAnalyze_ForLoopVariableIsScopedToItsBody(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
flow main(items):
    for $item in $items:
        $x = $item
    $y = $item
`)
	require.Contains(t, codesOf(bag), diag.CodeUsedBeforeDefinition)
}

func TestAnalyze_ValidAgentProducesNoErrors(t *testing.T) {
	t.Parallel()

	bag := analyze(t, `streetrace v1
tool reader = builtin fs.read_file
agent helper:
    instruction "be helpful"
    tools reader
`)
	require.False(t, bag.HasErrors())
	require.Equal(t, 0, bag.Len())
}

func TestSuggestClosest(t *testing.T) {
	t.Parallel()

	require.Equal(t, "reader", suggestClosest("raeder", []string{"reader", "writer"}))
	require.Equal(t, "", suggestClosest("totallydifferent", []string{"reader"}))
}
