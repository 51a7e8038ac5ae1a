package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/lexer"
	"github.com/streetrace-ai/streetrace-sub005/dsl/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.New("t.sr", src).Tokens()
	require.NoError(t, err)
	prog, err := parser.New("t.sr", toks).Parse()
	require.NoError(t, err)
	return prog
}

func TestGenerate_EmitsOneDefinitionPerTopLevelNode(t *testing.T) {
	t.Parallel()

	prog := mustParse(t, `streetrace v1
model m = "openai/gpt-4o"
flow main():
    $x = 1
    return $x
`)
	code, mappings := Generate(prog)
	require.Contains(t, code, `var Model_m = "openai/gpt-4o"`)
	require.Contains(t, code, "func Flow_main([]) {")
	require.Contains(t, code, "x := 1")
	require.Contains(t, code, "return $x")
	require.NotEmpty(t, mappings)
}

func TestGenerate_RecordsASourceMappingPerEmittedStatement(t *testing.T) {
	t.Parallel()

	prog := mustParse(t, `streetrace v1
flow main():
    $x = 1
    $y = 2
`)
	_, mappings := Generate(prog)
	// One mapping for the flow's own "func Flow_main(...) {" header line,
	// plus one per statement in its body.
	require.Len(t, mappings, 3)
	require.Equal(t, 2, mappings[0].SourceLine)
	require.Equal(t, 3, mappings[1].SourceLine)
	require.Equal(t, 4, mappings[2].SourceLine)
}

func TestGenerate_NestedBlocksIndentConsistently(t *testing.T) {
	t.Parallel()

	prog := mustParse(t, `streetrace v1
flow main():
    parallel:
        branch:
            $a = 1
        branch:
            $b = 2
`)
	code, _ := Generate(prog)
	lines := strings.Split(code, "\n")
	var branchLine, aLine, parallelLine string
	for i, l := range lines {
		if strings.Contains(l, "parallel {") {
			parallelLine = l
		}
		if strings.Contains(l, "branch 0") {
			branchLine = l
			aLine = lines[i+2] // skip the "// t.sr:N" source comment line
		}
	}
	require.NotEmpty(t, parallelLine)
	require.NotEmpty(t, branchLine)
	// Branch bodies sit at the same depth as their "branch N" marker, one
	// level deeper than the enclosing "parallel {" line.
	require.Equal(t, indentOf(branchLine), indentOf(aLine))
	require.Greater(t, indentOf(branchLine), indentOf(parallelLine))
}

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}
