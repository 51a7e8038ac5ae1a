package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.New("t.sr", src).Tokens()
	require.NoError(t, err)
	prog, err := New("t.sr", toks).Parse()
	require.NoError(t, err)
	return prog
}

func TestParse_VersionDeclaration(t *testing.T) {
	t.Parallel()

	prog := parse(t, "streetrace v1.2\n")
	require.Equal(t, 1, prog.Version.Major)
	require.Equal(t, 2, prog.Version.Minor)
}

func TestParse_MissingVersionIsAnError(t *testing.T) {
	t.Parallel()

	toks, err := lexer.New("t.sr", "model m = \"x\"\n").Tokens()
	require.NoError(t, err)
	_, err = New("t.sr", toks).Parse()
	require.Error(t, err)
}

func TestParse_ToolDefinitionVariants(t *testing.T) {
	t.Parallel()

	prog := parse(t, `streetrace v1
tool builtin_read = builtin fs.read_file
tool remote_stdio = mcp "my-server"
tool remote_http = mcp "http://localhost:9/mcp"
tool direct_tool = "pkg/mytool.Do"
`)
	require.Len(t, prog.Definitions, 4)

	builtin := prog.Definitions[0].(*ast.ToolDef)
	require.Equal(t, ast.ToolRefBuiltin, builtin.Kind)
	require.Equal(t, "fs", builtin.Module)
	require.Equal(t, "read_file", builtin.Function)

	stdio := prog.Definitions[1].(*ast.ToolDef)
	require.Equal(t, ast.ToolRefRemote, stdio.Kind)
	require.Equal(t, "stdio", stdio.Transport)
	require.Equal(t, "my-server", stdio.Command)

	httpTool := prog.Definitions[2].(*ast.ToolDef)
	require.Equal(t, "http", httpTool.Transport)
	require.Equal(t, "http://localhost:9/mcp", httpTool.URL)

	direct := prog.Definitions[3].(*ast.ToolDef)
	require.Equal(t, ast.ToolRefDirect, direct.Kind)
	require.Equal(t, "pkg/mytool.Do", direct.ImportPath)
}

func TestParse_SchemaFields(t *testing.T) {
	t.Parallel()

	prog := parse(t, `streetrace v1
schema Result:
    summary: string
    count: int?
`)
	schema := prog.Definitions[0].(*ast.SchemaDef)
	require.Len(t, schema.Fields, 2)
	require.Equal(t, "summary", schema.Fields[0].Name)
	require.Equal(t, "string", schema.Fields[0].Type)
	require.True(t, schema.Fields[1].Optional)
}

func TestParse_AgentMembers(t *testing.T) {
	t.Parallel()

	prog := parse(t, `streetrace v1
agent helper:
    instruction "be helpful"
    tools a, b
    uses c, d
    delegate e
`)
	agent := prog.Definitions[0].(*ast.AgentDef)
	require.Equal(t, "be helpful", agent.Instruction)
	require.Equal(t, []string{"a", "b"}, agent.Tools)
	require.Equal(t, []string{"c", "d"}, agent.Uses)
	require.Equal(t, []string{"e"}, agent.Delegate)
}

func TestParse_FlowStatementsAndExpressionPrecedence(t *testing.T) {
	t.Parallel()

	prog := parse(t, `streetrace v1
flow main():
    $x = 1 + 2 * 3
    $y = $x == 7 and not false
    return $y
`)
	flow := prog.Definitions[0].(*ast.FlowDef)
	require.Len(t, flow.Body, 3)

	assign := flow.Body[0].(*ast.AssignStmt)
	bin := assign.Value.(*ast.BinOp)
	require.Equal(t, "+", bin.Op)
	rhs := bin.Right.(*ast.BinOp)
	require.Equal(t, "*", rhs.Op)

	ret := flow.Body[2].(*ast.ReturnStmt)
	require.IsType(t, &ast.VarRef{}, ret.Value)
}

func TestParse_ParallelBranches(t *testing.T) {
	t.Parallel()

	prog := parse(t, `streetrace v1
flow main():
    parallel:
        branch:
            $a = 1
        branch:
            $b = 2
`)
	flow := prog.Definitions[0].(*ast.FlowDef)
	par := flow.Body[0].(*ast.ParallelStmt)
	require.Len(t, par.Branches, 2)
}

func TestParse_StringInterpolationLowersToComposedString(t *testing.T) {
	t.Parallel()

	prog := parse(t, `streetrace v1
flow main():
    log "hello ${$name}!"
`)
	flow := prog.Definitions[0].(*ast.FlowDef)
	logStmt := flow.Body[0].(*ast.LogStmt)
	composed, ok := logStmt.Message.(*ast.ComposedString)
	require.True(t, ok)
	require.Len(t, composed.Parts, 3)
	require.IsType(t, &ast.Literal{}, composed.Parts[0])
	require.IsType(t, &ast.VarRef{}, composed.Parts[1])
}

func TestParse_UnexpectedTopLevelTokenIsAParseError(t *testing.T) {
	t.Parallel()

	toks, err := lexer.New("t.sr", "streetrace v1\nbogus\n").Tokens()
	require.NoError(t, err)
	_, err = New("t.sr", toks).Parse()
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}
