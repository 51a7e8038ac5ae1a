package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/diag"
)

const validSource = `streetrace v1
tool reader = builtin fs.read_file
agent helper:
    instruction "be helpful"
    tools reader
`

func TestCompile_SecondCallOnIdenticalSourceHitsCacheAndReusesProgram(t *testing.T) {
	t.Parallel()

	d, err := New(0)
	require.NoError(t, err)

	first, err := d.Compile("a.sr", validSource)
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.False(t, first.Diagnostics.HasErrors())

	second, err := d.Compile("a.sr", validSource)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Same(t, first.Program, second.Program)
	require.Equal(t, first.Generated, second.Generated)
}

func TestCompile_DifferentSourceNeverSharesAProgram(t *testing.T) {
	t.Parallel()

	d, err := New(0)
	require.NoError(t, err)

	first, err := d.Compile("a.sr", validSource)
	require.NoError(t, err)

	other := validSource + "\nagent second:\n    instruction \"hi\"\n"
	second, err := d.Compile("a.sr", other)
	require.NoError(t, err)
	require.False(t, second.FromCache)
	require.NotSame(t, first.Program, second.Program)
}

func TestCompile_MissingInstructionProducesE0010(t *testing.T) {
	t.Parallel()

	d, err := New(0)
	require.NoError(t, err)

	result, err := d.Compile("a.sr", `streetrace v1
agent helper:
    tools reader
`)
	require.NoError(t, err)
	require.True(t, result.Diagnostics.HasErrors())

	var found *diag.Diagnostic
	for _, dd := range result.Diagnostics.All() {
		dd := dd
		if dd.Code == diag.CodeMissingRequiredProperty {
			found = &dd
		}
	}
	require.NotNil(t, found)
	require.Equal(t, `missing required property "instruction" in agent "helper"`, found.Message)
}

func TestCompile_LexErrorShortCircuitsBeforeParsing(t *testing.T) {
	t.Parallel()

	d, err := New(0)
	require.NoError(t, err)

	result, err := d.Compile("a.sr", "streetrace v1\n\"unterminated")
	require.NoError(t, err)
	require.Nil(t, result.Program)
	require.True(t, result.Diagnostics.HasErrors())
	require.Equal(t, diag.CodeSyntaxError, result.Diagnostics.All()[0].Code)
}

func TestCompile_ErrorSourceIsNeverCached(t *testing.T) {
	t.Parallel()

	d, err := New(0)
	require.NoError(t, err)

	bad := `streetrace v1
agent helper:
    tools reader
`
	first, err := d.Compile("a.sr", bad)
	require.NoError(t, err)
	require.True(t, first.Diagnostics.HasErrors())

	second, err := d.Compile("a.sr", bad)
	require.NoError(t, err)
	require.False(t, second.FromCache)
}
