package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexer_SimpleAssignment(t *testing.T) {
	t.Parallel()

	toks, err := New("t.sr", "$x = 1\n").Tokens()
	require.NoError(t, err)
	require.Equal(t, []Kind{DOLLAR, IDENT, ASSIGN, NUMBER, NEWLINE, EOF}, kinds(toks))
}

func TestLexer_KeywordsAreCaseInsensitiveByLookup(t *testing.T) {
	t.Parallel()

	toks, err := New("t.sr", "Agent\n").Tokens()
	require.NoError(t, err)
	require.Equal(t, KEYWORD, toks[0].Kind)
}

func TestLexer_IndentAndDedent(t *testing.T) {
	t.Parallel()

	src := "flow f:\n    $x = 1\n    $y = 2\n"
	toks, err := New("t.sr", src).Tokens()
	require.NoError(t, err)
	require.Equal(t, []Kind{
		KEYWORD, IDENT, COLON, NEWLINE,
		INDENT,
		DOLLAR, IDENT, ASSIGN, NUMBER, NEWLINE,
		DOLLAR, IDENT, ASSIGN, NUMBER, NEWLINE,
		DEDENT, EOF,
	}, kinds(toks))
}

func TestLexer_MismatchedDedentIsAnIndentError(t *testing.T) {
	t.Parallel()

	src := "flow f:\n    $x = 1\n   $y = 2\n"
	_, err := New("t.sr", src).Tokens()
	require.Error(t, err)
	var indentErr *IndentError
	require.ErrorAs(t, err, &indentErr)
}

func TestLexer_UnterminatedStringIsASyntaxError(t *testing.T) {
	t.Parallel()

	_, err := New("t.sr", `"unterminated`).Tokens()
	require.Error(t, err)
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestLexer_ParensSuppressNewlineAndIndentTracking(t *testing.T) {
	t.Parallel()

	src := "call tool t(\n    1,\n    2\n) -> $r\n"
	toks, err := New("t.sr", src).Tokens()
	require.NoError(t, err)
	for _, k := range kinds(toks) {
		require.NotEqual(t, INDENT, k)
		require.NotEqual(t, DEDENT, k)
	}
}

func TestLexer_CommentsAreSkipped(t *testing.T) {
	t.Parallel()

	toks, err := New("t.sr", "# a comment\n$x = 1 # trailing\n").Tokens()
	require.NoError(t, err)
	require.Equal(t, []Kind{DOLLAR, IDENT, ASSIGN, NUMBER, NEWLINE, EOF}, kinds(toks))
}

func TestLexer_StringPreservesInterpolationMarkersVerbatim(t *testing.T) {
	t.Parallel()

	toks, err := New("t.sr", `"hello ${name}!"`+"\n").Tokens()
	require.NoError(t, err)
	require.Equal(t, "hello ${name}!", toks[0].Text)
}

func TestLexer_OperatorsLongestMatchFirst(t *testing.T) {
	t.Parallel()

	toks, err := New("t.sr", "1 != 2 && 3 <= 4\n").Tokens()
	require.NoError(t, err)
	var ops []string
	for _, tok := range toks {
		if tok.Kind == OP {
			ops = append(ops, tok.Text)
		}
	}
	require.Equal(t, []string{"!=", "&&", "<="}, ops)
}
