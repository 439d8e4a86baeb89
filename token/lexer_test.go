package token_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	lex := token.NewLexer("test.pkl", []byte(src))
	var toks []token.Token
	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexer_Identifiers(t *testing.T) {
	toks := lexAll(t, "foo bar123 _x $y")
	require.Equal(t, []string{"foo", "bar123", "_x", "$y"}, []string{toks[0].Text, toks[1].Text, toks[2].Text, toks[3].Text})
	for _, tok := range toks[:4] {
		require.Equal(t, token.Ident, tok.Kind)
	}
}

func TestLexer_Keywords(t *testing.T) {
	toks := lexAll(t, "class amends local new")
	require.Equal(t, token.KwClass, toks[0].Kind)
	require.Equal(t, token.KwAmends, toks[1].Kind)
	require.Equal(t, token.KwLocal, toks[2].Kind)
	require.Equal(t, token.KwNew, toks[3].Kind)
}

func TestLexer_BacktickIdentifier(t *testing.T) {
	toks := lexAll(t, "`my var`")
	require.Equal(t, token.BacktickIdent, toks[0].Kind)
	require.Equal(t, "my var", toks[0].Text)
}

func TestLexer_Numbers(t *testing.T) {
	toks := lexAll(t, "0x1F 0b101 1_000 3.14 1e10 2.5e-3")
	require.Equal(t, token.IntLit, toks[0].Kind)
	require.Equal(t, token.IntLit, toks[1].Kind)
	require.Equal(t, token.IntLit, toks[2].Kind)
	require.Equal(t, token.FloatLit, toks[3].Kind)
	require.Equal(t, token.FloatLit, toks[4].Kind)
	require.Equal(t, token.FloatLit, toks[5].Kind)
}

func TestLexer_DotOperatorVsFloat(t *testing.T) {
	toks := lexAll(t, "1.toString()")
	require.Equal(t, token.IntLit, toks[0].Kind)
	require.Equal(t, token.Dot, toks[1].Kind)
}

func TestLexer_SimpleString(t *testing.T) {
	toks := lexAll(t, `"hello"`)
	require.Equal(t, token.StringStart, toks[0].Kind)
	require.Equal(t, token.StringPart, toks[1].Kind)
	require.Equal(t, "hello", toks[1].Text)
	require.Equal(t, token.StringEnd, toks[2].Kind)
	require.Equal(t, token.EOF, toks[3].Kind)
}

func TestLexer_StringInterpolation(t *testing.T) {
	toks := lexAll(t, `"a\(x)b"`)
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []token.Kind{
		token.StringStart,
		token.StringPart,
		token.StringInterpStart,
		token.Ident,
		token.StringInterpEnd,
		token.StringPart,
		token.StringEnd,
		token.EOF,
	}, kinds)
}

func TestLexer_PoundDelimitedString(t *testing.T) {
	toks := lexAll(t, `#"has "quotes" inside"#`)
	require.Equal(t, token.StringStart, toks[0].Kind)
	require.Equal(t, token.StringPart, toks[1].Kind)
	require.Equal(t, `has "quotes" inside`, toks[1].Text)
	require.Equal(t, token.StringEnd, toks[2].Kind)
}

func TestLexer_MultilineString(t *testing.T) {
	toks := lexAll(t, "\"\"\"\nhello\n\"\"\"")
	require.Equal(t, token.StringMultiStart, toks[0].Kind)
}

func TestLexer_Symbols(t *testing.T) {
	toks := lexAll(t, "?? ?. !! -> ... ...? ~/ ** |> && ||")
	want := []token.Kind{
		token.Coalesce, token.QDot, token.NotNullAssert, token.Arrow,
		token.Spread, token.SpreadQ, token.IntDiv, token.Pow, token.Pipe,
		token.And, token.Or,
	}
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestLexer_Comments(t *testing.T) {
	toks := lexAll(t, "// line\nfoo /* block /* nested */ still */ bar")
	require.Equal(t, token.Ident, toks[0].Kind)
	require.Equal(t, "foo", toks[0].Text)
	require.Equal(t, "bar", toks[1].Text)
}

func TestLexer_EOFIsIdempotent(t *testing.T) {
	lex := token.NewLexer("t.pkl", []byte("x"))
	_, err := lex.Next()
	require.NoError(t, err)
	tok, err := lex.Next()
	require.NoError(t, err)
	require.Equal(t, token.EOF, tok.Kind)
	tok2, err := lex.Next()
	require.NoError(t, err)
	require.Equal(t, token.EOF, tok2.Kind)
}

func TestLexer_UnterminatedString(t *testing.T) {
	lex := token.NewLexer("t.pkl", []byte(`"abc`))
	for {
		_, err := lex.Next()
		if err != nil {
			require.ErrorContains(t, err, "unterminated")
			return
		}
	}
}
