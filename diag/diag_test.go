package diag_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/token"
)

func span(file string, line, col int, width int) token.Span {
	begin := token.Pos{File: file, Line: line, Col: col, Offset: col - 1}
	end := token.Pos{File: file, Line: line, Col: col + width, Offset: col - 1 + width}
	return token.Span{Begin: begin, End: end}
}

func TestError_BuilderChainAccessors(t *testing.T) {
	sp := span("m.pkl", 3, 5, 4)
	e := diag.New(diag.KindMissingMember, sp, "no member %q", "foo").
		WithHint("did you mean %q?", "bar").
		WithValue("receiver", diagStringer("myObject")).
		WithFrame("predicate", sp)

	require.Equal(t, diag.KindMissingMember, e.Kind())
	require.Equal(t, sp, e.Span())
	require.Equal(t, `no member "foo"`, e.Message())
	require.Equal(t, []string{`did you mean "bar"?`}, e.Hints())
	require.Equal(t, []diag.ProgramValue{{Name: "receiver", Value: "myObject"}}, e.Values())
	require.Equal(t, []diag.Frame{{Target: "predicate", At: sp}}, e.Frames())
}

func TestError_ErrorStringIncludesMessage(t *testing.T) {
	sp := span("m.pkl", 1, 1, 1)
	e := diag.New(diag.KindSyntax, sp, "unexpected token")
	require.Contains(t, e.Error(), "unexpected token")
}

func TestError_WrapSetsCauseAndUnwraps(t *testing.T) {
	cause := errors.New("disk exploded")
	sp := span("m.pkl", 1, 1, 1)
	e := diag.New(diag.KindIO, sp, "could not read resource").Wrap(cause)

	require.Equal(t, cause, e.Unwrap())
	require.ErrorIs(t, e, cause)
	require.Contains(t, e.Error(), "disk exploded")
}

func TestExplain_NonDiagErrorFallsBackToErrorText(t *testing.T) {
	plain := errors.New("boom")
	require.Equal(t, "boom", diag.Explain(plain))
}

func TestExplain_RendersSummaryAndGutter(t *testing.T) {
	sp := span("m.pkl", 2, 3, 3)
	e := diag.New(diag.KindTypeMismatch, sp, "expected Int, got String").
		WithHint("wrap the value in toInt()").
		WithFrame("type-check", sp)

	out := diag.Explain(e)
	require.Contains(t, out, "error: expected Int, got String")
	require.Contains(t, out, "m.pkl:2:3")
	require.Contains(t, out, "= hint: wrap the value in toInt()")
	require.Contains(t, out, "= in type-check at m.pkl:2:3")
	// no source file on disk, so the snippet line degrades to empty
	// rather than failing the render.
	lines := strings.Split(out, "\n")
	require.True(t, len(lines) > 3)
}

func TestFromSyntaxError_PreservesSpanAndCause(t *testing.T) {
	sp := span("m.pkl", 5, 1, 1)
	cause := errors.New("unexpected EOF")
	se := token.NewSyntaxError(sp, "unterminated string").WithCause(cause)

	e := diag.FromSyntaxError(se)
	require.Equal(t, diag.KindSyntax, e.Kind())
	require.Equal(t, sp, e.Span())
	require.Equal(t, "unterminated string", e.Message())
	require.Equal(t, cause, e.Unwrap())
}

type diagStringer string

func (s diagStringer) String() string { return string(s) }
