package diag

import (
	"github.com/pklgo/pklcore/token"
	"github.com/pklgo/pklcore/types"
)

// FromSyntaxError lifts a lexer/parser SyntaxError into the richer
// Error model, the same relationship the teacher's token.Explain had
// to a bare participle.Error.
func FromSyntaxError(e *token.SyntaxError) *Error {
	out := New(KindSyntax, e.At, "%s", e.Message)
	if e.Cause != nil {
		out.Wrap(e.Cause)
	}
	return out
}

// FromMismatch lifts a type-checker Mismatch into the richer Error
// model, folding its Frame string into an inserted stack frame at the
// same span as the rejected type, per Mismatch.Frame's own doc comment.
func FromMismatch(m *types.Mismatch) *Error {
	out := New(KindTypeMismatch, m.Type.Span(), "%s", m.Error())
	if m.Frame != "" {
		out.WithFrame(m.Frame, m.Type.Span())
	}
	if m.Cause != nil {
		out.Wrap(m.Cause)
	}
	return out
}
