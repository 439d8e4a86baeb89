package token

import "fmt"

// SyntaxError is the lexer/parser-level failure (spec §7 "Syntax").
// It is intentionally small and dependency-free; the richer diagnostic
// model with hints, program values and inserted stack frames (spec
// §4.7/§7 "Type mismatch" etc.) lives in package diag, which wraps
// SyntaxError the same way the teacher's token.Explain wrapped a
// participle.Error.
type SyntaxError struct {
	Message string
	At      Span
	Cause   error
}

func NewSyntaxError(at Span, format string, args ...any) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), At: at}
}

func (e *SyntaxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.At, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.At, e.Message)
}

func (e *SyntaxError) Unwrap() error { return e.Cause }

func (e *SyntaxError) WithCause(cause error) *SyntaxError {
	e.Cause = cause
	return e
}
