// Package diag implements the structured error model (spec component
// C9): a single Error type, generalizing the teacher's token.PosError
// (primary span, ordered Details, Cause, Hint) into spec §4.7's richer
// shape — primary span, message, hints, program values, and inserted
// stack frames — built on github.com/samber/oops for the
// Code/With/Hint context-accumulation idiom holomush uses throughout
// its domain errors.
package diag

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/pklgo/pklcore/token"
)

// Kind classifies an Error per spec §7's error-kind taxonomy.
type Kind string

const (
	KindSyntax              Kind = "SYNTAX"
	KindTypeMismatch        Kind = "TYPE_MISMATCH"
	KindMissingMember       Kind = "MISSING_MEMBER"
	KindDuplicateDefinition Kind = "DUPLICATE_DEFINITION"
	KindAmendmentViolation  Kind = "AMENDMENT_VIOLATION"
	KindSpreadRejection     Kind = "SPREAD_REJECTION"
	KindNotIterable         Kind = "NOT_ITERABLE"
	KindCircularMember      Kind = "CIRCULAR_MEMBER"
	KindIO                  Kind = "IO"
	KindSecurityPolicy      Kind = "SECURITY_POLICY"
)

// ProgramValue is one named value an Error renders alongside its
// message (spec §4.7: "a list of program values to render").
type ProgramValue struct {
	Name  string
	Value string
}

// Frame is one inserted stack frame (spec §4.7/§7: propagation
// "collect[s] inserted stack frames at generator, predicate, spread,
// and type-check sites so the final diagnostic shows the
// user-meaningful stack"). Target names the call-site kind (a for
// body, a predicate, a type-checked slot, ...); At is where it sits.
type Frame struct {
	Target string
	At     token.Span
}

// Error is the structured diagnostic threaded through every component.
// Its zero value is not usable; build one with New.
type Error struct {
	kind    Kind
	span    token.Span
	message string
	hints   []string
	values  []ProgramValue
	frames  []Frame
	cause   error
}

// New builds an Error with no hints, values, frames or cause yet;
// chain With*/Wrap to add them.
func New(kind Kind, span token.Span, format string, args ...any) *Error {
	return &Error{kind: kind, span: span, message: fmt.Sprintf(format, args...)}
}

func (e *Error) Kind() Kind           { return e.kind }
func (e *Error) Span() token.Span     { return e.span }
func (e *Error) Message() string      { return e.message }
func (e *Error) Hints() []string      { return e.hints }
func (e *Error) Values() []ProgramValue { return e.values }
func (e *Error) Frames() []Frame      { return e.frames }

// WithHint appends a suggestion to fix the error (spec §4.7's "optional
// hints"), e.g. the "call toDynamic()" hint spec §4.5/§7 call for.
func (e *Error) WithHint(format string, args ...any) *Error {
	e.hints = append(e.hints, fmt.Sprintf(format, args...))
	return e
}

// WithValue records one "program value" (spec §4.7) to render
// alongside the message — typically the offending value's own
// rendered form, or a key/index that led to it.
func (e *Error) WithValue(name string, value fmt.Stringer) *Error {
	e.values = append(e.values, ProgramValue{Name: name, Value: value.String()})
	return e
}

// WithFrame inserts one synthetic stack frame (spec §7's "inserted
// stack frames at generator, predicate, spread, and type-check
// sites"), nearest call site last.
func (e *Error) WithFrame(target string, at token.Span) *Error {
	e.frames = append(e.frames, Frame{Target: target, At: at})
	return e
}

// Wrap attaches the lower-level cause this Error is annotating (e.g. a
// resource reader's I/O failure, or a nested Mismatch).
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// Error renders a one-line message via an oops builder carrying this
// Error's kind/hints/values as structured context, matching the
// Code/With/Hint chain holomush builds its own domain errors with.
func (e *Error) Error() string {
	b := oops.Code(string(e.kind)).With("span", e.span.String())
	for _, h := range e.hints {
		b = b.Hint(h)
	}
	for _, v := range e.values {
		b = b.With(v.Name, v.Value)
	}
	var built error
	if e.cause != nil {
		built = b.Wrapf(e.cause, "%s", e.message)
	} else {
		built = b.Errorf("%s", e.message)
	}
	return built.Error()
}

func (e *Error) Unwrap() error { return e.cause }
