package ast

import (
	"strings"

	"github.com/pklgo/pklcore/token"
)

// NewDocComment builds a DocComment from the consecutive `///` lines the
// lexer/parser collected immediately above a declaration, mirroring the
// teacher's docu.go "Stereotype Document" handling: the raw lines are
// kept verbatim (for an external documentation generator, out of
// scope here) and also exposed joined as plain text.
func NewDocComment(span token.Span, lines []string) *DocComment {
	return &DocComment{base: NewBase(span), Lines: lines}
}

// Text joins the doc comment's lines back into a single block of text,
// the form most consumers (error hints, this core's own diagnostics)
// want.
func (d *DocComment) Text() string {
	return strings.Join(d.Lines, "\n")
}
