package diag

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pklgo/pklcore/token"
)

// Explain renders err the way the teacher's token.Explain renders a
// PosError: a one-line summary, the offending source line with a
// `^~~~` pointer under the primary span, then any inserted stack
// frames, program values and hints an *Error carries. Any other error
// (including a bare *token.SyntaxError not yet wrapped into an Error)
// falls back to its own Error() text.
func Explain(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "error: %s\n", e.message)
	fmt.Fprintf(sb, "  --> %s\n", e.span.Begin.String())

	line := sourceLine(e.span)
	lineNo := strconv.Itoa(e.span.Begin.Line)
	indent := len(lineNo)

	fmt.Fprintf(sb, "%*s |\n", indent, "")
	fmt.Fprintf(sb, "%s | %s\n", lineNo, line)
	fmt.Fprintf(sb, "%*s | %s\n", indent, "", pointer(e.span))

	for _, f := range e.frames {
		fmt.Fprintf(sb, "%*s = in %s at %s\n", indent, "", f.Target, f.At.Begin.String())
	}
	for _, v := range e.values {
		fmt.Fprintf(sb, "%*s = %s: %s\n", indent, "", v.Name, v.Value)
	}
	for _, h := range e.hints {
		fmt.Fprintf(sb, "%*s = hint: %s\n", indent, "", h)
	}

	return sb.String()
}

// pointer builds the `^~~~` underline beneath span's column range,
// matching the teacher's token.PosError.Explain layout for both a
// single-column and a multi-column span.
func pointer(span token.Span) string {
	col := span.Begin.Col
	width := span.End.Col - span.Begin.Col
	lead := strings.Repeat(" ", maxInt(col-1, 0))
	if width <= 1 {
		return lead + "^~~~"
	}
	return lead + strings.Repeat("^", width)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func sourceLine(span token.Span) string {
	src := readSource(span.Begin.File)
	if src == "" {
		return ""
	}
	lines := strings.Split(src, "\n")
	i := span.Begin.Line - 1
	if i < 0 || i >= len(lines) {
		return ""
	}
	return lines[i]
}

// readSource best-effort loads a file for the source-line snippet;
// diagnostics still render (without the snippet) if it can't be found,
// since the evaluator may be driven against in-memory source that was
// never written to disk.
func readSource(file string) string {
	if file == "" {
		return ""
	}
	buf, err := os.ReadFile(file)
	if err != nil {
		return ""
	}
	return string(buf)
}
