// Package render implements the core's one built-in output renderer
// (spec §6 output.bytes). Per SPEC_FULL.md's "minimal built-in
// renderer" note, only XML is implemented here; every other output
// format is an external pluggable renderer selected by
// config.Options.OutputFormat and dispatched through the Renderer
// interface.
package render

import (
	"errors"
	"fmt"

	"github.com/pklgo/pklcore/value"
)

// ErrUnsupportedFormat is returned by Dispatch for any format besides
// "xml", signaling the caller to hand the module off to an external
// renderer process.
var ErrUnsupportedFormat = errors.New("render: format is not built in, dispatch to an external renderer")

// Renderer turns an evaluated module's root object into output bytes.
// ev is the same value.Evaluator that produced root, needed to drive
// each member's on-demand, memoized read (spec §4.4 Read) while
// walking the tree.
type Renderer interface {
	Render(ev value.Evaluator, root value.ObjectValue) ([]byte, error)
}

// Dispatch selects the built-in Renderer for format, or
// ErrUnsupportedFormat if none is built in.
func Dispatch(format string) (Renderer, error) {
	switch format {
	case "xml":
		return XML{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
