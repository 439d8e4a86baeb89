// Package ast defines the immutable AST (spec component C3): a tree of
// typed nodes, each carrying a source Span for diagnostics. Nodes are
// realized as tagged variants (concrete structs implementing a small
// Node interface) rather than a classic OO visitor hierarchy, per the
// spec's design note in §9 ("use exhaustive pattern matching instead of
// virtual accept methods; keep a small trait for 'give me the
// children'").
package ast

import "github.com/pklgo/pklcore/token"

// Node is implemented by every AST node. Children returns the node's
// immediate syntactic children in source order, enough to implement
// generic traversals (span-coverage checks, pretty-printing, visitors)
// without per-node-kind switch statements everywhere.
type Node interface {
	Span() token.Span
	Children() []Node
}

// base is embedded by every concrete node to avoid re-implementing
// Span() on each of them.
type base struct {
	span token.Span
}

func (b base) Span() token.Span { return b.span }

// NewBase constructs the embeddable base; exported so parser code
// building nodes outside this package's own constructors can still set
// spans uniformly.
func NewBase(span token.Span) base { return base{span: span} }

// SetSpan widens a node's span after construction. The parser builds
// many nodes incrementally (a ModuleDecl's end position, say, is only
// known once its amends/extends clause has been parsed) and needs to
// patch the span in from outside the ast package, where the base field
// itself stays unexported.
func (b *base) SetSpan(span token.Span) { b.span = span }

// Name is a (possibly backtick-quoted) identifier with its own span,
// distinct from a plain string so diagnostics can point at just the
// name.
type Name struct {
	base
	Value string
}

func NewName(span token.Span, value string) *Name {
	return &Name{base: NewBase(span), Value: value}
}

func (n *Name) Children() []Node { return nil }

// Path is a dotted/double-colon qualified name, e.g. `pkl.base.Dynamic`
// used in declared types and amends/extends clauses.
type Path struct {
	base
	Segments []*Name
}

func (p *Path) Children() []Node {
	out := make([]Node, len(p.Segments))
	for i, s := range p.Segments {
		out[i] = s
	}
	return out
}

func (p *Path) String() string {
	s := ""
	for i, seg := range p.Segments {
		if i > 0 {
			s += "."
		}
		s += seg.Value
	}
	return s
}
