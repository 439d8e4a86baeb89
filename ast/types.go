package ast

import "github.com/pklgo/pklcore/token"

// TypeNode is implemented by every type-annotation node (spec §3
// "Types"). Unlike Expr, TypeNode is often handled as a value
// (TypeNode, not *TypeNode) since most type nodes are small and
// immutable once parsed.
type TypeNode interface {
	Node
	typeNode()
}

type typeBase struct{ base }

func (typeBase) typeNode() {}

type UnknownType struct{ typeBase }

func (t UnknownType) Children() []Node { return nil }

type NothingType struct{ typeBase }

func (t NothingType) Children() []Node { return nil }

type ModuleType struct{ typeBase }

func (t ModuleType) Children() []Node { return nil }

// StringConstantType is `"literal"` used as a type, matching only that
// exact string value.
type StringConstantType struct {
	typeBase
	Value string
}

func (t StringConstantType) Children() []Node { return nil }

// DeclaredType is `Q.id<args>` (spec §3), e.g. `Listing<String>`.
type DeclaredType struct {
	typeBase
	Name *Path
	Args []TypeNode
}

func (t DeclaredType) Children() []Node {
	out := []Node{t.Name}
	for _, a := range t.Args {
		out = append(out, a)
	}
	return out
}

type ParenType struct {
	typeBase
	Inner TypeNode
}

func (t ParenType) Children() []Node { return []Node{t.Inner} }

// NullableType is `T?`.
type NullableType struct {
	typeBase
	Elem TypeNode
}

func (t NullableType) Children() []Node { return []Node{t.Elem} }

// ConstrainedType is `T(expr, ...)`.
type ConstrainedType struct {
	typeBase
	Base        TypeNode
	Constraints []Expr
}

func (t ConstrainedType) Children() []Node {
	out := []Node{t.Base}
	for _, c := range t.Constraints {
		out = append(out, c)
	}
	return out
}

// UnionType is `A|B|...`. The parser builds it right-associative per
// spec §4.2 and it is flattened here (Members is already the flat list,
// not a nested pair), matching spec §3 ("flattened later").
type UnionType struct {
	typeBase
	Members []TypeNode

	// DefaultIndex is the member selected by a `*` default marker, or
	// -1 if the union declares no default.
	DefaultIndex int
}

func (t UnionType) Children() []Node {
	out := make([]Node, len(t.Members))
	for i, m := range t.Members {
		out[i] = m
	}
	return out
}

// FunctionType is `(T, ...) -> R`.
type FunctionType struct {
	typeBase
	Params []TypeNode
	Result TypeNode
}

func (t FunctionType) Children() []Node {
	out := make([]Node, 0, len(t.Params)+1)
	for _, p := range t.Params {
		out = append(out, p)
	}
	return append(out, t.Result)
}

// NewDeclaredType is a small helper the parser and tests use to build a
// single-segment declared type like `String` without going through the
// full Path machinery.
func NewDeclaredType(span token.Span, name string, args ...TypeNode) DeclaredType {
	return DeclaredType{
		typeBase: typeBase{NewBase(span)},
		Name:     &Path{base: NewBase(span), Segments: []*Name{NewName(span, name)}},
		Args:     args,
	}
}
