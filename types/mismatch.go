package types

import (
	"fmt"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/value"
)

// Mismatch is the result of a failed TypeNode.check: the declared type
// that rejected the value, the value itself, and (once CheckAndBind is
// the caller) a Frame describing the binding whose source value should
// be blamed. Frame is a plain string; diag.FromMismatch folds it into
// the diagnostic's inserted-stack-frame list.
type Mismatch struct {
	Type  ast.TypeNode
	Value value.Value
	Frame string
	Cause error
}

func (m *Mismatch) Error() string {
	msg := fmt.Sprintf("expected a value satisfying %s, got %s", describe(m.Type), m.Value.Kind())
	if m.Frame != "" {
		msg = fmt.Sprintf("%s (%s)", msg, m.Frame)
	}
	if m.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, m.Cause.Error())
	}
	return msg
}

func (m *Mismatch) Unwrap() error { return m.Cause }

// describe renders a TypeNode the way its source-level spelling would
// read, for use in Mismatch messages only — never for type identity.
func describe(t ast.TypeNode) string {
	switch n := t.(type) {
	case ast.UnknownType:
		return "unknown"
	case ast.NothingType:
		return "nothing"
	case ast.ModuleType:
		return "module"
	case ast.StringConstantType:
		return fmt.Sprintf("%q", n.Value)
	case ast.DeclaredType:
		s := n.Name.String()
		if len(n.Args) > 0 {
			s += "<"
			for i, a := range n.Args {
				if i > 0 {
					s += ", "
				}
				s += describe(a)
			}
			s += ">"
		}
		return s
	case ast.ParenType:
		return "(" + describe(n.Inner) + ")"
	case ast.NullableType:
		return describe(n.Elem) + "?"
	case ast.ConstrainedType:
		return describe(n.Base) + "(...)"
	case ast.UnionType:
		s := ""
		for i, m := range n.Members {
			if i > 0 {
				s += "|"
			}
			s += describe(m)
		}
		return s
	case ast.FunctionType:
		s := "("
		for i, p := range n.Params {
			if i > 0 {
				s += ", "
			}
			s += describe(p)
		}
		return s + ") -> " + describe(n.Result)
	default:
		return fmt.Sprintf("%T", t)
	}
}
