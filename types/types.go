// Package types implements the type checker (spec component C7): a
// TypeNode knows how to check a runtime value against it and, for
// for-bindings and parameters, to check-and-bind that value into a
// frame slot. Types appear at annotations, property declarations and
// for-bindings; Listings and Mappings carry an element/entry type, and
// typed records enforce declared-property types on every read, even
// across an amendment that overrides the type-annotated slot — but
// that per-read enforcement is the evaluator core's (C8) job, calling
// back into this package's Checker once per read, not this package's.
package types

import (
	"errors"
	"fmt"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/value"
)

// ConstraintEvaluator evaluates a ConstrainedType's constraint
// expressions with the candidate value bound to `this`. It is distinct
// from value.Evaluator (whose EvalExpr always runs against whatever
// invocation the evaluator is already in the middle of) because a
// constraint's `this` is the value under test, not the ambient
// receiver — only the evaluator core (C8), which owns the real
// frame/owner/receiver machinery, can actually push that binding.
type ConstraintEvaluator interface {
	EvalConstraint(expr ast.Expr, this value.Value) (value.Value, error)
}

// Checker implements TypeNode.check/check_and_bind. Classes and
// Constraints are both optional capabilities supplied by whatever
// evaluator embeds a Checker; a Checker with neither wired still
// correctly checks every type that doesn't need them (primitives,
// Nullable/Union/Paren, List/Set/Map, Listing/Mapping/Dynamic shape).
type Checker struct {
	Classes     ClassLookup
	Constraints ConstraintEvaluator
}

func New(classes ClassLookup, constraints ConstraintEvaluator) *Checker {
	return &Checker{Classes: classes, Constraints: constraints}
}

// Check implements TypeNode.check(value) -> Result<Value, TypeMismatch>.
// It returns the value unchanged (or, for a FunctionType, wrapped so
// its own return values get checked too) on success, or a *Mismatch.
func (c *Checker) Check(t ast.TypeNode, v value.Value) (value.Value, error) {
	switch n := t.(type) {
	case ast.UnknownType:
		return v, nil

	case ast.NothingType:
		return nil, &Mismatch{Type: t, Value: v}

	case ast.ModuleType:
		// Module identity (accepting only the defining module) is an
		// evaluator-core concept: types has no independent notion of
		// "the defining module" to compare against, so it only narrows
		// to "some object", leaving the actual identity check to C8.
		if _, ok := v.(value.ObjectValue); !ok {
			return nil, &Mismatch{Type: t, Value: v}
		}
		return v, nil

	case ast.StringConstantType:
		s, ok := v.(value.String)
		if !ok || string(s) != n.Value {
			return nil, &Mismatch{Type: t, Value: v}
		}
		return v, nil

	case ast.ParenType:
		return c.Check(n.Inner, v)

	case ast.NullableType:
		if _, isNull := v.(value.Null); isNull {
			return v, nil
		}
		return c.Check(n.Elem, v)

	case ast.UnionType:
		return c.checkUnion(n, v)

	case ast.ConstrainedType:
		return c.checkConstrained(n, v)

	case ast.FunctionType:
		return c.checkFunction(n, v)

	case ast.DeclaredType:
		return c.checkDeclared(n, v)

	default:
		return nil, fmt.Errorf("types: unknown TypeNode %T", t)
	}
}

// CheckAndBind implements TypeNode.check_and_bind(frame, slot, value):
// on success it writes the checked value into ev's current top frame at
// slot (the same frame ev.PushFrame opened); on failure it annotates
// the Mismatch with source, the inserted-stack-frame label spec's
// error model attaches to point at the value's origin (a for-binding's
// iterable, a parameter's call site).
func (c *Checker) CheckAndBind(t ast.TypeNode, ev value.Evaluator, slot int, v value.Value, source string) (value.Value, error) {
	checked, err := c.Check(t, v)
	if err != nil {
		var mismatch *Mismatch
		if errors.As(err, &mismatch) {
			mismatch.Frame = source
		}
		return nil, err
	}
	ev.SetSlot(slot, checked)
	return checked, nil
}

func (c *Checker) checkUnion(n ast.UnionType, v value.Value) (value.Value, error) {
	var lastErr error
	for _, m := range n.Members {
		if checked, err := c.Check(m, v); err == nil {
			return checked, nil
		} else {
			lastErr = err
		}
	}
	return nil, &Mismatch{Type: n, Value: v, Cause: lastErr}
}

func (c *Checker) checkConstrained(n ast.ConstrainedType, v value.Value) (value.Value, error) {
	checked, err := c.Check(n.Base, v)
	if err != nil {
		return nil, err
	}
	if len(n.Constraints) == 0 {
		return checked, nil
	}
	if c.Constraints == nil {
		return nil, fmt.Errorf("types: %s has constraints but no ConstraintEvaluator is wired", describe(n))
	}
	for _, expr := range n.Constraints {
		result, err := c.Constraints.EvalConstraint(expr, checked)
		if err != nil {
			return nil, err
		}
		b, ok := result.(value.Bool)
		if !ok || !bool(b) {
			return nil, &Mismatch{Type: n, Value: v}
		}
	}
	return checked, nil
}

// checkFunction accepts a matching-arity Function and wraps its Call so
// every future invocation's return value is itself checked against
// n.Result — "composes return-type checks" without calling the
// function now, since Check only ever sees the function value, not a
// call site.
func (c *Checker) checkFunction(n ast.FunctionType, v value.Value) (value.Value, error) {
	fn, ok := v.(value.Function)
	if !ok || fn.Arity != len(n.Params) {
		return nil, &Mismatch{Type: n, Value: v}
	}
	inner := fn.Call
	fn.Call = func(args []value.Value) (value.Value, error) {
		res, err := inner(args)
		if err != nil {
			return nil, err
		}
		return c.Check(n.Result, res)
	}
	return fn, nil
}

func checkKind(n ast.DeclaredType, v value.Value, want value.Kind) (value.Value, error) {
	if v.Kind() != want {
		return nil, &Mismatch{Type: n, Value: v}
	}
	return v, nil
}

func (c *Checker) checkDeclared(n ast.DeclaredType, v value.Value) (value.Value, error) {
	switch baseName(n.Name) {
	case "Any":
		return v, nil
	case "Number":
		if v.Kind() != value.KindInt && v.Kind() != value.KindFloat {
			return nil, &Mismatch{Type: n, Value: v}
		}
		return v, nil
	case "Boolean":
		return checkKind(n, v, value.KindBool)
	case "Int", "UInt", "Int8", "Int16", "Int32", "UInt8", "UInt16", "UInt32":
		return checkKind(n, v, value.KindInt)
	case "Float":
		return checkKind(n, v, value.KindFloat)
	case "String":
		return checkKind(n, v, value.KindString)
	case "Bytes":
		return checkKind(n, v, value.KindBytes)
	case "IntSeq":
		return checkKind(n, v, value.KindIntSeq)
	case "List":
		return c.checkList(n, v)
	case "Set":
		return c.checkSet(n, v)
	case "Map":
		return c.checkMap(n, v)
	case "Listing":
		return c.checkVariant(n, v, value.VariantListing)
	case "Mapping":
		return c.checkVariant(n, v, value.VariantMapping)
	case "Dynamic":
		return c.checkVariant(n, v, value.VariantDynamic)
	default:
		return c.checkUserClass(n, v)
	}
}

// checkList/checkSet/checkMap eagerly check element/entry types since
// List/Set/Map are already fully materialized, immutable values — doing
// so costs nothing further lazy to preserve. checkVariant, by contrast,
// only checks the runtime shape (Variant) of a Listing/Mapping/Dynamic
// ObjectValue: its elements are still lazy member bodies, so per-element
// type enforcement happens once per read, at the evaluator core's (C8)
// call site, not eagerly here.
func (c *Checker) checkList(n ast.DeclaredType, v value.Value) (value.Value, error) {
	l, ok := v.(value.List)
	if !ok {
		return nil, &Mismatch{Type: n, Value: v}
	}
	if len(n.Args) == 1 {
		for i, e := range l.Elems {
			if _, err := c.Check(n.Args[0], e); err != nil {
				return nil, &Mismatch{Type: n, Value: v, Frame: fmt.Sprintf("element %d", i), Cause: err}
			}
		}
	}
	return v, nil
}

func (c *Checker) checkSet(n ast.DeclaredType, v value.Value) (value.Value, error) {
	s, ok := v.(value.Set)
	if !ok {
		return nil, &Mismatch{Type: n, Value: v}
	}
	if len(n.Args) == 1 {
		for i, e := range s.Elems {
			if _, err := c.Check(n.Args[0], e); err != nil {
				return nil, &Mismatch{Type: n, Value: v, Frame: fmt.Sprintf("element %d", i), Cause: err}
			}
		}
	}
	return v, nil
}

func (c *Checker) checkMap(n ast.DeclaredType, v value.Value) (value.Value, error) {
	m, ok := v.(*value.Map)
	if !ok {
		return nil, &Mismatch{Type: n, Value: v}
	}
	if len(n.Args) == 2 {
		for i := range m.Keys {
			if _, err := c.Check(n.Args[0], m.Keys[i]); err != nil {
				return nil, &Mismatch{Type: n, Value: v, Frame: fmt.Sprintf("key %d", i), Cause: err}
			}
			if _, err := c.Check(n.Args[1], m.Vals[i]); err != nil {
				return nil, &Mismatch{Type: n, Value: v, Frame: fmt.Sprintf("value %d", i), Cause: err}
			}
		}
	}
	return v, nil
}

func (c *Checker) checkVariant(n ast.DeclaredType, v value.Value, want value.Variant) (value.Value, error) {
	ov, ok := v.(value.ObjectValue)
	if !ok || ov.Variant() != want {
		return nil, &Mismatch{Type: n, Value: v}
	}
	return v, nil
}

func (c *Checker) checkUserClass(n ast.DeclaredType, v value.Value) (value.Value, error) {
	ov, ok := v.(value.ObjectValue)
	if !ok {
		return nil, &Mismatch{Type: n, Value: v}
	}
	want := baseName(n.Name)
	if ov.ClassName() == want {
		return v, nil
	}
	if c.Classes != nil && c.Classes.IsA(ov.ClassName(), want) {
		return v, nil
	}
	return nil, &Mismatch{Type: n, Value: v}
}

// baseName returns a DeclaredType's own name, ignoring any module
// qualification (`pkl.base.String` and `String` name the same builtin).
func baseName(p *ast.Path) string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Value
}
