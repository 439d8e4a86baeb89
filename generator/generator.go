// Package generator implements the generator engine (spec component
// C6): it walks the live ast.ObjectBody tree of an amend/new literal
// and produces a new object.Object, expanding each member node the way
// spec §4.5 describes.
//
// Unlike member.CompileResult.Members, this package never walks a
// compile-time-flattened member list: a `for`'s expansion depends on an
// iterable only known once its expression is evaluated, so Gen walks
// the original ast.ObjectBody.Members directly, consulting
// member.Ctx.ByNode at each node for the compiled Member/driving
// expression that package member already resolved bindings for.
package generator

import (
	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/object"
	"github.com/pklgo/pklcore/token"
	"github.com/pklgo/pklcore/value"
)

// Mode distinguishes the two contexts Gen is built for (spec §4.5's
// structural checks apply only to one of them).
type Mode int

const (
	// ModeAmend builds an amend/new literal's body against an already
	// built parent. A typed parent's own declared properties constrain
	// which names the literal may define (spec §4.5 "typed-class
	// property matching").
	ModeAmend Mode = iota

	// ModeDeclare builds a class's own prototype (eval.classPrototype).
	// Every property here IS a declaration, so the typed-property-
	// matching check that ModeAmend enforces must not fire.
	ModeDeclare
)

// Gen builds a new Object amending parent from body, in declaration
// order (spec §4.5: "D ← amend(parent); for each member ... extend D").
func Gen(ev value.Evaluator, parent value.ObjectValue, c *member.Ctx, body *ast.ObjectBody, mode Mode) (*object.Object, error) {
	d := object.Amend(parent)
	if err := genMembers(ev, d, c, body.Members, mode); err != nil {
		return nil, err
	}
	return d, nil
}

func genMembers(ev value.Evaluator, d *object.Object, c *member.Ctx, raws []ast.ObjectMember, mode Mode) error {
	for _, raw := range raws {
		switch n := raw.(type) {
		case *ast.ForMember:
			if err := genFor(ev, d, c, n, mode); err != nil {
				return err
			}
		case *ast.WhenMember:
			if err := genWhen(ev, d, c, n, mode); err != nil {
				return err
			}
		default:
			m, ok := c.ByNode[raw]
			if !ok || m == nil {
				return diag.New(diag.KindSyntax, raw.Span(), "no compiled member for %T", raw)
			}
			if err := genLeaf(ev, d, m, mode); err != nil {
				return err
			}
		}
	}
	return nil
}

// declaredOnParent reports whether name is declared anywhere in d's
// amendment chain (the class prototype d is amending), per spec §4.5's
// typed-class property matching: an amend/new literal over a Typed
// object may only set properties the class itself already declares.
func declaredOnParent(d *object.Object, name string) bool {
	if d.Parent() == nil {
		return false
	}
	_, ok := object.Lookup(d.Parent(), value.NameKey(name))
	return ok
}

// genLeaf extends d with one already-compiled, non-control-flow Member
// (spec §4.5 PropertyNode/MethodNode/EntryNode/ElementNode/
// PredicateNode/SpreadNode/LocalNode), enforcing the structural checks
// spec §1/§7 require for the variant d amends.
func genLeaf(ev value.Evaluator, d *object.Object, m *member.Member, mode Mode) error {
	switch m.Kind {
	case member.KindProperty, member.KindMethod:
		if (d.Variant() == value.VariantListing || d.Variant() == value.VariantMapping) && m.Name != "default" {
			return diag.New(diag.KindAmendmentViolation, m.HeaderSpan,
				"%s has no property %q; only \"default\" may be set on a %s", d.Variant(), m.Name, d.Variant()).
				WithHint("Listing/Mapping literals only accept elements/entries and a \"default\" property")
		}
		if mode == ModeAmend && d.Variant() == value.VariantTyped && m.Kind == member.KindProperty && !declaredOnParent(d, m.Name) {
			return diag.New(diag.KindAmendmentViolation, m.HeaderSpan,
				"%s has no property named %q", d.ClassName(), m.Name).
				WithHint("only properties the class declares may be amended")
		}
		return d.PutMember(value.NameKey(m.Name), m)

	case member.KindLocal:
		// LocalNode never becomes a visible member (spec §4.5: "not
		// visible to renderers"); later siblings reach it through a
		// frame slot instead of Object.Read. member compiles each
		// `local` to its own one-slot frame (see member.Scope.Nested),
		// so evaluating it here means evaluating its body against
		// whatever frames already precede it, then pushing that one
		// new frame for everything generated afterward to resolve
		// against — left open rather than popped, since member bodies
		// stay lazy and may be invoked long after this generation pass
		// returns. This is one shared frame stack on the Evaluator, not
		// a per-object captured environment.
		val, err := ev.EvalExpr(m.Body)
		if err != nil {
			return err
		}
		ev.PushFrame(1)
		ev.SetSlot(m.LocalSlot, val)

	case member.KindElement:
		if d.Variant() != value.VariantDynamic && d.Variant() != value.VariantListing {
			return diag.New(diag.KindAmendmentViolation, m.HeaderSpan,
				"elements are not allowed on a %s", d.Variant())
		}
		return d.PutMember(value.IndexKey(d.GrowLength()), m)

	case member.KindEntry:
		// EntryNode's key is evaluated eagerly at generation time (spec
		// §4.5: "evaluate Key now; the entry's Value stays lazy").
		key, err := ev.EvalExpr(m.Key)
		if err != nil {
			return err
		}
		if d.Variant() == value.VariantListing {
			idx, ok := key.(value.Int)
			if !ok {
				return diag.New(diag.KindTypeMismatch, m.HeaderSpan, "a Listing entry key must be an Int, got %T", key)
			}
			if int64(idx) < 0 || int64(idx) >= d.Length() {
				return diag.New(diag.KindAmendmentViolation, m.HeaderSpan,
					"amendment index %d is out of range 0..%d", int64(idx), d.Length()-1).
					WithHint("an entry on a Listing can only amend an existing element, not append a new one")
			}
			return d.PutMember(value.IndexKey(int64(idx)), m)
		}
		if d.Variant() != value.VariantDynamic && d.Variant() != value.VariantMapping {
			return diag.New(diag.KindAmendmentViolation, m.HeaderSpan, "entries are not allowed on a %s", d.Variant())
		}
		return d.PutMember(value.AnyKey(key), m)

	case member.KindPredicate:
		d.AddPredicate(object.Predicate{M: m})

	case member.KindSpread:
		return genSpread(ev, d, m, mode)

	default:
		return diag.New(diag.KindSyntax, m.HeaderSpan, "unexpected member kind %v", m.Kind)
	}
	return nil
}

// genWhen evaluates n.Cond now (spec §4.5 WhenNode: "evaluated eagerly
// at generation time, picking exactly one branch") and generates only
// the taken branch's members into d.
func genWhen(ev value.Evaluator, d *object.Object, c *member.Ctx, n *ast.WhenMember, mode Mode) error {
	wm, ok := c.ByNode[n]
	if !ok {
		return diag.New(diag.KindSyntax, n.Span(), "no compiled member for when-statement")
	}
	cond, err := ev.EvalExpr(wm.Body)
	if err != nil {
		return err
	}
	taken, frameSize := n.Then, wm.ThenFrameSize
	if !truthy(cond) {
		taken, frameSize = n.Else, wm.ElseFrameSize
	}
	ev.PushFrame(frameSize)
	defer ev.PopFrame()
	return genMembers(ev, d, c, taken, mode)
}

func truthy(v value.Value) bool {
	b, ok := v.(value.Bool)
	return ok && bool(b)
}

// genFor evaluates n's iterable once and re-enters n.Body once per
// element, each time under a freshly pushed frame carrying that
// iteration's key/value bindings (spec §4.5 ForNode: "allocate a fresh
// generator frame per iteration").
func genFor(ev value.Evaluator, d *object.Object, c *member.Ctx, n *ast.ForMember, mode Mode) error {
	fm, ok := c.ByNode[n]
	if !ok {
		return diag.New(diag.KindSyntax, n.Span(), "no compiled member for for-statement")
	}
	iterable, err := ev.EvalExpr(fm.Body)
	if err != nil {
		return err
	}
	return forEach(ev, iterable, n.Span(), func(k, v value.Value) error {
		ev.PushFrame(fm.FrameSize)
		defer ev.PopFrame()
		if fm.KeySlot >= 0 {
			ev.SetSlot(fm.KeySlot, k)
		}
		if fm.ValueSlot >= 0 {
			ev.SetSlot(fm.ValueSlot, v)
		}
		return genMembers(ev, d, c, n.Body, mode)
	})
}

// forEach drives visit(key, value) once per element of iterable, per
// spec §4.5's for-iteration semantics table: List/Set/IntSeq yield
// (index, element); Map yields (key, value); a Listing/Mapping/Dynamic
// ObjectValue yields its own (key, value) pairs read through the
// supplied Evaluator. A Typed/Class ObjectValue, Null, and every
// scalar are rejected (spec §4.5/§7: "Nulls fail with
// cannotIterateOverThisValue(Null) and a hint to use for?"; a typed
// value needs an explicit toDynamic() first).
func forEach(ev value.Evaluator, iterable value.Value, at token.Span, visit func(k, v value.Value) error) error {
	switch it := iterable.(type) {
	case value.List:
		for i, e := range it.Elems {
			if err := visit(value.Int(int64(i)), e); err != nil {
				return err
			}
		}
		return nil
	case value.Set:
		for i, e := range it.Elems {
			if err := visit(value.Int(int64(i)), e); err != nil {
				return err
			}
		}
		return nil
	case value.IntSeq:
		for i := int64(0); i < it.Length; i++ {
			e := it.At(i)
			if err := visit(value.Int(i), e); err != nil {
				return err
			}
		}
		return nil
	case *value.Map:
		for i, k := range it.Keys {
			if err := visit(k, it.Vals[i]); err != nil {
				return err
			}
		}
		return nil
	case value.ObjectValue:
		if it.Variant() == value.VariantTyped || it.Variant() == value.VariantClass {
			return diag.New(diag.KindNotIterable, at, "cannot iterate over a %s(%s)", it.Variant(), it.ClassName()).
				WithHint("call toDynamic() on it first")
		}
		return forEachObjectValue(ev, it, visit)
	case value.Null:
		return diag.New(diag.KindNotIterable, at, "cannot iterate over null").
			WithHint("use for? to skip a null iterable instead of failing")
	default:
		return diag.New(diag.KindNotIterable, at, "%T is not iterable", iterable)
	}
}

func forEachObjectValue(ev value.Evaluator, ov value.ObjectValue, visit func(k, v value.Value) error) error {
	return ov.ForEachMember(func(key value.MemberKey) error {
		val, err := ov.Read(ev, ov, key)
		if err != nil {
			return err
		}
		switch key.Kind {
		case value.KeyIndex:
			return visit(value.Int(key.Index), val)
		case value.KeyName:
			return visit(value.String(key.Name), val)
		default:
			return visit(key.Any, val)
		}
	})
}

// spreadKindAllowed reports whether d's variant accepts a member of the
// given key kind being spread into it, per spec §4.5's parent x source
// compatibility matrix: Dynamic accepts any shape; Listing only
// elements; Mapping only entries; Typed only properties (further
// constrained to names the class actually declares, checked
// separately).
func spreadKindAllowed(d *object.Object, kind value.KeyKind) bool {
	switch d.Variant() {
	case value.VariantDynamic:
		return true
	case value.VariantListing:
		return kind == value.KeyIndex
	case value.VariantMapping:
		return kind == value.KeyAny
	case value.VariantTyped:
		return kind == value.KeyName
	default:
		return false
	}
}

// genSpread evaluates a SpreadMember's source (spec §4.5 SpreadNode)
// and re-exposes every one of its keys on d, enforcing the parent x
// source compatibility matrix and reusing the source's own lazy member
// bodies where possible (an ObjectValue source) or synthesizing a
// const-valued body for sources that carry plain values instead of
// Members (List/Set/Map/IntSeq).
func genSpread(ev value.Evaluator, d *object.Object, m *member.Member, mode Mode) error {
	src, err := ev.EvalExpr(m.Body)
	if err != nil {
		return err
	}
	if _, isNull := src.(value.Null); isNull {
		if m.SpreadNullable {
			return nil
		}
		return diag.New(diag.KindAmendmentViolation, m.HeaderSpan, "spread source is null").
			WithHint("use ...?expr to allow a null spread source")
	}

	switch s := src.(type) {
	case value.ObjectValue:
		return spreadObject(d, s, m, mode)
	case value.List:
		return spreadElements(d, m, s.Elems)
	case value.Set:
		return spreadElements(d, m, s.Elems)
	case value.IntSeq:
		elems := make([]value.Value, s.Length)
		for i := int64(0); i < s.Length; i++ {
			elems[i] = s.At(i)
		}
		return spreadElements(d, m, elems)
	case *value.Map:
		if !spreadKindAllowed(d, value.KeyAny) {
			return diag.New(diag.KindSpreadRejection, m.HeaderSpan, "cannot spread a Map's entries into a %s", d.Variant())
		}
		for i, k := range s.Keys {
			em := &member.Member{Kind: member.KindEntry, Body: &ast.ConstExpr{Value: s.Vals[i]}, HeaderSpan: m.HeaderSpan}
			if err := d.PutMember(value.AnyKey(k), em); err != nil {
				return err
			}
		}
		return nil
	default:
		return diag.New(diag.KindSpreadRejection, m.HeaderSpan, "%T is not a valid spread source", src)
	}
}

// spreadElements spreads a List/Set/IntSeq's materialized elements into
// d as successive elements, continuing d's length rather than reusing
// the source's own indices (spec §4.5: "index continues from
// D.length").
func spreadElements(d *object.Object, m *member.Member, elems []value.Value) error {
	if !spreadKindAllowed(d, value.KeyIndex) {
		return diag.New(diag.KindSpreadRejection, m.HeaderSpan, "cannot spread elements into a %s", d.Variant())
	}
	for _, e := range elems {
		em := &member.Member{Kind: member.KindElement, Body: &ast.ConstExpr{Value: e}, HeaderSpan: m.HeaderSpan}
		if err := d.PutMember(value.IndexKey(d.GrowLength()), em); err != nil {
			return err
		}
	}
	return nil
}

// spreadObject spreads an ObjectValue source's own members into d,
// pointing each key at whichever Member actually defines it along the
// source's own amendment chain, so the spread stays as lazy as reading
// the source directly would be.
func spreadObject(d *object.Object, ov value.ObjectValue, m *member.Member, mode Mode) error {
	return ov.ForEachMember(func(key value.MemberKey) error {
		sm, ok := object.Lookup(ov, key)
		if !ok {
			return nil
		}
		if !spreadKindAllowed(d, key.Kind) {
			return diag.New(diag.KindSpreadRejection, m.HeaderSpan,
				"cannot spread %v (a %s member) into a %s", key, kindLabel(key.Kind), d.Variant())
		}
		if d.Variant() == value.VariantTyped && key.Kind == value.KeyName {
			if mode == ModeAmend && !declaredOnParent(d, key.Name) {
				return diag.New(diag.KindSpreadRejection, m.HeaderSpan,
					"%s has no property named %q", d.ClassName(), key.Name)
			}
		}
		switch key.Kind {
		case value.KeyIndex:
			// Continue d's own element count rather than the source's
			// index, matching List/Set spread (spec §4.5).
			return d.PutMember(value.IndexKey(d.GrowLength()), sm)
		default:
			return d.PutMember(key, sm)
		}
	})
}

func kindLabel(k value.KeyKind) string {
	switch k {
	case value.KeyIndex:
		return "element"
	case value.KeyAny:
		return "entry"
	default:
		return "property"
	}
}
