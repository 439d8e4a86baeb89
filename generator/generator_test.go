package generator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/generator"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/object"
	"github.com/pklgo/pklcore/parser"
	"github.com/pklgo/pklcore/value"
)

func diagKind(t *testing.T, err error) diag.Kind {
	t.Helper()
	var derr *diag.Error
	require.True(t, errors.As(err, &derr), "expected a *diag.Error, got %T (%v)", err, err)
	return derr.Kind()
}

func mustParseModule(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := parser.ParseModule("test.pkl", []byte(src))
	require.NoError(t, err)
	return mod
}

// frameEvaluator is a minimal value.Evaluator good enough to drive the
// generator engine's own control flow (for/when/local/entry-key/spread
// eager evaluations) without the full evaluator core (C8): it knows how
// to evaluate literals, resolved local references and + over Ints, and
// to invoke a member by replaying its compiled body the same way.
type frameEvaluator struct {
	bindings member.Bindings
	frames   [][]value.Value
}

func newFrameEvaluator(bindings member.Bindings) *frameEvaluator {
	return &frameEvaluator{bindings: bindings}
}

func (e *frameEvaluator) PushFrame(size int) {
	e.frames = append(e.frames, make([]value.Value, size))
}

func (e *frameEvaluator) SetSlot(slot int, val value.Value) {
	e.frames[len(e.frames)-1][slot] = val
}

func (e *frameEvaluator) PopFrame() {
	e.frames = e.frames[:len(e.frames)-1]
}

func (e *frameEvaluator) slotValue(depth, slot int) value.Value {
	return e.frames[len(e.frames)-1-depth][slot]
}

func (e *frameEvaluator) InvokeMember(owner, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	o, ok := owner.(*object.Object)
	if !ok {
		return nil, fmt.Errorf("owner is not *object.Object")
	}
	m, ok := o.OwnMember(key)
	if !ok {
		return nil, fmt.Errorf("no own member %v", key)
	}
	return e.EvalExpr(m.Body)
}

func (e *frameEvaluator) ApplyPredicates(origin, owner, receiver value.ObjectValue, key value.MemberKey, base value.Value) (value.Value, error) {
	return base, nil
}

func (e *frameEvaluator) EvalExpr(expr ast.Expr) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.NullLit:
		return value.Null{}, nil
	case *ast.ConstExpr:
		return n.Value.(value.Value), nil
	case *ast.StringLit:
		if len(n.Parts) == 1 && n.Parts[0].Expr == nil {
			return value.String(n.Parts[0].Const), nil
		}
		return value.String(""), nil
	case *ast.UnqualifiedAccess:
		b, ok := e.bindings[n]
		if !ok || b.Kind != member.BindLocal {
			return nil, fmt.Errorf("frameEvaluator: %q did not resolve to a frame slot", n.Name)
		}
		return e.slotValue(b.Depth, b.Slot), nil
	case *ast.BinaryExpr:
		l, err := e.EvalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := e.EvalExpr(n.Right)
		if err != nil {
			return nil, err
		}
		li, lok := l.(value.Int)
		ri, rok := r.(value.Int)
		if !lok || !rok {
			return nil, fmt.Errorf("frameEvaluator: unsupported operand types %T/%T", l, r)
		}
		switch n.Op {
		case ast.BinAdd:
			return li + ri, nil
		case ast.BinGt:
			return value.Bool(li > ri), nil
		default:
			return nil, fmt.Errorf("frameEvaluator: unsupported binary op %v", n.Op)
		}
	default:
		return nil, fmt.Errorf("frameEvaluator: unsupported expr %T", expr)
	}
}

func mustParseBody(t *testing.T, src string) (*ast.ObjectBody, *member.Ctx) {
	t.Helper()
	mod := mustParseModule(t, "local x = "+src)
	res, err := member.CompileModule(mod)
	require.NoError(t, err)
	prop := res.Members[0]
	n, ok := prop.Body.(*ast.NewExpr)
	require.True(t, ok, "expected the property's value to be a `new` object literal, got %T", prop.Body)
	return n.Body, res.Ctx
}

func TestGen_PropertiesAndElementsAndEntries(t *testing.T) {
	body, c := mustParseBody(t, "new {\n  a = 1\n  2\n  [\"k\"] = 3\n}")
	ev := newFrameEvaluator(c.Bindings)
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)

	a, err := d.Read(ev, d, value.NameKey("a"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), a)

	elem, err := d.Read(ev, d, value.IndexKey(0))
	require.NoError(t, err)
	require.Equal(t, value.Int(2), elem)

	entry, err := d.Read(ev, d, value.AnyKey(value.String("k")))
	require.NoError(t, err)
	require.Equal(t, value.Int(3), entry)
}

func TestGen_LocalIsNotAVisibleMemberButSiblingsSeeIt(t *testing.T) {
	body, c := mustParseBody(t, "new {\n  local base = 10\n  a = base + 1\n}")
	ev := newFrameEvaluator(c.Bindings)
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)

	a, err := d.Read(ev, d, value.NameKey("a"))
	require.NoError(t, err)
	require.Equal(t, value.Int(11), a)

	_, ok := d.OwnMember(value.NameKey("base"))
	require.False(t, ok, "local member must not appear in the object's own member table")
}

func TestGen_WhenPicksExactlyOneBranch(t *testing.T) {
	body, c := mustParseBody(t, `new { when (2 > 1) { a = 1 } else { a = 2 } }`)
	ev := newFrameEvaluator(c.Bindings)
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)

	a, err := d.Read(ev, d, value.NameKey("a"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), a)
}

func TestGen_ForExpandsOverAListAssigningElements(t *testing.T) {
	// The for's iterable is driven through an injected Listing source
	// object (exercising the ObjectValue iteration path of forEach)
	// rather than a literal expression, since nothing in this package
	// alone can bind a bare name to a value without the full evaluator
	// core (C8).
	src := object.New(nil, value.VariantListing, "", 0)
	require.NoError(t, src.PutMember(value.IndexKey(src.GrowLength()), &member.Member{Kind: member.KindElement, Body: &ast.IntLit{Value: 10}}))
	require.NoError(t, src.PutMember(value.IndexKey(src.GrowLength()), &member.Member{Kind: member.KindElement, Body: &ast.IntLit{Value: 20}}))

	body, c := mustParseBody(t, `new { for (v in src) { v } }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: src}
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)

	require.Equal(t, int64(2), d.Length())
	e0, err := d.Read(ev, d, value.IndexKey(0))
	require.NoError(t, err)
	require.Equal(t, value.Int(10), e0)
	e1, err := d.Read(ev, d, value.IndexKey(1))
	require.NoError(t, err)
	require.Equal(t, value.Int(20), e1)
}

// namedSourceEvaluator extends frameEvaluator so a single bare name in
// source (here, `src`) evaluates to a fixed injected value.Value instead
// of requiring a real member/module lookup, letting the for-loop tests
// exercise ObjectValue iteration without building the full evaluator core.
type namedSourceEvaluator struct {
	*frameEvaluator
	name   string
	source value.Value
}

func (e *namedSourceEvaluator) EvalExpr(expr ast.Expr) (value.Value, error) {
	if ua, ok := expr.(*ast.UnqualifiedAccess); ok && ua.Name == e.name {
		return e.source, nil
	}
	return e.frameEvaluator.EvalExpr(expr)
}

func TestGen_SpreadReExposesSourceMembers(t *testing.T) {
	src := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, src.PutMember(value.NameKey("a"), &member.Member{Kind: member.KindProperty, Name: "a", Body: &ast.IntLit{Value: 7}}))

	body, c := mustParseBody(t, `new { ...src }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: src}
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)

	a, err := d.Read(ev, d, value.NameKey("a"))
	require.NoError(t, err)
	require.Equal(t, value.Int(7), a)
}

func TestGen_NullableSpreadToleratesNullSource(t *testing.T) {
	body, c := mustParseBody(t, `new { ...?src }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: value.Null{}}
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)
	require.Equal(t, int64(0), d.Length())
}

func TestGen_PredicateIsRecordedNotRenderedAsAMember(t *testing.T) {
	body, c := mustParseBody(t, `new { [["k"]] = 1 }`)
	ev := newFrameEvaluator(c.Bindings)
	d, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.NoError(t, err)
	require.Len(t, d.OwnPredicates(), 1)
}

func TestGen_AmendExtendsParentObject(t *testing.T) {
	parent := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, parent.PutMember(value.NameKey("x"), &member.Member{Kind: member.KindProperty, Name: "x", Body: &ast.IntLit{Value: 1}}))

	body, c := mustParseBody(t, `new { y = 2 }`)
	ev := newFrameEvaluator(c.Bindings)
	d, err := generator.Gen(ev, parent, c, body, generator.ModeAmend)
	require.NoError(t, err)

	x, err := d.Read(ev, d, value.NameKey("x"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), x)
	y, err := d.Read(ev, d, value.NameKey("y"))
	require.NoError(t, err)
	require.Equal(t, value.Int(2), y)
}

// TestGen_SpreadOfListAppendsElementsContinuingLength exercises spec
// §4.5's "List ... spread into Dynamic/Listing as successive elements
// (index continues from D.length)": amending a 2-element Listing with
// `...List(3, 4)` must yield [1, 2, 3, 4].
func TestGen_SpreadOfListAppendsElementsContinuingLength(t *testing.T) {
	parent := object.New(nil, value.VariantListing, "", 0)
	require.NoError(t, parent.PutMember(value.IndexKey(parent.GrowLength()), &member.Member{Kind: member.KindElement, Body: &ast.IntLit{Value: 1}}))
	require.NoError(t, parent.PutMember(value.IndexKey(parent.GrowLength()), &member.Member{Kind: member.KindElement, Body: &ast.IntLit{Value: 2}}))

	body, c := mustParseBody(t, `new { ...src }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: value.NewList(value.Int(3), value.Int(4))}
	d, err := generator.Gen(ev, parent, c, body, generator.ModeAmend)
	require.NoError(t, err)
	require.Equal(t, int64(4), d.Length())

	for i, want := range []value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)} {
		got, err := d.Read(ev, d, value.IndexKey(int64(i)))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// TestGen_EntryAmendmentOutOfRangeListingIndexFails exercises
// `child = (parent){ [2]=99 }` over a 2-element Listing, which must
// raise an amendment violation citing the offending index and the
// Listing's valid range rather than silently inserting a new element.
func TestGen_EntryAmendmentOutOfRangeListingIndexFails(t *testing.T) {
	parent := object.New(nil, value.VariantListing, "", 0)
	require.NoError(t, parent.PutMember(value.IndexKey(parent.GrowLength()), &member.Member{Kind: member.KindElement, Body: &ast.IntLit{Value: 1}}))
	require.NoError(t, parent.PutMember(value.IndexKey(parent.GrowLength()), &member.Member{Kind: member.KindElement, Body: &ast.IntLit{Value: 2}}))

	body, c := mustParseBody(t, `new { [2] = 99 }`)
	ev := newFrameEvaluator(c.Bindings)
	_, err := generator.Gen(ev, parent, c, body, generator.ModeAmend)
	require.Error(t, err)
	require.Equal(t, diag.KindAmendmentViolation, diagKind(t, err))
	require.Contains(t, err.Error(), "out of range")
}

// TestGen_SpreadRejectsPropertyIntoListing exercises the §4.5
// compatibility matrix: a Dynamic source's property key has no home on
// a Listing parent and must be rejected, not silently copied in.
func TestGen_SpreadRejectsPropertyIntoListing(t *testing.T) {
	src := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, src.PutMember(value.NameKey("a"), &member.Member{Kind: member.KindProperty, Name: "a", Body: &ast.IntLit{Value: 7}}))

	parent := object.New(nil, value.VariantListing, "", 0)
	body, c := mustParseBody(t, `new { ...src }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: src}
	_, err := generator.Gen(ev, parent, c, body, generator.ModeAmend)
	require.Error(t, err)
	require.Equal(t, diag.KindSpreadRejection, diagKind(t, err))
}

// TestGen_SpreadRejectsMapEntriesIntoTyped covers the Typed column of
// the matrix: a Map's entries have no home on a typed object.
func TestGen_SpreadRejectsMapEntriesIntoTyped(t *testing.T) {
	m := value.NewMap()
	m.Put(value.String("k"), value.Int(1))

	proto := object.NewClassRoot(nil, "Foo")
	body, c := mustParseBody(t, `new { ...src }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: m}
	_, err := generator.Gen(ev, proto, c, body, generator.ModeAmend)
	require.Error(t, err)
	require.Equal(t, diag.KindSpreadRejection, diagKind(t, err))
}

// TestGen_DuplicatePropertyInSameLiteralFails ensures two properties of
// the same name in one literal are rejected rather than the second
// silently overwriting the first.
func TestGen_DuplicatePropertyInSameLiteralFails(t *testing.T) {
	body, c := mustParseBody(t, `new { a = 1 a = 2 }`)
	ev := newFrameEvaluator(c.Bindings)
	_, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.Error(t, err)
	require.Equal(t, diag.KindDuplicateDefinition, diagKind(t, err))
}

// TestGen_AmendRejectsPropertyNotDeclaredByClass exercises the typed-
// class property-matching check: amending a Typed object with a
// literal naming a property the class never declared must fail, while
// declaring that same class's own prototype (ModeDeclare) must not.
func TestGen_AmendRejectsPropertyNotDeclaredByClass(t *testing.T) {
	proto := object.NewClassRoot(nil, "Foo")
	require.NoError(t, proto.PutMember(value.NameKey("known"), &member.Member{Kind: member.KindProperty, Name: "known", Body: &ast.IntLit{Value: 1}}))

	body, c := mustParseBody(t, `new { unknown = 2 }`)
	ev := newFrameEvaluator(c.Bindings)

	_, err := generator.Gen(ev, proto, c, body, generator.ModeAmend)
	require.Error(t, err)
	require.Equal(t, diag.KindAmendmentViolation, diagKind(t, err))

	_, err = generator.Gen(ev, proto, c, body, generator.ModeDeclare)
	require.NoError(t, err, "declaring a class's own prototype must accept its own new properties")
}

// TestGen_ForOverNullFailsWithForQHint exercises spec §4.5/§7: iterating
// a null value fails with a NOT_ITERABLE error hinting at `for?`.
func TestGen_ForOverNullFailsWithForQHint(t *testing.T) {
	body, c := mustParseBody(t, `new { for (v in src) { v } }`)
	ev := &namedSourceEvaluator{frameEvaluator: newFrameEvaluator(c.Bindings), name: "src", source: value.Null{}}
	_, err := generator.Gen(ev, nil, c, body, generator.ModeAmend)
	require.Error(t, err)

	var derr *diag.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, diag.KindNotIterable, derr.Kind())
	require.NotEmpty(t, derr.Hints())
	require.Contains(t, derr.Hints()[0], "for?")
}
