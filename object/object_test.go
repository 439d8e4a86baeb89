package object_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/object"
	"github.com/pklgo/pklcore/value"
)

// literalEvaluator evaluates just enough of member.Member.Body — integer,
// string and null literals — to exercise object.Read/ReadSuper/
// ForEachMember without depending on the full evaluator core (C8).
type literalEvaluator struct{}

func newLiteralEvaluator() *literalEvaluator {
	return &literalEvaluator{}
}

func (e *literalEvaluator) InvokeMember(owner, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	o, ok := owner.(*object.Object)
	if !ok {
		return nil, fmt.Errorf("owner is not *object.Object")
	}
	m, ok := o.OwnMember(key)
	if !ok {
		return nil, fmt.Errorf("no own member %v on owner", key)
	}
	return e.evalExpr(m.Body)
}

func (e *literalEvaluator) evalExpr(expr ast.Expr) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.StringLit:
		if len(n.Parts) == 1 && n.Parts[0].Expr == nil {
			return value.String(n.Parts[0].Const), nil
		}
		return value.String(""), nil
	case *ast.NullLit:
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("literalEvaluator: unsupported expr %T", expr)
	}
}

func (e *literalEvaluator) ApplyPredicates(origin, owner, receiver value.ObjectValue, key value.MemberKey, base value.Value) (value.Value, error) {
	return base, nil
}

func (e *literalEvaluator) EvalExpr(expr ast.Expr) (value.Value, error) {
	return e.evalExpr(expr)
}

func (e *literalEvaluator) PushFrame(size int)             {}
func (e *literalEvaluator) SetSlot(slot int, val value.Value) {}
func (e *literalEvaluator) PopFrame()                       {}

func intLit(v int64) *ast.IntLit    { return &ast.IntLit{Value: v} }
func strLit(s string) *ast.StringLit {
	return &ast.StringLit{Parts: []*ast.StringPart{{Const: s}}}
}

func propMember(name string, body ast.Expr) *member.Member {
	return &member.Member{Kind: member.KindProperty, Name: name, Body: body}
}

func TestObject_ReadOwnProperty(t *testing.T) {
	o := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, o.PutMember(value.NameKey("x"), propMember("x", intLit(42))))

	ev := newLiteralEvaluator()
	v, err := o.Read(ev, o, value.NameKey("x"))
	require.NoError(t, err)
	require.Equal(t, value.Int(42), v)
}

func TestObject_ReadMissingFails(t *testing.T) {
	o := object.New(nil, value.VariantDynamic, "", 0)
	ev := newLiteralEvaluator()
	_, err := o.Read(ev, o, value.NameKey("nope"))
	require.Error(t, err)
}

func TestObject_AmendmentOverridesAndInherits(t *testing.T) {
	base := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, base.PutMember(value.NameKey("x"), propMember("x", intLit(1))))
	require.NoError(t, base.PutMember(value.NameKey("y"), propMember("y", intLit(2))))

	amended := object.Amend(base)
	require.NoError(t, amended.PutMember(value.NameKey("x"), propMember("x", intLit(99))))

	ev := newLiteralEvaluator()

	x, err := amended.Read(ev, amended, value.NameKey("x"))
	require.NoError(t, err)
	require.Equal(t, value.Int(99), x)

	y, err := amended.Read(ev, amended, value.NameKey("y"))
	require.NoError(t, err)
	require.Equal(t, value.Int(2), y)
}

func TestObject_ReadSuperSkipsOwnOverride(t *testing.T) {
	base := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, base.PutMember(value.NameKey("x"), propMember("x", intLit(1))))

	amended := object.Amend(base)
	require.NoError(t, amended.PutMember(value.NameKey("x"), propMember("x", intLit(99))))

	ev := newLiteralEvaluator()
	x, err := amended.ReadSuper(ev, amended, amended, value.NameKey("x"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), x)
}

func TestObject_DefaultPropertyAppliesOnMiss(t *testing.T) {
	listing := object.New(nil, value.VariantListing, "", 0)
	require.NoError(t, listing.PutMember(value.NameKey("default"), propMember("default", strLit("fallback"))))

	ev := newLiteralEvaluator()
	v, err := listing.Read(ev, listing, value.IndexKey(7))
	require.NoError(t, err)
	require.Equal(t, value.String("fallback"), v)
}

func TestObject_ForEachMemberHonorsShadowing(t *testing.T) {
	base := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, base.PutMember(value.NameKey("a"), propMember("a", intLit(1))))
	require.NoError(t, base.PutMember(value.NameKey("b"), propMember("b", intLit(2))))

	amended := object.Amend(base)
	require.NoError(t, amended.PutMember(value.NameKey("b"), propMember("b", intLit(20))))
	require.NoError(t, amended.PutMember(value.NameKey("c"), propMember("c", intLit(3))))

	var keys []string
	err := amended.ForEachMember(func(key value.MemberKey) error {
		keys = append(keys, key.String())
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, keys)
	require.Len(t, keys, 3)
}

func TestObject_GrowLengthTracksElements(t *testing.T) {
	o := object.New(nil, value.VariantListing, "", 0)
	i0 := o.GrowLength()
	i1 := o.GrowLength()
	require.Equal(t, int64(0), i0)
	require.Equal(t, int64(1), i1)
	require.Equal(t, int64(2), o.Length())
}

func TestObject_AmendInheritsVariantClassNameAndLength(t *testing.T) {
	base := object.New(nil, value.VariantListing, "", 3)
	amended := object.Amend(base)
	require.Equal(t, value.VariantListing, amended.Variant())
	require.Equal(t, int64(3), amended.Length())
}

func TestToDynamic_FlattensChainPreservingLaziness(t *testing.T) {
	base := object.New(nil, value.VariantTyped, "Person", -1)
	require.NoError(t, base.PutMember(value.NameKey("name"), propMember("name", strLit("Ada"))))

	amended := object.Amend(base)
	require.NoError(t, amended.PutMember(value.NameKey("age"), propMember("age", intLit(30))))

	d, err := object.ToDynamic(amended)
	require.NoError(t, err)
	require.Equal(t, value.VariantDynamic, d.Variant())

	ev := newLiteralEvaluator()
	name, err := d.Read(ev, d, value.NameKey("name"))
	require.NoError(t, err)
	require.Equal(t, value.String("Ada"), name)

	age, err := d.Read(ev, d, value.NameKey("age"))
	require.NoError(t, err)
	require.Equal(t, value.Int(30), age)
}

func TestToList_MaterializesElementsInOrder(t *testing.T) {
	o := object.New(nil, value.VariantListing, "", 0)
	require.NoError(t, o.PutMember(value.IndexKey(o.GrowLength()), &member.Member{Kind: member.KindElement, Body: intLit(10)}))
	require.NoError(t, o.PutMember(value.IndexKey(o.GrowLength()), &member.Member{Kind: member.KindElement, Body: intLit(20)}))

	ev := newLiteralEvaluator()
	list, err := object.ToList(ev, o)
	require.NoError(t, err)
	require.Equal(t, value.NewList(value.Int(10), value.Int(20)), list)
}

func TestToMap_MaterializesEntries(t *testing.T) {
	o := object.New(nil, value.VariantMapping, "", -1)
	require.NoError(t, o.PutMember(value.AnyKey(value.String("k")), &member.Member{Kind: member.KindEntry, Body: intLit(5)}))

	ev := newLiteralEvaluator()
	m, err := object.ToMap(ev, o)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	got, ok := m.Get(value.String("k"))
	require.True(t, ok)
	require.Equal(t, value.Int(5), got)
}

func TestObject_PutMember_RejectsDuplicateInSameLiteral(t *testing.T) {
	o := object.New(nil, value.VariantDynamic, "", 0)
	require.NoError(t, o.PutMember(value.NameKey("x"), propMember("x", intLit(1))))

	err := o.PutMember(value.NameKey("x"), propMember("x", intLit(2)))
	require.Error(t, err)

	var derr *diag.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, diag.KindDuplicateDefinition, derr.Kind())
}

func TestObject_PutMember_RejectsConstOverride(t *testing.T) {
	base := object.New(nil, value.VariantDynamic, "", 0)
	constMember := propMember("x", intLit(1))
	constMember.Modifiers = ast.ModConst
	require.NoError(t, base.PutMember(value.NameKey("x"), constMember))

	amended := object.Amend(base)
	err := amended.PutMember(value.NameKey("x"), propMember("x", intLit(2)))
	require.Error(t, err)

	var derr *diag.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, diag.KindAmendmentViolation, derr.Kind())
}

func TestObject_PutMember_RejectsFixedOverride(t *testing.T) {
	base := object.New(nil, value.VariantDynamic, "", 0)
	fixedMember := propMember("x", intLit(1))
	fixedMember.Modifiers = ast.ModFixed
	require.NoError(t, base.PutMember(value.NameKey("x"), fixedMember))

	amended := object.Amend(base)
	err := amended.PutMember(value.NameKey("x"), propMember("x", intLit(2)))
	require.Error(t, err)

	var derr *diag.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, diag.KindAmendmentViolation, derr.Kind())
}
