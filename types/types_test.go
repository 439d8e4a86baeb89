package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/object"
	"github.com/pklgo/pklcore/token"
	"github.com/pklgo/pklcore/types"
	"github.com/pklgo/pklcore/value"
)

func declared(name string) ast.TypeNode {
	return ast.NewDeclaredType(token.Span{}, name)
}

func declaredWithArgs(name string, args ...ast.TypeNode) ast.TypeNode {
	return ast.NewDeclaredType(token.Span{}, name, args...)
}

func TestCheck_PrimitivesAcceptMatchingKindRejectOthers(t *testing.T) {
	c := types.New(nil, nil)

	_, err := c.Check(declared("String"), value.String("hi"))
	require.NoError(t, err)

	_, err = c.Check(declared("String"), value.Int(1))
	require.Error(t, err)

	_, err = c.Check(declared("Int"), value.Int(1))
	require.NoError(t, err)

	_, err = c.Check(declared("Number"), value.Float(1.5))
	require.NoError(t, err)

	_, err = c.Check(declared("Number"), value.String("nope"))
	require.Error(t, err)

	_, err = c.Check(declared("Any"), value.Null{})
	require.NoError(t, err)
}

func TestCheck_UnknownAcceptsAnythingNothingRejectsEverything(t *testing.T) {
	c := types.New(nil, nil)

	_, err := c.Check(ast.UnknownType{}, value.Int(42))
	require.NoError(t, err)

	_, err = c.Check(ast.NothingType{}, value.Int(42))
	require.Error(t, err)
}

func TestCheck_StringConstantMatchesExactValueOnly(t *testing.T) {
	c := types.New(nil, nil)
	want := ast.StringConstantType{Value: "prod"}

	_, err := c.Check(want, value.String("prod"))
	require.NoError(t, err)

	_, err = c.Check(want, value.String("dev"))
	require.Error(t, err)
}

func TestCheck_NullableAcceptsNullOrTheElementType(t *testing.T) {
	c := types.New(nil, nil)
	nt := ast.NullableType{Elem: declared("Int")}

	_, err := c.Check(nt, value.Null{})
	require.NoError(t, err)

	_, err = c.Check(nt, value.Int(1))
	require.NoError(t, err)

	_, err = c.Check(nt, value.String("x"))
	require.Error(t, err)
}

func TestCheck_UnionTriesMembersInOrder(t *testing.T) {
	c := types.New(nil, nil)
	u := ast.UnionType{Members: []ast.TypeNode{declared("Int"), declared("String")}, DefaultIndex: -1}

	_, err := c.Check(u, value.Int(1))
	require.NoError(t, err)

	_, err = c.Check(u, value.String("x"))
	require.NoError(t, err)

	_, err = c.Check(u, value.Bool(true))
	require.Error(t, err)
}

func TestCheck_ListAndSetAndMapCheckElementsEagerly(t *testing.T) {
	c := types.New(nil, nil)

	listT := declaredWithArgs("List", declared("Int"))
	_, err := c.Check(listT, value.NewList(value.Int(1), value.Int(2)))
	require.NoError(t, err)

	_, err = c.Check(listT, value.NewList(value.Int(1), value.String("oops")))
	require.Error(t, err)

	setT := declaredWithArgs("Set", declared("String"))
	_, err = c.Check(setT, value.NewSet(value.String("a")))
	require.NoError(t, err)

	mapT := declaredWithArgs("Map", declared("String"), declared("Int"))
	m := value.NewMap()
	m.Put(value.String("k"), value.Int(1))
	_, err = c.Check(mapT, m)
	require.NoError(t, err)

	bad := value.NewMap()
	bad.Put(value.String("k"), value.String("not an int"))
	_, err = c.Check(mapT, bad)
	require.Error(t, err)
}

func TestCheck_ListingAndMappingAndDynamicCheckShapeOnly(t *testing.T) {
	c := types.New(nil, nil)

	listing := object.New(nil, value.VariantListing, "", 0)
	_, err := c.Check(declared("Listing"), listing)
	require.NoError(t, err)
	_, err = c.Check(declared("Mapping"), listing)
	require.Error(t, err)

	dyn := object.New(nil, value.VariantDynamic, "", 0)
	_, err = c.Check(declared("Dynamic"), dyn)
	require.NoError(t, err)
}

func TestCheck_UserClassAcceptsExactNameOrAncestorViaRegistry(t *testing.T) {
	reg := types.NewRegistry()
	reg.Declare("Derived", "Base")
	c := types.New(reg, nil)

	base := object.New(nil, value.VariantTyped, "Base", -1)
	derived := object.New(nil, value.VariantTyped, "Derived", -1)
	unrelated := object.New(nil, value.VariantTyped, "Other", -1)

	_, err := c.Check(declared("Base"), base)
	require.NoError(t, err)

	_, err = c.Check(declared("Base"), derived)
	require.NoError(t, err, "a Derived instance satisfies its declared superclass Base")

	_, err = c.Check(declared("Base"), unrelated)
	require.Error(t, err)
}

func TestCheck_ConstrainedRequiresWiredEvaluatorAndEnforcesConstraints(t *testing.T) {
	ct := ast.ConstrainedType{Base: declared("Int"), Constraints: []ast.Expr{&ast.BoolLit{Value: true}}}

	noEval := types.New(nil, nil)
	_, err := noEval.Check(ct, value.Int(5))
	require.Error(t, err, "a constrained type with no ConstraintEvaluator wired cannot be verified")

	pass := &fakeConstraintEvaluator{result: value.Bool(true)}
	c := types.New(nil, pass)
	_, err = c.Check(ct, value.Int(5))
	require.NoError(t, err)

	fail := &fakeConstraintEvaluator{result: value.Bool(false)}
	c = types.New(nil, fail)
	_, err = c.Check(ct, value.Int(5))
	require.Error(t, err)
}

type fakeConstraintEvaluator struct {
	result value.Value
	last   value.Value
}

func (f *fakeConstraintEvaluator) EvalConstraint(expr ast.Expr, this value.Value) (value.Value, error) {
	f.last = this
	return f.result, nil
}

func TestCheck_FunctionWrapsCallToCheckItsOwnReturnValue(t *testing.T) {
	c := types.New(nil, nil)
	ft := ast.FunctionType{Params: []ast.TypeNode{declared("Int")}, Result: declared("String")}

	fn := value.Function{Name: "f", Arity: 1, Call: func(args []value.Value) (value.Value, error) {
		return value.Int(1), nil // wrong return type on purpose
	}}

	checked, err := c.Check(ft, fn)
	require.NoError(t, err, "checking a Function value only validates arity, not its eventual return value")
	wrapped := checked.(value.Function)

	_, err = wrapped.Call(nil)
	require.Error(t, err, "the wrapped Call must enforce the declared return type")
}

func TestCheckAndBind_WritesSlotOnSuccessAndAnnotatesFrameOnFailure(t *testing.T) {
	c := types.New(nil, nil)
	ev := &slotEvaluator{}
	ev.PushFrame(1)

	_, err := c.CheckAndBind(declared("Int"), ev, 0, value.Int(3), "for-binding v")
	require.NoError(t, err)
	require.Equal(t, value.Int(3), ev.frames[0][0])

	_, err = c.CheckAndBind(declared("Int"), ev, 0, value.String("nope"), "for-binding v")
	require.Error(t, err)
	var mismatch *types.Mismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "for-binding v", mismatch.Frame)
}

// slotEvaluator is a bare-bones value.Evaluator good enough to exercise
// CheckAndBind's SetSlot call.
type slotEvaluator struct {
	frames [][]value.Value
}

func (e *slotEvaluator) PushFrame(size int) { e.frames = append(e.frames, make([]value.Value, size)) }
func (e *slotEvaluator) SetSlot(slot int, val value.Value) {
	e.frames[len(e.frames)-1][slot] = val
}
func (e *slotEvaluator) PopFrame() { e.frames = e.frames[:len(e.frames)-1] }
func (e *slotEvaluator) InvokeMember(owner, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	return nil, nil
}
func (e *slotEvaluator) ApplyPredicates(origin, owner, receiver value.ObjectValue, key value.MemberKey, base value.Value) (value.Value, error) {
	return base, nil
}
func (e *slotEvaluator) EvalExpr(expr ast.Expr) (value.Value, error) { return nil, nil }
