package eval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/eval"
	"github.com/pklgo/pklcore/parser"
	"github.com/pklgo/pklcore/value"
)

func load(t *testing.T, src string) (*eval.Evaluator, value.ObjectValue) {
	t.Helper()
	mod, err := parser.ParseModule("test.pkl", []byte(src))
	require.NoError(t, err)
	ev := eval.New()
	root, err := ev.LoadModule("test", mod)
	require.NoError(t, err)
	return ev, root
}

func read(t *testing.T, ev *eval.Evaluator, root value.ObjectValue, name string) value.Value {
	t.Helper()
	v, err := root.Read(ev, root, value.NameKey(name))
	require.NoError(t, err)
	return v
}

func TestEval_PropertiesArithmeticAndStrings(t *testing.T) {
	ev, root := load(t, `
a = 1 + 2 * 3
b = "hello" + " " + "world"
c = "\(a) is the answer? \(a == 7)"
d = 10 / 4
e = 10 ~/ 4
`)
	require.Equal(t, value.Int(7), read(t, ev, root, "a"))
	require.Equal(t, value.String("hello world"), read(t, ev, root, "b"))
	require.Equal(t, value.String("7 is the answer? true"), read(t, ev, root, "c"))
	require.Equal(t, value.Float(2.5), read(t, ev, root, "d"))
	require.Equal(t, value.Int(2), read(t, ev, root, "e"))
}

func TestEval_IfLetAndCoalesce(t *testing.T) {
	ev, root := load(t, `
x = if (1 < 2) "yes" else "no"
y = let (n = 21) n * 2
z = null ?? "fallback"
`)
	require.Equal(t, value.String("yes"), read(t, ev, root, "x"))
	require.Equal(t, value.Int(42), read(t, ev, root, "y"))
	require.Equal(t, value.String("fallback"), read(t, ev, root, "z"))
}

func TestEval_MethodAndFunctionLiteral(t *testing.T) {
	ev, root := load(t, `
function add(a: Int, b: Int): Int = a + b
sum = add(3, 4)
double = (x: Int) -> x * 2
`)
	require.Equal(t, value.Int(7), read(t, ev, root, "sum"))

	d := read(t, ev, root, "double")
	fn, ok := d.(value.Function)
	require.True(t, ok)
	res, err := fn.Call([]value.Value{value.Int(5)})
	require.NoError(t, err)
	require.Equal(t, value.Int(10), res)
}

func TestEval_ForOverListing(t *testing.T) {
	ev, root := load(t, `
total = new Dynamic {
  for (v in new Listing {
    1
    2
    3
  }) {
    [v] = v * v
  }
}
`)
	total := read(t, ev, root, "total")
	ov, ok := total.(value.ObjectValue)
	require.True(t, ok)
	v, err := ov.Read(ev, ov, value.IndexKey(2))
	require.NoError(t, err)
	require.Equal(t, value.Int(4), v)
}

func TestEval_WhenPicksTakenBranch(t *testing.T) {
	ev, root := load(t, `
flag = true
picked = new Dynamic {
  when (flag) {
    z = 1
  } else {
    z = 2
  }
}
`)
	picked := read(t, ev, root, "picked")
	ov := picked.(value.ObjectValue)
	v, err := ov.Read(ev, ov, value.NameKey("z"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), v)
}

func TestEval_ClassInstantiationExtendsAndSuper(t *testing.T) {
	ev, root := load(t, `
class Base {
  greeting = "hi"
  announce = "base says \(greeting)"
}
class Sub extends Base {
  greeting = "hello"
  fromSuper = super.announce
}
inst = new Sub {}
`)
	inst := read(t, ev, root, "inst")
	ov := inst.(value.ObjectValue)

	greeting, err := ov.Read(ev, ov, value.NameKey("greeting"))
	require.NoError(t, err)
	require.Equal(t, value.String("hello"), greeting)

	// announce's body references `greeting` unqualified, late-bound to
	// the receiver, so the inherited member sees Sub's override.
	announce, err := ov.Read(ev, ov, value.NameKey("announce"))
	require.NoError(t, err)
	require.Equal(t, value.String("base says hello"), announce)

	fromSuper, err := ov.Read(ev, ov, value.NameKey("fromSuper"))
	require.NoError(t, err)
	require.Equal(t, value.String("base says hello"), fromSuper)
}

func TestEval_PredicateComposesOverMatchingKey(t *testing.T) {
	ev, root := load(t, `
tagged = new Dynamic {
  a = new Dynamic { n = 1 }
  b = new Dynamic { n = 2 }
  [["a"]] { marked = true }
}
`)
	tagged := read(t, ev, root, "tagged")
	ov := tagged.(value.ObjectValue)

	a, err := ov.Read(ev, ov, value.NameKey("a"))
	require.NoError(t, err)
	aObj, ok := a.(value.ObjectValue)
	require.True(t, ok)
	marked, err := aObj.Read(ev, aObj, value.NameKey("marked"))
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), marked)
	n, err := aObj.Read(ev, aObj, value.NameKey("n"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), n, "predicate amendment keeps the base object's own members")

	b, err := ov.Read(ev, ov, value.NameKey("b"))
	require.NoError(t, err)
	bObj, ok := b.(value.ObjectValue)
	require.True(t, ok)
	_, err = bObj.Read(ev, bObj, value.NameKey("marked"))
	require.Error(t, err, "predicate targeting \"a\" must not affect \"b\"")
}

func TestEval_NilTargetAmendShorthandInheritsFromSuper(t *testing.T) {
	ev, root := load(t, `
class Base {
  point = new Dynamic { x = 1 }
}
class Sub extends Base {
  point {
    y = 2
  }
}
inst = new Sub {}
`)
	inst := read(t, ev, root, "inst")
	ov := inst.(value.ObjectValue)
	point, err := ov.Read(ev, ov, value.NameKey("point"))
	require.NoError(t, err)
	pointObj := point.(value.ObjectValue)

	x, err := pointObj.Read(ev, pointObj, value.NameKey("x"))
	require.NoError(t, err)
	require.Equal(t, value.Int(1), x, "amend shorthand should keep the inherited `x`")

	y, err := pointObj.Read(ev, pointObj, value.NameKey("y"))
	require.NoError(t, err)
	require.Equal(t, value.Int(2), y)
}

func TestEval_ConstrainedReturnTypeAcceptsValidValue(t *testing.T) {
	ev, root := load(t, `
function positive(): Int(this > 0) = 5
n = positive()
`)
	n := read(t, ev, root, "n")
	require.Equal(t, value.Int(5), n)
}

func TestEval_ConstrainedReturnTypeRejectsViolatingValue(t *testing.T) {
	ev, root := load(t, `
function positive(): Int(this > 0) = -1
n = positive()
`)
	_, err := root.Read(ev, root, value.NameKey("n"))
	require.Error(t, err)
}

func TestEval_CircularMemberDetected(t *testing.T) {
	ev, root := load(t, `
a = b
b = a
`)
	_, err := root.Read(ev, root, value.NameKey("a"))
	require.Error(t, err)
}

func TestEval_MemoizationReturnsIdenticalObject(t *testing.T) {
	ev, root := load(t, `
shared = new Dynamic { v = 1 }
first = shared
second = shared
`)
	first := read(t, ev, root, "first")
	second := read(t, ev, root, "second")
	firstOV, ok := first.(value.ObjectValue)
	require.True(t, ok)
	secondOV, ok := second.(value.ObjectValue)
	require.True(t, ok)
	require.True(t, firstOV.Equal(secondOV), "reading `shared` through two different properties must yield the same memoized instance")
}
