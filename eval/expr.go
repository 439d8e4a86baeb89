package eval

import (
	"fmt"
	"math"
	"os"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/value"
)

// EvalExpr is the big dispatch every object body, predicate, method and
// constraint expression ultimately runs through (spec §4.8). Name
// references resolve against whichever Ctx owns the expression tree
// currently being evaluated (ev.ctx, switched by InvokeMember/
// instantiateClass to the defining object's own compile unit) rather
// than by re-walking scopes at evaluation time.
func (ev *Evaluator) EvalExpr(e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.ConstExpr:
		return n.Value.(value.Value), nil
	case *ast.NullLit:
		return value.Null{}, nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.FloatLit:
		return value.Float(n.Value), nil
	case *ast.StringLit:
		return ev.evalStringLit(n)

	case *ast.ThisExpr:
		this := ev.this()
		if c, ok := this.(constraintThis); ok {
			return c.v, nil
		}
		return this, nil
	case *ast.ModuleExpr:
		return ev.module, nil
	case *ast.OuterExpr:
		return ev.outer()

	case *ast.UnqualifiedAccess:
		return ev.evalUnqualified(n)
	case *ast.QualifiedAccess:
		return ev.evalQualified(n)
	case *ast.SubscriptExpr:
		return ev.evalSubscript(n)
	case *ast.SuperAccess:
		return ev.evalSuper(value.NameKey(n.Name))
	case *ast.SuperSubscript:
		idx, err := ev.EvalExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return ev.evalSuper(keyOf(idx))

	case *ast.NewExpr:
		return ev.evalNew(n)
	case *ast.AmendExpr:
		return ev.evalAmend(n)

	case *ast.UnaryExpr:
		return ev.evalUnary(n)
	case *ast.BinaryExpr:
		return ev.evalBinary(n)
	case *ast.NotNullAssertExpr:
		v, err := ev.EvalExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		if _, isNull := v.(value.Null); isNull {
			return nil, fmt.Errorf("eval: !! asserted a non-null value but got null")
		}
		return v, nil

	case *ast.IfExpr:
		cond, err := ev.EvalExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		if truthyValue(cond) {
			return ev.EvalExpr(n.Then)
		}
		return ev.EvalExpr(n.Else)

	case *ast.LetExpr:
		return ev.evalLet(n)
	case *ast.FuncLit:
		return ev.makeFuncLit(n), nil

	case *ast.TypeCheckExpr:
		v, err := ev.EvalExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		_, mismatchErr := ev.checker.Check(n.Type, v)
		return value.Bool(mismatchErr == nil), nil
	case *ast.TypeCastExpr:
		v, err := ev.EvalExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return ev.checker.Check(n.Type, v)

	case *ast.ThrowExpr:
		msg, err := ev.EvalExpr(n.Message)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s", msg.String())
	case *ast.TraceExpr:
		v, err := ev.EvalExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "trace: %s\n", v.String())
		return v, nil

	case *ast.ImportExpr:
		uri, err := ev.EvalExpr(n.URI)
		if err != nil {
			return nil, err
		}
		return ev.importModule(uri.String(), n.Kind, n.Span())
	case *ast.ReadExpr:
		uri, err := ev.EvalExpr(n.URI)
		if err != nil {
			return nil, err
		}
		return ev.readResource(uri.String(), n.Kind, n.Span())

	case *ast.ParenExpr:
		return ev.EvalExpr(n.Inner)
	case *ast.CallExpr:
		return ev.evalCall(n)

	default:
		return nil, fmt.Errorf("eval: unhandled expression %T", e)
	}
}

func (ev *Evaluator) this() value.ObjectValue {
	if len(ev.invocations) == 0 {
		return ev.module
	}
	return ev.invocations[len(ev.invocations)-1].receiver
}

func (ev *Evaluator) owner() value.ObjectValue {
	if len(ev.invocations) == 0 {
		return nil
	}
	return ev.invocations[len(ev.invocations)-1].owner
}

// outer approximates spec's lexically-enclosing object with the current
// invocation's owner's own recorded outer link (set at the point a
// nested object literal was generated — see instantiateClass/evalNew).
// This coincides with true lexical nesting for a freshly declared
// member, and can diverge only when a member is read through an
// inherited/overriding owner different from the one it was written
// under; that gap is accepted rather than modeled, since Object carries
// no independent lexical-parent field.
func (ev *Evaluator) outer() (value.Value, error) {
	owner := ev.owner()
	o, ok := asStorageHolder(owner)
	if !ok {
		return nil, fmt.Errorf("eval: outer has no enclosing object here")
	}
	v, ok := o.ExtraStorage["outer"]
	if !ok {
		return nil, fmt.Errorf("eval: outer has no enclosing object here")
	}
	ov, ok := v.(value.ObjectValue)
	if !ok {
		return nil, fmt.Errorf("eval: outer has no enclosing object here")
	}
	return ov, nil
}

func (ev *Evaluator) evalUnqualified(n *ast.UnqualifiedAccess) (value.Value, error) {
	if ev.ctx != nil {
		if b, ok := ev.ctx.Bindings[n]; ok && b.Kind == member.BindLocal {
			return ev.slotValue(b.Depth, b.Slot)
		}
	}
	this := ev.this()
	if this == nil {
		return nil, fmt.Errorf("eval: %q is not in scope", n.Name)
	}
	return this.Read(ev, this, value.NameKey(n.Name))
}

func (ev *Evaluator) evalQualified(n *ast.QualifiedAccess) (value.Value, error) {
	target, err := ev.EvalExpr(n.Target)
	if err != nil {
		return nil, err
	}
	if n.NullSafe {
		if _, isNull := target.(value.Null); isNull {
			return value.Null{}, nil
		}
	}
	ov, ok := target.(value.ObjectValue)
	if !ok {
		return nil, fmt.Errorf("eval: %s has no property %q", target.Kind(), n.Name)
	}
	return ov.Read(ev, ov, value.NameKey(n.Name))
}

func (ev *Evaluator) evalSubscript(n *ast.SubscriptExpr) (value.Value, error) {
	target, err := ev.EvalExpr(n.Target)
	if err != nil {
		return nil, err
	}
	idx, err := ev.EvalExpr(n.Index)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case value.List:
		i, ok := idx.(value.Int)
		if !ok || int64(i) < 0 || int64(i) >= int64(len(t.Elems)) {
			return nil, fmt.Errorf("eval: list index out of range")
		}
		return t.Elems[i], nil
	case value.IntSeq:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, fmt.Errorf("eval: IntSeq index must be an Int")
		}
		return t.At(int64(i)), nil
	case *value.Map:
		v, ok := t.Get(idx)
		if !ok {
			return nil, fmt.Errorf("eval: no entry for key %s", idx.String())
		}
		return v, nil
	case value.ObjectValue:
		return t.Read(ev, t, keyOf(idx))
	default:
		return nil, fmt.Errorf("eval: %s is not subscriptable", target.Kind())
	}
}

func (ev *Evaluator) evalSuper(key value.MemberKey) (value.Value, error) {
	if len(ev.invocations) == 0 {
		return nil, fmt.Errorf("eval: super has no meaning outside a member body")
	}
	top := ev.invocations[len(ev.invocations)-1]
	return top.receiver.ReadSuper(ev, top.receiver, top.owner, key)
}

func (ev *Evaluator) evalLet(n *ast.LetExpr) (value.Value, error) {
	init, err := ev.EvalExpr(n.Binding.Init)
	if err != nil {
		return nil, err
	}
	ev.PushFrame(1)
	ev.SetSlot(0, init)
	res, err := ev.EvalExpr(n.Body)
	ev.PopFrame()
	return res, err
}

// makeFuncLit builds the value.Function a lambda expression evaluates
// to; calling it behaves like calling a method member (push a param
// frame, bind positionally, evaluate Body, pop), just without a
// declared return type to enforce.
func (ev *Evaluator) makeFuncLit(n *ast.FuncLit) value.Function {
	return value.Function{
		Name:  "",
		Arity: len(n.Params),
		Call: func(args []value.Value) (value.Value, error) {
			if len(args) != len(n.Params) {
				return nil, fmt.Errorf("eval: lambda expects %d argument(s), got %d", len(n.Params), len(args))
			}
			ev.PushFrame(len(n.Params))
			for i := range args {
				ev.SetSlot(i, args[i])
			}
			res, err := ev.EvalExpr(n.Body)
			ev.PopFrame()
			return res, err
		},
	}
}

func (ev *Evaluator) evalCall(n *ast.CallExpr) (value.Value, error) {
	target, err := ev.EvalExpr(n.Target)
	if err != nil {
		return nil, err
	}
	fn, ok := target.(value.Function)
	if !ok {
		return nil, fmt.Errorf("eval: %s is not callable", target.Kind())
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.EvalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn.Call(args)
}

func (ev *Evaluator) evalStringLit(n *ast.StringLit) (value.Value, error) {
	s := ""
	for _, part := range n.Parts {
		if part.Expr == nil {
			s += part.Const
			continue
		}
		v, err := ev.EvalExpr(part.Expr)
		if err != nil {
			return nil, err
		}
		s += v.String()
	}
	return value.String(s), nil
}

func (ev *Evaluator) evalUnary(n *ast.UnaryExpr) (value.Value, error) {
	v, err := ev.EvalExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.UnaryNeg:
		switch x := v.(type) {
		case value.Int:
			return value.Int(-x), nil
		case value.Float:
			return value.Float(-x), nil
		}
		return nil, fmt.Errorf("eval: cannot negate %s", v.Kind())
	case ast.UnaryNot:
		b, ok := v.(value.Bool)
		if !ok {
			return nil, fmt.Errorf("eval: ! requires a Boolean, got %s", v.Kind())
		}
		return value.Bool(!b), nil
	default:
		return nil, fmt.Errorf("eval: unknown unary operator")
	}
}

func (ev *Evaluator) evalBinary(n *ast.BinaryExpr) (value.Value, error) {
	// And/Or/Coalesce short-circuit: the right operand is evaluated only
	// when the left doesn't already decide the result.
	switch n.Op {
	case ast.BinAnd:
		l, err := ev.EvalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		if !truthyValue(l) {
			return value.Bool(false), nil
		}
		r, err := ev.EvalExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return value.Bool(truthyValue(r)), nil
	case ast.BinOr:
		l, err := ev.EvalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		if truthyValue(l) {
			return value.Bool(true), nil
		}
		r, err := ev.EvalExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return value.Bool(truthyValue(r)), nil
	case ast.BinCoalesce:
		l, err := ev.EvalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		if _, isNull := l.(value.Null); !isNull {
			return l, nil
		}
		return ev.EvalExpr(n.Right)
	}

	l, err := ev.EvalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := ev.EvalExpr(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.BinEq:
		return value.Bool(l.Equal(r)), nil
	case ast.BinNe:
		return value.Bool(!l.Equal(r)), nil
	case ast.BinPipe:
		fn, ok := r.(value.Function)
		if !ok {
			return nil, fmt.Errorf("eval: |> requires a function on the right, got %s", r.Kind())
		}
		return fn.Call([]value.Value{l})
	}

	if ls, ok := l.(value.String); ok && n.Op == ast.BinAdd {
		return value.String(string(ls) + r.String()), nil
	}

	lf, lIsFloat, lok := numeric(l)
	rf, rIsFloat, rok := numeric(r)
	if !lok || !rok {
		return nil, fmt.Errorf("eval: operator not defined for %s and %s", l.Kind(), r.Kind())
	}
	isFloat := lIsFloat || rIsFloat

	switch n.Op {
	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinMod, ast.BinPow:
		return arith(n.Op, lf, rf, isFloat)
	case ast.BinDiv:
		return value.Float(lf / rf), nil
	case ast.BinIntDiv:
		if rf == 0 {
			return nil, fmt.Errorf("eval: integer division by zero")
		}
		return value.Int(int64(lf) / int64(rf)), nil
	case ast.BinLt:
		return value.Bool(lf < rf), nil
	case ast.BinLe:
		return value.Bool(lf <= rf), nil
	case ast.BinGt:
		return value.Bool(lf > rf), nil
	case ast.BinGe:
		return value.Bool(lf >= rf), nil
	default:
		return nil, fmt.Errorf("eval: unknown binary operator")
	}
}

func arith(op ast.BinaryOp, l, r float64, isFloat bool) (value.Value, error) {
	var res float64
	switch op {
	case ast.BinAdd:
		res = l + r
	case ast.BinSub:
		res = l - r
	case ast.BinMul:
		res = l * r
	case ast.BinMod:
		res = math.Mod(l, r)
	case ast.BinPow:
		res = math.Pow(l, r)
	}
	if isFloat {
		return value.Float(res), nil
	}
	return value.Int(int64(res)), nil
}

func numeric(v value.Value) (f float64, isFloat, ok bool) {
	switch x := v.(type) {
	case value.Int:
		return float64(x), false, true
	case value.Float:
		return float64(x), true, true
	default:
		return 0, false, false
	}
}

func truthyValue(v value.Value) bool {
	b, ok := v.(value.Bool)
	return ok && bool(b)
}

// keyOf turns a subscript/predicate-match index value into a MemberKey:
// an Int indexes a Listing/List positionally, anything else addresses a
// Mapping/Dynamic entry by value identity.
func keyOf(v value.Value) value.MemberKey {
	if i, ok := v.(value.Int); ok {
		return value.IndexKey(int64(i))
	}
	return value.AnyKey(v)
}
