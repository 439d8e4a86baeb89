// Package eval implements the evaluator core (spec component C8): the
// tree-walking interpreter that drives member, object, generator and
// types against a loaded module. It owns the frame stack, the
// receiver/owner/lexical bookkeeping that give `this`/`super`/`outer`/
// `module` their meaning (spec §4.8), per-(receiver, key) memoization
// with circular-read detection, module loading, and import/read
// resolution. Rendering output is package render's job and the test
// report is package testreport's.
package eval

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/object"
	"github.com/pklgo/pklcore/observability"
	"github.com/pklgo/pklcore/resource"
	"github.com/pklgo/pklcore/security"
	"github.com/pklgo/pklcore/types"
	"github.com/pklgo/pklcore/value"
)

// invocation is one entry of the evaluator's call stack (spec §4.8
// Receiver/Owner): owner is the object that physically holds the member
// currently running (where `super` starts, one link above owner.parent);
// receiver is the late-bound `this` the originating read began at.
type invocation struct {
	owner, receiver value.ObjectValue
}

// classInfo is what Evaluator needs to instantiate `new ClassName {}`:
// the declaration (for its Extends clause) and its compiled body, built
// once per class and shared read-only across every instance since
// Member bodies are immutable (spec §4.3).
type classInfo struct {
	decl   *ast.ClassDecl
	result *member.CompileResult
}

type memoKey struct {
	receiver value.ObjectValue
	key      value.MemberKey
}

// Evaluator is the concrete value.Evaluator/types.ConstraintEvaluator
// this package provides.
type Evaluator struct {
	checker  *types.Checker
	classReg *types.Registry

	classes    map[string]*classInfo
	prototypes map[string]*object.Object

	// ctx is the Bindings/Nested table the expression tree currently
	// being evaluated was compiled against. InvokeMember switches it to
	// the defining owner's own Ctx (stashed on the object's
	// ExtraStorage at generation time) before evaluating that owner's
	// member body, and restores the caller's on return, so a class's
	// members resolve local references against their own class body's
	// compile unit even while called from a different one's frame.
	ctx *member.Ctx

	module     *object.Object
	moduleName string
	modulePath string // "" unless the module was loaded from a file
	modules    map[string]*object.Object

	invocations []invocation

	// implicitTargets mirrors invocations: the value a nil-Target
	// AmendExpr should amend (spec's `name { ... }` / `[[pred]] { ... }`
	// shorthand, whose parser leaves Target nil because the thing being
	// amended — a predicate's prior base, a property's inherited super
	// value — is only known once evaluation reaches that point).
	implicitTargets []value.Value

	frames [][]value.Value

	memo       map[memoKey]value.Value
	inProgress map[memoKey]bool

	// moduleReader/resourceReader/modulePolicy/resourcePolicy are all
	// optional collaborators (spec §4.8/§6/§7): a bare New() Evaluator
	// still evaluates any module that doesn't itself `import`/`read`
	// something, which is what every existing evaluator_test.go case
	// exercises; WithModuleReader/WithResourceReader/WithSecurityPolicies
	// let an embedder add cross-module import and external-resource read
	// support without changing this constructor's signature.
	moduleReader    resource.ModuleReader
	resourceReader  resource.ResourceReader
	modulePolicy    *security.Policy
	resourcePolicy  *security.Policy
}

// New builds an Evaluator with empty module/class registries.
func New() *Evaluator {
	reg := types.NewRegistry()
	ev := &Evaluator{
		classReg:   reg,
		classes:    map[string]*classInfo{},
		prototypes: map[string]*object.Object{},
		memo:       map[memoKey]value.Value{},
		inProgress: map[memoKey]bool{},
	}
	ev.checker = types.New(reg, ev)
	return ev
}

// Checker exposes the type checker this Evaluator wires its
// ConstraintEvaluator/ClassLookup into, for callers that need to check a
// value against a TypeNode directly (e.g. a `for`-binding's declared
// type, spec §4.6 check_and_bind).
func (ev *Evaluator) Checker() *types.Checker { return ev.checker }

// WithModuleReader installs the resolver `import`/`import*` resolve
// module URIs through (spec §4.8). Returns ev for chaining.
func (ev *Evaluator) WithModuleReader(r resource.ModuleReader) *Evaluator {
	ev.moduleReader = r
	return ev
}

// WithResourceReader installs the reader `read`/`read*`/`read?` resolve
// resource URIs through (spec §6). Returns ev for chaining.
func (ev *Evaluator) WithResourceReader(r resource.ResourceReader) *Evaluator {
	ev.resourceReader = r
	return ev
}

// WithSecurityPolicies installs the allow/deny policies import/read are
// checked against before the respective reader is consulted (spec §7
// KindSecurityPolicy). Either may be nil to allow everything of that
// kind. Returns ev for chaining.
func (ev *Evaluator) WithSecurityPolicies(modules, resources *security.Policy) *Evaluator {
	ev.modulePolicy = modules
	ev.resourcePolicy = resources
	return ev
}

// ---- value.Evaluator: frame stack ----

func (ev *Evaluator) PushFrame(size int) {
	ev.frames = append(ev.frames, make([]value.Value, size))
}

func (ev *Evaluator) SetSlot(slot int, val value.Value) {
	ev.frames[len(ev.frames)-1][slot] = val
}

func (ev *Evaluator) PopFrame() {
	ev.frames = ev.frames[:len(ev.frames)-1]
}

// slotValue resolves a Binding's (Depth, Slot) pair against the live
// frame stack: Depth counts outward from the innermost pushed frame,
// matching how member.Scope.Resolve counts parent hops at compile time.
func (ev *Evaluator) slotValue(depth, slot int) (value.Value, error) {
	i := len(ev.frames) - 1 - depth
	if i < 0 || i >= len(ev.frames) {
		return nil, fmt.Errorf("eval: frame depth %d out of range (have %d frames)", depth, len(ev.frames))
	}
	frame := ev.frames[i]
	if slot < 0 || slot >= len(frame) {
		return nil, fmt.Errorf("eval: frame slot %d out of range (frame has %d slots)", slot, len(frame))
	}
	return frame[slot], nil
}

// ---- value.Evaluator: member invocation ----

// InvokeMember evaluates owner's compiled body for key, observed through
// receiver, memoizing the result per (receiver, key) (spec §5 "Member
// body evaluation is ... memoized per (receiver, key)") and rejecting a
// re-entrant read of the same (receiver, key) before it completes (spec
// §7 "Circular member: detected by re-entry during evaluation").
func (ev *Evaluator) InvokeMember(owner, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	mk := memoKey{receiver: receiver, key: key}
	if v, ok := ev.memo[mk]; ok {
		observability.RecordMemberCacheOutcome(true)
		return v, nil
	}
	observability.RecordMemberCacheOutcome(false)
	if ev.inProgress[mk] {
		return nil, oops.Code("CIRCULAR_MEMBER").With("key", key.String()).Errorf("circular read of %v", key)
	}

	o, ok := owner.(*object.Object)
	if !ok {
		return nil, fmt.Errorf("eval: owner is not *object.Object (%T)", owner)
	}
	m, ok := o.OwnMember(key)
	if !ok {
		return nil, fmt.Errorf("eval: no own member %v on owner", key)
	}

	ev.inProgress[mk] = true
	ev.invocations = append(ev.invocations, invocation{owner: owner, receiver: receiver})
	ev.implicitTargets = append(ev.implicitTargets, ev.inheritedValue(o, key))
	oldCtx := ev.ctx
	if c := ctxOf(o); c != nil {
		ev.ctx = c
	}

	val, err := ev.evalMemberBody(m)

	ev.ctx = oldCtx
	ev.implicitTargets = ev.implicitTargets[:len(ev.implicitTargets)-1]
	ev.invocations = ev.invocations[:len(ev.invocations)-1]
	delete(ev.inProgress, mk)
	if err != nil {
		return nil, oops.Code("MEMBER_EVAL_FAILED").With("key", key.String()).Wrap(err)
	}

	if m.Type != nil {
		checked, err := ev.checker.Check(*m.Type, val)
		if err != nil {
			return nil, oops.Code("TYPE_MISMATCH").With("key", key.String()).Wrap(err)
		}
		val = checked
	}

	ev.memo[mk] = val
	return val, nil
}

// inheritedValue looks up key one link above owner in the amendment
// chain, for a nil-Target AmendExpr to amend (a bare `name { ... }`
// re-declaration amends whatever the superclass/parent already gave
// `name`). A missing inherited value yields nil, which the AmendExpr
// case treats as "amend a fresh Dynamic" rather than an error.
func (ev *Evaluator) inheritedValue(owner *object.Object, key value.MemberKey) value.Value {
	parent := owner.Parent()
	if parent == nil {
		return nil
	}
	v, err := parent.Read(ev, parent, key)
	if err != nil {
		return nil
	}
	return v
}

func (ev *Evaluator) evalMemberBody(m *member.Member) (value.Value, error) {
	if m.Kind == member.KindMethod {
		return ev.makeFunction(m), nil
	}
	if m.Body == nil {
		return nil, fmt.Errorf("eval: %s member has no value (abstract/external)", m.Kind)
	}
	return ev.EvalExpr(m.Body)
}

// makeFunction builds the callable value.Function a method member reads
// as (or a FuncLit evaluates to): calling it pushes a parameter frame,
// binds each argument by position, evaluates Body, checks the declared
// return type if any, and pops the frame.
func (ev *Evaluator) makeFunction(m *member.Member) value.Function {
	return value.Function{
		Name:  m.Name,
		Arity: len(m.Params),
		Call: func(args []value.Value) (value.Value, error) {
			if len(args) != len(m.Params) {
				return nil, fmt.Errorf("eval: %s expects %d argument(s), got %d", m.Name, len(m.Params), len(args))
			}
			ev.PushFrame(m.FrameSize)
			for i := range args {
				ev.SetSlot(i, args[i])
			}
			res, err := ev.EvalExpr(m.Body)
			ev.PopFrame()
			if err != nil {
				return nil, err
			}
			if m.ReturnType != nil {
				return ev.checker.Check(*m.ReturnType, res)
			}
			return res, nil
		},
	}
}

// ---- value.Evaluator: predicates ----

// ApplyPredicates composes every predicate declared between origin and
// owner (inclusive), nearest-first, whose predicate expression matches
// key, each time binding the prior composed value as the implicit
// amendment target a nil-Target predicate body amends (spec §4.5
// PredicateNode: "a deferred amendment ... composes its body over the
// existing value").
func (ev *Evaluator) ApplyPredicates(origin, owner, receiver value.ObjectValue, key value.MemberKey, base value.Value) (value.Value, error) {
	oo, ok := owner.(*object.Object)
	if !ok {
		return base, nil
	}
	result := base
	for cur := origin; cur != nil; cur = cur.Parent() {
		co, ok := cur.(*object.Object)
		if !ok {
			break
		}
		for _, pred := range co.OwnPredicates() {
			matched, err := ev.predicateMatches(pred, key)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
			ev.invocations = append(ev.invocations, invocation{owner: co, receiver: receiver})
			ev.implicitTargets = append(ev.implicitTargets, result)
			oldCtx := ev.ctx
			if c := ctxOf(co); c != nil {
				ev.ctx = c
			}
			next, err := ev.EvalExpr(pred.M.Body)
			ev.ctx = oldCtx
			ev.implicitTargets = ev.implicitTargets[:len(ev.implicitTargets)-1]
			ev.invocations = ev.invocations[:len(ev.invocations)-1]
			if err != nil {
				return nil, oops.Code("PREDICATE_FAILED").With("key", key.String()).Wrap(err)
			}
			result = next
		}
		if co == oo {
			break
		}
	}
	return result, nil
}

func (ev *Evaluator) predicateMatches(pred object.Predicate, key value.MemberKey) (bool, error) {
	cond, err := ev.EvalExpr(pred.M.Key)
	if err != nil {
		return false, err
	}
	switch c := cond.(type) {
	case value.String:
		return key.Kind == value.KeyName && key.Name == string(c), nil
	case value.Int:
		return key.Equal(value.IndexKey(int64(c))), nil
	case value.Bool:
		return bool(c), nil
	default:
		return false, nil
	}
}

// ---- types.ConstraintEvaluator ----

// EvalConstraint evaluates a ConstrainedType's constraint expression
// with this bound to the candidate value, by pushing a throwaway
// invocation whose receiver is a minimal wrapper exposing only `this`
// and whose owner is nil — constraint expressions reference the value
// under test via `this`, never via a member key, so no owner object is
// needed.
func (ev *Evaluator) EvalConstraint(expr ast.Expr, this value.Value) (value.Value, error) {
	ev.invocations = append(ev.invocations, invocation{owner: nil, receiver: constraintThis{this}})
	res, err := ev.EvalExpr(expr)
	ev.invocations = ev.invocations[:len(ev.invocations)-1]
	return res, err
}

// constraintThis is a minimal value.ObjectValue standing in for `this`
// inside a constraint expression, when the candidate value is not
// itself an object (e.g. `Int(this > 0)`). ThisExpr only ever reads
// this.v back out; every other ObjectValue method is unreachable from a
// well-formed constraint expression built by this package's parser.
type constraintThis struct{ v value.Value }

func (c constraintThis) Kind() value.Kind               { return c.v.Kind() }
func (c constraintThis) String() string                 { return c.v.String() }
func (c constraintThis) Equal(o value.Value) bool       { return c.v.Equal(o) }
func (c constraintThis) Variant() value.Variant         { return value.VariantDynamic }
func (c constraintThis) ClassName() string              { return "" }
func (c constraintThis) Length() int64                  { return -1 }
func (c constraintThis) Parent() value.ObjectValue      { return nil }
func (c constraintThis) ForEachMember(func(value.MemberKey) error) error { return nil }
func (c constraintThis) Read(ev value.Evaluator, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	return nil, fmt.Errorf("eval: %v has no members inside a constraint expression", key)
}
func (c constraintThis) ReadSuper(ev value.Evaluator, receiver, owner value.ObjectValue, key value.MemberKey) (value.Value, error) {
	return nil, fmt.Errorf("eval: no super inside a constraint expression")
}

// ctxOf reads the Ctx an object's own body was compiled under, stashed
// on ExtraStorage at generation time (see instantiateClass/evalNew in
// module.go). An object with nothing stashed (e.g. a bare Dynamic with
// no declared members) has no name references to resolve, so a nil
// return just means "keep using whatever Ctx is already active".
func ctxOf(o *object.Object) *member.Ctx {
	if o.ExtraStorage == nil {
		return nil
	}
	ctx, _ := o.ExtraStorage["ctx"].(*member.Ctx)
	return ctx
}

// asStorageHolder is the one place that downcasts a value.ObjectValue to
// *object.Object to reach ExtraStorage; every other caller goes through
// the value.ObjectValue/value.Evaluator interfaces.
func asStorageHolder(v value.ObjectValue) (*object.Object, bool) {
	o, ok := v.(*object.Object)
	return o, ok
}
