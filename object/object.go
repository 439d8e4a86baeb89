// Package object implements the object runtime (spec component C5): the
// five object variants, their amendment chain, and member lookup. It
// represents objects uniformly enough that one Read/ReadSuper/
// ForEachMember implementation serves Dynamic, Listing, Mapping, Typed
// and class-prototype objects alike, differentiating only where the
// variant table in spec §3 requires it (length counting, permitted
// member kinds, default-on-miss behavior).
//
// Evaluation itself — invoking a member's compiled body, memoizing it
// per (receiver, key), detecting re-entrant evaluation — belongs to the
// evaluator core (C8) and is reached only through the value.Evaluator
// capability passed into Read/ReadSuper; Object never evaluates a body
// itself.
package object

import (
	"fmt"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/token"
	"github.com/pklgo/pklcore/value"
)

// Predicate is one `[[predExpr]] = value` member attached to an Object
// (spec §4.5 PredicateNode), kept alongside the object's own members so
// the evaluator can compose it over any key read anywhere in the
// amendment chain at or below this object. M.Key is the predicate
// expression, M.Body the value composed over whatever the key already
// resolved to.
type Predicate struct {
	M *member.Member // Kind == member.KindPredicate
}

// entry is one slot in an Object's own member table, in declaration
// order (spec §4.4 "ordered map members: Name|Long|Any → Member").
type entry struct {
	key value.MemberKey
	m   *member.Member
}

// Object is the concrete implementation of value.ObjectValue shared by
// all five variants (spec §3 "Every object has: an immutable parent ...
// a materialized frame of captured bindings, an ordered map members ...
// optional length ... and an extra_storage slot").
type Object struct {
	parent    value.ObjectValue
	variant   value.Variant
	className string

	entries    []entry
	predicates []Predicate

	// length is the Dynamic/Listing element count; -1 for variants that
	// have no numeric length (spec §3 variant table).
	length int64

	// ExtraStorage holds frame-stored bindings for members introduced by
	// a `for` body that captures an enclosing `for`'s key/value (spec
	// §4.5 "Frame-stored members"), keyed by the member's MemberKey
	// rendered via MemberKey.String. The concrete frame type is defined
	// by the evaluator core (C8); Object only carries it through.
	ExtraStorage map[string]any
}

// New constructs an Object with no members of its own, amending parent
// (nil for a root class prototype). length should be 0 for Dynamic and
// Listing roots (growing as elements are appended by the generator
// engine, C6) and -1 for Mapping/Typed/Class, which have no numeric
// length.
func New(parent value.ObjectValue, variant value.Variant, className string, length int64) *Object {
	return &Object{parent: parent, variant: variant, className: className, length: length}
}

// Amend creates a new Object extending parent via the amendment chain.
// Its variant, class name and starting length are inherited from parent
// (spec §4.5: a generator literal "wraps into a new object whose
// parent is the literal's parent, and whose class/variant is inferred
// from the parent") so that, e.g., successive element indices continue
// the running Listing length rather than restarting at zero.
func Amend(parent value.ObjectValue) *Object {
	if parent == nil {
		return New(nil, value.VariantDynamic, "", 0)
	}
	return New(parent, parent.Variant(), parent.ClassName(), parent.Length())
}

// NewClassRoot starts a new class's own prototype chain: unlike Amend,
// className names this class itself rather than inheriting superclass's
// name, since a typed instance's ClassName is always its most-derived
// class (spec §4.6 DeclaredType checking walks that name upward via
// ClassLookup.IsA, not the other way round). superclass is the already
// built prototype for the `extends` clause, or nil for a root class.
func NewClassRoot(superclass value.ObjectValue, className string) *Object {
	return New(superclass, value.VariantTyped, className, -1)
}

func (o *Object) Kind() value.Kind { return value.KindObject }

func (o *Object) String() string {
	if o.className != "" {
		return fmt.Sprintf("%s(%s)", o.variant, o.className)
	}
	return o.variant.String()
}

// Equal implements value.Value identity: two Objects are equal only if
// they are the same instance (spec §8's memoization/amendment
// properties are phrased in terms of object identity, not structural
// equality — amending an object never mutates an existing one).
func (o *Object) Equal(other value.Value) bool {
	oo, ok := other.(*Object)
	return ok && oo == o
}

func (o *Object) Variant() value.Variant { return o.variant }
func (o *Object) ClassName() string      { return o.className }
func (o *Object) Length() int64          { return o.length }
func (o *Object) Parent() value.ObjectValue { return o.parent }

// PutMember inserts a member into this object's own table (does not
// touch the amendment chain). A new Object is created fresh per
// amended literal (see Amend/NewClassRoot), so two PutMember calls for
// the same key on the same Object both come from that one literal body
// — spec §4.4's "ordered map members" never lets a literal redefine its
// own key, so that collision is rejected as DUPLICATE_DEFINITION rather
// than silently overwritten. Amending an *ancestor's* member (the
// normal, allowed case) never reaches this collision, since the
// override lands on a different, newly Amend'd Object.
//
// Overriding a parent-chain member declared `const` or `fixed` is
// likewise rejected, as AMENDMENT_VIOLATION (spec §3/§7: "const/fixed
// members reject amendment").
func (o *Object) PutMember(key value.MemberKey, m *member.Member) error {
	for i := range o.entries {
		if o.entries[i].key.Equal(key) {
			return diag.New(diag.KindDuplicateDefinition, m.HeaderSpan,
				"%s is already defined in this literal", key).
				WithHint("remove one of the duplicate definitions")
		}
	}
	if o.parent != nil {
		if _, pm, ok := lookup(o.parent, key); ok {
			if pm.Modifiers.Has(ast.ModConst) || pm.Modifiers.Has(ast.ModFixed) {
				return diag.New(diag.KindAmendmentViolation, m.HeaderSpan,
					"%s cannot be amended: it is declared const or fixed", key).
					WithHint("remove the const/fixed modifier on the original declaration to allow amendment")
			}
		}
	}
	o.entries = append(o.entries, entry{key: key, m: m})
	return nil
}

// AddPredicate records a deferred-amendment predicate declared directly
// on this object (spec §4.5 PredicateNode).
func (o *Object) AddPredicate(p Predicate) {
	o.predicates = append(o.predicates, p)
}

// GrowLength advances the Dynamic/Listing element counter by one and
// returns the index the next ElementNode should use (spec §4.5
// ElementNode: "append with key = current D.length, then increment").
func (o *Object) GrowLength() int64 {
	idx := o.length
	o.length++
	return idx
}

// OwnMember looks up key in this object's own member table only (no
// chain walk). Used by the evaluator to fetch the Member a Read call
// has already resolved down to, and by Read itself to walk the chain
// one link at a time.
func (o *Object) OwnMember(key value.MemberKey) (*member.Member, bool) {
	for _, e := range o.entries {
		if e.key.Equal(key) {
			return e.m, true
		}
	}
	return nil, false
}

// OwnPredicates returns the predicates declared directly on this
// object, in declaration order.
func (o *Object) OwnPredicates() []Predicate { return o.predicates }

// lookup walks the amendment chain starting at o looking for key,
// returning the defining object and its Member. ok is false if no
// object in the chain (down to the root) declares key.
func lookup(o value.ObjectValue, key value.MemberKey) (*Object, *member.Member, bool) {
	for cur := o; cur != nil; cur = cur.Parent() {
		co, ok := cur.(*Object)
		if !ok {
			// A foreign ObjectValue implementation (e.g. a test double)
			// terminates the walk; it is responsible for its own lookup
			// semantics via its own Read, not via this chain-walk helper.
			return nil, nil, false
		}
		if m, ok := co.OwnMember(key); ok {
			return co, m, true
		}
	}
	return nil, nil, false
}

// Lookup walks ov's amendment chain for key and returns the compiled
// Member that defines it, without evaluating it. Used by the generator
// engine (C6) to re-expose another object's members under a spread
// (spec §4.5 SpreadNode) without needing to know which link in the
// chain actually declared each key.
func Lookup(ov value.ObjectValue, key value.MemberKey) (*member.Member, bool) {
	_, m, ok := lookup(ov, key)
	return m, ok
}

// defaultKey is the synthetic `default` property Listing/Mapping use to
// handle reads of a key with no matching member (spec §3 variant
// table: "property only for default or local").
var defaultKey = value.NameKey("default")

// Read implements value.ObjectValue.Read (spec §4.4 `read`): descend
// the amendment chain from o looking for a member under key; on hit,
// evaluate it with receiver as the late-bound `this` and the defining
// object as owner. If nothing matches, fall back to a `default`
// property anywhere in the chain; otherwise fail.
func (o *Object) Read(ev value.Evaluator, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	return read(ev, o, o, receiver, key)
}

// ReadSuper implements value.ObjectValue.ReadSuper (spec §4.4
// `read_super`): identical lookup, but begins one link above owner
// instead of at o.
func (o *Object) ReadSuper(ev value.Evaluator, receiver value.ObjectValue, owner value.ObjectValue, key value.MemberKey) (value.Value, error) {
	oo, ok := owner.(*Object)
	if !ok || oo.parent == nil {
		return nil, diag.New(diag.KindMissingMember, token.Span{}, "no superclass above %v for %v", owner, key)
	}
	return read(ev, o, oo.parent, receiver, key)
}

// read is shared by Read/ReadSuper: origin is where the predicate
// search range begins (the call site), start is where the member-chain
// walk itself begins.
func read(ev value.Evaluator, origin value.ObjectValue, start value.ObjectValue, receiver value.ObjectValue, key value.MemberKey) (value.Value, error) {
	defOwner, _, ok := lookup(start, key)
	if !ok {
		defOwner, _, ok = lookup(start, defaultKey)
		if !ok {
			return nil, missingError(key)
		}
		val, err := ev.InvokeMember(defOwner, receiver, defaultKey)
		if err != nil {
			return nil, err
		}
		return ev.ApplyPredicates(origin, defOwner, receiver, key, val)
	}

	val, err := ev.InvokeMember(defOwner, receiver, key)
	if err != nil {
		return nil, err
	}
	return ev.ApplyPredicates(origin, defOwner, receiver, key, val)
}

func missingError(key value.MemberKey) error {
	switch key.Kind {
	case value.KeyIndex:
		return diag.New(diag.KindMissingMember, token.Span{}, "missing element %v", key)
	case value.KeyAny:
		return diag.New(diag.KindMissingMember, token.Span{}, "missing entry %v", key)
	default:
		return diag.New(diag.KindMissingMember, token.Span{}, "missing property %v", key)
	}
}

// ForEachMember implements value.ObjectValue.ForEachMember (spec §4.4
// `for_each_member`): visits keys with correct shadowing — parent
// members first, then overrides/additions — by walking the chain from
// the root down to o and skipping any key an ancestor already visited,
// so an overridden key is visited once, at the ancestor's position.
func (o *Object) ForEachMember(visit func(key value.MemberKey) error) error {
	chain := chainToRoot(o)
	seen := make([]value.MemberKey, 0)
	alreadySeen := func(k value.MemberKey) bool {
		for _, s := range seen {
			if s.Equal(k) {
				return true
			}
		}
		return false
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, e := range chain[i].entries {
			if alreadySeen(e.key) {
				continue
			}
			seen = append(seen, e.key)
			if err := visit(e.key); err != nil {
				return err
			}
		}
	}
	return nil
}

// chainToRoot returns o and its ancestors, o first, root last.
func chainToRoot(o *Object) []*Object {
	var out []*Object
	for cur := value.ObjectValue(o); cur != nil; cur = cur.Parent() {
		co, ok := cur.(*Object)
		if !ok {
			break
		}
		out = append(out, co)
	}
	return out
}
