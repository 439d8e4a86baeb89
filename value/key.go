package value

import (
	"fmt"

	"github.com/pklgo/pklcore/ast"
)

// KeyKind distinguishes the three ways a member can be addressed, per
// spec §3's object variant table (`Name | Long | Any`).
type KeyKind int

const (
	KeyName KeyKind = iota
	KeyIndex
	KeyAny
)

// MemberKey is the uniform key type used to address a member of any of
// the five object variants: a declared/property name, a Listing index,
// or an arbitrary value (Mapping/Dynamic entry key).
type MemberKey struct {
	Kind  KeyKind
	Name  string
	Index int64
	Any   Value
}

func NameKey(name string) MemberKey  { return MemberKey{Kind: KeyName, Name: name} }
func IndexKey(i int64) MemberKey     { return MemberKey{Kind: KeyIndex, Index: i} }
func AnyKey(v Value) MemberKey       { return MemberKey{Kind: KeyAny, Any: v} }

func (k MemberKey) String() string {
	switch k.Kind {
	case KeyName:
		return k.Name
	case KeyIndex:
		return fmt.Sprintf("[%d]", k.Index)
	default:
		if k.Any == nil {
			return "<any>"
		}
		return k.Any.String()
	}
}

// Equal compares two keys the way map-entry and listing-index lookup
// needs to: by kind, then by the kind-appropriate payload. Any-keys fall
// back to Value.Equal so arbitrary entry keys (strings, objects, etc.)
// compare correctly.
func (k MemberKey) Equal(o MemberKey) bool {
	if k.Kind != o.Kind {
		// A Long index and an Any-keyed Int both identify the same slot
		// in a Dynamic object (spec §3: Dynamic is keyed by Name|Long|Any).
		if k.Kind == KeyIndex && o.Kind == KeyAny {
			if i, ok := o.Any.(Int); ok {
				return int64(i) == k.Index
			}
		}
		if o.Kind == KeyIndex && k.Kind == KeyAny {
			if i, ok := k.Any.(Int); ok {
				return int64(i) == o.Index
			}
		}
		return false
	}

	switch k.Kind {
	case KeyName:
		return k.Name == o.Name
	case KeyIndex:
		return k.Index == o.Index
	default:
		if k.Any == nil || o.Any == nil {
			return k.Any == o.Any
		}
		return k.Any.Equal(o.Any)
	}
}

// Variant identifies which of the five object shapes an ObjectValue has.
type Variant int

const (
	VariantDynamic Variant = iota
	VariantListing
	VariantMapping
	VariantTyped
	VariantClass
)

func (v Variant) String() string {
	switch v {
	case VariantDynamic:
		return "Dynamic"
	case VariantListing:
		return "Listing"
	case VariantMapping:
		return "Mapping"
	case VariantTyped:
		return "Typed"
	case VariantClass:
		return "Class"
	default:
		return "?"
	}
}

// ObjectValue is the interface every one of the five object variants
// implements (spec §4.4 C5). It is declared here, rather than in the
// `object` package, so that `member`, `generator` and `types` can refer
// to "an object" without importing `object` (which in turn imports
// `member`), avoiding an import cycle. The concrete implementation lives
// in package `object`.
type ObjectValue interface {
	Value

	// Variant reports which of the five shapes this object is.
	Variant() Variant

	// ClassName returns the declared class name for Typed/Class
	// variants, or "" for Dynamic/Listing/Mapping.
	ClassName() string

	// Length returns the element/listing length, or -1 if this variant
	// has no numeric length (Mapping, Typed, Class).
	Length() int64

	// Read performs the chained member lookup described in spec §4.4:
	// `read(receiver, owner, key)`. The Evaluator parameter supplies the
	// "drives" side (C8) that knows how to invoke a member's compiled
	// body; ObjectValue implementations never evaluate bodies
	// themselves.
	Read(ev Evaluator, receiver ObjectValue, key MemberKey) (Value, error)

	// ReadSuper begins the lookup one link above the given owner
	// (spec §4.4 `read_super`).
	ReadSuper(ev Evaluator, receiver ObjectValue, owner ObjectValue, key MemberKey) (Value, error)

	// ForEachMember visits every member key reachable from this object,
	// honoring shadowing along the amendment chain (spec §4.4
	// `for_each_member`), in amendment order (parent members first,
	// then overrides/additions).
	ForEachMember(visit func(key MemberKey) error) error

	// Parent returns the amendment-chain parent, or nil for a root
	// class prototype.
	Parent() ObjectValue
}

// Evaluator is the minimal capability ObjectValue.Read needs from the
// evaluator core (C8): invoke a member's compiled body with the correct
// receiver/owner framing. It is declared here (not in `eval`) so that
// `object` can accept it as a parameter without importing `eval`,
// inverting what would otherwise be an eval<->object import cycle.
type Evaluator interface {
	// InvokeMember evaluates the body of the member found at key on
	// owner, observed through receiver (the late-bound `this`).
	InvokeMember(owner, receiver ObjectValue, key MemberKey) (Value, error)

	// ApplyPredicates composes every predicate member declared anywhere
	// between receiver's read origin and owner (inclusive) whose
	// predicate expression matches key over base, in nearest-first
	// order (spec §4.5 PredicateNode: "a deferred amendment that ...
	// composes its body over the existing value"). Implemented by the
	// evaluator (C8), not by `object`, since composing a predicate body
	// requires the same frame/binding machinery as any other member
	// invocation.
	ApplyPredicates(origin, owner, receiver ObjectValue, key MemberKey, base Value) (Value, error)

	// EvalExpr evaluates expr against the evaluator's current frame,
	// owner and receiver — whatever invocation the evaluator is already
	// in the middle of. Used by the generator engine (C6) to evaluate a
	// `for`'s iterable, a `when`'s condition, an entry/predicate's key,
	// or a spread's source: none of these are addressed by a member key,
	// so none go through InvokeMember.
	EvalExpr(expr ast.Expr) (Value, error)

	// PushFrame opens a fresh frame of size slots on the evaluator's
	// frame stack: a one-slot frame for each `local` member the
	// generator reaches, and once per `for` iteration for that
	// iteration's key/value bindings (spec §4.5 "allocate a fresh
	// generator frame"). SetSlot writes a value into the most recently
	// pushed frame; PopFrame discards it. The generator engine brackets
	// each `for` iteration and `when` branch with a Push/Pop pair; a
	// local's frame is left open so that later lazy reads still find it.
	// Known slots (a for's key/value, a local's evaluated body) are
	// written via SetSlot as they are encountered.
	PushFrame(size int)
	SetSlot(slot int, val Value)
	PopFrame()
}
