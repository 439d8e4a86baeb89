// Package value defines the runtime value representation shared by the
// member, object, generator, types and eval packages. It sits below all
// of them so that none of those packages need to import each other just
// to talk about "a Pkl value".
package value

import "fmt"

// Kind tags the dynamic type of a Value for fast switches without a
// full type assertion chain.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindSet
	KindMap
	KindIntSeq
	KindBytes
	KindFunction
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindSet:
		return "Set"
	case KindMap:
		return "Map"
	case KindIntSeq:
		return "IntSeq"
	case KindBytes:
		return "Bytes"
	case KindFunction:
		return "Function"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// Value is any runtime Pkl value. Equal() implements the "value
// identity" notion the spec's memoization and amendment-non-destructive
// properties (§8) are phrased in terms of.
type Value interface {
	Kind() Kind
	String() string
	Equal(other Value) bool
}

// Null is the single null value.
type Null struct{}

func (Null) Kind() Kind          { return KindNull }
func (Null) String() string      { return "null" }
func (Null) Equal(o Value) bool  { _, ok := o.(Null); return ok }

// Bool wraps a boolean.
type Bool bool

func (b Bool) Kind() Kind     { return KindBool }
func (b Bool) String() string { return fmt.Sprintf("%t", bool(b)) }
func (b Bool) Equal(o Value) bool {
	ob, ok := o.(Bool)
	return ok && ob == b
}

// Int wraps a 64-bit signed integer (the "Long" of the spec).
type Int int64

func (i Int) Kind() Kind     { return KindInt }
func (i Int) String() string { return fmt.Sprintf("%d", int64(i)) }
func (i Int) Equal(o Value) bool {
	oi, ok := o.(Int)
	return ok && oi == i
}

// Float wraps a 64-bit float.
type Float float64

func (f Float) Kind() Kind     { return KindFloat }
func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }
func (f Float) Equal(o Value) bool {
	of, ok := o.(Float)
	return ok && of == f
}

// String wraps a Pkl string.
type String string

func (s String) Kind() Kind     { return KindString }
func (s String) String() string { return string(s) }
func (s String) Equal(o Value) bool {
	os, ok := o.(String)
	return ok && os == s
}

// Bytes wraps a byte string, iterable as a sequence of Int bytes (§4.5).
type Bytes []byte

func (b Bytes) Kind() Kind     { return KindBytes }
func (b Bytes) String() string { return fmt.Sprintf("Bytes(%d)", len(b)) }
func (b Bytes) Equal(o Value) bool {
	ob, ok := o.(Bytes)
	if !ok || len(ob) != len(b) {
		return false
	}
	for i := range b {
		if b[i] != ob[i] {
			return false
		}
	}
	return true
}

// IntSeq is the lazy `IntSeq(start, end, step)` range. Length is
// materialized up front; a negative step with end < start still yields a
// non-negative length (Open Question in spec §9, resolved in DESIGN.md).
type IntSeq struct {
	Start, Step int64
	Length      int64
}

func (s IntSeq) Kind() Kind     { return KindIntSeq }
func (s IntSeq) String() string { return fmt.Sprintf("IntSeq(start=%d,step=%d,length=%d)", s.Start, s.Step, s.Length) }
func (s IntSeq) Equal(o Value) bool {
	os, ok := o.(IntSeq)
	return ok && os == s
}

// At returns the i'th element of the sequence (0-based).
func (s IntSeq) At(i int64) Int {
	return Int(s.Start + i*s.Step)
}

// List is an ordered, immutable sequence of values.
type List struct {
	Elems []Value
}

func NewList(elems ...Value) List { return List{Elems: elems} }

func (l List) Kind() Kind     { return KindList }
func (l List) String() string { return fmt.Sprintf("List(%d)", len(l.Elems)) }
func (l List) Equal(o Value) bool {
	ol, ok := o.(List)
	if !ok || len(ol.Elems) != len(l.Elems) {
		return false
	}
	for i := range l.Elems {
		if !l.Elems[i].Equal(ol.Elems[i]) {
			return false
		}
	}
	return true
}

// Set is an ordered (insertion-order), deduplicated sequence of values.
type Set struct {
	Elems []Value
}

func NewSet(elems ...Value) Set { return Set{Elems: elems} }

func (s Set) Kind() Kind     { return KindSet }
func (s Set) String() string { return fmt.Sprintf("Set(%d)", len(s.Elems)) }
func (s Set) Equal(o Value) bool {
	os, ok := o.(Set)
	if !ok || len(os.Elems) != len(s.Elems) {
		return false
	}
	for i := range s.Elems {
		if !s.Elems[i].Equal(os.Elems[i]) {
			return false
		}
	}
	return true
}

// Map is an insertion-ordered association of values to values (§9 Open
// Question: Map iteration order is insertion order; see DESIGN.md).
type Map struct {
	Keys []Value
	Vals []Value
}

func NewMap() *Map { return &Map{} }

func (m *Map) Kind() Kind     { return KindMap }
func (m *Map) String() string { return fmt.Sprintf("Map(%d)", len(m.Keys)) }
func (m *Map) Equal(o Value) bool {
	om, ok := o.(*Map)
	if !ok || len(om.Keys) != len(m.Keys) {
		return false
	}
	for i := range m.Keys {
		if !m.Keys[i].Equal(om.Keys[i]) || !m.Vals[i].Equal(om.Vals[i]) {
			return false
		}
	}
	return true
}

// Put appends or overwrites (key, val), preserving first-insertion order
// on overwrite so iteration order stays stable under amendment-like
// updates.
func (m *Map) Put(key, val Value) {
	for i, k := range m.Keys {
		if k.Equal(key) {
			m.Vals[i] = val
			return
		}
	}
	m.Keys = append(m.Keys, key)
	m.Vals = append(m.Vals, val)
}

// Get looks up a key by value-equality.
func (m *Map) Get(key Value) (Value, bool) {
	for i, k := range m.Keys {
		if k.Equal(key) {
			return m.Vals[i], true
		}
	}
	return nil, false
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.Keys) }

// Function is a callable Pkl value: a lambda literal or bound method.
type Function struct {
	Name    string
	Arity   int
	Call    func(args []Value) (Value, error)
}

func (f Function) Kind() Kind     { return KindFunction }
func (f Function) String() string { return fmt.Sprintf("function %s(%d)", f.Name, f.Arity) }
func (f Function) Equal(o Value) bool {
	of, ok := o.(Function)
	return ok && of.Name == f.Name && &of == &f
}

// ToDynamicConvertible is implemented by values that support the
// `toDynamic()` conversion the generator engine's spread/iteration error
// hints refer to (SPEC_FULL.md "Supplemented features").
type ToDynamicConvertible interface {
	ToDynamic() ObjectValue
}
