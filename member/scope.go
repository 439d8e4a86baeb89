// Package member implements the member model (spec component C4): it
// walks the AST produced by `parser`/`ast` and, for each declaration in
// a class, module or object body, builds a Member record that resolves
// modifiers and annotations and compiles the declaration's value/body
// into an executable expression tree whose local-binding references
// (function parameters, `let`, `for`) are pre-resolved to small integer
// frame-slot indices rather than re-walked by name at every evaluation.
package member

import "github.com/pklgo/pklcore/ast"

// Binding is how a name reference resolves once a Scope has been built
// over the declarations enclosing it.
type BindingKind int

const (
	// BindMember means the name did not resolve to any enclosing local
	// scope and must be looked up dynamically as a member of `this`
	// (spec §4.4 `read`) — amendment can add members after compile
	// time, so member lookup itself is never slot-resolved.
	BindMember BindingKind = iota

	// BindLocal means the name resolved to a function parameter,
	// `let`-binding or `for`-binding, addressed by Slot within the
	// frame Depth levels up from the point of use (0 = the innermost
	// frame).
	BindLocal
)

type Binding struct {
	Kind  BindingKind
	Slot  int
	Depth int
}

// Scope is a compile-time stack of frames used to resolve
// ast.UnqualifiedAccess nodes to frame slots while building Members.
// Each Scope corresponds to one runtime Frame (spec §4.8): a method
// body, a lambda body, or a `for`-generator iteration.
type Scope struct {
	parent *Scope
	names  map[string]int
	next   int
}

// NewRootScope starts a scope chain with no enclosing frames, used when
// compiling a module's or class's direct members.
func NewRootScope() *Scope {
	return &Scope{names: map[string]int{}}
}

// Nested opens a new frame (a method/lambda body or a `for` iteration)
// whose bindings shadow, but do not share slot numbering with, the
// enclosing scope.
func (s *Scope) Nested() *Scope {
	return &Scope{parent: s, names: map[string]int{}}
}

// Declare allocates a fresh slot for name in this scope (shadowing any
// outer binding of the same name) and returns it.
func (s *Scope) Declare(name string) int {
	slot := s.next
	s.next++
	s.names[name] = slot
	return slot
}

// FrameSize reports how many slots this scope's frame needs.
func (s *Scope) FrameSize() int { return s.next }

// Resolve looks up name starting at this scope and walking outward,
// returning BindMember if no enclosing frame declares it.
func (s *Scope) Resolve(name string) Binding {
	depth := 0
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.names[name]; ok {
			return Binding{Kind: BindLocal, Slot: slot, Depth: depth}
		}
		depth++
	}
	return Binding{Kind: BindMember}
}

// Bindings is the side table mapping each ast.UnqualifiedAccess node
// (by pointer identity) to its resolved Binding. A side table keeps the
// AST itself immutable (spec §3 "AST & Spans") while still letting the
// member compiler attach per-use resolution info.
type Bindings map[*ast.UnqualifiedAccess]Binding
