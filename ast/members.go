package ast

// Modifiers is the bitset of member modifiers (spec §3 member record:
// "modifiers: bitset<Abstract, Open, Local, Hidden, Fixed, Const,
// External>").
type Modifiers uint16

const (
	ModAbstract Modifiers = 1 << iota
	ModOpen
	ModLocal
	ModHidden
	ModFixed
	ModConst
	ModExternal
)

func (m Modifiers) Has(f Modifiers) bool { return m&f != 0 }

// Annotation is an `@Name { ... }` or `@Name(...)` annotation attached
// to a member or class (spec §4 member record "annotations").
type Annotation struct {
	base
	Type TypeNode
	Body *ObjectBody // non-nil for `@Name { ... }`; nil for a bare `@Name`
}

func (a *Annotation) Children() []Node {
	out := []Node{a.Type}
	if a.Body != nil {
		out = append(out, a.Body)
	}
	return out
}

// DocComment carries consecutive `///` lines preceding a declaration
// (SPEC_FULL.md "doc-comment capture", grounded on the teacher's
// ast/docu.go "Stereotype Document" handling).
type DocComment struct {
	base
	Lines []string
}

func (d *DocComment) Children() []Node { return nil }

// ObjectMember is implemented by every member that can occur directly
// inside an object body (spec §3 "Object members").
type ObjectMember interface {
	Node
	objectMemberNode()
}

type memberBase struct {
	base
	Doc         *DocComment
	Modifiers   Modifiers
	Annotations []*Annotation
}

func (memberBase) objectMemberNode() {}

func (m memberBase) childrenPrefix() []Node {
	var out []Node
	if m.Doc != nil {
		out = append(out, m.Doc)
	}
	for _, a := range m.Annotations {
		out = append(out, a)
	}
	return out
}

// PropertyMember is `name = value` or `name { body }` (amend-shaped) or
// a bare declaration `name: Type` inside a class.
type PropertyMember struct {
	memberBase
	Name  string
	Type  *TypeNode
	Value Expr // nil for an abstract/external declaration
}

func (n *PropertyMember) Children() []Node {
	out := n.childrenPrefix()
	if n.Type != nil {
		out = append(out, *n.Type)
	}
	if n.Value != nil {
		out = append(out, n.Value)
	}
	return out
}

// MethodMember is `function name(params) = body` / `function name(params): R { body }`.
type MethodMember struct {
	memberBase
	Name       string
	Params     []*Param
	ReturnType *TypeNode
	Body       Expr
}

func (n *MethodMember) Children() []Node {
	out := n.childrenPrefix()
	for _, p := range n.Params {
		out = append(out, p)
	}
	if n.ReturnType != nil {
		out = append(out, *n.ReturnType)
	}
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

// EntryMember is `[keyExpr] = value` or `[keyExpr] { body }`.
type EntryMember struct {
	memberBase
	Key   Expr
	Value Expr
}

func (n *EntryMember) Children() []Node { return append(n.childrenPrefix(), n.Key, n.Value) }

// ElementMember is a bare `value` inside a Dynamic/Listing body.
type ElementMember struct {
	memberBase
	Value Expr
}

func (n *ElementMember) Children() []Node { return append(n.childrenPrefix(), n.Value) }

// PredicateMember is `[[predExpr]] = value` (spec §4.5 PredicateNode).
type PredicateMember struct {
	memberBase
	Pred  Expr
	Value Expr
}

func (n *PredicateMember) Children() []Node { return append(n.childrenPrefix(), n.Pred, n.Value) }

// SpreadMember is `...expr` or `...?expr`.
type SpreadMember struct {
	memberBase
	Nullable bool
	Source   Expr
}

func (n *SpreadMember) Children() []Node { return append(n.childrenPrefix(), n.Source) }

// LocalMember is a `local name = value` binding scoped to the object
// (not visible to renderers, spec §4.5 LocalNode).
type LocalMember struct {
	memberBase
	Name  string
	Type  *TypeNode
	Value Expr
}

func (n *LocalMember) Children() []Node {
	out := n.childrenPrefix()
	if n.Type != nil {
		out = append(out, *n.Type)
	}
	return append(out, n.Value)
}

// ForMember is `for (k, v in iterable) { body }` (spec §4.5 ForNode).
// KeyParam/ValueParam follow `for (v in e)` (ValueParam only) and
// `for (k, v in e)` (both) shapes.
type ForMember struct {
	memberBase
	KeyParam   *Param
	ValueParam *Param
	Iterable   Expr
	Body       []ObjectMember
}

func (n *ForMember) Children() []Node {
	out := n.childrenPrefix()
	if n.KeyParam != nil {
		out = append(out, n.KeyParam)
	}
	if n.ValueParam != nil {
		out = append(out, n.ValueParam)
	}
	out = append(out, n.Iterable)
	for _, m := range n.Body {
		out = append(out, m)
	}
	return out
}

// WhenMember is `when (cond) { then } else { else }` (spec §4.5 WhenNode).
type WhenMember struct {
	memberBase
	Cond Expr
	Then []ObjectMember
	Else []ObjectMember
}

func (n *WhenMember) Children() []Node {
	out := n.childrenPrefix()
	out = append(out, n.Cond)
	for _, m := range n.Then {
		out = append(out, m)
	}
	for _, m := range n.Else {
		out = append(out, m)
	}
	return out
}

// ObjectBody is the brace-delimited sequence of members making up an
// object literal, `new`/amend body, or class body.
type ObjectBody struct {
	base
	Members []ObjectMember
}

func (b *ObjectBody) Children() []Node {
	out := make([]Node, len(b.Members))
	for i, m := range b.Members {
		out[i] = m
	}
	return out
}

// ---- module-level declarations ----

type ExtendsOrAmendsKind int

const (
	NoClause ExtendsOrAmendsKind = iota
	ExtendsClause
	AmendsClause
)

type ModuleDecl struct {
	base
	Modifiers      Modifiers
	Name           string
	ClauseKind     ExtendsOrAmendsKind
	ClauseURI      Expr
}

func (d *ModuleDecl) Children() []Node {
	if d.ClauseURI != nil {
		return []Node{d.ClauseURI}
	}
	return nil
}

type ImportDecl struct {
	base
	URI   string
	Alias string
	Glob  bool
}

func (d *ImportDecl) Children() []Node { return nil }

type TypeAliasDecl struct {
	base
	Doc     *DocComment
	Name    string
	Type    TypeNode
}

func (d *TypeAliasDecl) Children() []Node { return []Node{d.Type} }

// ClassDecl is a `class Name extends Base { ... }` declaration.
type ClassDecl struct {
	base
	Doc       *DocComment
	Modifiers Modifiers
	Name      string
	Extends   *Path
	Body      *ObjectBody
}

func (d *ClassDecl) Children() []Node {
	var out []Node
	if d.Extends != nil {
		out = append(out, d.Extends)
	}
	out = append(out, d.Body)
	return out
}

// Module is the root AST node for a parsed `.pkl` file (spec §3
// "Module").
type Module struct {
	base
	Decl        *ModuleDecl
	Imports     []*ImportDecl
	Classes     []*ClassDecl
	TypeAliases []*TypeAliasDecl
	Properties  []*PropertyMember
	Methods     []*MethodMember
}

func (m *Module) Children() []Node {
	var out []Node
	if m.Decl != nil {
		out = append(out, m.Decl)
	}
	for _, i := range m.Imports {
		out = append(out, i)
	}
	for _, c := range m.Classes {
		out = append(out, c)
	}
	for _, ta := range m.TypeAliases {
		out = append(out, ta)
	}
	for _, p := range m.Properties {
		out = append(out, p)
	}
	for _, me := range m.Methods {
		out = append(out, me)
	}
	return out
}
