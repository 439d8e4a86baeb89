package ast

// Expr is implemented by every expression node (spec §3 "Expressions").
type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ base }

func (exprBase) exprNode() {}

// ---- literals ----

type NullLit struct{ exprBase }

func (n *NullLit) Children() []Node { return nil }

type BoolLit struct {
	exprBase
	Value bool
}

func (n *BoolLit) Children() []Node { return nil }

type IntLit struct {
	exprBase
	Text  string // original text, so radix/separators survive pretty-printing
	Value int64
}

func (n *IntLit) Children() []Node { return nil }

type FloatLit struct {
	exprBase
	Text  string
	Value float64
}

func (n *FloatLit) Children() []Node { return nil }

// StringPart is one piece of a (possibly interpolated) string literal:
// either a constant run of text or an interpolated expression.
type StringPart struct {
	base
	Const string
	Expr  Expr // nil when Const is set
}

func (p *StringPart) Children() []Node {
	if p.Expr != nil {
		return []Node{p.Expr}
	}
	return nil
}

type StringLit struct {
	exprBase
	Multiline bool
	Parts     []*StringPart
}

func (n *StringLit) Children() []Node {
	out := make([]Node, len(n.Parts))
	for i, p := range n.Parts {
		out[i] = p
	}
	return out
}

// ---- identity / scope expressions ----

type ThisExpr struct{ exprBase }

func (n *ThisExpr) Children() []Node { return nil }

type OuterExpr struct{ exprBase }

func (n *OuterExpr) Children() []Node { return nil }

type ModuleExpr struct{ exprBase }

func (n *ModuleExpr) Children() []Node { return nil }

// UnqualifiedAccess is a bare identifier reference, resolved against the
// enclosing scopes (locals, object members, module members) at
// evaluation time (spec §4.8).
type UnqualifiedAccess struct {
	exprBase
	Name string
}

func (n *UnqualifiedAccess) Children() []Node { return nil }

// QualifiedAccess is `target.name` or `target?.name`.
type QualifiedAccess struct {
	exprBase
	Target    Expr
	Name      string
	NullSafe  bool
}

func (n *QualifiedAccess) Children() []Node { return []Node{n.Target} }

type SubscriptExpr struct {
	exprBase
	Target Expr
	Index  Expr
}

func (n *SubscriptExpr) Children() []Node { return []Node{n.Target, n.Index} }

// SuperAccess is `super.name`; SuperSubscript is `super[expr]`.
type SuperAccess struct {
	exprBase
	Name string
}

func (n *SuperAccess) Children() []Node { return nil }

type SuperSubscript struct {
	exprBase
	Index Expr
}

func (n *SuperSubscript) Children() []Node { return []Node{n.Index} }

// ---- object construction ----

// NewExpr is `new [Type] { body }`; Type is nil for a bare `new { ... }`.
type NewExpr struct {
	exprBase
	Type *TypeNode
	Body *ObjectBody
}

func (n *NewExpr) Children() []Node {
	out := []Node{}
	if n.Type != nil {
		out = append(out, *n.Type)
	}
	out = append(out, n.Body)
	return out
}

// AmendExpr is `expr { body }`, amending the object expr evaluates to.
type AmendExpr struct {
	exprBase
	Target Expr
	Body   *ObjectBody
}

func (n *AmendExpr) Children() []Node { return []Node{n.Target, n.Body} }

// ---- operators ----

type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

type UnaryExpr struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Children() []Node { return []Node{n.Operand} }

type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinIntDiv
	BinMod
	BinPow
	BinLt
	BinLe
	BinGt
	BinGe
	BinEq
	BinNe
	BinAnd
	BinOr
	BinPipe     // |>
	BinCoalesce // ??
)

type BinaryExpr struct {
	exprBase
	Op          BinaryOp
	Left, Right Expr
}

func (n *BinaryExpr) Children() []Node { return []Node{n.Left, n.Right} }

// NotNullAssertExpr is postfix `expr!!`.
type NotNullAssertExpr struct {
	exprBase
	Operand Expr
}

func (n *NotNullAssertExpr) Children() []Node { return []Node{n.Operand} }

// ---- control-flow-shaped expressions ----

type IfExpr struct {
	exprBase
	Cond, Then, Else Expr
}

func (n *IfExpr) Children() []Node { return []Node{n.Cond, n.Then, n.Else} }

type LetBinding struct {
	base
	Name Expr // UnqualifiedAccess or a destructuring pattern name
	Type *TypeNode
	Init Expr
}

func (n *LetBinding) Children() []Node {
	out := []Node{n.Name, n.Init}
	if n.Type != nil {
		out = append(out, *n.Type)
	}
	return out
}

type LetExpr struct {
	exprBase
	Binding *LetBinding
	Body    Expr
}

func (n *LetExpr) Children() []Node { return []Node{n.Binding, n.Body} }

type Param struct {
	base
	Name string
	Type *TypeNode
}

func (p *Param) Children() []Node {
	if p.Type != nil {
		return []Node{*p.Type}
	}
	return nil
}

type FuncLit struct {
	exprBase
	Params []*Param
	Body   Expr
}

func (n *FuncLit) Children() []Node {
	out := make([]Node, 0, len(n.Params)+1)
	for _, p := range n.Params {
		out = append(out, p)
	}
	return append(out, n.Body)
}

type TypeCheckExpr struct {
	exprBase
	Operand Expr
	Type    TypeNode
}

func (n *TypeCheckExpr) Children() []Node { return []Node{n.Operand, n.Type} }

type TypeCastExpr struct {
	exprBase
	Operand Expr
	Type    TypeNode
}

func (n *TypeCastExpr) Children() []Node { return []Node{n.Operand, n.Type} }

type ThrowExpr struct {
	exprBase
	Message Expr
}

func (n *ThrowExpr) Children() []Node { return []Node{n.Message} }

type TraceExpr struct {
	exprBase
	Operand Expr
}

func (n *TraceExpr) Children() []Node { return []Node{n.Operand} }

// ImportExprKind distinguishes `import(...)` from the glob form
// `import*(...)`.
type ImportExprKind int

const (
	ImportSingle ImportExprKind = iota
	ImportGlob
)

type ImportExpr struct {
	exprBase
	Kind ImportExprKind
	URI  Expr
}

func (n *ImportExpr) Children() []Node { return []Node{n.URI} }

// ReadExprKind distinguishes `read(...)`, `read*(...)` and `read?(...)`.
type ReadExprKind int

const (
	ReadSingle ReadExprKind = iota
	ReadGlob
	ReadNullable
)

type ReadExpr struct {
	exprBase
	Kind ReadExprKind
	URI  Expr
}

func (n *ReadExpr) Children() []Node { return []Node{n.URI} }

type ParenExpr struct {
	exprBase
	Inner Expr
}

func (n *ParenExpr) Children() []Node { return []Node{n.Inner} }

// CallExpr is `target(args...)` — the argument-list postfix operator
// (spec §4.2 precedence: "call (argument list)").
type CallExpr struct {
	exprBase
	Target Expr
	Args   []Expr
}

// ConstExpr wraps an already-evaluated runtime value as a member body.
// It has no surface syntax of its own: the generator engine (C6)
// synthesizes one when a spread source's elements are already Values
// (List/Set/Map/IntSeq have no lazy per-member bodies to re-point at,
// unlike an ObjectValue spread source), so the produced member can
// still be read through the ordinary lazy member-body path. Value
// holds a value.Value; it is typed `any` here since package ast is
// imported by package value and so cannot import it back.
type ConstExpr struct {
	exprBase
	Value any
}

func (n *ConstExpr) Children() []Node { return nil }

func (n *CallExpr) Children() []Node {
	out := make([]Node, 0, len(n.Args)+1)
	out = append(out, n.Target)
	for _, a := range n.Args {
		out = append(out, a)
	}
	return out
}
