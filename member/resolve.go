package member

import "github.com/pklgo/pklcore/ast"

// Ctx accumulates compile state across a whole module: the Bindings
// side table every UnqualifiedAccess resolves against, the compiled
// Members for every nested object body reachable from an expression
// (an AmendExpr or NewExpr's Body), keyed by the *ast.ObjectBody node
// itself so `generator`/`object` can look a literal's Members up by its
// AST node without re-running the compiler at evaluation time, and
// ByNode, which maps every object-member AST node (leaf members and
// ForMember/WhenMember control nodes alike) to its compiled Member.
//
// The generator engine (C6) cannot simply walk CompileResult.Members
// for a body containing `for`/`when`: a `for`'s expansion depends on a
// runtime iterable value, so it must walk the *live* ast.ObjectBody.Members
// tree itself, re-entering the loop body once per iteration. ByNode is
// what lets it do that while still reusing this package's modifier/
// annotation/binding resolution instead of redoing it per node: for a
// leaf member it holds the ordinary compiled Member; for a ForMember/
// WhenMember it holds a synthetic Member whose Body is the node's
// driving expression (Iterable/Cond) and, for ForMember, whose KeySlot/
// ValueSlot/FrameSize describe the per-iteration frame the generator
// must open (spec §4.5 "allocate a fresh generator frame").
type Ctx struct {
	Bindings Bindings
	Nested   map[*ast.ObjectBody][]*Member
	ByNode   map[ast.ObjectMember]*Member
}

func newCtx() *Ctx {
	return &Ctx{
		Bindings: Bindings{},
		Nested:   map[*ast.ObjectBody][]*Member{},
		ByNode:   map[ast.ObjectMember]*Member{},
	}
}

// resolveExpr walks e, recording a Binding for every UnqualifiedAccess
// it finds and opening a Nested scope wherever the grammar introduces a
// new frame: a `let` binding's body, or a lambda's body (spec §4.3
// "allocates frame slot indices for function parameters, let-bindings,
// and for-bindings"). Nested object literals (`new`/amend bodies) get
// their own Member list compiled here too, recorded into c.Nested.
func resolveExpr(scope *Scope, e ast.Expr, c *Ctx) error {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.UnqualifiedAccess:
		c.Bindings[n] = scope.Resolve(n.Name)
	case *ast.QualifiedAccess:
		return resolveExpr(scope, n.Target, c)
	case *ast.SubscriptExpr:
		if err := resolveExpr(scope, n.Target, c); err != nil {
			return err
		}
		return resolveExpr(scope, n.Index, c)
	case *ast.SuperSubscript:
		return resolveExpr(scope, n.Index, c)
	case *ast.CallExpr:
		if err := resolveExpr(scope, n.Target, c); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := resolveExpr(scope, a, c); err != nil {
				return err
			}
		}
	case *ast.AmendExpr:
		if err := resolveExpr(scope, n.Target, c); err != nil {
			return err
		}
		return compileNestedBody(scope, n.Body, c)
	case *ast.NewExpr:
		if n.Type != nil {
			resolveType(scope, *n.Type, c)
		}
		return compileNestedBody(scope, n.Body, c)
	case *ast.UnaryExpr:
		return resolveExpr(scope, n.Operand, c)
	case *ast.BinaryExpr:
		if err := resolveExpr(scope, n.Left, c); err != nil {
			return err
		}
		return resolveExpr(scope, n.Right, c)
	case *ast.NotNullAssertExpr:
		return resolveExpr(scope, n.Operand, c)
	case *ast.IfExpr:
		if err := resolveExpr(scope, n.Cond, c); err != nil {
			return err
		}
		if err := resolveExpr(scope, n.Then, c); err != nil {
			return err
		}
		return resolveExpr(scope, n.Else, c)
	case *ast.LetExpr:
		if err := resolveExpr(scope, n.Binding.Init, c); err != nil {
			return err
		}
		if n.Binding.Type != nil {
			resolveType(scope, *n.Binding.Type, c)
		}
		inner := scope.Nested()
		if name, ok := n.Binding.Name.(*ast.UnqualifiedAccess); ok {
			slot := inner.Declare(name.Name)
			c.Bindings[name] = Binding{Kind: BindLocal, Slot: slot, Depth: 0}
		}
		return resolveExpr(inner, n.Body, c)
	case *ast.FuncLit:
		inner := scope.Nested()
		for _, p := range n.Params {
			if p.Type != nil {
				resolveType(scope, *p.Type, c)
			}
			inner.Declare(p.Name)
		}
		return resolveExpr(inner, n.Body, c)
	case *ast.TypeCheckExpr:
		if err := resolveExpr(scope, n.Operand, c); err != nil {
			return err
		}
		resolveType(scope, n.Type, c)
	case *ast.TypeCastExpr:
		if err := resolveExpr(scope, n.Operand, c); err != nil {
			return err
		}
		resolveType(scope, n.Type, c)
	case *ast.ThrowExpr:
		return resolveExpr(scope, n.Message, c)
	case *ast.TraceExpr:
		return resolveExpr(scope, n.Operand, c)
	case *ast.ImportExpr:
		return resolveExpr(scope, n.URI, c)
	case *ast.ReadExpr:
		return resolveExpr(scope, n.URI, c)
	case *ast.ParenExpr:
		return resolveExpr(scope, n.Inner, c)
	case *ast.StringLit:
		for _, part := range n.Parts {
			if part.Expr != nil {
				if err := resolveExpr(scope, part.Expr, c); err != nil {
					return err
				}
			}
		}
		// NullLit, BoolLit, IntLit, FloatLit, ThisExpr, OuterExpr, ModuleExpr,
		// SuperAccess are leaves with nothing further to resolve: `this`,
		// `outer`, `module` and `super.x` are already explicit walks of the
		// owner chain by construction (spec §4.3) — the evaluator core (C8)
		// resolves them against the live Frame/owner chain at call time,
		// not against this compile-time Scope.
	}
	return nil
}

func resolveType(scope *Scope, t ast.TypeNode, c *Ctx) {
	switch n := t.(type) {
	case ast.ConstrainedType:
		resolveType(scope, n.Base, c)
		for _, cst := range n.Constraints {
			_ = resolveExpr(scope, cst, c)
		}
	case ast.NullableType:
		resolveType(scope, n.Elem, c)
	case ast.UnionType:
		for _, m := range n.Members {
			resolveType(scope, m, c)
		}
	case ast.FunctionType:
		for _, p := range n.Params {
			resolveType(scope, p, c)
		}
		resolveType(scope, n.Result, c)
	case ast.ParenType:
		resolveType(scope, n.Inner, c)
	case ast.DeclaredType:
		for _, a := range n.Args {
			resolveType(scope, a, c)
		}
	}
}

// compileNestedBody compiles an object literal body found mid-expression
// (`new`/amend) and records its Members under c.Nested, sharing the
// enclosing scope so the literal's members can close over outer
// locals/parameters.
func compileNestedBody(scope *Scope, body *ast.ObjectBody, c *Ctx) error {
	members, _, err := compileMembers(body.Members, scope, c)
	if err != nil {
		return err
	}
	c.Nested[body] = members
	return nil
}
