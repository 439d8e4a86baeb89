package member

import (
	"fmt"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/token"
)

// Kind tags which of the six member shapes spec §3's Member record
// describes.
type Kind int

const (
	KindProperty Kind = iota
	KindMethod
	KindEntry
	KindElement
	KindLocal
	KindPredicate
	KindSpread

	// KindFor and KindWhen are synthetic: the generator engine (C6)
	// looks them up via Ctx.ByNode to get the pre-resolved Iterable/Cond
	// driving expression of a live ast.ForMember/ast.WhenMember it is
	// walking; neither ever appears in a CompileResult.Members list; see
	// spec §4.5 ForNode/WhenNode.
	KindFor
	KindWhen
)

func (k Kind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindMethod:
		return "method"
	case KindEntry:
		return "entry"
	case KindElement:
		return "element"
	case KindLocal:
		return "local"
	case KindPredicate:
		return "predicate"
	case KindSpread:
		return "spread"
	case KindFor:
		return "for"
	case KindWhen:
		return "when"
	default:
		return "unknown"
	}
}

// Member is the compiled, value-lazy declaration record spec §3/§4.3
// describe: modifiers and annotations resolved, spans recorded, and the
// body left as an expression tree whose local-variable references are
// already resolved against a Ctx's Bindings (built alongside the Member
// by the same compile pass; see CompileModule/CompileClassBody).
type Member struct {
	Kind Kind

	// Name addresses Property/Method/Local members; Key addresses
	// Entry/Predicate members (evaluated lazily at generator time, not
	// here — spec §4.5 EntryNode/PredicateNode evaluate the key
	// eagerly during the generator pass, which runs after Member
	// construction).
	Name string
	Key  ast.Expr

	Params     []*ast.Param
	FrameSize  int // slots needed for Params (KindMethod) or key/value (KindFor)
	ReturnType *ast.TypeNode

	// KeySlot/ValueSlot are the frame slots a KindFor member's key/value
	// bindings were compiled to, or -1 if that parameter is absent
	// (`for (v in e)` has no key parameter). The generator engine must
	// open a per-iteration frame of FrameSize and write each iteration's
	// key/value into these slots before evaluating the loop body (spec
	// §4.5 "allocate a fresh generator frame ... writes the for bindings
	// into freshly assigned slots").
	KeySlot, ValueSlot int

	// ThenFrameSize/ElseFrameSize are the frame sizes a KindWhen
	// member's two branches need for any `local` they declare directly
	// (each branch gets its own Nested() scope even though a `when`
	// itself binds nothing, so a local declared in one branch never
	// leaks a slot into the other or into the object's own frame).
	ThenFrameSize, ElseFrameSize int

	// LocalSlot is the frame slot a KindLocal member's own binding was
	// declared at. Each `local` gets its own one-slot frame (see
	// Scope.Nested), so this is always slot 0 of the frame the generator
	// pushes for that local.
	LocalSlot int

	Modifiers   ast.Modifiers
	HeaderSpan  token.Span
	BodySpan    token.Span
	Annotations []*ast.Annotation
	Type        *ast.TypeNode

	// Body is the member's value/body expression. Nil for an
	// abstract/external declaration with no body. For a Method, it is
	// the function body, addressed via Params' resolved slots; the
	// Evaluator (C8) must push a new Frame of size FrameSize before
	// invoking it.
	Body ast.Expr

	// SpreadNullable is set on a KindSpread member for `...?expr` (spec
	// §4.5 SpreadNode: tolerate a null source instead of failing).
	SpreadNullable bool

	Doc *ast.DocComment
}

// CompileResult bundles the built Members with the Ctx (Bindings plus
// every nested object literal's own Members) their bodies resolve
// against.
type CompileResult struct {
	Members []*Member
	Ctx     *Ctx

	// FrameSize is the slot count of the body's outermost scope frame.
	// The generator does not read it: it pushes a separate one-slot
	// frame for each `local` as it reaches it and leaves those frames
	// open.
	FrameSize int
}

// CompileModule builds Member records for a module's direct properties
// and methods (spec §4.3). Classes compile their own body separately via
// CompileClassBody, since each instantiation gets its own prototype
// member set.
func CompileModule(mod *ast.Module) (*CompileResult, error) {
	c := newCtx()
	root := NewRootScope()
	var members []*Member

	for _, p := range mod.Properties {
		m, next, err := buildObjectMember(root, p, c)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
		c.ByNode[p] = m
		root = next
	}
	for _, meth := range mod.Methods {
		m, _, err := buildObjectMember(root, meth, c)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
		c.ByNode[meth] = m
	}
	return &CompileResult{Members: members, Ctx: c, FrameSize: root.FrameSize()}, nil
}

// CompileClassBody builds Member records for a class or object literal
// body, in declaration order, threading growing scope through
// `local`-modified members so later siblings see them as frame-resolved
// bindings (spec §4.5 LocalNode: not visible to renderers, hence not a
// dynamically-searchable member at all). `for`/`when` children are
// flattened into the same Member list, since neither control-flow form
// is itself addressable by key; the generator engine (C6) walks the AST
// body itself and finds each Member through Ctx.ByNode.
func CompileClassBody(body *ast.ObjectBody, outer *Scope) (*CompileResult, error) {
	if outer == nil {
		outer = NewRootScope()
	}
	c := newCtx()
	members, final, err := compileMembers(body.Members, outer, c)
	if err != nil {
		return nil, err
	}
	c.Nested[body] = members
	return &CompileResult{Members: members, Ctx: c, FrameSize: final.FrameSize()}, nil
}

// compileMembers is the shared declaration-order walk used by
// CompileClassBody and by nested-object-literal compilation
// (compileNestedBody in resolve.go). It always records a ByNode entry
// for every node it visits (leaf or control-flow) so the generator
// engine can later re-walk the live AST directly instead of replaying
// this flattened result.
//
// The returned []*Member additionally flattens `for`/`when` into their
// (statically known) child member stream, since CompileResult.Members
// is a convenience view for contexts that don't need runtime expansion
// (tests, simple validation). It is NOT what the generator engine (C6)
// should walk for actual evaluation — a `for`'s expansion depends on a
// runtime iterable value that this compile pass never sees — so C6
// walks the original ast.ObjectBody.Members tree, consulting Ctx.ByNode
// at each node instead of this flattened slice.
func compileMembers(raws []ast.ObjectMember, scope *Scope, c *Ctx) ([]*Member, *Scope, error) {
	var out []*Member
	cur := scope
	for _, raw := range raws {
		switch n := raw.(type) {
		case *ast.ForMember:
			if err := resolveExpr(cur, n.Iterable, c); err != nil {
				return nil, cur, err
			}
			inner := cur.Nested()
			keySlot, valueSlot := -1, -1
			if n.KeyParam != nil {
				keySlot = inner.Declare(n.KeyParam.Name)
			}
			if n.ValueParam != nil {
				valueSlot = inner.Declare(n.ValueParam.Name)
			}
			child, _, err := compileMembers(n.Body, inner, c)
			if err != nil {
				return nil, cur, err
			}
			c.ByNode[n] = &Member{
				Kind: KindFor, Body: n.Iterable, HeaderSpan: n.Span(), BodySpan: bodySpan(n.Iterable),
				FrameSize: inner.FrameSize(), KeySlot: keySlot, ValueSlot: valueSlot,
			}
			out = append(out, child...)
		case *ast.WhenMember:
			if err := resolveExpr(cur, n.Cond, c); err != nil {
				return nil, cur, err
			}
			thenScope := cur.Nested()
			thenMembers, _, err := compileMembers(n.Then, thenScope, c)
			if err != nil {
				return nil, cur, err
			}
			elseScope := cur.Nested()
			elseMembers, _, err := compileMembers(n.Else, elseScope, c)
			if err != nil {
				return nil, cur, err
			}
			c.ByNode[n] = &Member{
				Kind: KindWhen, Body: n.Cond, HeaderSpan: n.Span(), BodySpan: bodySpan(n.Cond),
				ThenFrameSize: thenScope.FrameSize(), ElseFrameSize: elseScope.FrameSize(),
			}
			out = append(out, thenMembers...)
			out = append(out, elseMembers...)
		default:
			m, next, err := buildObjectMember(cur, raw, c)
			if err != nil {
				return nil, cur, err
			}
			if m != nil {
				out = append(out, m)
				c.ByNode[raw] = m
			}
			cur = next
		}
	}
	return out, cur, nil
}

// buildObjectMember compiles one ast.ObjectMember (also used for
// module-level properties/methods, which share the same shapes) and
// returns the scope subsequent siblings should resolve against, widened
// only when this member is itself a `local` binding.
func buildObjectMember(scope *Scope, raw ast.ObjectMember, c *Ctx) (*Member, *Scope, error) {
	switch n := raw.(type) {
	case *ast.PropertyMember:
		if err := resolveExpr(scope, n.Value, c); err != nil {
			return nil, scope, err
		}
		if n.Type != nil {
			resolveType(scope, *n.Type, c)
		}
		kind := KindProperty
		next := scope
		localSlot := -1
		if n.Modifiers.Has(ast.ModLocal) {
			kind = KindLocal
			next = scope.Nested()
			localSlot = next.Declare(n.Name)
		}
		m := &Member{
			Kind: kind, Name: n.Name, Modifiers: n.Modifiers, LocalSlot: localSlot,
			HeaderSpan: n.Span(), BodySpan: bodySpan(n.Value),
			Annotations: n.Annotations, Type: n.Type, Body: n.Value, Doc: n.Doc,
		}
		return m, next, nil

	case *ast.MethodMember:
		inner := scope.Nested()
		for _, p := range n.Params {
			if p.Type != nil {
				resolveType(scope, *p.Type, c)
			}
			inner.Declare(p.Name)
		}
		if n.ReturnType != nil {
			resolveType(scope, *n.ReturnType, c)
		}
		if err := resolveExpr(inner, n.Body, c); err != nil {
			return nil, scope, err
		}
		next := scope
		if n.Modifiers.Has(ast.ModLocal) {
			next = scope.Nested()
			next.Declare(n.Name)
		}
		m := &Member{
			Kind: KindMethod, Name: n.Name, Params: n.Params, FrameSize: inner.FrameSize(),
			ReturnType: n.ReturnType, Modifiers: n.Modifiers, HeaderSpan: n.Span(),
			BodySpan: bodySpan(n.Body), Annotations: n.Annotations, Body: n.Body, Doc: n.Doc,
		}
		return m, next, nil

	case *ast.EntryMember:
		if err := resolveExpr(scope, n.Key, c); err != nil {
			return nil, scope, err
		}
		if err := resolveExpr(scope, n.Value, c); err != nil {
			return nil, scope, err
		}
		m := &Member{
			Kind: KindEntry, Key: n.Key, Modifiers: n.Modifiers,
			HeaderSpan: n.Span(), BodySpan: bodySpan(n.Value),
			Annotations: n.Annotations, Body: n.Value, Doc: n.Doc,
		}
		return m, scope, nil

	case *ast.ElementMember:
		if err := resolveExpr(scope, n.Value, c); err != nil {
			return nil, scope, err
		}
		m := &Member{
			Kind: KindElement, Modifiers: n.Modifiers, HeaderSpan: n.Span(),
			BodySpan: bodySpan(n.Value), Annotations: n.Annotations, Body: n.Value, Doc: n.Doc,
		}
		return m, scope, nil

	case *ast.PredicateMember:
		if err := resolveExpr(scope, n.Pred, c); err != nil {
			return nil, scope, err
		}
		if err := resolveExpr(scope, n.Value, c); err != nil {
			return nil, scope, err
		}
		m := &Member{
			Kind: KindPredicate, Key: n.Pred, Modifiers: n.Modifiers, HeaderSpan: n.Span(),
			BodySpan: bodySpan(n.Value), Annotations: n.Annotations, Body: n.Value, Doc: n.Doc,
		}
		return m, scope, nil

	case *ast.SpreadMember:
		if err := resolveExpr(scope, n.Source, c); err != nil {
			return nil, scope, err
		}
		m := &Member{
			Kind: KindSpread, Modifiers: n.Modifiers, HeaderSpan: n.Span(),
			BodySpan: n.Span(), Annotations: n.Annotations, Body: n.Source,
			SpreadNullable: n.Nullable, Doc: n.Doc,
		}
		return m, scope, nil

	case *ast.LocalMember:
		if err := resolveExpr(scope, n.Value, c); err != nil {
			return nil, scope, err
		}
		if n.Type != nil {
			resolveType(scope, *n.Type, c)
		}
		next := scope.Nested()
		localSlot := next.Declare(n.Name)
		m := &Member{
			Kind: KindLocal, Name: n.Name, Modifiers: n.Modifiers, LocalSlot: localSlot, HeaderSpan: n.Span(),
			BodySpan: bodySpan(n.Value), Annotations: n.Annotations, Type: n.Type, Body: n.Value, Doc: n.Doc,
		}
		return m, next, nil

	default:
		// ast.ForMember/ast.WhenMember are intercepted by
		// compileMembers before reaching here: neither becomes a
		// Member of its own (spec §4.5 ForNode/WhenNode expand into the
		// child member stream at generator time).
		return nil, scope, fmt.Errorf("member: unhandled object member %T", raw)
	}
}

func bodySpan(e ast.Expr) token.Span {
	if e == nil {
		return token.Span{}
	}
	return e.Span()
}
