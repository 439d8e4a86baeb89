package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/generator"
	"github.com/pklgo/pklcore/member"
	"github.com/pklgo/pklcore/object"
	"github.com/pklgo/pklcore/observability"
	"github.com/pklgo/pklcore/parser"
	"github.com/pklgo/pklcore/token"
	"github.com/pklgo/pklcore/value"
)

// LoadModule compiles mod's direct properties/methods into a module-root
// object, registers every declared class's superclass link, and pins
// the result as the module this Evaluator now serves (spec §4.8: module
// load is a one-time, build-once-per-URI operation — callers wanting a
// fresh evaluation of the same URI build a new Evaluator).
func (ev *Evaluator) LoadModule(name string, mod *ast.Module) (out value.ObjectValue, err error) {
	_, stop := observability.StartSpan(context.Background(), "load_module", name)
	defer func() { stop(err) }()

	for _, cd := range mod.Classes {
		super := ""
		if cd.Extends != nil {
			super = pathBase(cd.Extends)
		}
		ev.classReg.Declare(cd.Name, super)
		result, compErr := member.CompileClassBody(cd.Body, member.NewRootScope())
		if compErr != nil {
			err = fmt.Errorf("eval: compiling class %s: %w", cd.Name, compErr)
			return nil, err
		}
		ev.classes[cd.Name] = &classInfo{decl: cd, result: result}
	}

	result, compErr := member.CompileModule(mod)
	if compErr != nil {
		err = fmt.Errorf("eval: compiling module %s: %w", name, compErr)
		return nil, err
	}

	root := object.New(nil, value.VariantTyped, moduleClassName(mod), -1)
	for _, m := range result.Members {
		key := value.NameKey(m.Name)
		if putErr := root.PutMember(key, m); putErr != nil {
			err = putErr
			return nil, err
		}
	}
	setExtra(root, "ctx", result.Ctx)

	ev.module = root
	ev.moduleName = name
	return root, nil
}

func moduleClassName(mod *ast.Module) string {
	if mod.Decl != nil && mod.Decl.Name != "" {
		return mod.Decl.Name
	}
	return "module"
}

// instantiateClass builds `new ClassName { ... }` (or a bare `amends`
// clause): the class's own defaults, generated once and memoized, then
// optionally overridden by a literal's own body, which was compiled
// under the caller's own Ctx (the one active when the NewExpr/amends
// clause was reached), not the class's.
func (ev *Evaluator) instantiateClass(name string, literalBody *ast.ObjectBody) (value.Value, error) {
	proto, err := ev.classPrototype(name)
	if err != nil {
		return nil, err
	}
	if literalBody == nil {
		return proto, nil
	}
	return ev.genLiteral(proto, literalBody)
}

// classPrototype builds (and memoizes) a class's own defaults object:
// its superclass's prototype first, then this class's declared members
// generated on top of a correctly class-tagged, otherwise empty root
// (object.NewClassRoot — plain Amend would instead copy the
// superclass's own className, since Amend's contract is "inherit shape
// from parent").
func (ev *Evaluator) classPrototype(name string) (*object.Object, error) {
	if p, ok := ev.prototypes[name]; ok {
		return p, nil
	}
	ci, ok := ev.classes[name]
	if !ok {
		return nil, fmt.Errorf("eval: unknown class %q", name)
	}

	var super value.ObjectValue
	if ci.decl.Extends != nil {
		sp, err := ev.classPrototype(pathBase(ci.decl.Extends))
		if err != nil {
			return nil, err
		}
		super = sp
	}

	root := object.NewClassRoot(super, ci.decl.Name)
	oldCtx := ev.ctx
	ev.ctx = ci.result.Ctx
	obj, err := generator.Gen(ev, root, ci.result.Ctx, ci.decl.Body, generator.ModeDeclare)
	ev.ctx = oldCtx
	if err != nil {
		return nil, err
	}
	setExtra(obj, "ctx", ci.result.Ctx)

	ev.prototypes[name] = obj
	return obj, nil
}

// genLiteral generates an amend/new literal's body against the Ctx
// currently active (the one the literal's own AST was compiled under,
// per member.Ctx.Nested — see resolve.go's compileNestedBody), stashing
// that same Ctx and the current owner (this literal's lexical
// container, approximating spec's `outer`) onto the produced object.
func (ev *Evaluator) genLiteral(parent value.ObjectValue, body *ast.ObjectBody) (value.Value, error) {
	if ev.ctx == nil {
		return nil, fmt.Errorf("eval: no compile context active for object literal")
	}
	obj, err := generator.Gen(ev, parent, ev.ctx, body, generator.ModeAmend)
	if err != nil {
		return nil, err
	}
	setExtra(obj, "ctx", ev.ctx)
	if owner := ev.owner(); owner != nil {
		setExtra(obj, "outer", owner)
	}
	return obj, nil
}

func (ev *Evaluator) evalNew(n *ast.NewExpr) (value.Value, error) {
	if n.Type == nil {
		return ev.genLiteral(nil, n.Body)
	}
	name := baseTypeName(*n.Type)
	if _, ok := ev.classes[name]; ok {
		return ev.instantiateClass(name, n.Body)
	}
	switch name {
	case "Listing":
		return ev.genVariantLiteral(value.VariantListing, n.Body)
	case "Mapping":
		return ev.genVariantLiteral(value.VariantMapping, n.Body)
	default:
		return ev.genLiteral(nil, n.Body)
	}
}

// genVariantLiteral builds a bare `new Listing {}`/`new Mapping {}` root
// (no user class, just a shape tag) before generating the literal body
// over it — genLiteral's ordinary object.Amend(nil) path always yields
// Dynamic, which is wrong for these two builtin shapes.
func (ev *Evaluator) genVariantLiteral(variant value.Variant, body *ast.ObjectBody) (value.Value, error) {
	length := int64(-1)
	if variant == value.VariantListing {
		length = 0
	}
	root := object.New(nil, variant, "", length)
	return ev.genLiteral(root, body)
}

func (ev *Evaluator) evalAmend(n *ast.AmendExpr) (value.Value, error) {
	var target value.Value
	if n.Target != nil {
		v, err := ev.EvalExpr(n.Target)
		if err != nil {
			return nil, err
		}
		target = v
	} else if len(ev.implicitTargets) > 0 {
		target = ev.implicitTargets[len(ev.implicitTargets)-1]
	}

	var parent value.ObjectValue
	if target != nil {
		ov, ok := target.(value.ObjectValue)
		if !ok {
			return nil, fmt.Errorf("eval: cannot amend a %s", target.Kind())
		}
		parent = ov
	}
	return ev.genLiteral(parent, n.Body)
}

// pathBase returns a Path's last segment (the usual simplification for
// an `extends pkg.Base` clause, mirroring types.baseName).
func pathBase(p *ast.Path) string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Value
}

func baseTypeName(t ast.TypeNode) string {
	dt, ok := t.(ast.DeclaredType)
	if !ok {
		return ""
	}
	return pathBase(dt.Name)
}

// setExtra lazily initializes ExtraStorage before writing key, since a
// freshly built Object carries a nil map until something needs it.
func setExtra(o *object.Object, key string, val any) {
	if o.ExtraStorage == nil {
		o.ExtraStorage = map[string]any{}
	}
	o.ExtraStorage[key] = val
}

// --- module-URI resources: import/read ---
//
// import/read resolve through whatever ModuleReader/ResourceReader an
// embedder installed with WithModuleReader/WithResourceReader; a bare
// New() Evaluator has neither. Without a module reader, import fails
// with a clear error unless the URI was already seeded via
// RegisterModule (letting a caller/test pre-load a module without
// standing up a full reader). RegisterModule seeds modules only: without
// a resource reader, read fails with an error and read? yields null.

func (ev *Evaluator) importModule(uri string, kind ast.ImportExprKind, at token.Span) (value.Value, error) {
	if ev.modules != nil {
		if m, ok := ev.modules[uri]; ok {
			return m, nil
		}
	}
	if kind == ast.ImportGlob {
		return nil, fmt.Errorf("eval: import* is not supported without a moduleuri resolver")
	}
	if ev.modulePolicy != nil {
		err := ev.modulePolicy.Check(uri, at)
		observability.RecordSecurityDecision("module", err == nil)
		if err != nil {
			return nil, err
		}
	}
	if ev.moduleReader == nil {
		return nil, fmt.Errorf("eval: cannot resolve import %q: no module resolver configured", uri)
	}

	src, err := ev.moduleReader.ReadModule(context.Background(), uri)
	if err != nil {
		return nil, err
	}
	mod, err := parser.ParseModule(uri, src)
	if err != nil {
		return nil, err
	}

	imported := New().WithModuleReader(ev.moduleReader).WithResourceReader(ev.resourceReader).
		WithSecurityPolicies(ev.modulePolicy, ev.resourcePolicy)
	root, err := imported.LoadModule(uri, mod)
	if err != nil {
		return nil, fmt.Errorf("eval: loading imported module %q: %w", uri, err)
	}
	ev.RegisterModule(uri, root.(*object.Object))
	return root, nil
}

// RegisterModule makes an already-loaded module object resolvable by
// URI for subsequent `import` expressions.
func (ev *Evaluator) RegisterModule(uri string, mod *object.Object) {
	if ev.modules == nil {
		ev.modules = map[string]*object.Object{}
	}
	ev.modules[uri] = mod
}

func (ev *Evaluator) readResource(uri string, kind ast.ReadExprKind, at token.Span) (value.Value, error) {
	if ev.resourcePolicy != nil {
		err := ev.resourcePolicy.Check(uri, at)
		observability.RecordSecurityDecision("resource", err == nil)
		if err != nil {
			if kind == ast.ReadNullable {
				return value.Null{}, nil
			}
			return nil, err
		}
	}
	if ev.resourceReader == nil {
		if kind == ast.ReadNullable {
			return value.Null{}, nil
		}
		return nil, fmt.Errorf("eval: cannot read resource %q (%s): no resource reader configured", uri, strings.TrimSpace(resourceSchemeOf(uri)))
	}

	b, err := ev.resourceReader.ReadResource(context.Background(), uri)
	if err != nil {
		if kind == ast.ReadNullable {
			return value.Null{}, nil
		}
		return nil, err
	}
	return value.String(string(b)), nil
}

func resourceSchemeOf(uri string) string {
	if i := strings.Index(uri, ":"); i >= 0 {
		return uri[:i]
	}
	return uri
}
