package types

// ClassLookup answers the `is-a` queries a DeclaredType check needs
// against a module's declared class hierarchy: whether instanceClass is
// className itself or one of its (possibly indirect) superclasses.
// types has no way to see that hierarchy on its own — classes are
// declared and resolved by the evaluator core (C8) at module-load time
// — so Checker only ever depends on this small capability, the same
// inversion value.Evaluator already uses for InvokeMember/EvalExpr.
type ClassLookup interface {
	IsA(instanceClass, className string) bool
}

// Registry is a minimal, in-memory ClassLookup: a flat
// class-name -> superclass-name table, walked one `extends` hop at a
// time. Adapted from the teacher's Workspace/Module scaffold, whose job
// was resolving a workspace's declared modules into one flat lookup
// table — Registry resolves a module's declared classes into one flat
// superclass table instead, walked the same way.
type Registry struct {
	supers map[string]string
}

func NewRegistry() *Registry {
	return &Registry{supers: map[string]string{}}
}

// Declare records that className extends superName. superName is ""
// for a class with no explicit `extends` clause (its implicit
// superclass is spec's root Dynamic/Typed, which every IsA check
// already reaches via the className == className base case).
func (r *Registry) Declare(className, superName string) {
	r.supers[className] = superName
}

func (r *Registry) IsA(instanceClass, className string) bool {
	seen := map[string]bool{}
	for cur := instanceClass; cur != ""; cur = r.supers[cur] {
		if cur == className {
			return true
		}
		if seen[cur] {
			return false // cyclic `extends`: stop instead of looping forever
		}
		seen[cur] = true
	}
	return false
}
