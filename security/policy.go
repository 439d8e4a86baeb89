// Package security implements the injected security-policy manager
// spec §6 requires ("Security policy (from an injected manager)
// decides whether a URI is allowed"). The compiled allow/deny glob
// pattern list is grounded on holomush's
// internal/access/static.go StaticAccessControl, which compiles
// colon-separated gobwas/glob permission patterns once at construction
// and checks them read-only afterward.
package security

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/pklgo/pklcore/config"
	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/token"
)

// rule is one compiled allow or deny pattern. Patterns match a URI's
// `scheme:path` form with ':' as glob's path separator, the same
// convention static.go uses for its role permission strings.
type rule struct {
	pattern string
	glob    glob.Glob
	allow   bool
}

// Policy decides whether a module or resource URI may be resolved.
// Immutable after NewPolicy; safe for concurrent use by many
// evaluators, matching spec §5's "module cache, HTTP client, and
// package resolver ... are thread-safe and shared across evaluators".
type Policy struct {
	mu    sync.RWMutex
	rules []rule
}

// NewPolicy compiles allow and deny pattern lists into a Policy. Deny
// rules are checked first: a URI matching any deny pattern is rejected
// even if it also matches an allow pattern, matching the "explicit
// deny wins" convention of static.go's capability enforcer.
func NewPolicy(allow, deny []string) (*Policy, error) {
	p := &Policy{}
	for _, pat := range deny {
		g, err := glob.Compile(pat, ':')
		if err != nil {
			return nil, oops.Code("INVALID_SECURITY_PATTERN").With("pattern", pat).Wrap(err)
		}
		p.rules = append(p.rules, rule{pattern: pat, glob: g, allow: false})
	}
	for _, pat := range allow {
		g, err := glob.Compile(pat, ':')
		if err != nil {
			return nil, oops.Code("INVALID_SECURITY_PATTERN").With("pattern", pat).Wrap(err)
		}
		p.rules = append(p.rules, rule{pattern: pat, glob: g, allow: true})
	}
	return p, nil
}

// AllowAll is a permissive Policy useful for embedding contexts that
// perform their own URI vetting upstream (tests, trusted batch jobs).
func AllowAll() *Policy {
	return &Policy{}
}

// Check reports whether uri (in "scheme:path" form) may be resolved.
// With no rules compiled, everything is allowed. Otherwise a URI must
// match at least one allow rule and no deny rule.
func (p *Policy) Check(uri string, at token.Span) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.rules) == 0 {
		return nil
	}

	matchedAllow := false
	for _, r := range p.rules {
		if !r.glob.Match(uri) {
			continue
		}
		if !r.allow {
			return diag.New(diag.KindSecurityPolicy, at, "%q is denied by security policy pattern %q", uri, r.pattern)
		}
		matchedAllow = true
	}
	if !matchedAllow {
		return diag.New(diag.KindSecurityPolicy, at, "%q does not match any allowed security policy pattern", uri)
	}
	return nil
}

// PoliciesFromConfig builds the module-URI and resource-URI policies
// an Options value describes, for a caller wiring an Evaluator up from
// package config.
func PoliciesFromConfig(c *config.Options) (modules *Policy, resources *Policy, err error) {
	modules, err = NewPolicy(c.AllowedModulePatterns, c.DeniedModulePatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("security: module policy: %w", err)
	}
	resources, err = NewPolicy(c.AllowedResourcePatterns, c.DeniedResourcePatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("security: resource policy: %w", err)
	}
	return modules, resources, nil
}

// MustCheck panics on a policy violation; only useful for tests and
// one-off embedding scripts that treat a denied URI as a programming
// error rather than a recoverable Pkl error.
func (p *Policy) MustCheck(uri string, at token.Span) {
	if err := p.Check(uri, at); err != nil {
		panic(fmt.Sprintf("security: %v", err))
	}
}
