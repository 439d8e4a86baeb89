// Package moduleuri parses and validates the module/resource URI
// sub-language spec §6 names ("Module URIs accepted by the core:
// file:, http(s):, modulepath:, pkl:, package:, projectpackage:").
// It is a small participle grammar in the teacher's own struct-tag
// style (ast/ast.go's SemVer node), not a hand-rolled scanner, since
// the sub-language is bounded and participle is already the teacher's
// intended dependency for exactly this shape of grammar.
package moduleuri

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/mod/semver"
)

// Scheme is one of the module/resource URI schemes the core accepts.
type Scheme string

const (
	SchemeFile           Scheme = "file"
	SchemeHTTP           Scheme = "http"
	SchemeHTTPS          Scheme = "https"
	SchemeModulePath     Scheme = "modulepath"
	SchemePkl            Scheme = "pkl"
	SchemePackage        Scheme = "package"
	SchemeProjectPackage Scheme = "projectpackage"
	SchemeEnv            Scheme = "env"
	SchemeProp           Scheme = "prop"
)

var knownSchemes = map[Scheme]bool{
	SchemeFile: true, SchemeHTTP: true, SchemeHTTPS: true,
	SchemeModulePath: true, SchemePkl: true, SchemePackage: true,
	SchemeProjectPackage: true, SchemeEnv: true, SchemeProp: true,
}

// grammar is the participle AST for `scheme:authority/path@version`
// (the `@version` suffix is only meaningful for package:/projectpackage:
// dependency URIs; every other scheme leaves Version empty).
type grammar struct {
	Scheme  string `@Ident ":"`
	Slashes bool   `@("/" "/")?`
	Path    string `@(Ident | "." | "/" | "-" | "_")*`
	Version string `("@" @Ident)?`
}

var parser = participle.MustBuild[grammar](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z0-9][a-zA-Z0-9._~%]*`},
		{Name: "Punct", Pattern: `[:/@.\-_]`},
	})),
	participle.UseLookahead(2),
)

// URI is a parsed, validated module or resource URI.
type URI struct {
	Scheme  Scheme
	Path    string
	Version string // non-empty only for package:/projectpackage: with an @version suffix
	Raw     string
}

// Parse validates raw against the grammar and the known-scheme set. A
// bare `env:NAME`/`prop:NAME` read() URI and a `package:name@1.2.3`
// dependency URI both parse the same way; callers needing SemVer or
// constraint validation call ValidateVersion, or ParseConstraint and
// DependencyConstraint.Matches, next.
func Parse(raw string) (*URI, error) {
	g, err := parser.ParseString("", raw)
	if err != nil {
		return nil, fmt.Errorf("moduleuri: %q is not a well-formed URI: %w", raw, err)
	}
	scheme := Scheme(g.Scheme)
	if !knownSchemes[scheme] {
		return nil, fmt.Errorf("moduleuri: unknown scheme %q in %q", g.Scheme, raw)
	}
	return &URI{Scheme: scheme, Path: g.Path, Version: g.Version, Raw: raw}, nil
}

// ValidateVersion checks a bare module version literal (e.g. a
// `modulepath:` URI's pinned version segment) the same way the
// teacher's ast.SemVer.Capture does, via golang.org/x/mod/semver.
func ValidateVersion(v string) error {
	vv := v
	if len(vv) == 0 || vv[0] != 'v' {
		vv = "v" + vv
	}
	if !semver.IsValid(vv) {
		return fmt.Errorf("moduleuri: %q is not a valid semantic version", v)
	}
	return nil
}
