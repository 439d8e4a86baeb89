// Package parser implements the recursive-descent, Pratt-precedence
// parser (spec component C2): it turns a token.Lexer's token stream
// directly into an ast.Module, without a separate CST layer — the
// spec's "concrete syntax tree" is realized as the AST itself, built
// incrementally as each production recognizes its tokens, following the
// teacher's method-per-production decomposition (one function per
// grammar rule) rather than a combinator library.
package parser

import (
	"fmt"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/token"
)

// Parser holds one token of lookahead plus the previous token's end
// position, which is all the grammar in spec §4.2 needs (the
// same-line amend-vs-call rule only inspects the next token's
// NewlinesBefore count).
type Parser struct {
	lex     *token.Lexer
	tok     token.Token
	prevEnd token.Pos
	file    string

	// partial points at the module being built from the start of
	// parseModule, so that on failure ParseModule can return the
	// best-effort module parsed so far alongside the ParseError.
	partial *ast.Module
}

// ParseError is the parser-level failure, carrying a partial module
// tree when one could be recovered (spec §4.2).
type ParseError struct {
	*token.SyntaxError
	Partial *ast.Module
}

// New creates a parser over src, attributing positions to file.
func New(file string, src []byte) (*Parser, error) {
	p := &Parser{lex: token.NewLexer(file, src), file: file}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) next() error {
	p.prevEnd = p.tok.Pos.End
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return token.NewSyntaxError(p.tok.Pos, format, args...)
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.tok.Kind != k {
		return token.Token{}, p.errorf("expected %s, got %q", kindLabel(k), p.tok.String())
	}
	tok := p.tok
	if err := p.next(); err != nil {
		return token.Token{}, err
	}
	return tok, nil
}

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

func kindLabel(k token.Kind) string {
	return fmt.Sprintf("token(%d)", int(k))
}

// ParseModule parses a whole source file into an ast.Module (spec §4.2).
func ParseModule(file string, src []byte) (*ast.Module, error) {
	p, err := New(file, src)
	if err != nil {
		return nil, err
	}
	mod, err := p.parseModule()
	if err != nil {
		return p.partial, &ParseError{SyntaxError: asSyntaxError(err), Partial: p.partial}
	}
	return mod, nil
}

// ParseExpression parses a single standalone expression, used by the
// REPL and by `evaluate_expression_string` (spec §4.8).
func ParseExpression(file string, src []byte) (ast.Expr, error) {
	p, err := New(file, src)
	if err != nil {
		return nil, err
	}
	return p.parseExpr(precLowest)
}

// ParseType parses a single standalone type expression, e.g. for
// tooling that accepts a type annotation string outside of a module.
func ParseType(file string, src []byte) (ast.TypeNode, error) {
	p, err := New(file, src)
	if err != nil {
		return nil, err
	}
	return p.parseType()
}

func asSyntaxError(err error) *token.SyntaxError {
	if se, ok := err.(*token.SyntaxError); ok {
		return se
	}
	return token.NewSyntaxError(token.Span{}, "%s", err.Error())
}

func (p *Parser) parseModule() (*ast.Module, error) {
	start := p.tok.Pos
	mod := &ast.Module{}
	p.partial = mod

	decl, leftoverMods, err := p.parseModuleHeader()
	if err != nil {
		return mod, err
	}
	mod.Decl = decl

	for p.at(token.KwImport) {
		imp, err := p.parseImport()
		if err != nil {
			return mod, err
		}
		mod.Imports = append(mod.Imports, imp)
	}

	first := true
	for !p.at(token.EOF) {
		var doc *ast.DocComment
		var mods ast.Modifiers
		if first && leftoverMods != 0 {
			// Modifiers consumed while probing for a module header
			// (spec §4.2: `local`/`abstract`/... only form a module
			// declaration when followed by `module`/`amends`/`extends`;
			// otherwise they belong to the first member below).
			mods = leftoverMods
		} else {
			doc = p.collectDoc()
			mods = p.parseLeadingModifiers()
		}
		first = false

		switch {
		case p.at(token.KwClass):
			cls, err := p.parseClass(doc, mods)
			if err != nil {
				return mod, err
			}
			mod.Classes = append(mod.Classes, cls)
		case p.at(token.KwTypealias):
			ta, err := p.parseTypeAlias(doc)
			if err != nil {
				return mod, err
			}
			mod.TypeAliases = append(mod.TypeAliases, ta)
		case p.at(token.KwFunction):
			m, err := p.parseMethod(doc, mods)
			if err != nil {
				return mod, err
			}
			mod.Methods = append(mod.Methods, m)
		case p.at(token.Ident):
			pr, err := p.parseProperty(doc, mods)
			if err != nil {
				return mod, err
			}
			mod.Properties = append(mod.Properties, pr)
		default:
			return mod, p.errorf("unexpected token at module level: %q", p.tok.String())
		}
	}

	mod.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return mod, nil
}

// parseModuleHeader probes for a module declaration (`module Name`,
// `amends "uri"`, `extends "uri"`, and their leading modifiers). Leading
// modifier keywords are ambiguous one token ahead of time: `local x = 1`
// has `local` belong to the property `x`, not to a (nonexistent) module
// header. So modifiers are consumed greedily and only committed to a
// ModuleDecl once one of KwModule/KwAmends/KwExtends is actually seen;
// otherwise they are handed back as leftoverMods for parseModule to
// apply to the first member instead.
func (p *Parser) parseModuleHeader() (decl *ast.ModuleDecl, leftoverMods ast.Modifiers, err error) {
	start := p.tok.Pos
	mods := p.parseLeadingModifiers()

	if !p.at(token.KwModule) && !p.at(token.KwAmends) && !p.at(token.KwExtends) {
		return nil, mods, nil
	}

	decl = &ast.ModuleDecl{Modifiers: mods}

	if p.at(token.KwModule) {
		if err := p.next(); err != nil {
			return nil, 0, err
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, 0, err
		}
		// A dotted module name keeps its last segment as the name.
		for p.at(token.Dot) {
			if err := p.next(); err != nil {
				return nil, 0, err
			}
			if name, err = p.expect(token.Ident); err != nil {
				return nil, 0, err
			}
		}
		decl.Name = name.Text
	}

	if p.at(token.KwAmends) || p.at(token.KwExtends) {
		if p.at(token.KwAmends) {
			decl.ClauseKind = ast.AmendsClause
		} else {
			decl.ClauseKind = ast.ExtendsClause
		}
		if err := p.next(); err != nil {
			return nil, 0, err
		}
		uri, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, 0, err
		}
		decl.ClauseURI = uri
	}

	decl.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return decl, 0, nil
}

func (p *Parser) parseImport() (*ast.ImportDecl, error) {
	start := p.tok.Pos
	glob := false
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.at(token.Star) {
		glob = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	uriTok, err := p.expectStringLiteralText()
	if err != nil {
		return nil, err
	}
	decl := &ast.ImportDecl{URI: uriTok, Glob: glob}
	if p.at(token.KwAs) {
		if err := p.next(); err != nil {
			return nil, err
		}
		alias, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		decl.Alias = alias.Text
	}
	decl.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return decl, nil
}

// expectStringLiteralText parses a simple, non-interpolated string
// literal and returns its concatenated constant text — the form module
// URIs, import paths and resource URIs always take.
func (p *Parser) expectStringLiteralText() (string, error) {
	lit, err := p.parseStringLiteral()
	if err != nil {
		return "", err
	}
	text := ""
	for _, part := range lit.Parts {
		if part.Expr != nil {
			return "", p.errorf("interpolation not allowed here")
		}
		text += part.Const
	}
	return text, nil
}

func (p *Parser) parseLeadingModifiers() ast.Modifiers {
	var mods ast.Modifiers
	for {
		switch p.tok.Kind {
		case token.KwAbstract:
			mods |= ast.ModAbstract
		case token.KwOpen:
			mods |= ast.ModOpen
		case token.KwLocal:
			mods |= ast.ModLocal
		case token.KwHidden:
			mods |= ast.ModHidden
		case token.KwFixed:
			mods |= ast.ModFixed
		case token.KwConst:
			mods |= ast.ModConst
		case token.KwExternal:
			mods |= ast.ModExternal
		default:
			return mods
		}
		_ = p.next()
	}
}

// collectDoc returns the doc comment for the declaration that follows.
// The lexer skips `///` lines like any other `//` line comment (see
// token.Lexer.skipLineComment) and never produces a DocComment token,
// so there is nothing to collect: collectDoc always returns nil and
// every Doc field in the AST stays nil.
func (p *Parser) collectDoc() *ast.DocComment {
	return nil
}
