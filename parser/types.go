package parser

import (
	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/token"
)

// parseType parses a full type expression, including a right-associative
// union (spec §3 "Types", flattened afterwards) and the `*Default` marker
// (spec §4.2).
func (p *Parser) parseType() (ast.TypeNode, error) {
	start := p.tok.Pos

	isDefault := false
	if p.at(token.Star) {
		isDefault = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}

	first, err := p.parseUnionMember()
	if err != nil {
		return nil, err
	}

	members := []ast.TypeNode{first}
	defaultIndex := -1
	if isDefault {
		defaultIndex = 0
	}

	for p.at(token.Bar) {
		if err := p.next(); err != nil {
			return nil, err
		}
		memberIsDefault := false
		if p.at(token.Star) {
			memberIsDefault = true
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		next, err := p.parseUnionMember()
		if err != nil {
			return nil, err
		}
		if memberIsDefault {
			defaultIndex = len(members)
		}
		members = append(members, next)
	}

	if len(members) == 1 && defaultIndex < 0 {
		return members[0], nil
	}

	u := &ast.UnionType{Members: members, DefaultIndex: defaultIndex}
	u.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return *u, nil
}

// parseUnionMember parses one member of a union: an atomic type with its
// postfix nullable/constraint modifiers.
func (p *Parser) parseUnionMember() (ast.TypeNode, error) {
	start := p.tok.Pos
	base, err := p.parseAtomicType()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.at(token.LParen):
			constraints, err := p.parseConstraintList()
			if err != nil {
				return nil, err
			}
			c := &ast.ConstrainedType{Base: base, Constraints: constraints}
			c.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
			base = *c
		case p.at(token.Question):
			if err := p.next(); err != nil {
				return nil, err
			}
			n := &ast.NullableType{Elem: base}
			n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
			base = *n
		default:
			return base, nil
		}
	}
}

func (p *Parser) parseConstraintList() ([]ast.Expr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var out []ast.Expr
	for !p.at(token.RParen) {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.at(token.Comma) {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) parseAtomicType() (ast.TypeNode, error) {
	start := p.tok.Pos
	switch p.tok.Kind {
	case token.KwUnknown:
		if err := p.next(); err != nil {
			return nil, err
		}
		t := &ast.UnknownType{}
		t.SetSpan(start)
		return *t, nil
	case token.KwNothing:
		if err := p.next(); err != nil {
			return nil, err
		}
		t := &ast.NothingType{}
		t.SetSpan(start)
		return *t, nil
	case token.KwModule:
		if err := p.next(); err != nil {
			return nil, err
		}
		t := &ast.ModuleType{}
		t.SetSpan(start)
		return *t, nil
	case token.StringStart, token.StringMultiStart:
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		text, err := stringLitConstText(lit)
		if err != nil {
			return nil, err
		}
		t := &ast.StringConstantType{Value: text}
		t.SetSpan(lit.Span())
		return *t, nil
	case token.LParen:
		return p.parseParenOrFunctionType()
	case token.Ident, token.BacktickIdent:
		return p.parseDeclaredType()
	default:
		return nil, p.errorf("expected a type, got %q", p.tok.String())
	}
}

func (p *Parser) parseDeclaredType() (ast.TypeNode, error) {
	start := p.tok.Pos
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}

	var args []ast.TypeNode
	if p.at(token.Lt) {
		if err := p.next(); err != nil {
			return nil, err
		}
		for !p.at(token.Gt) {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(token.Comma) {
				if err := p.next(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(token.Gt); err != nil {
			return nil, err
		}
	}

	d := &ast.DeclaredType{Name: path, Args: args}
	d.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return *d, nil
}

func (p *Parser) parsePath() (*ast.Path, error) {
	start := p.tok.Pos
	var segs []*ast.Name
	for {
		name, err := p.parseNameIdent()
		if err != nil {
			return nil, err
		}
		segs = append(segs, name)
		if p.at(token.Dot) {
			// The dot is always consumed; a trailing dot then fails in
			// the next parseNameIdent, so a qualified-type path never
			// ends in one.
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	path := &ast.Path{Segments: segs}
	path.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return path, nil
}

func (p *Parser) parseNameIdent() (*ast.Name, error) {
	switch p.tok.Kind {
	case token.Ident:
		tok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		return ast.NewName(tok.Pos, tok.Text), nil
	case token.BacktickIdent:
		tok, err := p.expect(token.BacktickIdent)
		if err != nil {
			return nil, err
		}
		return ast.NewName(tok.Pos, tok.Text), nil
	default:
		return nil, p.errorf("expected an identifier, got %q", p.tok.String())
	}
}

// parseParenOrFunctionType disambiguates `(T)` (ParenType) from
// `(T, ...) -> R` (FunctionType): both start with `(`, so the whole
// parenthesized list is parsed first and the decision is made on
// whether `->` follows the closing paren (spec §4.2).
func (p *Parser) parseParenOrFunctionType() (ast.TypeNode, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var params []ast.TypeNode
	for !p.at(token.RParen) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, t)
		if p.at(token.Comma) {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	if p.at(token.Arrow) {
		if err := p.next(); err != nil {
			return nil, err
		}
		result, err := p.parseType()
		if err != nil {
			return nil, err
		}
		f := &ast.FunctionType{Params: params, Result: result}
		f.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return *f, nil
	}

	if len(params) != 1 {
		return nil, p.errorf("expected exactly one type in parentheses, or '->' for a function type")
	}
	paren := &ast.ParenType{Inner: params[0]}
	paren.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return *paren, nil
}

func stringLitConstText(lit *ast.StringLit) (string, error) {
	text := ""
	for _, part := range lit.Parts {
		if part.Expr != nil {
			return "", token.NewSyntaxError(part.Span(), "interpolation not allowed in a string-constant type")
		}
		text += part.Const
	}
	return text, nil
}
