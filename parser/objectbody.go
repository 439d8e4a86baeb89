package parser

import (
	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/token"
)

// parseObjectBody parses the brace-delimited member list making up an
// object literal, amend body, for/when branch, or class body (spec
// §4.5). All of those contexts share exactly this production.
func (p *Parser) parseObjectBody() (*ast.ObjectBody, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	body := &ast.ObjectBody{}
	for !p.at(token.RBrace) {
		m, err := p.parseObjectMember()
		if err != nil {
			return nil, err
		}
		body.Members = append(body.Members, m)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	body.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return body, nil
}

// parseObjectMember dispatches on the lookahead token to one of the
// object-member productions (spec §4.5). Only an identifier start is
// genuinely ambiguous between a property declaration and a plain
// expression used as an element; every other leading token commits to a
// single shape.
func (p *Parser) parseObjectMember() (ast.ObjectMember, error) {
	start := p.tok.Pos
	doc := p.collectDoc()

	var annotations []*ast.Annotation
	for p.at(token.At) {
		ann, err := p.parseAnnotation()
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, ann)
	}

	mods := p.parseLeadingModifiers()

	switch {
	case p.at(token.KwFor):
		return p.parseForMember(start, doc, mods, annotations)
	case p.at(token.KwWhen):
		return p.parseWhenMember(start, doc, mods, annotations)
	case p.at(token.Spread) || p.at(token.SpreadQ):
		return p.parseSpreadMember(start, doc, mods, annotations)
	case p.at(token.LDBracket):
		return p.parsePredicateMember(start, doc, mods, annotations)
	case p.at(token.LBracket):
		return p.parseEntryMember(start, doc, mods, annotations)
	case p.at(token.KwFunction):
		return p.parseMethodMemberObj(start, doc, mods, annotations)
	case p.at(token.Ident) || p.at(token.BacktickIdent):
		return p.parsePropertyOrElement(start, doc, mods, annotations)
	default:
		value, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		em := &ast.ElementMember{Value: value}
		em.Doc = doc
		em.Modifiers = mods
		em.Annotations = annotations
		em.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return em, nil
	}
}

func (p *Parser) parseAnnotation() (*ast.Annotation, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.At); err != nil {
		return nil, err
	}
	ty, err := p.parseDeclaredType()
	if err != nil {
		return nil, err
	}
	var body *ast.ObjectBody
	if p.at(token.LBrace) {
		body, err = p.parseObjectBody()
		if err != nil {
			return nil, err
		}
	}
	ann := &ast.Annotation{Type: ty, Body: body}
	ann.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return ann, nil
}

// parseMemberValue parses the `= expr` or `{ body }` tail shared by entry
// and predicate members. The body form amends the member's inherited
// value (spec §4.4); AmendExpr.Target is left nil to mark that implicit
// amendment, resolved against the parent chain by the generator/object
// runtime rather than by name here.
func (p *Parser) parseMemberValue() (ast.Expr, error) {
	switch {
	case p.at(token.Assign):
		if err := p.next(); err != nil {
			return nil, err
		}
		return p.parseExpr(precLowest)
	case p.at(token.LBrace):
		body, err := p.parseObjectBody()
		if err != nil {
			return nil, err
		}
		amend := &ast.AmendExpr{Body: body}
		amend.SetSpan(body.Span())
		return amend, nil
	default:
		return nil, p.errorf("expected '=' or '{' , got %q", p.tok.String())
	}
}

func (p *Parser) parsePropertyOrElement(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	name, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}

	switch {
	case p.at(token.Assign):
		if err := p.next(); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		pm := &ast.PropertyMember{Name: name.Value, Value: val}
		pm.Doc, pm.Modifiers, pm.Annotations = doc, mods, anns
		pm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return pm, nil

	case p.at(token.LBrace) && p.tok.NewlinesBefore == 0:
		body, err := p.parseObjectBody()
		if err != nil {
			return nil, err
		}
		amend := &ast.AmendExpr{Body: body}
		amend.SetSpan(body.Span())
		pm := &ast.PropertyMember{Name: name.Value, Value: amend}
		pm.Doc, pm.Modifiers, pm.Annotations = doc, mods, anns
		pm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return pm, nil

	case p.at(token.Colon):
		if err := p.next(); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		pm := &ast.PropertyMember{Name: name.Value, Type: &ty}
		if p.at(token.Assign) {
			if err := p.next(); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			pm.Value = val
		}
		pm.Doc, pm.Modifiers, pm.Annotations = doc, mods, anns
		pm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return pm, nil

	default:
		expr, err := p.continueIdentAsExpr(name)
		if err != nil {
			return nil, err
		}
		em := &ast.ElementMember{Value: expr}
		em.Doc, em.Modifiers, em.Annotations = doc, mods, anns
		em.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return em, nil
	}
}

func (p *Parser) parseEntryMember(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	if _, err := p.expect(token.LBracket); err != nil {
		return nil, err
	}
	key, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}
	val, err := p.parseMemberValue()
	if err != nil {
		return nil, err
	}
	em := &ast.EntryMember{Key: key, Value: val}
	em.Doc, em.Modifiers, em.Annotations = doc, mods, anns
	em.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return em, nil
}

func (p *Parser) parsePredicateMember(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	if _, err := p.expect(token.LDBracket); err != nil {
		return nil, err
	}
	pred, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RDBracket); err != nil {
		return nil, err
	}
	val, err := p.parseMemberValue()
	if err != nil {
		return nil, err
	}
	pm := &ast.PredicateMember{Pred: pred, Value: val}
	pm.Doc, pm.Modifiers, pm.Annotations = doc, mods, anns
	pm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return pm, nil
}

func (p *Parser) parseSpreadMember(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	nullable := p.at(token.SpreadQ)
	if err := p.next(); err != nil {
		return nil, err
	}
	source, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	sm := &ast.SpreadMember{Nullable: nullable, Source: source}
	sm.Doc, sm.Modifiers, sm.Annotations = doc, mods, anns
	sm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return sm, nil
}

func (p *Parser) parseForMember(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	if err := p.next(); err != nil { // consume 'for'
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	first, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}
	var keyParam, valueParam *ast.Param
	if p.at(token.Comma) {
		keyParam = &ast.Param{Name: first.Value}
		keyParam.SetSpan(first.Span())
		if err := p.next(); err != nil {
			return nil, err
		}
		second, err := p.parseNameIdent()
		if err != nil {
			return nil, err
		}
		valueParam = &ast.Param{Name: second.Value}
		valueParam.SetSpan(second.Span())
	} else {
		valueParam = &ast.Param{Name: first.Value}
		valueParam.SetSpan(first.Span())
	}

	if _, err := p.expect(token.KwIn); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseObjectBody()
	if err != nil {
		return nil, err
	}

	fm := &ast.ForMember{KeyParam: keyParam, ValueParam: valueParam, Iterable: iterable, Body: body.Members}
	fm.Doc, fm.Modifiers, fm.Annotations = doc, mods, anns
	fm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return fm, nil
}

func (p *Parser) parseWhenMember(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	if err := p.next(); err != nil { // consume 'when'
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	thenBody, err := p.parseObjectBody()
	if err != nil {
		return nil, err
	}
	var elseMembers []ast.ObjectMember
	if p.at(token.KwElse) {
		if err := p.next(); err != nil {
			return nil, err
		}
		elseBody, err := p.parseObjectBody()
		if err != nil {
			return nil, err
		}
		elseMembers = elseBody.Members
	}

	wm := &ast.WhenMember{Cond: cond, Then: thenBody.Members, Else: elseMembers}
	wm.Doc, wm.Modifiers, wm.Annotations = doc, mods, anns
	wm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return wm, nil
}

// parseMethod parses `function name(params[: Type]...)[: ReturnType] = body`
// (spec §3). Shared by module-level and object-body method declarations.
func (p *Parser) parseMethod(doc *ast.DocComment, mods ast.Modifiers) (*ast.MethodMember, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.KwFunction); err != nil {
		return nil, err
	}
	name, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []*ast.Param
	for !p.at(token.RParen) {
		pname, err := p.parseNameIdent()
		if err != nil {
			return nil, err
		}
		var pty *ast.TypeNode
		if p.at(token.Colon) {
			if err := p.next(); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			pty = &t
		}
		param := &ast.Param{Name: pname.Value, Type: pty}
		param.SetSpan(pname.Span())
		params = append(params, param)
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

	var ret *ast.TypeNode
	if p.at(token.Colon) {
		if err := p.next(); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ret = &t
	}

	var body ast.Expr
	if p.at(token.Assign) {
		if err := p.next(); err != nil {
			return nil, err
		}
		body, err = p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
	}

	m := &ast.MethodMember{Name: name.Value, Params: params, ReturnType: ret, Body: body}
	m.Doc, m.Modifiers = doc, mods
	m.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return m, nil
}

func (p *Parser) parseMethodMemberObj(start token.Span, doc *ast.DocComment, mods ast.Modifiers, anns []*ast.Annotation) (ast.ObjectMember, error) {
	m, err := p.parseMethod(doc, mods)
	if err != nil {
		return nil, err
	}
	m.Annotations = anns
	m.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return m, nil
}

// ---- module-level declarations ----

func (p *Parser) parseClass(doc *ast.DocComment, mods ast.Modifiers) (*ast.ClassDecl, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.KwClass); err != nil {
		return nil, err
	}
	name, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}
	var extends *ast.Path
	if p.at(token.KwExtends) {
		if err := p.next(); err != nil {
			return nil, err
		}
		extends, err = p.parsePath()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseObjectBody()
	if err != nil {
		return nil, err
	}
	cls := &ast.ClassDecl{Name: name.Value, Extends: extends, Body: body}
	cls.Doc, cls.Modifiers = doc, mods
	cls.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return cls, nil
}

func (p *Parser) parseTypeAlias(doc *ast.DocComment) (*ast.TypeAliasDecl, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.KwTypealias); err != nil {
		return nil, err
	}
	name, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	ta := &ast.TypeAliasDecl{Name: name.Value, Type: ty}
	ta.Doc = doc
	ta.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return ta, nil
}

func (p *Parser) parseProperty(doc *ast.DocComment, mods ast.Modifiers) (*ast.PropertyMember, error) {
	start := p.tok.Pos
	name, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}

	pm := &ast.PropertyMember{Name: name.Value}
	switch {
	case p.at(token.Assign):
		if err := p.next(); err != nil {
			return nil, err
		}
		pm.Value, err = p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
	case p.at(token.LBrace):
		body, err := p.parseObjectBody()
		if err != nil {
			return nil, err
		}
		amend := &ast.AmendExpr{Body: body}
		amend.SetSpan(body.Span())
		pm.Value = amend
	case p.at(token.Colon):
		if err := p.next(); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		pm.Type = &ty
	default:
		return nil, p.errorf("expected '=', '{' or ':' after property name %q", name.Value)
	}

	pm.Doc, pm.Modifiers = doc, mods
	pm.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return pm, nil
}
