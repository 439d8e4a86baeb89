package parser

import (
	"strconv"
	"strings"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/token"
)

// Precedence levels for the binary-operator climbing loop in parseExpr,
// loosest to tightest (spec §4.2). Unary, `**`, and postfix
// (call/subscript/member access/`!!`) bind tighter than anything in this
// table and are resolved before parseExpr ever sees them, inside
// parseUnary.
const (
	precLowest = iota
	precCoalesce
	precPipe
	precOr
	precAnd
	precEquality
	precTypeTest
	precComparison
	precAdditive
	precMultiplicative
)

func binOpInfo(k token.Kind) (prec int, rightAssoc bool, op ast.BinaryOp, ok bool) {
	switch k {
	case token.Coalesce:
		return precCoalesce, true, ast.BinCoalesce, true
	case token.Pipe:
		return precPipe, false, ast.BinPipe, true
	case token.Or:
		return precOr, false, ast.BinOr, true
	case token.And:
		return precAnd, false, ast.BinAnd, true
	case token.Eq:
		return precEquality, false, ast.BinEq, true
	case token.Ne:
		return precEquality, false, ast.BinNe, true
	case token.Lt:
		return precComparison, false, ast.BinLt, true
	case token.Le:
		return precComparison, false, ast.BinLe, true
	case token.Gt:
		return precComparison, false, ast.BinGt, true
	case token.Ge:
		return precComparison, false, ast.BinGe, true
	case token.Plus:
		return precAdditive, false, ast.BinAdd, true
	case token.Minus:
		return precAdditive, false, ast.BinSub, true
	case token.Star:
		return precMultiplicative, false, ast.BinMul, true
	case token.Slash:
		return precMultiplicative, false, ast.BinDiv, true
	case token.IntDiv:
		return precMultiplicative, false, ast.BinIntDiv, true
	case token.Percent:
		return precMultiplicative, false, ast.BinMod, true
	default:
		return 0, false, 0, false
	}
}

// parseExpr is the Pratt-precedence climbing entry point (spec §4.2).
func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.parseExprContinue(minPrec, left)
}

// parseExprContinue runs the is/as and binary-operator climbing loop
// starting from an already-parsed left operand. Split out from parseExpr
// so object-member parsing can resume the same loop after it has had to
// consume a member-introducing identifier itself (spec §4.2's
// property-vs-element-expression disambiguation).
func (p *Parser) parseExprContinue(minPrec int, left ast.Expr) (ast.Expr, error) {
	for {
		if (p.at(token.KwIs) || p.at(token.KwAs)) && precTypeTest >= minPrec {
			isCast := p.at(token.KwAs)
			if err := p.next(); err != nil {
				return nil, err
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			span := token.Span{Begin: left.Span().Begin, End: p.prevEnd}
			if isCast {
				n := &ast.TypeCastExpr{Operand: left, Type: ty}
				n.SetSpan(span)
				left = n
			} else {
				n := &ast.TypeCheckExpr{Operand: left, Type: ty}
				n.SetSpan(span)
				left = n
			}
			continue
		}

		prec, rightAssoc, op, ok := binOpInfo(p.tok.Kind)
		if !ok || prec < minPrec {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		nextMin := prec + 1
		if rightAssoc {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		n := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		n.SetSpan(token.Span{Begin: left.Span().Begin, End: p.prevEnd})
		left = n
	}

	return left, nil
}

// parseUnary handles prefix `!`/`-`, then `**` (right-associative,
// binding tighter than unary on its left operand but looser on repeated
// unary to its right, e.g. `-2**2` is `-(2**2)`), then falls through to
// the postfix chain.
func (p *Parser) parseUnary() (ast.Expr, error) {
	start := p.tok.Pos
	switch p.tok.Kind {
	case token.Bang:
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryExpr{Op: ast.UnaryNot, Operand: operand}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	case token.Minus:
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryExpr{Op: ast.UnaryNeg, Operand: operand}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	}
	return p.parsePow()
}

func (p *Parser) parsePow() (ast.Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	return p.parsePowFrom(left)
}

// parsePowFrom resumes pow-then-postfix-operator handling from an
// already-postfixed left operand (see parseExprContinue).
func (p *Parser) parsePowFrom(left ast.Expr) (ast.Expr, error) {
	if p.at(token.Pow) {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.BinaryExpr{Op: ast.BinPow, Left: left, Right: right}
		n.SetSpan(token.Span{Begin: left.Span().Begin, End: p.prevEnd})
		return n, nil
	}
	return left, nil
}

// parsePostfix applies member access, subscript, call, amend and
// not-null-assert postfix operators in a loop (spec §4.2). Call and
// amend only bind when the opening `(`/`{` starts on the same line as
// the preceding token (spec's same-line disambiguation rule); a `{` on
// the next line is a fresh statement/object, not an amend of this
// expression.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixFrom(expr)
}

// parsePostfixFrom resumes the postfix-operator loop from an
// already-built expression (see parseExprContinue).
func (p *Parser) parsePostfixFrom(expr ast.Expr) (ast.Expr, error) {
	for {
		switch {
		case p.at(token.Dot) || p.at(token.QDot):
			nullSafe := p.at(token.QDot)
			if err := p.next(); err != nil {
				return nil, err
			}
			name, err := p.parseNameIdent()
			if err != nil {
				return nil, err
			}
			n := &ast.QualifiedAccess{Target: expr, Name: name.Value, NullSafe: nullSafe}
			n.SetSpan(token.Span{Begin: expr.Span().Begin, End: p.prevEnd})
			expr = n
		case p.at(token.LBracket):
			if err := p.next(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			n := &ast.SubscriptExpr{Target: expr, Index: idx}
			n.SetSpan(token.Span{Begin: expr.Span().Begin, End: p.prevEnd})
			expr = n
		case p.at(token.LParen) && p.tok.NewlinesBefore == 0:
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			n := &ast.CallExpr{Target: expr, Args: args}
			n.SetSpan(token.Span{Begin: expr.Span().Begin, End: p.prevEnd})
			expr = n
		case p.at(token.LBrace) && p.tok.NewlinesBefore == 0:
			body, err := p.parseObjectBody()
			if err != nil {
				return nil, err
			}
			n := &ast.AmendExpr{Target: expr, Body: body}
			n.SetSpan(token.Span{Begin: expr.Span().Begin, End: p.prevEnd})
			expr = n
		case p.at(token.NotNullAssert):
			if err := p.next(); err != nil {
				return nil, err
			}
			n := &ast.NotNullAssertExpr{Operand: expr}
			n.SetSpan(token.Span{Begin: expr.Span().Begin, End: p.prevEnd})
			expr = n
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(token.RParen) {
		a, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
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
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := p.tok.Pos
	switch p.tok.Kind {
	case token.KwNull:
		if err := p.next(); err != nil {
			return nil, err
		}
		n := &ast.NullLit{}
		n.SetSpan(start)
		return n, nil
	case token.KwTrue, token.KwFalse:
		v := p.tok.Kind == token.KwTrue
		if err := p.next(); err != nil {
			return nil, err
		}
		n := &ast.BoolLit{Value: v}
		n.SetSpan(start)
		return n, nil
	case token.IntLit:
		text := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		v, perr := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 0, 64)
		if perr != nil {
			return nil, token.NewSyntaxError(start, "invalid integer literal %q: %s", text, perr)
		}
		n := &ast.IntLit{Text: text, Value: v}
		n.SetSpan(start)
		return n, nil
	case token.FloatLit:
		text := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		v, perr := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if perr != nil {
			return nil, token.NewSyntaxError(start, "invalid float literal %q: %s", text, perr)
		}
		n := &ast.FloatLit{Text: text, Value: v}
		n.SetSpan(start)
		return n, nil
	case token.StringStart, token.StringMultiStart:
		return p.parseStringLiteral()
	case token.KwThis:
		if err := p.next(); err != nil {
			return nil, err
		}
		n := &ast.ThisExpr{}
		n.SetSpan(start)
		return n, nil
	case token.KwOuter:
		if err := p.next(); err != nil {
			return nil, err
		}
		n := &ast.OuterExpr{}
		n.SetSpan(start)
		return n, nil
	case token.KwModule:
		if err := p.next(); err != nil {
			return nil, err
		}
		n := &ast.ModuleExpr{}
		n.SetSpan(start)
		return n, nil
	case token.KwSuper:
		return p.parseSuperExpr()
	case token.KwNew:
		return p.parseNewExpr()
	case token.KwIf:
		return p.parseIfExpr()
	case token.KwLet:
		return p.parseLetExpr()
	case token.KwThrow:
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		msg, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		n := &ast.ThrowExpr{Message: msg}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	case token.KwTrace:
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		operand, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		n := &ast.TraceExpr{Operand: operand}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	case token.KwImport:
		return p.parseImportOrReadExpr(true)
	case token.KwRead:
		return p.parseImportOrReadExpr(false)
	case token.LParen:
		return p.parseParenOrLambda()
	case token.Ident, token.BacktickIdent:
		return p.parseIdentOrLambda()
	default:
		return nil, p.errorf("unexpected token %q in expression", p.tok.String())
	}
}

func (p *Parser) parseSuperExpr() (ast.Expr, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	switch {
	case p.at(token.Dot):
		if err := p.next(); err != nil {
			return nil, err
		}
		name, err := p.parseNameIdent()
		if err != nil {
			return nil, err
		}
		n := &ast.SuperAccess{Name: name.Value}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	case p.at(token.LBracket):
		if err := p.next(); err != nil {
			return nil, err
		}
		idx, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		n := &ast.SuperSubscript{Index: idx}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	default:
		return nil, p.errorf("expected '.' or '[' after 'super'")
	}
}

func (p *Parser) parseNewExpr() (ast.Expr, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	var typ *ast.TypeNode
	if !p.at(token.LBrace) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		typ = &t
	}
	body, err := p.parseObjectBody()
	if err != nil {
		return nil, err
	}
	n := &ast.NewExpr{Type: typ, Body: body}
	n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return n, nil
}

func (p *Parser) parseIfExpr() (ast.Expr, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
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
	then, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwElse); err != nil {
		return nil, err
	}
	els, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	n := &ast.IfExpr{Cond: cond, Then: then, Else: els}
	n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return n, nil
}

func (p *Parser) parseLetExpr() (ast.Expr, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	nameTok, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}
	nameExpr := &ast.UnqualifiedAccess{Name: nameTok.Value}
	nameExpr.SetSpan(nameTok.Span())

	var ty *ast.TypeNode
	if p.at(token.Colon) {
		if err := p.next(); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ty = &t
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	init, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	binding := &ast.LetBinding{Name: nameExpr, Type: ty, Init: init}
	binding.SetSpan(token.Span{Begin: nameExpr.Span().Begin, End: init.Span().End})
	n := &ast.LetExpr{Binding: binding, Body: body}
	n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return n, nil
}

func (p *Parser) parseImportOrReadExpr(isImport bool) (ast.Expr, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	glob := false
	nullable := false
	if p.at(token.Star) {
		glob = true
		if err := p.next(); err != nil {
			return nil, err
		}
	} else if !isImport && p.at(token.Question) {
		nullable = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	uri, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	span := token.Span{Begin: start.Begin, End: p.prevEnd}
	if isImport {
		kind := ast.ImportSingle
		if glob {
			kind = ast.ImportGlob
		}
		n := &ast.ImportExpr{Kind: kind, URI: uri}
		n.SetSpan(span)
		return n, nil
	}
	kind := ast.ReadSingle
	switch {
	case glob:
		kind = ast.ReadGlob
	case nullable:
		kind = ast.ReadNullable
	}
	n := &ast.ReadExpr{Kind: kind, URI: uri}
	n.SetSpan(span)
	return n, nil
}

// parseIdentOrLambda parses a bare identifier, recognizing the unparenthesized
// single-parameter lambda shorthand `x -> body` (spec §4.2).
func (p *Parser) parseIdentOrLambda() (ast.Expr, error) {
	start := p.tok.Pos
	name, err := p.parseNameIdent()
	if err != nil {
		return nil, err
	}
	if p.at(token.Arrow) {
		if err := p.next(); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		param := &ast.Param{Name: name.Value}
		param.SetSpan(name.Span())
		n := &ast.FuncLit{Params: []*ast.Param{param}, Body: body}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	}
	n := &ast.UnqualifiedAccess{Name: name.Value}
	n.SetSpan(start)
	return n, nil
}

// continueIdentAsExpr is used by object-member parsing once it has
// already consumed a leading identifier while probing for the
// property-member shapes (`name =`, `name {`, `name:`) and found none of
// them: the identifier actually starts a plain expression used as an
// element value, so parsing resumes through the lambda-shorthand check,
// postfix operators, `**`, and the binary-operator loop exactly as if
// parsePrimary had just produced it.
func (p *Parser) continueIdentAsExpr(name *ast.Name) (ast.Expr, error) {
	if p.at(token.Arrow) {
		if err := p.next(); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		param := &ast.Param{Name: name.Value}
		param.SetSpan(name.Span())
		n := &ast.FuncLit{Params: []*ast.Param{param}, Body: body}
		n.SetSpan(token.Span{Begin: name.Span().Begin, End: p.prevEnd})
		return p.parseExprContinue(precLowest, n)
	}

	ua := &ast.UnqualifiedAccess{Name: name.Value}
	ua.SetSpan(name.Span())
	expr, err := p.parsePostfixFrom(ua)
	if err != nil {
		return nil, err
	}
	expr, err = p.parsePowFrom(expr)
	if err != nil {
		return nil, err
	}
	return p.parseExprContinue(precLowest, expr)
}

// parseParenOrLambda disambiguates `(expr)` from `(params) -> body`
// without backtracking: the parenthesized list is parsed uniformly as a
// sequence of expressions, each optionally followed by a `: Type`
// annotation (a construct with no other meaning inside parentheses); the
// decision between ParenExpr and FuncLit is made only once `)` has been
// consumed and `->` either is or isn't next (spec §4.2).
func (p *Parser) parseParenOrLambda() (ast.Expr, error) {
	start := p.tok.Pos
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	type item struct {
		expr ast.Expr
		typ  *ast.TypeNode
	}
	var items []item
	for !p.at(token.RParen) {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		it := item{expr: e}
		if p.at(token.Colon) {
			if err := p.next(); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			it.typ = &t
		}
		items = append(items, it)
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
		params := make([]*ast.Param, len(items))
		for i, it := range items {
			name, ok := it.expr.(*ast.UnqualifiedAccess)
			if !ok {
				return nil, token.NewSyntaxError(it.expr.Span(), "expected a parameter name")
			}
			param := &ast.Param{Name: name.Name, Type: it.typ}
			param.SetSpan(it.expr.Span())
			params[i] = param
		}
		body, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		n := &ast.FuncLit{Params: params, Body: body}
		n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
		return n, nil
	}

	if len(items) != 1 || items[0].typ != nil {
		return nil, p.errorf("expected a single expression in parentheses, or '->' for a function literal")
	}
	n := &ast.ParenExpr{Inner: items[0].expr}
	n.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
	return n, nil
}
