package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pklgo/pklcore/ast"
	"github.com/pklgo/pklcore/token"
)

// parseStringLiteral assembles the lexer's STRING_* sub-token stream
// (spec §4.1) into a single ast.StringLit, coalescing consecutive
// constant runs (text, newlines, decoded escapes) into one StringPart
// and giving each interpolated `\(...)` its own StringPart.
func (p *Parser) parseStringLiteral() (*ast.StringLit, error) {
	start := p.tok.Pos
	if !p.at(token.StringStart) && !p.at(token.StringMultiStart) {
		return nil, p.errorf("expected a string literal")
	}
	multiline := p.at(token.StringMultiStart)
	if err := p.next(); err != nil {
		return nil, err
	}

	lit := &ast.StringLit{Multiline: multiline}
	var constBuf strings.Builder
	constStart := p.tok.Pos

	flush := func(end token.Pos) {
		if constBuf.Len() == 0 {
			return
		}
		part := &ast.StringPart{Const: constBuf.String()}
		part.SetSpan(token.Span{Begin: constStart.Begin, End: end.End})
		lit.Parts = append(lit.Parts, part)
		constBuf.Reset()
	}

	for {
		switch p.tok.Kind {
		case token.StringEnd:
			flush(p.tok.Pos)
			if err := p.next(); err != nil {
				return nil, err
			}
			lit.SetSpan(token.Span{Begin: start.Begin, End: p.prevEnd})
			return lit, nil

		case token.StringPart:
			if constBuf.Len() == 0 {
				constStart = p.tok.Pos
			}
			constBuf.WriteString(p.tok.Text)
			if err := p.next(); err != nil {
				return nil, err
			}

		case token.StringNewline:
			if constBuf.Len() == 0 {
				constStart = p.tok.Pos
			}
			constBuf.WriteByte('\n')
			if err := p.next(); err != nil {
				return nil, err
			}

		case token.StringEscape:
			if constBuf.Len() == 0 {
				constStart = p.tok.Pos
			}
			decoded, err := decodeStringEscape(p.tok.Text)
			if err != nil {
				return nil, token.NewSyntaxError(p.tok.Pos, "%s", err.Error())
			}
			constBuf.WriteString(decoded)
			if err := p.next(); err != nil {
				return nil, err
			}

		case token.StringInterpStart:
			flush(p.tok.Pos)
			interpStart := p.tok.Pos
			if err := p.next(); err != nil {
				return nil, err
			}
			expr, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			if !p.at(token.StringInterpEnd) {
				return nil, p.errorf("expected ')' closing string interpolation")
			}
			part := &ast.StringPart{Expr: expr}
			part.SetSpan(token.Span{Begin: interpStart.Begin, End: p.tok.Pos.End})
			lit.Parts = append(lit.Parts, part)
			constStart = token.Pos{}
			if err := p.next(); err != nil {
				return nil, err
			}

		default:
			return nil, p.errorf("unexpected token %q inside string literal", p.tok.String())
		}
	}
}

// decodeStringEscape maps a StringEscape token's text (the lexer keeps
// it as the raw character(s) after the backslash) to the escaped rune
// sequence it denotes (spec §4.1).
func decodeStringEscape(text string) (string, error) {
	switch text {
	case "n":
		return "\n", nil
	case "t":
		return "\t", nil
	case "r":
		return "\r", nil
	case "\\":
		return "\\", nil
	case "\"":
		return "\"", nil
	case "b":
		return "\b", nil
	case "f":
		return "\f", nil
	}
	if strings.HasPrefix(text, "u{") && strings.HasSuffix(text, "}") {
		hex := text[2 : len(text)-1]
		v, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return "", fmt.Errorf("invalid unicode escape \\u{%s}: %w", hex, err)
		}
		return string(rune(v)), nil
	}
	return "", fmt.Errorf("unknown escape sequence %q", text)
}
