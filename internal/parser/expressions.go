package parser

import (
	"strconv"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
)

// parseExpression is the entry point: expression -> range_expr.
func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseRange()
}

func (p *Parser) parseRange() (ast.Expression, error) {
	left, err := p.parseLogicOr()
	if err != nil {
		return nil, err
	}
	if p.curIs(token.DOT_DOT) {
		tok := p.cur
		p.nextToken()
		right, err := p.parseLogicOr()
		if err != nil {
			return nil, err
		}
		return &ast.RangeExpression{Token: tok, Start: left, End: right}, nil
	}
	return left, nil
}

func (p *Parser) parseLogicOr() (ast.Expression, error) {
	left, err := p.parseLogicAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.OR) {
		tok := p.cur
		p.nextToken()
		right, err := p.parseLogicAnd()
		if err != nil {
			return nil, err
		}
		left = foldBinary(&ast.BinaryOperation{Token: tok, Left: left, Op: "||", Right: right})
	}
	return left, nil
}

func (p *Parser) parseLogicAnd() (ast.Expression, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.AND) {
		tok := p.cur
		p.nextToken()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = foldBinary(&ast.BinaryOperation{Token: tok, Left: left, Op: "&&", Right: right})
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.EQ) || p.curIs(token.NOT_EQ) {
		opTok := p.cur
		op := string(opTok.Kind)
		p.nextToken()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = foldBinary(&ast.BinaryOperation{Token: opTok, Left: left, Op: op, Right: right})
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.LT) || p.curIs(token.GT) || p.curIs(token.LTE) || p.curIs(token.GTE) {
		opTok := p.cur
		op := string(opTok.Kind)
		p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = foldBinary(&ast.BinaryOperation{Token: opTok, Left: left, Op: op, Right: right})
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) {
		opTok := p.cur
		op := string(opTok.Kind)
		p.nextToken()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = foldBinary(&ast.BinaryOperation{Token: opTok, Left: left, Op: op, Right: right})
	}
	return left, nil
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.STAR) || p.curIs(token.SLASH) || p.curIs(token.PERCENT) ||
		p.curIs(token.FLOOR_DIVIDE) || p.curIs(token.POWER) {
		opTok := p.cur
		op := string(opTok.Kind)
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = foldBinary(&ast.BinaryOperation{Token: opTok, Left: left, Op: op, Right: right})
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	switch p.cur.Kind {
	case token.MINUS, token.PLUS, token.BANG:
		opTok := p.cur
		op := string(opTok.Kind)
		p.nextToken()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return foldUnary(&ast.UnaryOperation{Token: opTok, Op: op, Expr: expr}), nil
	case token.AT:
		tok := p.cur
		p.nextToken()
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Pointer{Token: tok, Target: target}, nil
	case token.SPAWN:
		tok := p.cur
		p.nextToken()
		call, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.SpawnCall{Token: tok, Call: call}, nil
	}
	return p.parseCall()
}

// parseCall handles primary followed by any combination of call/attribute/index trailers.
func (p *Parser) parseCall() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.LPAREN:
			expr, err = p.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case token.DOT:
			tok := p.cur
			p.nextToken()
			nameTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if p.curIs(token.LPAREN) {
				expr = p.attachMethodCall(tok, expr, nameTok.Lexeme)
				expr, err = p.finishMethodArgs(expr.(*ast.MethodCall))
				if err != nil {
					return nil, err
				}
			} else {
				expr = &ast.AttributeAccess{Token: tok, Target: expr, AttrName: nameTok.Lexeme}
			}
		case token.LBRACKET:
			tok := p.cur
			p.nextToken()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexAccess{Token: tok, Target: expr, Index: idx}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) attachMethodCall(tok token.Token, target ast.Expression, method string) ast.Expression {
	mc := &ast.MethodCall{Token: tok, MethodName: method}
	if id, ok := target.(*ast.Identifier); ok {
		mc.ObjectName = id.Name
	} else {
		mc.ObjectExpr = target
	}
	return mc
}

func (p *Parser) finishMethodArgs(mc *ast.MethodCall) (ast.Expression, error) {
	args, kwargs, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	mc.Args = args
	mc.Kwargs = kwargs
	return mc, nil
}

func (p *Parser) finishCall(callee ast.Expression) (ast.Expression, error) {
	tok := p.cur
	args, kwargs, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	fc := &ast.FunctionCall{Token: tok, Args: args, Kwargs: kwargs}
	if id, ok := callee.(*ast.Identifier); ok {
		fc.Name = id.Name
	} else if attr, ok := callee.(*ast.AttributeAccess); ok {
		if name, full, isSimple := dottedName(attr); isSimple {
			fc.Name = full
			_ = name
		} else {
			fc.CalleeExpr = callee
		}
	} else {
		fc.CalleeExpr = callee
	}
	return fc, nil
}

// dottedName collapses a chain of AttributeAccess over Identifiers into a
// dotted string, e.g. `a.b.c` -> "a.b.c". Returns isSimple=false if any
// link in the chain is not itself an Identifier/AttributeAccess.
func dottedName(attr *ast.AttributeAccess) (leaf string, full string, isSimple bool) {
	switch t := attr.Target.(type) {
	case *ast.Identifier:
		return attr.AttrName, t.Name + "." + attr.AttrName, true
	case *ast.AttributeAccess:
		_, inner, ok := dottedName(t)
		if !ok {
			return "", "", false
		}
		return attr.AttrName, inner + "." + attr.AttrName, true
	default:
		return "", "", false
	}
}

func (p *Parser) parseArgList() ([]ast.Expression, []ast.Arg, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, nil, err
	}
	var args []ast.Expression
	var kwargs []ast.Arg
	for !p.curIs(token.RPAREN) {
		if p.err != nil {
			return nil, nil, p.err
		}
		if p.curIs(token.IDENTIFIER) && p.peekIs(token.ASSIGN) {
			name := p.cur.Lexeme
			p.nextToken()
			p.nextToken() // consume '='
			val, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, ast.Arg{Name: name, Value: val})
		} else {
			val, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, val)
		}
		if p.curIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, nil, err
	}
	return args, kwargs, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch p.cur.Kind {
	case token.NUMBER:
		return p.parseNumber()
	case token.STRING:
		tok := p.cur
		p.nextToken()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal.(string)}, nil
	case token.TRUE, token.FALSE:
		tok := p.cur
		p.nextToken()
		return &ast.BooleanLiteral{Token: tok, Value: tok.Kind == token.TRUE}, nil
	case token.NULL:
		tok := p.cur
		p.nextToken()
		return &ast.NullLiteral{Token: tok}, nil
	case token.IDENTIFIER:
		tok := p.cur
		p.nextToken()
		return &ast.Identifier{Token: tok, Name: tok.Lexeme, ResolvedIndex: -1}, nil
	case token.META:
		// `meta` is a keyword only at statement position (the `meta { ... }`
		// block); in an expression it reads the interpreter's metadata dict
		// exposed under that global name.
		tok := p.cur
		p.nextToken()
		return &ast.Identifier{Token: tok, Name: "meta", ResolvedIndex: -1}, nil
	case token.LPAREN:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case token.LBRACKET:
		return p.parseListOrComprehension()
	case token.LBRACE:
		return p.parseDictOrComprehension()
	}
	if p.err != nil {
		return nil, p.err
	}
	return nil, &SyntaxError{Expected: "expression", Got: p.cur}
}

func (p *Parser) parseNumber() (ast.Expression, error) {
	tok := p.cur
	isFloat, _ := tok.Literal.(bool)
	p.nextToken()
	n := &ast.NumberLiteral{Token: tok, IsFloat: isFloat}
	if isFloat {
		f, _ := strconv.ParseFloat(tok.Lexeme, 64)
		n.Float = f
	} else {
		i, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		n.Int = i
	}
	return n, nil
}

func (p *Parser) parseListOrComprehension() (ast.Expression, error) {
	tok := p.cur
	p.nextToken() // consume '['
	if p.curIs(token.RBRACKET) {
		p.nextToken()
		return &ast.ListLiteral{Token: tok}, nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.curIs(token.FOR) {
		p.nextToken()
		varTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.IN); err != nil {
			return nil, err
		}
		iterable, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		var cond ast.Expression
		if p.curIs(token.IF) {
			p.nextToken()
			cond, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.ListComprehension{Token: tok, Expr: first, VarName: varTok.Lexeme, ResolvedIndex: -1, Iterable: iterable, Cond: cond}, nil
	}
	elements := []ast.Expression{first}
	for p.curIs(token.COMMA) {
		p.nextToken()
		if p.curIs(token.RBRACKET) {
			break
		}
		el, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.ListLiteral{Token: tok, Elements: elements}, nil
}

func (p *Parser) parseDictOrComprehension() (ast.Expression, error) {
	tok := p.cur
	p.nextToken() // consume '{'
	if p.curIs(token.RBRACE) {
		p.nextToken()
		return &ast.DictLiteral{Token: tok}, nil
	}
	key, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.curIs(token.FOR) {
		p.nextToken()
		varTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.IN); err != nil {
			return nil, err
		}
		iterable, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		var cond ast.Expression
		if p.curIs(token.IF) {
			p.nextToken()
			cond, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
		return &ast.DictComprehension{Token: tok, KeyExpr: key, ValExpr: val, VarName: varTok.Lexeme, ResolvedIndex: -1, Iterable: iterable, Cond: cond}, nil
	}
	entries := []ast.DictEntry{{Key: key, Value: val}}
	for p.curIs(token.COMMA) {
		p.nextToken()
		if p.curIs(token.RBRACE) {
			break
		}
		k, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.DictEntry{Key: k, Value: v})
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.DictLiteral{Token: tok, Entries: entries}, nil
}
