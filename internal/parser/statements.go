package parser

import (
	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
)

var augmentedOps = map[token.Kind]string{
	token.PLUS_ASSIGN:         "+",
	token.MINUS_ASSIGN:        "-",
	token.STAR_ASSIGN:         "*",
	token.SLASH_ASSIGN:        "/",
	token.PERCENT_ASSIGN:      "%",
	token.FLOOR_DIVIDE_ASSIGN: "//",
	token.POWER_ASSIGN:        "**",
	token.AND_ASSIGN:          "&&",
	token.OR_ASSIGN:           "||",
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Kind {
	case token.VAR:
		return p.parseVarDecl()
	case token.CONST:
		return p.parseConstDecl()
	case token.FUNC:
		return p.parseFuncDecl()
	case token.NAMESPACE:
		return p.parseNamespaceDecl()
	case token.META:
		return p.parseMetaDecl()
	case token.IMPORT_PY:
		return p.parseImportPy()
	case token.IMPORT_AML:
		return p.parseImportAml()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.RAISE:
		return p.parseRaiseStatement()
	case token.BREAK:
		tok := p.cur
		p.nextToken()
		return &ast.BreakStatement{Token: tok}, nil
	case token.CONTINUE:
		tok := p.cur
		p.nextToken()
		return &ast.ContinueStatement{Token: tok}, nil
	case token.TRY:
		return p.parseTryCatch()
	case token.PARALLEL:
		return p.parseParallelBlock()
	}
	return p.parseSimpleStatement()
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	tok, err := p.expect(token.LBRACE)
	if err != nil {
		return nil, err
	}
	block := &ast.BlockStatement{Token: tok}
	p.skipNewlines()
	for !p.curIs(token.RBRACE) {
		if p.err != nil {
			return nil, p.err
		}
		if p.curIs(token.EOF) {
			return nil, &SyntaxError{Expected: "}", Got: p.cur}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.skipNewlines()
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseVarDecl() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.VarDeclaration{Token: tok, Name: nameTok.Lexeme, Value: val, ResolvedIndex: -1}, nil
}

func (p *Parser) parseConstDecl() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ConstDeclaration{Token: tok, Name: nameTok.Lexeme, Value: val, ResolvedIndex: -1}, nil
}

// parseFuncDecl parses `func name(params) { body }` and the dotted-name form
// `func a.b.c(params) { body }`.
func (p *Parser) parseFuncDecl() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	firstTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var nsPath []string
	name := firstTok.Lexeme
	for p.curIs(token.DOT) {
		p.nextToken()
		nsPath = append(nsPath, name)
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		name = nameTok.Lexeme
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDeclaration{Token: tok, Name: name, Params: params, Variadic: true, Body: body, NsPath: nsPath}, nil
}

func (p *Parser) parseParams() ([]ast.Param, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.curIs(token.RPAREN) {
		if p.err != nil {
			return nil, p.err
		}
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		param := ast.Param{Name: nameTok.Lexeme}
		if p.curIs(token.ASSIGN) {
			p.nextToken()
			def, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if p.curIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseNamespaceDecl() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.NamespaceDeclaration{Token: tok, Name: nameTok.Lexeme, Body: body}, nil
}

func (p *Parser) parseMetaDecl() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	p.skipNewlines()
	decl := &ast.MetadataDeclaration{Token: tok}
	for !p.curIs(token.RBRACE) {
		if p.err != nil {
			return nil, p.err
		}
		var key string
		if p.curIs(token.STRING) {
			key, _ = p.cur.Literal.(string)
			p.nextToken()
		} else {
			idTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			key = idTok.Lexeme
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Entries = append(decl.Entries, ast.MetaEntry{Key: key, Value: val})
		p.skipNewlines()
		if p.curIs(token.COMMA) {
			p.nextToken()
			p.skipNewlines()
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseImportPy() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	specs, err := p.parseImportSpecs()
	if err != nil {
		return nil, err
	}
	return &ast.ImportPy{Token: tok, Specs: specs}, nil
}

func (p *Parser) parseImportSpecs() ([]ast.ImportSpec, error) {
	var specs []ast.ImportSpec
	for {
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		name := nameTok.Lexeme
		for p.curIs(token.DOT) {
			p.nextToken()
			part, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			name += "." + part.Lexeme
		}
		spec := ast.ImportSpec{Name: name}
		if p.curIs(token.AS) {
			p.nextToken()
			aliasTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			spec.Alias = aliasTok.Lexeme
		}
		specs = append(specs, spec)
		if p.curIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return specs, nil
}

func (p *Parser) parseImportAml() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	var names []string
	for {
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		names = append(names, nameTok.Lexeme)
		if p.curIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return &ast.ImportAml{Token: tok, Names: names}, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	cons, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Token: tok, Condition: cond, Consequence: cons}
	if p.curIs(token.ELSE) {
		p.nextToken()
		if p.curIs(token.IF) {
			elseIf, err := p.parseIfStatement()
			if err != nil {
				return nil, err
			}
			stmt.Alternative = &ast.BlockStatement{Token: elseIf.GetToken(), Statements: []ast.Statement{elseIf}}
		} else {
			alt, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Alternative = alt
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}, nil
}

func (p *Parser) parseForStatement() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	nameTok, err := p.expect(token.IDENTIFIER)
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
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Token: tok, VarName: nameTok.Lexeme, ResolvedIndex: -1, Iterable: iterable, Body: body}, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	if p.curIs(token.NEWLINE) || p.curIs(token.RBRACE) || p.curIs(token.EOF) {
		return &ast.ReturnStatement{Token: tok}, nil
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Token: tok, Value: val}, nil
}

func (p *Parser) parseRaiseStatement() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.RaiseStatement{Token: tok, Value: val}, nil
}

func (p *Parser) parseTryCatch() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	tryBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.CATCH); err != nil {
		return nil, err
	}
	errVar := "error"
	if p.curIs(token.LPAREN) {
		p.nextToken()
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		errVar = nameTok.Lexeme
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	catchBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.TryCatchStatement{Token: tok, TryBody: tryBody, CatchBody: catchBody, ErrorVar: errVar, ErrorVarResolvedIndex: -1}, nil
}

// parseParallelBlock launches only call-shaped statements inside; any other
// statement is parsed (so the braces balance) but silently dropped from the
// launch list.
func (p *Parser) parseParallelBlock() (ast.Statement, error) {
	tok := p.cur
	p.nextToken()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	block := &ast.ParallelBlock{Token: tok}
	p.skipNewlines()
	for !p.curIs(token.RBRACE) {
		if p.err != nil {
			return nil, p.err
		}
		if p.curIs(token.EOF) {
			return nil, &SyntaxError{Expected: "}", Got: p.cur}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if es, ok := stmt.(*ast.ExpressionStatement); ok {
			switch es.Expression.(type) {
			case *ast.FunctionCall, *ast.MethodCall:
				block.Calls = append(block.Calls, es.Expression)
			}
		}
		p.skipNewlines()
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseSimpleStatement handles bare expression statements, assignments, and
// augmented assignments. Augmented assignments desugar to
// `target = target <op> rhs`.
func (p *Parser) parseSimpleStatement() (ast.Statement, error) {
	tok := p.cur
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.curIs(token.ASSIGN) {
		p.nextToken()
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return p.makeAssignment(tok, expr, val)
	}

	if op, ok := augmentedOps[p.cur.Kind]; ok {
		opTok := p.cur
		p.nextToken()
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		desugared := &ast.BinaryOperation{Token: opTok, Left: expr, Op: op, Right: rhs}
		return p.makeAssignment(tok, expr, desugared)
	}

	return &ast.ExpressionStatement{Token: tok, Expression: expr}, nil
}

func (p *Parser) makeAssignment(tok token.Token, target ast.Expression, value ast.Expression) (ast.Statement, error) {
	a := &ast.Assignment{Token: tok, Value: value, ResolvedIndex: -1}
	if id, ok := target.(*ast.Identifier); ok {
		a.Name = id.Name
	} else {
		a.TargetExpr = target
	}
	return a, nil
}
