// Package parser builds an AST from a token stream, performing inline
// constant folding of literal-only binary/unary expressions.
package parser

import (
	"fmt"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/lexer"
	"github.com/aml-lang/aml/internal/token"
)

// SyntaxError reports a parser failure. Unlike the lexer's SyntaxError it
// also records what was expected.
type SyntaxError struct {
	Expected string
	Got      token.Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: expected %s, got %s %q", e.Got.Line, e.Got.Column, e.Expected, e.Got.Kind, e.Got.Lexeme)
}

// Parser is a recursive-descent parser with one token of lookahead.
type Parser struct {
	l         *lexer.Lexer
	cur, peek token.Token
	err       error
}

// New creates a Parser over source text. Scanning errors surface lazily as
// the first SyntaxError encountered while consuming tokens.
func New(src string) *Parser {
	p := &Parser{l: lexer.New(src)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	tok, err := p.l.NextToken()
	if err != nil && p.err == nil {
		p.err = err
	}
	p.peek = tok
}

func (p *Parser) skipNewlines() {
	for p.cur.Kind == token.NEWLINE {
		p.nextToken()
	}
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.err != nil {
		return token.Token{}, p.err
	}
	if p.cur.Kind != k {
		return token.Token{}, &SyntaxError{Expected: string(k), Got: p.cur}
	}
	tok := p.cur
	p.nextToken()
	return tok, nil
}

// ParseProgram parses an entire source file.
func ParseProgram(src string) (*ast.Program, error) {
	p := New(src)
	prog := &ast.Program{}
	p.skipNewlines()
	for !p.curIs(token.EOF) {
		if p.err != nil {
			return nil, p.err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.skipNewlines()
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}
