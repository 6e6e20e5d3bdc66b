package parser

import (
	"math"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
)

type tokenT = token.Token

// foldBinary evaluates a BinaryOperation whose operands are both literals,
// substituting the literal result in place. Division/modulo by a literal
// zero are deliberately left unfolded so the runtime raises the proper
// DivisionByZero/ModuloByZero error.
func foldBinary(n *ast.BinaryOperation) ast.Expression {
	if !ast.IsLiteral(n.Left) || !ast.IsLiteral(n.Right) {
		return n
	}
	switch n.Op {
	case "/", "%", "//":
		if isZeroNumber(n.Right) {
			return n
		}
	}
	result, ok := foldConstant(n.Left, n.Op, n.Right)
	if !ok {
		return n
	}
	return result
}

func isZeroNumber(e ast.Expression) bool {
	if num, ok := e.(*ast.NumberLiteral); ok {
		if num.IsFloat {
			return num.Float == 0
		}
		return num.Int == 0
	}
	return false
}

func foldUnary(n *ast.UnaryOperation) ast.Expression {
	if !ast.IsLiteral(n.Expr) {
		return n
	}
	switch n.Op {
	case "-":
		if num, ok := n.Expr.(*ast.NumberLiteral); ok {
			if num.IsFloat {
				return &ast.NumberLiteral{Token: n.Token, IsFloat: true, Float: -num.Float}
			}
			return &ast.NumberLiteral{Token: n.Token, IsFloat: false, Int: -num.Int}
		}
	case "+":
		if _, ok := n.Expr.(*ast.NumberLiteral); ok {
			return n.Expr
		}
	case "!":
		if b, ok := n.Expr.(*ast.BooleanLiteral); ok {
			return &ast.BooleanLiteral{Token: n.Token, Value: !b.Value}
		}
		if nl, ok := n.Expr.(*ast.NullLiteral); ok {
			_ = nl
			return &ast.BooleanLiteral{Token: n.Token, Value: true}
		}
	}
	return n
}

// foldConstant implements literal-literal binary folding for the subset of
// operators that are meaningful to fold at parse time: arithmetic,
// comparisons, equality, and string/bool logic. Anything it doesn't
// recognize is left unfolded for the evaluator to handle at runtime.
func foldConstant(leftE ast.Expression, op string, rightE ast.Expression) (ast.Expression, bool) {
	tok := leftE.GetToken()

	// Numeric arithmetic / comparisons.
	if ln, lok := leftE.(*ast.NumberLiteral); lok {
		if rn, rok := rightE.(*ast.NumberLiteral); rok {
			return foldNumeric(tok, ln, op, rn)
		}
	}

	// String concatenation via '+'.
	if op == "+" {
		if ls, lok := leftE.(*ast.StringLiteral); lok {
			if rs, rok := rightE.(*ast.StringLiteral); rok {
				return &ast.StringLiteral{Token: tok, Value: ls.Value + rs.Value}, true
			}
		}
	}

	// Boolean logic (already short-circuited by the parser, but literal &&/||
	// can still appear, e.g. `true && false`).
	if lb, lok := leftE.(*ast.BooleanLiteral); lok {
		if rb, rok := rightE.(*ast.BooleanLiteral); rok {
			switch op {
			case "&&":
				return &ast.BooleanLiteral{Token: tok, Value: lb.Value && rb.Value}, true
			case "||":
				return &ast.BooleanLiteral{Token: tok, Value: lb.Value || rb.Value}, true
			case "==":
				return &ast.BooleanLiteral{Token: tok, Value: lb.Value == rb.Value}, true
			case "!=":
				return &ast.BooleanLiteral{Token: tok, Value: lb.Value != rb.Value}, true
			}
		}
	}

	return nil, false
}

func foldNumeric(t tokenT, ln *ast.NumberLiteral, op string, rn *ast.NumberLiteral) (ast.Expression, bool) {
	isFloat := ln.IsFloat || rn.IsFloat
	lf, rf := numAsFloat(ln), numAsFloat(rn)

	switch op {
	case "+", "-", "*":
		if !isFloat {
			li, ri := ln.Int, rn.Int
			var r int64
			switch op {
			case "+":
				r = li + ri
			case "-":
				r = li - ri
			case "*":
				r = li * ri
			}
			return &ast.NumberLiteral{Token: t, Int: r}, true
		}
		var r float64
		switch op {
		case "+":
			r = lf + rf
		case "-":
			r = lf - rf
		case "*":
			r = lf * rf
		}
		return &ast.NumberLiteral{Token: t, IsFloat: true, Float: r}, true
	case "/":
		return &ast.NumberLiteral{Token: t, IsFloat: true, Float: lf / rf}, true
	case "%":
		if !isFloat && rn.Int != 0 {
			return &ast.NumberLiteral{Token: t, Int: ln.Int % rn.Int}, true
		}
		return nil, false
	case "//":
		if rf == 0 {
			return nil, false
		}
		if isFloat {
			return &ast.NumberLiteral{Token: t, IsFloat: true, Float: math.Floor(lf / rf)}, true
		}
		q := int64(lf / rf)
		if (lf < 0) != (rf < 0) && float64(q)*rf != lf {
			q--
		}
		return &ast.NumberLiteral{Token: t, Int: q}, true
	case "**":
		r := math.Pow(lf, rf)
		if !isFloat && rf >= 0 {
			return &ast.NumberLiteral{Token: t, Int: int64(r)}, true
		}
		return &ast.NumberLiteral{Token: t, IsFloat: true, Float: r}, true
	case "<":
		return &ast.BooleanLiteral{Token: t, Value: lf < rf}, true
	case ">":
		return &ast.BooleanLiteral{Token: t, Value: lf > rf}, true
	case "<=":
		return &ast.BooleanLiteral{Token: t, Value: lf <= rf}, true
	case ">=":
		return &ast.BooleanLiteral{Token: t, Value: lf >= rf}, true
	case "==":
		return &ast.BooleanLiteral{Token: t, Value: lf == rf}, true
	case "!=":
		return &ast.BooleanLiteral{Token: t, Value: lf != rf}, true
	}
	return nil, false
}

func numAsFloat(n *ast.NumberLiteral) float64 {
	if n.IsFloat {
		return n.Float
	}
	return float64(n.Int)
}
