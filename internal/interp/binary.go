package interp

import (
	"math"
	"strconv"
	"strings"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
	"github.com/aml-lang/aml/internal/value"
)

func (e *Evaluator) evalBinary(n *ast.BinaryOperation, env *Environment) (value.Value, error) {
	tok := n.GetToken()

	// && and || short-circuit, so the right side is only evaluated if needed.
	if n.Op == "&&" {
		left, err := e.EvalExpr(n.Left, env)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return value.Bool(false), nil
		}
		right, err := e.EvalExpr(n.Right, env)
		if err != nil {
			return nil, err
		}
		return boolToValue(truthy(right)), nil
	}
	if n.Op == "||" {
		left, err := e.EvalExpr(n.Left, env)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return value.Bool(true), nil
		}
		right, err := e.EvalExpr(n.Right, env)
		if err != nil {
			return nil, err
		}
		return boolToValue(truthy(right)), nil
	}

	left, err := e.EvalExpr(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := e.EvalExpr(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==":
		return value.Bool(value.Equal(left, right)), nil
	case "!=":
		return value.Bool(!value.Equal(left, right)), nil
	}

	// `+` with either operand a String coerces both sides via toString and
	// concatenates, rather than requiring both to already be
	// strings.
	if n.Op == "+" {
		_, lIsStr := left.(value.String)
		_, rIsStr := right.(value.String)
		if lIsStr || rIsStr {
			return value.String(toDisplayString(left) + toDisplayString(right)), nil
		}
		if ll, ok := left.(*value.List); ok {
			rl, ok := right.(*value.List)
			if !ok {
				return nil, NewRuntimeError(tok.Line, tok.Column, "cannot concatenate List with %s", right.Kind())
			}
			out := make([]value.Value, 0, len(ll.Elements)+len(rl.Elements))
			out = append(out, ll.Elements...)
			out = append(out, rl.Elements...)
			return &value.List{Elements: out}, nil
		}
	}
	// integer `*` repeats a String or List the given number of times.
	if n.Op == "*" {
		if v, ok := evalRepeat(left, right); ok {
			return v, nil
		}
		if v, ok := evalRepeat(right, left); ok {
			return v, nil
		}
	}

	if ls, ok := left.(value.String); ok {
		if rs, ok := right.(value.String); ok {
			return stringCompare(tok, n.Op, string(ls), string(rs))
		}
	}

	// Strings that reach this point (not already handled by the `+`
	// concatenation/repeat cases above) are attempted via numeric parse
	// before giving up.
	left = coerceStringToNumber(left)
	right = coerceStringToNumber(right)

	lf, lok := numericOf(left)
	rf, rok := numericOf(right)
	if !lok || !rok {
		return nil, NewRuntimeError(tok.Line, tok.Column, "operator %q not defined for %s and %s", n.Op, left.Kind(), right.Kind())
	}
	_, lIsFloat := left.(value.Float)
	_, rIsFloat := right.(value.Float)
	isFloat := lIsFloat || rIsFloat

	switch n.Op {
	case "+", "-", "*":
		if !isFloat {
			li, ri := int64(left.(value.Int)), int64(right.(value.Int))
			switch n.Op {
			case "+":
				return value.Int(li + ri), nil
			case "-":
				return value.Int(li - ri), nil
			case "*":
				return value.Int(li * ri), nil
			}
		}
		switch n.Op {
		case "+":
			return value.Float(lf + rf), nil
		case "-":
			return value.Float(lf - rf), nil
		case "*":
			return value.Float(lf * rf), nil
		}
	case "/":
		if rf == 0 {
			return nil, DivisionByZero(tok.Line, tok.Column)
		}
		return value.Float(lf / rf), nil
	case "%":
		if rf == 0 {
			return nil, ModuloByZero(tok.Line, tok.Column)
		}
		if isFloat {
			return value.Float(math.Mod(lf, rf)), nil
		}
		return value.Int(int64(left.(value.Int)) % int64(right.(value.Int))), nil
	case "//":
		if rf == 0 {
			return nil, DivisionByZero(tok.Line, tok.Column)
		}
		if isFloat {
			return value.Float(math.Floor(lf / rf)), nil
		}
		q := int64(lf / rf)
		if (lf < 0) != (rf < 0) && float64(q)*rf != lf {
			q--
		}
		return value.Int(q), nil
	case "**":
		r := math.Pow(lf, rf)
		// Two Int operands with a non-negative exponent stay Int, matching the
		// Int-closed arithmetic above; a negative exponent forces Float.
		if !isFloat && rf >= 0 {
			return value.Int(int64(r)), nil
		}
		return value.Float(r), nil
	case "<":
		return value.Bool(lf < rf), nil
	case ">":
		return value.Bool(lf > rf), nil
	case "<=":
		return value.Bool(lf <= rf), nil
	case ">=":
		return value.Bool(lf >= rf), nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "unknown operator %q", n.Op)
}

// toDisplayString coerces v to its string form for `+` concatenation,
// matching the evaluator's toString coercion rule.
func toDisplayString(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return v.Inspect()
}

// evalRepeat implements `n * s` / `n * list` where n is an Int and the other
// operand is a String or List to repeat. Returns ok=false if repeated isn't
// a repeatable kind or n isn't an Int.
func evalRepeat(n, repeated value.Value) (value.Value, bool) {
	count, ok := n.(value.Int)
	if !ok {
		return nil, false
	}
	times := int(count)
	if times < 0 {
		times = 0
	}
	switch r := repeated.(type) {
	case value.String:
		return value.String(strings.Repeat(string(r), times)), true
	case *value.List:
		out := make([]value.Value, 0, len(r.Elements)*times)
		for i := 0; i < times; i++ {
			out = append(out, r.Elements...)
		}
		return &value.List{Elements: out}, true
	}
	return nil, false
}

// coerceStringToNumber implements toNumber's string-parse attempt: a String
// that looks like an integer or float literal becomes that number for the
// purposes of an arithmetic/comparison operator; anything else (including a
// non-numeric string) is returned unchanged and fails numericOf downstream.
func coerceStringToNumber(v value.Value) value.Value {
	s, ok := v.(value.String)
	if !ok {
		return v
	}
	if i, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(string(s), 64); err == nil {
		return value.Float(f)
	}
	return v
}

func numericOf(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	}
	return 0, false
}

func stringCompare(tok token.Token, op, a, b string) (value.Value, error) {
	switch op {
	case "<":
		return value.Bool(strings.Compare(a, b) < 0), nil
	case ">":
		return value.Bool(strings.Compare(a, b) > 0), nil
	case "<=":
		return value.Bool(strings.Compare(a, b) <= 0), nil
	case ">=":
		return value.Bool(strings.Compare(a, b) >= 0), nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "operator %q not defined for strings", op)
}

func (e *Evaluator) evalUnary(n *ast.UnaryOperation, env *Environment) (value.Value, error) {
	v, err := e.EvalExpr(n.Expr, env)
	if err != nil {
		return nil, err
	}
	tok := n.GetToken()
	switch n.Op {
	case "-":
		switch t := v.(type) {
		case value.Int:
			return value.Int(-t), nil
		case value.Float:
			return value.Float(-t), nil
		}
		return nil, NewRuntimeError(tok.Line, tok.Column, "unary - not defined for %s", v.Kind())
	case "+":
		return v, nil
	case "!":
		return value.Bool(!truthy(v)), nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "unknown unary operator %q", n.Op)
}
