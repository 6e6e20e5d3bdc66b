package interp

import (
	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
	"github.com/aml-lang/aml/internal/value"
)

func (e *Evaluator) evalFunctionCall(n *ast.FunctionCall, env *Environment) (value.Value, error) {
	tok := n.GetToken()
	args, kwargs, err := e.evalArgs(n.Args, n.Kwargs, env)
	if err != nil {
		return nil, err
	}

	if n.CalleeExpr != nil {
		callee, err := e.EvalExpr(n.CalleeExpr, env)
		if err != nil {
			return nil, err
		}
		return e.call(callee, args, kwargs, tok)
	}

	if callee, ok := e.resolveCallee(n.Name, env); ok {
		if e.Entrypoint != "" && n.Name == e.Entrypoint {
			e.entrypointInvoked = true
		}
		return e.call(callee, args, kwargs, tok)
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "undefined function %q", n.Name)
}

// symbolEntry is one cached dotted-name resolution: the value last found at
// that path plus the environment versions it was resolved under. Either
// version moving on invalidates the entry.
type symbolEntry struct {
	globalVersion int
	envVersion    int
	v             value.Value
}

// resolveCallee looks up a (possibly dotted) call target across dynamic
// scope, namespaces, and builtins in that order. Dotted namespace-member
// hits are memoized in the evaluator's symbol cache keyed by the global and
// local environment versions, so hot call sites like `a.b.c()` skip the
// path walk until something mutates a scope.
func (e *Evaluator) resolveCallee(name string, env *Environment) (value.Value, bool) {
	if v, ok := env.Get(name); ok {
		return v, true
	}
	if b, ok := e.Builtins[name]; ok {
		return b, true
	}
	gv, ev := e.Globals.Version(), env.Version()
	if raw, ok := e.symbolCache.Load(name); ok {
		if entry := raw.(symbolEntry); entry.globalVersion == gv && entry.envVersion == ev {
			return entry.v, true
		}
	}
	if ns, member, ok := e.lookupNamespaceMember(name); ok && ns != nil {
		e.symbolCache.Store(name, symbolEntry{globalVersion: gv, envVersion: ev, v: member})
		return member, true
	}
	return nil, false
}

func (e *Evaluator) lookupNamespaceMember(dotted string) (*value.Namespace, value.Value, bool) {
	parts := splitDotted(dotted)
	if len(parts) < 2 {
		return nil, nil, false
	}
	ns, ok := e.Namespaces[parts[0]]
	if !ok {
		return nil, nil, false
	}
	var cur *value.Namespace = ns
	for _, seg := range parts[1 : len(parts)-1] {
		next, ok := cur.Members[seg].(*value.Namespace)
		if !ok {
			return nil, nil, false
		}
		cur = next
	}
	last := parts[len(parts)-1]
	member, ok := cur.Members[last]
	return cur, member, ok
}

func hasParam(params []ast.Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func splitDotted(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// Call is the embedding API's entry point for invoking an already-resolved
// callable Value (a script Function or a host Builtin) without going
// through source text, used by pkg/aml's call_function.
func (e *Evaluator) Call(callee value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return e.call(callee, args, kwargs, token.Token{})
}

func (e *Evaluator) call(callee value.Value, args []value.Value, kwargs map[string]value.Value, tok token.Token) (value.Value, error) {
	switch c := callee.(type) {
	case *value.Function:
		return e.callFunction(c, args, kwargs, tok)
	case *value.Builtin:
		return c.Fn(args, kwargs)
	case *value.Task:
		return nil, NewRuntimeError(tok.Line, tok.Column, "task handles are not callable, call .join() instead")
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "value of kind %s is not callable", callee.Kind())
}

// callFunction binds positional args, keyword args, and parameter defaults
// into a fresh Environment enclosed over the function's closure, and binds
// the implicit `args` list every function body can reference: all positional
// arguments when the caller passed more than the declared parameters, empty
// otherwise.
func (e *Evaluator) callFunction(fn *value.Function, args []value.Value, kwargs map[string]value.Value, tok token.Token) (value.Value, error) {
	e.callDepth++
	defer func() { e.callDepth-- }()
	if e.callDepth > maxCallDepth {
		return nil, NewRuntimeError(tok.Line, tok.Column, "maximum call depth exceeded")
	}

	closure, _ := fn.Closure.(*Environment)
	callEnv := NewEnclosedEnvironment(closure, fn.LocalsCount)

	// self is bound dynamically by name rather than a reserved static slot:
	// the resolver never special-cases function scopes bound to a
	// namespace, so an unresolved `self` identifier falls through to
	// evalIdentifier's dynamic env.Get lookup and finds it here.
	if fn.Self != nil {
		callEnv.Set("self", fn.Self)
	}

	for name := range kwargs {
		if !hasParam(fn.Params, name) {
			return nil, NewRuntimeError(tok.Line, tok.Column, "unknown keyword argument %q for %s", name, fn.Name)
		}
	}

	for i, param := range fn.Params {
		var v value.Value
		haveKw := false
		if kw, ok := kwargs[param.Name]; ok {
			haveKw = true
			if i < len(args) {
				return nil, NewRuntimeError(tok.Line, tok.Column, "duplicate keyword argument %q for %s", param.Name, fn.Name)
			}
			v = kw
		} else if i < len(args) {
			v = args[i]
		} else {
			v = value.MISSING_ARG
		}
		if v == value.MISSING_ARG && !haveKw {
			if param.Default != nil {
				dv, err := e.EvalExpr(param.Default, callEnv)
				if err != nil {
					return nil, err
				}
				v = dv
			} else {
				return nil, NewRuntimeError(tok.Line, tok.Column, "missing required argument %q for %s", param.Name, fn.Name)
			}
		}
		// Both stores: dynamic-name consumers (method-call receiver lookup,
		// nested closures, Snapshot) must see parameters too, not just the
		// resolver's slot fast path.
		callEnv.Define(param.Name, i, v)
	}

	// args collects every positional argument when the caller supplied more
	// than the declared parameters, empty otherwise.
	var argsList []value.Value
	if len(args) > len(fn.Params) {
		argsList = append(argsList, args...)
	}
	callEnv.Define("args", len(fn.Params), &value.List{Elements: argsList})

	// The body's statements run directly in callEnv: the resolver addresses
	// parameters and body locals in one shared function scope, so wrapping
	// the body in another block scope would shift every resolved depth by
	// one.
	for _, stmt := range fn.Body.Statements {
		if err := e.Eval(stmt, callEnv); err != nil {
			if ret, ok := err.(returnSignal); ok {
				return ret.value, nil
			}
			return nil, err
		}
	}
	return value.NULL, nil
}
