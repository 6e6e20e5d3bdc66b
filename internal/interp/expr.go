package interp

import (
	"context"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/task"
	"github.com/aml-lang/aml/internal/value"
)

// EvalExpr evaluates expr against env, returning its Value.
func (e *Evaluator) EvalExpr(expr ast.Expression, env *Environment) (value.Value, error) {
	e.microYieldExpr()
	switch n := expr.(type) {
	case *ast.NumberLiteral:
		if n.IsFloat {
			return value.Float(n.Float), nil
		}
		return value.Int(n.Int), nil
	case *ast.StringLiteral:
		return value.String(n.Value), nil
	case *ast.BooleanLiteral:
		return value.Bool(n.Value), nil
	case *ast.NullLiteral:
		return value.NULL, nil
	case *ast.Identifier:
		return e.evalIdentifier(n, env)
	case *ast.ListLiteral:
		elems := make([]value.Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			// A range expression as a direct list-literal element is
			// spliced in place rather than nested as a single Range value
			//.
			if rangeEl, ok := el.(*ast.RangeExpression); ok {
				rv, err := e.evalRange(rangeEl, env)
				if err != nil {
					return nil, err
				}
				items, err := e.iterate(rangeEl, rv)
				if err != nil {
					return nil, err
				}
				elems = append(elems, items...)
				continue
			}
			v, err := e.EvalExpr(el, env)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return &value.List{Elements: elems}, nil
	case *ast.DictLiteral:
		d := value.NewDict()
		for _, entry := range n.Entries {
			k, err := e.EvalExpr(entry.Key, env)
			if err != nil {
				return nil, err
			}
			v, err := e.EvalExpr(entry.Value, env)
			if err != nil {
				return nil, err
			}
			d.Set(k, v)
		}
		return d, nil
	case *ast.ListComprehension:
		return e.evalListComprehension(n, env)
	case *ast.DictComprehension:
		return e.evalDictComprehension(n, env)
	case *ast.IndexAccess:
		return e.evalIndexAccess(n, env)
	case *ast.AttributeAccess:
		return e.evalAttributeAccess(n, env)
	case *ast.BinaryOperation:
		return e.evalBinary(n, env)
	case *ast.UnaryOperation:
		return e.evalUnary(n, env)
	case *ast.RangeExpression:
		return e.evalRange(n, env)
	case *ast.Pointer:
		return e.EvalExpr(n.Target, env)
	case *ast.FunctionCall:
		return e.evalFunctionCall(n, env)
	case *ast.MethodCall:
		return e.evalMethodCall(n, env)
	case *ast.SpawnCall:
		return e.evalSpawn(n, env)
	case *ast.PythonClassInstance:
		return e.evalPythonClassInstance(n, env)
	}
	tok := expr.GetToken()
	return nil, NewRuntimeError(tok.Line, tok.Column, "unhandled expression %T", expr)
}

func (e *Evaluator) evalIdentifier(n *ast.Identifier, env *Environment) (value.Value, error) {
	if n.ResolvedIndex >= 0 {
		if v := env.GetSlot(n.ResolvedDepth, n.ResolvedIndex); v != nil {
			return e.trackSignalRead(v), nil
		}
	}
	if v, ok := env.Get(n.Name); ok {
		return e.trackSignalRead(v), nil
	}
	if b, ok := e.Builtins[n.Name]; ok {
		return b, nil
	}
	if ns, ok := e.Namespaces[n.Name]; ok {
		return ns, nil
	}
	tok := n.GetToken()
	return nil, NewRuntimeError(tok.Line, tok.Column, "undefined name %q", n.Name)
}

// trackSignalRead unwraps a Signal to its current value, recording it as a
// dependency of whatever Effect is presently running (if any).
func (e *Evaluator) trackSignalRead(v value.Value) value.Value {
	sig, ok := v.(*value.Signal)
	if !ok {
		return v
	}
	if len(e.effectStack) > 0 {
		active := e.effectStack[len(e.effectStack)-1]
		alreadySubscribed := false
		for _, sub := range sig.Subscribers {
			if sub == active {
				alreadySubscribed = true
				break
			}
		}
		if !alreadySubscribed {
			sig.Subscribers = append(sig.Subscribers, active)
		}
	}
	return sig.Value
}

func (e *Evaluator) evalListComprehension(n *ast.ListComprehension, env *Environment) (value.Value, error) {
	iterable, err := e.EvalExpr(n.Iterable, env)
	if err != nil {
		return nil, err
	}
	items, err := e.iterate(n, iterable)
	if err != nil {
		return nil, err
	}
	compEnv := NewEnclosedEnvironment(env, 0)
	var out []value.Value
	for _, item := range items {
		compEnv.Define(n.VarName, n.ResolvedIndex, item)
		if n.Cond != nil {
			cond, err := e.EvalExpr(n.Cond, compEnv)
			if err != nil {
				return nil, err
			}
			if !truthy(cond) {
				continue
			}
		}
		v, err := e.EvalExpr(n.Expr, compEnv)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return &value.List{Elements: out}, nil
}

func (e *Evaluator) evalDictComprehension(n *ast.DictComprehension, env *Environment) (value.Value, error) {
	iterable, err := e.EvalExpr(n.Iterable, env)
	if err != nil {
		return nil, err
	}
	items, err := e.iterate(n, iterable)
	if err != nil {
		return nil, err
	}
	compEnv := NewEnclosedEnvironment(env, 0)
	out := value.NewDict()
	for _, item := range items {
		compEnv.Define(n.VarName, n.ResolvedIndex, item)
		if n.Cond != nil {
			cond, err := e.EvalExpr(n.Cond, compEnv)
			if err != nil {
				return nil, err
			}
			if !truthy(cond) {
				continue
			}
		}
		k, err := e.EvalExpr(n.KeyExpr, compEnv)
		if err != nil {
			return nil, err
		}
		v, err := e.EvalExpr(n.ValExpr, compEnv)
		if err != nil {
			return nil, err
		}
		out.Set(k, v)
	}
	return out, nil
}

func (e *Evaluator) evalIndexAccess(n *ast.IndexAccess, env *Environment) (value.Value, error) {
	target, err := e.EvalExpr(n.Target, env)
	if err != nil {
		return nil, err
	}
	idx, err := e.EvalExpr(n.Index, env)
	if err != nil {
		return nil, err
	}
	tok := n.GetToken()
	switch t := target.(type) {
	case *value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, NewRuntimeError(tok.Line, tok.Column, "list index must be an int")
		}
		pos := int(i)
		if pos < 0 {
			pos += len(t.Elements)
		}
		if pos < 0 || pos >= len(t.Elements) {
			return nil, NewRuntimeError(tok.Line, tok.Column, "list index out of range")
		}
		return t.Elements[pos], nil
	case *value.Dict:
		v, ok := t.Get(idx)
		if !ok {
			return nil, NewRuntimeError(tok.Line, tok.Column, "key %s not found", idx.Inspect())
		}
		return v, nil
	case value.String:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, NewRuntimeError(tok.Line, tok.Column, "string index must be an int")
		}
		runes := []rune(string(t))
		pos := int(i)
		if pos < 0 {
			pos += len(runes)
		}
		if pos < 0 || pos >= len(runes) {
			return nil, NewRuntimeError(tok.Line, tok.Column, "string index out of range")
		}
		return value.String(string(runes[pos])), nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "value of kind %s is not indexable", target.Kind())
}

func (e *Evaluator) evalAttributeAccess(n *ast.AttributeAccess, env *Environment) (value.Value, error) {
	target, err := e.EvalExpr(n.Target, env)
	if err != nil {
		return nil, err
	}
	tok := n.GetToken()
	switch t := target.(type) {
	case *value.Namespace:
		if v, ok := t.Members[n.AttrName]; ok {
			return v, nil
		}
		return nil, NewRuntimeError(tok.Line, tok.Column, "namespace %s has no member %q", t.Name, n.AttrName)
	case *value.Dict:
		if v, ok := t.Get(value.String(n.AttrName)); ok {
			return v, nil
		}
		return nil, NewRuntimeError(tok.Line, tok.Column, "dict has no key %q", n.AttrName)
	case *value.HostObject:
		if t.Call != nil {
			return t.Call(n.AttrName, nil, nil)
		}
	case *value.Task:
		switch n.AttrName {
		case "done", "result", "error":
			return e.taskMethod(tok, t, n.AttrName, nil)
		}
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "cannot access attribute %q on %s", n.AttrName, target.Kind())
}

func (e *Evaluator) evalRange(n *ast.RangeExpression, env *Environment) (value.Value, error) {
	start, err := e.EvalExpr(n.Start, env)
	if err != nil {
		return nil, err
	}
	end, err := e.EvalExpr(n.End, env)
	if err != nil {
		return nil, err
	}
	tok := n.GetToken()
	si, ok := start.(value.Int)
	if !ok {
		return nil, NewRuntimeError(tok.Line, tok.Column, "range start must be an int")
	}
	ei, ok := end.(value.Int)
	if !ok {
		return nil, NewRuntimeError(tok.Line, tok.Column, "range end must be an int")
	}
	step := int64(1)
	if ei < si {
		step = -1
	}
	return &rangeValue{start: int64(si), end: int64(ei), step: step}, nil
}

func (e *Evaluator) evalSpawn(n *ast.SpawnCall, env *Environment) (value.Value, error) {
	call := n.Call
	fork := e.Fork()
	h := task.Spawn(e.Context, func(ctx context.Context) (value.Value, error) {
		return fork.EvalExpr(call, env)
	})
	return &value.Task{Handle: h}, nil
}

// evalPythonClassInstance implements `Python.Foo(args)`: the first
// registered host module exposing a callable attribute named ClassName
// constructs the instance. Host modules are iterated in
// registration order; a plain Builtins["Python."+ClassName] escape hatch
// is checked first for host setups that register a constructor directly.
func (e *Evaluator) evalPythonClassInstance(n *ast.PythonClassInstance, env *Environment) (value.Value, error) {
	tok := n.GetToken()
	args, kwargs, err := e.evalArgs(n.Args, n.Kwargs, env)
	if err != nil {
		return nil, err
	}
	if ctor, ok := e.Builtins["Python."+n.ClassName]; ok {
		return ctor.Fn(args, kwargs)
	}
	for _, name := range e.hostModuleOrder {
		ns := e.hostModules[name]
		member, ok := ns.Members[n.ClassName]
		if !ok {
			continue
		}
		switch c := member.(type) {
		case *value.Builtin:
			return c.Fn(args, kwargs)
		case *value.Function:
			return e.callFunction(c, args, kwargs, tok)
		}
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "unknown host class %q", n.ClassName)
}

func (e *Evaluator) evalArgs(argExprs []ast.Expression, kwargExprs []ast.Arg, env *Environment) ([]value.Value, map[string]value.Value, error) {
	args := make([]value.Value, len(argExprs))
	for i, a := range argExprs {
		v, err := e.EvalExpr(a, env)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	var kwargs map[string]value.Value
	if len(kwargExprs) > 0 {
		kwargs = make(map[string]value.Value, len(kwargExprs))
		for _, kw := range kwargExprs {
			v, err := e.EvalExpr(kw.Value, env)
			if err != nil {
				return nil, nil, err
			}
			kwargs[kw.Name] = v
		}
	}
	return args, kwargs, nil
}

func boolToValue(b bool) value.Value { return value.Bool(b) }
