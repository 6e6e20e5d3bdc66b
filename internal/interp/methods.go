package interp

import (
	"sort"
	"strings"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
	"github.com/aml-lang/aml/internal/value"
)

func (e *Evaluator) evalMethodCall(n *ast.MethodCall, env *Environment) (value.Value, error) {
	tok := n.GetToken()
	var receiver value.Value
	var err error
	if n.ObjectExpr != nil {
		receiver, err = e.EvalExpr(n.ObjectExpr, env)
	} else {
		// Raw lookup, not evalIdentifier: a name holding a Signal must reach
		// signalMethod as the Signal itself, not its unwrapped current value.
		receiver, err = e.lookupReceiver(tok, n.ObjectName, env)
		if err != nil {
			// Flat dotted builtins (`convert.to_int`, `time.now`, `events.on`)
			// register under their full name rather than a receiver object, so
			// `convert` alone resolves to nothing — retry with the joined name
			// before reporting the receiver as undefined.
			if b, ok := e.Builtins[n.ObjectName+"."+n.MethodName]; ok {
				args, kwargs, aerr := e.evalArgs(n.Args, n.Kwargs, env)
				if aerr != nil {
					return nil, aerr
				}
				return b.Fn(args, kwargs)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	args, kwargs, err := e.evalArgs(n.Args, n.Kwargs, env)
	if err != nil {
		return nil, err
	}

	switch r := receiver.(type) {
	case *value.List:
		return e.listMethod(tok, r, n.MethodName, args)
	case *value.Dict:
		// A dict entry under the method's name shadows the built-in dict
		// methods: callable entries are invoked, anything else is returned
		// as-is.
		if member, ok := r.Get(value.String(n.MethodName)); ok {
			switch member.(type) {
			case *value.Function, *value.Builtin:
				return e.call(member, args, kwargs, tok)
			}
			return member, nil
		}
		return e.dictMethod(tok, r, n.MethodName, args)
	case value.String:
		return e.stringMethod(tok, r, n.MethodName, args)
	case *value.Namespace:
		member, ok := r.Members[n.MethodName]
		if !ok {
			return nil, NewRuntimeError(tok.Line, tok.Column, "namespace %s has no member %q", r.Name, n.MethodName)
		}
		return e.call(member, args, kwargs, tok)
	case *value.Task:
		return e.taskMethod(tok, r, n.MethodName, args)
	case *value.Signal:
		return e.signalMethod(tok, r, n.MethodName, args)
	case *value.HostObject:
		if r.Call != nil {
			return r.Call(n.MethodName, args, kwargs)
		}
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "value of kind %s has no method %q", receiver.Kind(), n.MethodName)
}

// lookupReceiver resolves a method call's receiver name across scope,
// builtins, and namespaces without the Signal unwrapping evalIdentifier
// performs for plain reads.
func (e *Evaluator) lookupReceiver(tok token.Token, name string, env *Environment) (value.Value, error) {
	if v, ok := env.Get(name); ok {
		return v, nil
	}
	if b, ok := e.Builtins[name]; ok {
		return b, nil
	}
	if ns, ok := e.Namespaces[name]; ok {
		return ns, nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "undefined name %q", name)
}

func (e *Evaluator) listMethod(tok token.Token, l *value.List, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "len":
		return value.Int(len(l.Elements)), nil
	case "append", "push":
		l.Elements = append(l.Elements, args...)
		return l, nil
	case "pop":
		if len(l.Elements) == 0 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "pop from empty list")
		}
		last := l.Elements[len(l.Elements)-1]
		l.Elements = l.Elements[:len(l.Elements)-1]
		return last, nil
	case "contains":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "contains expects 1 argument")
		}
		for _, el := range l.Elements {
			if value.Equal(el, args[0]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case "reverse":
		out := make([]value.Value, len(l.Elements))
		for i, el := range l.Elements {
			out[len(l.Elements)-1-i] = el
		}
		return &value.List{Elements: out}, nil
	case "sort":
		out := make([]value.Value, len(l.Elements))
		copy(out, l.Elements)
		sort.Slice(out, func(i, j int) bool {
			fi, iok := numericOf(out[i])
			fj, jok := numericOf(out[j])
			if iok && jok {
				return fi < fj
			}
			return out[i].Inspect() < out[j].Inspect()
		})
		return &value.List{Elements: out}, nil
	case "join":
		sep := ""
		if len(args) == 1 {
			if s, ok := args[0].(value.String); ok {
				sep = string(s)
			}
		}
		parts := make([]string, len(l.Elements))
		for i, el := range l.Elements {
			if s, ok := el.(value.String); ok {
				parts[i] = string(s)
			} else {
				parts[i] = el.Inspect()
			}
		}
		return value.String(strings.Join(parts, sep)), nil
	case "map":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "map expects 1 function argument")
		}
		out := make([]value.Value, len(l.Elements))
		for i, el := range l.Elements {
			v, err := e.call(args[0], []value.Value{el}, nil, tok)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return &value.List{Elements: out}, nil
	case "filter":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "filter expects 1 function argument")
		}
		var out []value.Value
		for _, el := range l.Elements {
			v, err := e.call(args[0], []value.Value{el}, nil, tok)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				out = append(out, el)
			}
		}
		return &value.List{Elements: out}, nil
	case "reduce":
		if len(args) != 2 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "reduce expects (fn, initial)")
		}
		acc := args[1]
		for _, el := range l.Elements {
			v, err := e.call(args[0], []value.Value{acc, el}, nil, tok)
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "list has no method %q", name)
}

func (e *Evaluator) dictMethod(tok token.Token, d *value.Dict, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "len":
		return value.Int(d.Len()), nil
	case "keys":
		return &value.List{Elements: append([]value.Value{}, d.Keys...)}, nil
	case "values":
		out := make([]value.Value, d.Len())
		for i, k := range d.Keys {
			v, _ := d.Get(k)
			out[i] = v
		}
		return &value.List{Elements: out}, nil
	case "get":
		if len(args) < 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "get expects a key")
		}
		if v, ok := d.Get(args[0]); ok {
			return v, nil
		}
		if len(args) >= 2 {
			return args[1], nil
		}
		return value.NULL, nil
	case "set":
		if len(args) != 2 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "set expects (key, value)")
		}
		d.Set(args[0], args[1])
		return d, nil
	case "delete":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "delete expects a key")
		}
		d.Delete(args[0])
		return d, nil
	case "contains", "has":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "contains expects a key")
		}
		_, ok := d.Get(args[0])
		return value.Bool(ok), nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "dict has no method %q", name)
}

func (e *Evaluator) stringMethod(tok token.Token, s value.String, name string, args []value.Value) (value.Value, error) {
	str := string(s)
	switch name {
	case "len":
		return value.Int(len([]rune(str))), nil
	case "upper":
		return value.String(strings.ToUpper(str)), nil
	case "lower":
		return value.String(strings.ToLower(str)), nil
	case "trim":
		return value.String(strings.TrimSpace(str)), nil
	case "split":
		sep := ""
		if len(args) == 1 {
			if a, ok := args[0].(value.String); ok {
				sep = string(a)
			}
		}
		var parts []string
		if sep == "" {
			parts = strings.Fields(str)
		} else {
			parts = strings.Split(str, sep)
		}
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.String(p)
		}
		return &value.List{Elements: out}, nil
	case "contains":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "contains expects 1 argument")
		}
		sub, _ := args[0].(value.String)
		return value.Bool(strings.Contains(str, string(sub))), nil
	case "replace":
		if len(args) != 2 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "replace expects (old, new)")
		}
		old, _ := args[0].(value.String)
		repl, _ := args[1].(value.String)
		return value.String(strings.ReplaceAll(str, string(old), string(repl))), nil
	case "starts_with":
		sub, _ := args[0].(value.String)
		return value.Bool(strings.HasPrefix(str, string(sub))), nil
	case "ends_with":
		sub, _ := args[0].(value.String)
		return value.Bool(strings.HasSuffix(str, string(sub))), nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "string has no method %q", name)
}

func (e *Evaluator) taskMethod(tok token.Token, t *value.Task, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "join":
		timeout := 0.0
		if len(args) == 1 {
			if f, ok := numericOf(args[0]); ok {
				timeout = f
			}
		}
		v, err := t.Handle.Join(timeout)
		if err != nil {
			return nil, NewRuntimeError(tok.Line, tok.Column, "%s", err.Error())
		}
		return v, nil
	case "cancel":
		t.Handle.Cancel()
		return value.NULL, nil
	case "done":
		return value.Bool(t.Handle.Done()), nil
	case "result":
		if v, ok := t.Handle.Result(); ok {
			return v, nil
		}
		return value.NULL, nil
	case "error":
		if err := t.Handle.LastError(); err != nil {
			return value.String(err.Error()), nil
		}
		return value.NULL, nil
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "task has no method %q", name)
}

func (e *Evaluator) signalMethod(tok token.Token, s *value.Signal, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "get":
		return e.trackSignalRead(s), nil
	case "set":
		if len(args) != 1 {
			return nil, NewRuntimeError(tok.Line, tok.Column, "set expects 1 argument")
		}
		return value.NULL, e.signalSet(s, args[0])
	}
	return nil, NewRuntimeError(tok.Line, tok.Column, "signal has no method %q", name)
}

// signalSet stores a signal write: a no-op write (new == old) runs nothing;
// otherwise every subscriber re-runs except one that is itself the effect
// currently executing (the re-entrancy guard that stops an effect from
// triggering its own re-run when it writes the signal it's reading).
func (e *Evaluator) signalSet(s *value.Signal, newVal value.Value) error {
	if value.Equal(s.Value, newVal) {
		return nil
	}
	s.Value = newVal
	var active *value.Effect
	if len(e.effectStack) > 0 {
		active = e.effectStack[len(e.effectStack)-1]
	}
	for _, eff := range s.Subscribers {
		if eff == active {
			continue
		}
		if err := eff.Run(); err != nil {
			return err
		}
	}
	return nil
}
