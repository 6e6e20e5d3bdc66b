package interp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aml-lang/aml/internal/value"
)

// registerBuiltins installs the language's global builtin functions into a
// name-to-Builtin map.
func registerBuiltins(e *Evaluator) {
	reg := func(name string, fn value.BuiltinFunc) {
		e.Builtins[name] = &value.Builtin{Name: name, Fn: fn}
	}

	reg("print", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		parts := make([]interface{}, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		fmt.Fprintln(e.Out, parts...)
		return value.NULL, nil
	})

	reg("len", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len expects 1 argument")
		}
		switch v := args[0].(type) {
		case *value.List:
			return value.Int(len(v.Elements)), nil
		case *value.Dict:
			return value.Int(v.Len()), nil
		case value.String:
			return value.Int(len([]rune(string(v)))), nil
		}
		return nil, fmt.Errorf("len() not defined for %s", args[0].Kind())
	})

	reg("format", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.String(""), nil
		}
		tmpl, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("format() expects a string template")
		}
		rest := make([]interface{}, len(args)-1)
		for i, a := range args[1:] {
			rest[i] = a.Inspect()
		}
		return value.String(fmt.Sprintf(string(tmpl), rest...)), nil
	})

	reg("wait", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wait expects seconds")
		}
		secs, ok := numericOf(args[0])
		if !ok {
			return nil, fmt.Errorf("wait expects a number")
		}
		// Sleep in small slices so a cooperative Cancel() is observed
		// promptly instead of after the full duration.
		const slice = 25 * time.Millisecond
		deadline := time.Now().Add(time.Duration(secs * float64(time.Second)))
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 || e.IsCancelled() {
				return value.NULL, nil
			}
			if remaining > slice {
				remaining = slice
			}
			select {
			case <-time.After(remaining):
			case <-e.Context.Done():
				return value.NULL, nil
			}
		}
	})

	reg("signal", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		var initial value.Value = value.NULL
		if len(args) == 1 {
			initial = args[0]
		}
		return &value.Signal{Value: initial}, nil
	})

	reg("effect", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("effect expects a function")
		}
		fn := args[0]
		eff := &value.Effect{}
		eff.Run = func() error {
			e.effectStack = append(e.effectStack, eff)
			defer func() { e.effectStack = e.effectStack[:len(e.effectStack)-1] }()
			_, err := e.call(fn, nil, nil, tokenZero())
			return err
		}
		if err := eff.Run(); err != nil {
			return nil, err
		}
		return eff, nil
	})

	reg("import", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("import expects a module name")
		}
		name, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("import expects a string module name")
		}
		return e.importModule(string(name))
	})

	registerConvert(reg)
	registerTime(reg)
	registerEvents(e, reg)
}

func registerConvert(reg func(string, value.BuiltinFunc)) {
	reg("convert.to_int", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("convert.to_int expects 1 argument")
		}
		switch v := args[0].(type) {
		case value.Int:
			return v, nil
		case value.Float:
			return value.Int(int64(v)), nil
		case value.String:
			i, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to int", string(v))
			}
			return value.Int(i), nil
		case value.Bool:
			if v {
				return value.Int(1), nil
			}
			return value.Int(0), nil
		}
		return nil, fmt.Errorf("cannot convert %s to int", args[0].Kind())
	})
	reg("convert.to_float", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("convert.to_float expects 1 argument")
		}
		switch v := args[0].(type) {
		case value.Int:
			return value.Float(v), nil
		case value.Float:
			return v, nil
		case value.String:
			f, err := strconv.ParseFloat(string(v), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to float", string(v))
			}
			return value.Float(f), nil
		}
		return nil, fmt.Errorf("cannot convert %s to float", args[0].Kind())
	})
	reg("convert.to_string", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("convert.to_string expects 1 argument")
		}
		return value.String(args[0].Inspect()), nil
	})
	reg("convert.to_bool", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("convert.to_bool expects 1 argument")
		}
		return value.Bool(truthy(args[0])), nil
	})
}

func registerTime(reg func(string, value.BuiltinFunc)) {
	reg("time.now", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		return value.Float(float64(time.Now().UnixNano()) / 1e9), nil
	})
	reg("time.since", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("time.since expects a start timestamp")
		}
		start, ok := numericOf(args[0])
		if !ok {
			return nil, fmt.Errorf("time.since expects a number")
		}
		now := float64(time.Now().UnixNano()) / 1e9
		return value.Float(now - start), nil
	})
}

// registerEvents implements the callback/event registry: handlers register
// under a string key via events.on and fire in registration order on
// events.emit.
func registerEvents(e *Evaluator, reg func(string, value.BuiltinFunc)) {
	listeners := make(map[string][]value.Value)
	reg("events.on", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("events.on expects (name, callback)")
		}
		name, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("events.on expects a string event name")
		}
		listeners[string(name)] = append(listeners[string(name)], args[1])
		return value.NULL, nil
	})
	reg("events.emit", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("events.emit expects a name")
		}
		name, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("events.emit expects a string event name")
		}
		for _, cb := range listeners[string(name)] {
			if _, err := e.call(cb, args[1:], nil, tokenZero()); err != nil {
				return nil, err
			}
		}
		return value.NULL, nil
	})
}
