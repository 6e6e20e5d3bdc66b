// Package yamlmod is the `yaml` host module: yaml.parse(s) and yaml.dump(v),
// converting between YAML documents and this language's Dict/List value
// shapes.
package yamlmod

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("yaml")
	ns.Members["parse"] = &value.Builtin{Name: "yaml.parse", Fn: parse}
	ns.Members["dump"] = &value.Builtin{Name: "yaml.dump", Fn: dump}
	return ns
}

func parse(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("yaml.parse expects a string")
	}
	s, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("yaml.parse expects a string")
	}
	var data interface{}
	if err := yaml.Unmarshal([]byte(string(s)), &data); err != nil {
		return nil, fmt.Errorf("yaml.parse: %v", err)
	}
	return fromGo(data)
}

func dump(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("yaml.dump expects a value")
	}
	goVal := toGo(args[0])
	out, err := yaml.Marshal(goVal)
	if err != nil {
		return nil, fmt.Errorf("yaml.dump: %v", err)
	}
	return value.String(string(out)), nil
}

// fromGo converts a yaml.Unmarshal result to a script Value. yaml.v3 decodes
// integers as int (unlike encoding/json's float64-only numbers), so integer
// scalars survive without a separate int/float heuristic.
func fromGo(data interface{}) (value.Value, error) {
	switch v := data.(type) {
	case nil:
		return value.NULL, nil
	case bool:
		return value.Bool(v), nil
	case int:
		return value.Int(int64(v)), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return value.Float(v), nil
	case string:
		return value.String(v), nil
	case []interface{}:
		elems := make([]value.Value, len(v))
		for i, item := range v {
			ev, err := fromGo(item)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return &value.List{Elements: elems}, nil
	case map[string]interface{}:
		d := value.NewDict()
		for k, val := range v {
			ev, err := fromGo(val)
			if err != nil {
				return nil, err
			}
			d.Set(value.String(k), ev)
		}
		return d, nil
	case map[interface{}]interface{}:
		d := value.NewDict()
		for k, val := range v {
			ev, err := fromGo(val)
			if err != nil {
				return nil, err
			}
			d.Set(value.String(fmt.Sprintf("%v", k)), ev)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported YAML value type: %T", data)
}

func toGo(v value.Value) interface{} {
	switch t := v.(type) {
	case value.Null:
		return nil
	case value.Bool:
		return bool(t)
	case value.Int:
		return int64(t)
	case value.Float:
		return float64(t)
	case value.String:
		return string(t)
	case *value.List:
		out := make([]interface{}, len(t.Elements))
		for i, el := range t.Elements {
			out[i] = toGo(el)
		}
		return out
	case *value.Dict:
		out := make(map[string]interface{}, t.Len())
		for _, k := range t.Keys {
			val, _ := t.Get(k)
			out[toDisplayKey(k)] = toGo(val)
		}
		return out
	}
	return v.Inspect()
}

func toDisplayKey(k value.Value) string {
	if s, ok := k.(value.String); ok {
		return string(s)
	}
	return k.Inspect()
}
