// Package jsonmod is the `json` host module: path-query JSON manipulation
// via gjson/sjson rather than a decode-whole-document-then-walk approach.
package jsonmod

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("json")
	ns.Members["get"] = &value.Builtin{Name: "json.get", Fn: get}
	ns.Members["set"] = &value.Builtin{Name: "json.set", Fn: set}
	ns.Members["parse"] = &value.Builtin{Name: "json.parse", Fn: parse}
	ns.Members["stringify"] = &value.Builtin{Name: "json.stringify", Fn: stringify}
	return ns
}

func get(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("json.get expects (doc, path)")
	}
	doc, path, err := docAndPath(args)
	if err != nil {
		return nil, fmt.Errorf("json.get: %v", err)
	}
	res := gjson.Get(doc, path)
	if !res.Exists() {
		return value.NULL, nil
	}
	return fromGjson(res), nil
}

func set(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("json.set expects (doc, path, value)")
	}
	doc, path, err := docAndPath(args[:2])
	if err != nil {
		return nil, fmt.Errorf("json.set: %v", err)
	}
	out, err := sjson.Set(doc, path, toGo(args[2]))
	if err != nil {
		return nil, fmt.Errorf("json.set: %v", err)
	}
	return value.String(out), nil
}

func parse(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("json.parse expects a string")
	}
	s, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("json.parse expects a string")
	}
	res := gjson.Parse(string(s))
	if !res.Exists() {
		return nil, fmt.Errorf("json.parse: invalid JSON")
	}
	return fromGjson(res), nil
}

func stringify(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("json.stringify expects a value")
	}
	var b strings.Builder
	writeJSON(&b, args[0])
	return value.String(b.String()), nil
}

func docAndPath(args []value.Value) (string, string, error) {
	doc, ok := args[0].(value.String)
	if !ok {
		return "", "", fmt.Errorf("doc must be a string")
	}
	path, ok := args[1].(value.String)
	if !ok {
		return "", "", fmt.Errorf("path must be a string")
	}
	return string(doc), string(path), nil
}

func fromGjson(r gjson.Result) value.Value {
	switch r.Type {
	case gjson.Null:
		return value.NULL
	case gjson.False:
		return value.Bool(false)
	case gjson.True:
		return value.Bool(true)
	case gjson.Number:
		f := r.Float()
		if f == float64(int64(f)) && !strings.ContainsAny(r.Raw, ".eE") {
			return value.Int(int64(f))
		}
		return value.Float(f)
	case gjson.String:
		return value.String(r.String())
	case gjson.JSON:
		if r.IsArray() {
			var elems []value.Value
			r.ForEach(func(_, val gjson.Result) bool {
				elems = append(elems, fromGjson(val))
				return true
			})
			return &value.List{Elements: elems}
		}
		d := value.NewDict()
		r.ForEach(func(key, val gjson.Result) bool {
			d.Set(value.String(key.String()), fromGjson(val))
			return true
		})
		return d
	}
	return value.NULL
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
			key := k.Inspect()
			if s, ok := k.(value.String); ok {
				key = string(s)
			}
			out[key] = toGo(val)
		}
		return out
	}
	return v.Inspect()
}

func writeJSON(b *strings.Builder, v value.Value) {
	switch t := v.(type) {
	case value.Null:
		b.WriteString("null")
	case value.Bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case value.Int:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case value.Float:
		b.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 64))
	case value.String:
		b.WriteString(strconv.Quote(string(t)))
	case *value.List:
		b.WriteByte('[')
		for i, el := range t.Elements {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, el)
		}
		b.WriteByte(']')
	case *value.Dict:
		b.WriteByte('{')
		for i, k := range t.Keys {
			if i > 0 {
				b.WriteByte(',')
			}
			key := k.Inspect()
			if s, ok := k.(value.String); ok {
				key = string(s)
			}
			b.WriteString(strconv.Quote(key))
			b.WriteByte(':')
			val, _ := t.Get(k)
			writeJSON(b, val)
		}
		b.WriteByte('}')
	default:
		b.WriteString(strconv.Quote(v.Inspect()))
	}
}
