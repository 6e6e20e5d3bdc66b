// Package bitstring is the `bitstring` host module: binary packing and
// unpacking exposed to scripts via import_py, backed by funbit's
// builder/matcher split and returning plain value.List-of-Int byte buffers.
package bitstring

import (
	"fmt"

	"github.com/funvibe/funbit/pkg/funbit"

	"github.com/aml-lang/aml/internal/value"
)

// New builds the `bitstring` namespace: pack(fields) assembles a byte buffer
// (a value.List of 0-255 Ints) from a list of {type, size, value} field
// dicts; unpack(bytes, fields) does the reverse, returning a Dict keyed by
// each field's "name".
func New() *value.Namespace {
	ns := value.NewNamespace("bitstring")
	ns.Members["pack"] = &value.Builtin{Name: "bitstring.pack", Fn: pack}
	ns.Members["unpack"] = &value.Builtin{Name: "bitstring.unpack", Fn: unpack}
	return ns
}

type field struct {
	typ   string
	size  int
	name  string
	value value.Value
}

func parseFields(v value.Value, requireValue bool) ([]field, error) {
	list, ok := v.(*value.List)
	if !ok {
		return nil, fmt.Errorf("expected a list of field dicts")
	}
	out := make([]field, 0, len(list.Elements))
	for _, el := range list.Elements {
		d, ok := el.(*value.Dict)
		if !ok {
			return nil, fmt.Errorf("each field must be a dict")
		}
		f := field{typ: "uint", size: 8}
		if t, ok := d.Get(value.String("type")); ok {
			if s, ok := t.(value.String); ok {
				f.typ = string(s)
			}
		}
		if s, ok := d.Get(value.String("size")); ok {
			if i, ok := s.(value.Int); ok {
				f.size = int(i)
			}
		}
		if n, ok := d.Get(value.String("name")); ok {
			if s, ok := n.(value.String); ok {
				f.name = string(s)
			}
		}
		if requireValue {
			fv, ok := d.Get(value.String("value"))
			if !ok {
				return nil, fmt.Errorf("field %q missing a value", f.name)
			}
			f.value = fv
		}
		out = append(out, f)
	}
	return out, nil
}

func pack(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("bitstring.pack expects a list of fields")
	}
	fields, err := parseFields(args[0], true)
	if err != nil {
		return nil, fmt.Errorf("bitstring.pack: %v", err)
	}
	builder := funbit.NewBuilder()
	for _, f := range fields {
		switch f.typ {
		case "uint", "int":
			n, ok := asInt(f.value)
			if !ok {
				return nil, fmt.Errorf("bitstring.pack: field %q needs an integer value", f.name)
			}
			funbit.AddInteger(builder, n, funbit.WithSize(uint(f.size)))
		case "float":
			fv, ok := asFloat(f.value)
			if !ok {
				return nil, fmt.Errorf("bitstring.pack: field %q needs a numeric value", f.name)
			}
			funbit.AddFloat(builder, fv, funbit.WithSize(uint(f.size)))
		case "binary":
			b, err := asBytes(f.value)
			if err != nil {
				return nil, fmt.Errorf("bitstring.pack: field %q: %v", f.name, err)
			}
			funbit.AddBinary(builder, b)
		default:
			return nil, fmt.Errorf("bitstring.pack: unknown field type %q", f.typ)
		}
	}
	bs, err := funbit.Build(builder)
	if err != nil {
		return nil, fmt.Errorf("bitstring.pack: %v", err)
	}
	return bytesToList(bs.ToBytes()), nil
}

func unpack(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("bitstring.unpack expects (bytes, fields)")
	}
	raw, err := asBytes(args[0])
	if err != nil {
		return nil, fmt.Errorf("bitstring.unpack: %v", err)
	}
	fields, err := parseFields(args[1], false)
	if err != nil {
		return nil, fmt.Errorf("bitstring.unpack: %v", err)
	}
	bs := funbit.NewBitStringFromBytes(raw)
	matcher := funbit.NewMatcher()
	ints := make([]int64, len(fields))
	floats := make([]float64, len(fields))
	bins := make([][]byte, len(fields))
	for i, f := range fields {
		switch f.typ {
		case "uint", "int":
			funbit.Integer(matcher, &ints[i], funbit.WithSize(uint(f.size)))
		case "float":
			funbit.Float(matcher, &floats[i], funbit.WithSize(uint(f.size)))
		case "binary":
			funbit.Binary(matcher, &bins[i])
		default:
			return nil, fmt.Errorf("bitstring.unpack: unknown field type %q", f.typ)
		}
	}
	if _, err := funbit.Match(matcher, bs); err != nil {
		return nil, fmt.Errorf("bitstring.unpack: %v", err)
	}
	out := value.NewDict()
	for i, f := range fields {
		key := f.name
		if key == "" {
			key = fmt.Sprintf("field%d", i)
		}
		switch f.typ {
		case "uint", "int":
			out.Set(value.String(key), value.Int(ints[i]))
		case "float":
			out.Set(value.String(key), value.Float(floats[i]))
		case "binary":
			out.Set(value.String(key), bytesToList(bins[i]))
		}
	}
	return out, nil
}

func asInt(v value.Value) (int64, bool) {
	switch n := v.(type) {
	case value.Int:
		return int64(n), true
	case value.Float:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	}
	return 0, false
}

func asBytes(v value.Value) ([]byte, error) {
	switch t := v.(type) {
	case value.String:
		return []byte(string(t)), nil
	case *value.List:
		out := make([]byte, len(t.Elements))
		for i, el := range t.Elements {
			n, ok := el.(value.Int)
			if !ok {
				return nil, fmt.Errorf("byte list elements must be integers")
			}
			out[i] = byte(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a string or list of byte integers")
}

func bytesToList(b []byte) *value.List {
	out := make([]value.Value, len(b))
	for i, c := range b {
		out[i] = value.Int(c)
	}
	return &value.List{Elements: out}
}
