// Package bundle implements the compiled-bundle file format: a
// base64-wrapped JSON serialization of a parsed AST, used to ship an entry
// module and its transitive imports as a single file the loader can read
// without touching the filesystem's .aml sources again. The encoding is
// generic over internal/ast's node types via reflection rather than one
// hand-written MarshalJSON per node, since the node set is large and
// mechanical field-by-field encoders would drift from the AST as it grows.
package bundle

import (
	"fmt"
	"reflect"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/token"
)

// nodeTypes lists every concrete AST struct the codec must know how to
// reconstruct from a "_t" discriminator. Registered once at init so decode
// can look up the Go type behind a type name read out of a bundle file.
var nodeTypes = map[string]reflect.Type{}

func register(samples ...interface{}) {
	for _, s := range samples {
		t := reflect.TypeOf(s)
		nodeTypes[t.Name()] = t
	}
}

func init() {
	register(
		ast.VarDeclaration{}, ast.ConstDeclaration{}, ast.FunctionDeclaration{},
		ast.NamespaceDeclaration{}, ast.MetadataDeclaration{}, ast.ImportPy{},
		ast.ImportAml{}, ast.BlockStatement{}, ast.Assignment{}, ast.IfStatement{},
		ast.WhileStatement{}, ast.ForStatement{}, ast.ReturnStatement{},
		ast.RaiseStatement{}, ast.BreakStatement{}, ast.ContinueStatement{},
		ast.TryCatchStatement{}, ast.ParallelBlock{}, ast.ExpressionStatement{},
		ast.NumberLiteral{}, ast.StringLiteral{}, ast.BooleanLiteral{}, ast.NullLiteral{},
		ast.Identifier{}, ast.ListLiteral{}, ast.DictLiteral{}, ast.ListComprehension{},
		ast.DictComprehension{}, ast.IndexAccess{}, ast.AttributeAccess{},
		ast.BinaryOperation{}, ast.UnaryOperation{}, ast.RangeExpression{},
		ast.Pointer{}, ast.FunctionCall{}, ast.MethodCall{}, ast.SpawnCall{},
		ast.PythonClassInstance{},
		// Plain (non-Node) helper structs embedded by value in node fields.
		ast.Param{}, ast.DictEntry{}, ast.MetaEntry{}, ast.ImportSpec{}, ast.Arg{},
		ast.Program{},
	)
}

// EncodeProgram turns a parsed program into its AST-dict form, ready for
// json.Marshal.
func EncodeProgram(prog *ast.Program) interface{} {
	return encodeValue(reflect.ValueOf(prog))
}

func encodeValue(rv reflect.Value) interface{} {
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return encodeValue(rv.Elem())
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return encodeValue(rv.Elem())
	case reflect.Struct:
		t := rv.Type()
		if t == reflect.TypeOf(token.Token{}) {
			// Only line/column survive into the bundle; lexeme/kind/literal
			// are redundant once the node type itself is known and aren't
			// needed to re-run the program, only to report diagnostics.
			tok := rv.Interface().(token.Token)
			return map[string]interface{}{"l": tok.Line, "c": tok.Column}
		}
		out := map[string]interface{}{"_t": t.Name()}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			if f.Name == "Token" {
				out["tok"] = encodeValue(rv.Field(i))
				continue
			}
			out[f.Name] = encodeValue(rv.Field(i))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return []interface{}{}
		}
		arr := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			arr[i] = encodeValue(rv.Index(i))
		}
		return arr
	default:
		return rv.Interface()
	}
}

// DecodeProgram reconstructs a *ast.Program from the generic map produced by
// json.Unmarshal-ing an EncodeProgram result.
func DecodeProgram(raw interface{}) (*ast.Program, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("bundle: program entry is not an object")
	}
	prog := &ast.Program{}
	if err := decodeStruct(reflect.ValueOf(prog).Elem(), m); err != nil {
		return nil, err
	}
	return prog, nil
}

func decodeValue(dst reflect.Value, raw interface{}) error {
	t := dst.Type()
	if t == reflect.TypeOf(token.Token{}) {
		m, _ := raw.(map[string]interface{})
		tok := token.Token{}
		if l, ok := m["l"].(float64); ok {
			tok.Line = int(l)
		}
		if c, ok := m["c"].(float64); ok {
			tok.Column = int(c)
		}
		dst.Set(reflect.ValueOf(tok))
		return nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		if raw == nil {
			return nil
		}
		m, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("bundle: expected object for %s", t)
		}
		newVal := reflect.New(t.Elem())
		if err := decodeStruct(newVal.Elem(), m); err != nil {
			return err
		}
		dst.Set(newVal)
		return nil
	case reflect.Interface:
		if raw == nil {
			return nil
		}
		m, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("bundle: expected object for interface field")
		}
		name, _ := m["_t"].(string)
		rt, ok := nodeTypes[name]
		if !ok {
			return fmt.Errorf("bundle: unknown node type %q", name)
		}
		newVal := reflect.New(rt)
		if err := decodeStruct(newVal.Elem(), m); err != nil {
			return err
		}
		dst.Set(newVal)
		return nil
	case reflect.Struct:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("bundle: expected object for %s", t)
		}
		return decodeStruct(dst, m)
	case reflect.Slice:
		arr, ok := raw.([]interface{})
		if !ok {
			if raw == nil {
				return nil
			}
			return fmt.Errorf("bundle: expected array for %s", t)
		}
		sl := reflect.MakeSlice(t, len(arr), len(arr))
		for i, item := range arr {
			if err := decodeValue(sl.Index(i), item); err != nil {
				return err
			}
		}
		dst.Set(sl)
		return nil
	case reflect.String:
		s, _ := raw.(string)
		dst.SetString(s)
		return nil
	case reflect.Bool:
		b, _ := raw.(bool)
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int64, reflect.Int32:
		f, _ := raw.(float64)
		dst.SetInt(int64(f))
		return nil
	case reflect.Float64, reflect.Float32:
		f, _ := raw.(float64)
		dst.SetFloat(f)
		return nil
	}
	return fmt.Errorf("bundle: unsupported field kind %s", t.Kind())
}

func decodeStruct(dst reflect.Value, m map[string]interface{}) error {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		key := f.Name
		if f.Name == "Token" {
			key = "tok"
		}
		raw, ok := m[key]
		if !ok {
			continue
		}
		if err := decodeValue(dst.Field(i), raw); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
	}
	return nil
}
