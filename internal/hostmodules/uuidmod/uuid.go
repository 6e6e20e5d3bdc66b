// Package uuidmod is the `uuid` host module, exposed to scripts as two
// builtins: uuid.v4() and uuid.parse(s).
package uuidmod

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("uuid")
	ns.Members["v4"] = &value.Builtin{Name: "uuid.v4", Fn: v4}
	ns.Members["parse"] = &value.Builtin{Name: "uuid.parse", Fn: parse}
	return ns
}

func v4(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("uuid.v4 expects no arguments")
	}
	return value.String(uuid.New().String()), nil
}

func parse(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("uuid.parse expects a string")
	}
	s, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("uuid.parse expects a string")
	}
	id, err := uuid.Parse(string(s))
	if err != nil {
		return nil, fmt.Errorf("uuid.parse: %v", err)
	}
	d := value.NewDict()
	d.Set(value.String("string"), value.String(id.String()))
	d.Set(value.String("version"), value.Int(int64(id.Version())))
	d.Set(value.String("variant"), value.String(id.Variant().String()))
	return d, nil
}
