package jsonmod

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func TestGetPathQuery(t *testing.T) {
	fn := New().Members["get"].(*value.Builtin)
	doc := value.String(`{"server": {"port": 8080, "hosts": ["a", "b"]}}`)
	out, err := fn.Fn([]value.Value{doc, value.String("server.port")}, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != value.Int(8080) {
		t.Errorf("got %v, want Int(8080)", out)
	}
	out, err = fn.Fn([]value.Value{doc, value.String("server.hosts.1")}, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != value.String("b") {
		t.Errorf("got %v, want String(b)", out)
	}
	out, err = fn.Fn([]value.Value{doc, value.String("missing.path")}, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != value.Value(value.NULL) {
		t.Errorf("missing path: got %v, want null", out)
	}
}

func TestSetWritesPath(t *testing.T) {
	ns := New()
	setFn := ns.Members["set"].(*value.Builtin)
	getFn := ns.Members["get"].(*value.Builtin)

	out, err := setFn.Fn([]value.Value{value.String(`{"a": 1}`), value.String("b.c"), value.Int(2)}, nil)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	back, err := getFn.Fn([]value.Value{out, value.String("b.c")}, nil)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if back != value.Int(2) {
		t.Errorf("got %v, want Int(2)", back)
	}
}

func TestParseAndStringifyRoundTrip(t *testing.T) {
	ns := New()
	parseFn := ns.Members["parse"].(*value.Builtin)
	strFn := ns.Members["stringify"].(*value.Builtin)

	parsed, err := parseFn.Fn([]value.Value{value.String(`{"k": [1, 2.5, "s", null, true]}`)}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	l, _ := parsed.(*value.Dict).Get(value.String("k"))
	elems := l.(*value.List).Elements
	if elems[0] != value.Int(1) || elems[1] != value.Float(2.5) || elems[4] != value.Bool(true) {
		t.Errorf("unexpected element decoding: %v", elems)
	}

	text, err := strFn.Fn([]value.Value{parsed}, nil)
	if err != nil {
		t.Fatalf("stringify: %v", err)
	}
	if text != value.String(`{"k":[1,2.5,"s",null,true]}`) {
		t.Errorf("got %v", text)
	}
}
