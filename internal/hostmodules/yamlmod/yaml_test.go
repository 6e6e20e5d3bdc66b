package yamlmod

import (
	"strings"
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func TestParseDocument(t *testing.T) {
	fn := New().Members["parse"].(*value.Builtin)
	out, err := fn.Fn([]value.Value{value.String("name: aml\nretries: 3\ntags:\n  - fast\n  - small\n")}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, ok := out.(*value.Dict)
	if !ok {
		t.Fatalf("got %T, want *value.Dict", out)
	}
	if v, _ := d.Get(value.String("name")); v != value.String("aml") {
		t.Errorf("name: got %v", v)
	}
	if v, _ := d.Get(value.String("retries")); v != value.Int(3) {
		t.Errorf("retries: got %v, want Int(3)", v)
	}
	tags, _ := d.Get(value.String("tags"))
	l, ok := tags.(*value.List)
	if !ok || len(l.Elements) != 2 {
		t.Fatalf("tags: got %v", tags)
	}
}

func TestDumpRoundTrip(t *testing.T) {
	ns := New()
	dumpFn := ns.Members["dump"].(*value.Builtin)
	parseFn := ns.Members["parse"].(*value.Builtin)

	d := value.NewDict()
	d.Set(value.String("port"), value.Int(8080))
	d.Set(value.String("debug"), value.Bool(true))

	text, err := dumpFn.Fn([]value.Value{d}, nil)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(string(text.(value.String)), "port: 8080") {
		t.Errorf("dump output missing scalar: %q", text)
	}

	back, err := parseFn.Fn([]value.Value{text}, nil)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if v, _ := back.(*value.Dict).Get(value.String("debug")); v != value.Bool(true) {
		t.Errorf("debug: got %v, want true", v)
	}
}
