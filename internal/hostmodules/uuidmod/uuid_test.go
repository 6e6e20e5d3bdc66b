package uuidmod

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func TestV4ParsesBack(t *testing.T) {
	ns := New()
	v4fn := ns.Members["v4"].(*value.Builtin)
	parseFn := ns.Members["parse"].(*value.Builtin)

	raw, err := v4fn.Fn(nil, nil)
	if err != nil {
		t.Fatalf("v4: %v", err)
	}
	s, ok := raw.(value.String)
	if !ok || len(s) != 36 {
		t.Fatalf("v4 should produce a canonical 36-char string, got %v", raw)
	}

	parsed, err := parseFn.Fn([]value.Value{s}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d := parsed.(*value.Dict)
	if ver, _ := d.Get(value.String("version")); ver != value.Int(4) {
		t.Errorf("version: got %v, want 4", ver)
	}
	if str, _ := d.Get(value.String("string")); str != s {
		t.Errorf("round-trip: got %v, want %v", str, s)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	parseFn := New().Members["parse"].(*value.Builtin)
	if _, err := parseFn.Fn([]value.Value{value.String("not-a-uuid")}, nil); err == nil {
		t.Fatal("expected an error for a malformed uuid")
	}
}
