package bitstring

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func fieldDict(typ string, size int, name string, val value.Value) *value.Dict {
	d := value.NewDict()
	d.Set(value.String("type"), value.String(typ))
	d.Set(value.String("size"), value.Int(int64(size)))
	d.Set(value.String("name"), value.String(name))
	if val != nil {
		d.Set(value.String("value"), val)
	}
	return d
}

func TestPackUnpackRoundTrip(t *testing.T) {
	ns := New()
	packFn := ns.Members["pack"].(*value.Builtin)
	unpackFn := ns.Members["unpack"].(*value.Builtin)

	fields := &value.List{Elements: []value.Value{
		fieldDict("uint", 8, "version", value.Int(2)),
		fieldDict("uint", 16, "length", value.Int(0x0102)),
	}}
	packed, err := packFn.Fn([]value.Value{fields}, nil)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	bytes := packed.(*value.List)
	if len(bytes.Elements) != 3 {
		t.Fatalf("got %d bytes, want 3", len(bytes.Elements))
	}
	if bytes.Elements[0] != value.Int(2) || bytes.Elements[1] != value.Int(1) || bytes.Elements[2] != value.Int(2) {
		t.Errorf("unexpected packed bytes: %v", bytes.Inspect())
	}

	shape := &value.List{Elements: []value.Value{
		fieldDict("uint", 8, "version", nil),
		fieldDict("uint", 16, "length", nil),
	}}
	out, err := unpackFn.Fn([]value.Value{packed, shape}, nil)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	d := out.(*value.Dict)
	if v, _ := d.Get(value.String("version")); v != value.Int(2) {
		t.Errorf("version: got %v, want 2", v)
	}
	if v, _ := d.Get(value.String("length")); v != value.Int(0x0102) {
		t.Errorf("length: got %v, want %d", v, 0x0102)
	}
}

func TestPackBinaryField(t *testing.T) {
	packFn := New().Members["pack"].(*value.Builtin)
	fields := &value.List{Elements: []value.Value{
		fieldDict("binary", 0, "payload", value.String("hi")),
	}}
	packed, err := packFn.Fn([]value.Value{fields}, nil)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	bytes := packed.(*value.List)
	if len(bytes.Elements) != 2 || bytes.Elements[0] != value.Int('h') || bytes.Elements[1] != value.Int('i') {
		t.Errorf("unexpected packed bytes: %v", bytes.Inspect())
	}
}

func TestPackRejectsUnknownType(t *testing.T) {
	packFn := New().Members["pack"].(*value.Builtin)
	fields := &value.List{Elements: []value.Value{
		fieldDict("varint", 8, "x", value.Int(1)),
	}}
	if _, err := packFn.Fn([]value.Value{fields}, nil); err == nil {
		t.Fatal("expected an unknown-field-type error")
	}
}
