package term

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func TestStripAnsi(t *testing.T) {
	fn := New().Members["strip_ansi"].(*value.Builtin)
	out, err := fn.Fn([]value.Value{value.String("\x1b[31mred\x1b[0m plain")}, nil)
	if err != nil {
		t.Fatalf("strip_ansi: %v", err)
	}
	if out != value.String("red plain") {
		t.Errorf("got %q, want %q", out, "red plain")
	}
}

func TestColorLevelHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	fn := New().Members["color_level"].(*value.Builtin)
	out, err := fn.Fn(nil, nil)
	if err != nil {
		t.Fatalf("color_level: %v", err)
	}
	if out != value.Int(0) {
		t.Errorf("NO_COLOR set: got %v, want 0", out)
	}
}

func TestIsTTYReturnsBool(t *testing.T) {
	fn := New().Members["is_tty"].(*value.Builtin)
	out, err := fn.Fn(nil, nil)
	if err != nil {
		t.Fatalf("is_tty: %v", err)
	}
	if _, ok := out.(value.Bool); !ok {
		t.Errorf("got %T, want value.Bool", out)
	}
}
