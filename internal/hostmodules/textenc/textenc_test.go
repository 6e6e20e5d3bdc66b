package textenc

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func TestTransliterateStripsDiacritics(t *testing.T) {
	fn := New().Members["transliterate"].(*value.Builtin)
	out, err := fn.Fn([]value.Value{value.String("café naïve Zürich")}, nil)
	if err != nil {
		t.Fatalf("transliterate: %v", err)
	}
	if out != value.String("cafe naive Zurich") {
		t.Errorf("got %q, want %q", out, "cafe naive Zurich")
	}
}

func TestNormalizeComposes(t *testing.T) {
	fn := New().Members["normalize"].(*value.Builtin)
	// "e" followed by a combining acute accent composes to a single rune.
	out, err := fn.Fn([]value.Value{value.String("é")}, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out != value.String("é") {
		t.Errorf("got %q, want %q", out, "é")
	}
}

func TestTransliterateRejectsNonString(t *testing.T) {
	fn := New().Members["transliterate"].(*value.Builtin)
	if _, err := fn.Fn([]value.Value{value.Int(1)}, nil); err == nil {
		t.Fatal("expected an error for a non-string argument")
	}
}
