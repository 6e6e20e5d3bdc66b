package diagnostics

import (
	"strings"
	"testing"
)

func TestFormatShowsSurroundingLines(t *testing.T) {
	src := "var a = 1\nvar b = oops\nvar c = 3\n"
	out := Format("script.aml", src, "undefined name \"oops\"", 2, 9)

	if !strings.HasPrefix(out, "script.aml:2:9: undefined name \"oops\"\n") {
		t.Errorf("missing header: %q", out)
	}
	for _, want := range []string{"1 | var a = 1", "2 | var b = oops", "3 | var c = 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing excerpt line %q in %q", want, out)
		}
	}
	if !strings.Contains(out, "        ^") {
		t.Errorf("missing caret under column 9: %q", out)
	}
}

func TestFormatFirstAndLastLineClamp(t *testing.T) {
	src := "only line\n"
	out := Format("s.aml", src, "boom", 1, 1)
	if !strings.Contains(out, "1 | only line") {
		t.Errorf("missing source line: %q", out)
	}
}

func TestFormatSkipsExcerptForUnknownPosition(t *testing.T) {
	out := Format("s.aml", "x\n", "host-side failure", 0, 0)
	if out != "s.aml:0:0: host-side failure\n" {
		t.Errorf("got %q", out)
	}
}
