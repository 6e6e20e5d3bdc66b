// Package term is the `term` host module: terminal capability detection
// (is_tty, color_level, strip_ansi) for scripts that import it; the print
// builtin does not consult it.
package term

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("term")
	ns.Members["is_tty"] = &value.Builtin{Name: "term.is_tty", Fn: isTTY}
	ns.Members["color_level"] = &value.Builtin{Name: "term.color_level", Fn: colorLevel}
	ns.Members["strip_ansi"] = &value.Builtin{Name: "term.strip_ansi", Fn: stripAnsi}
	return ns
}

func isTTY(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return value.Bool(tty), nil
}

// colorLevel mirrors the NO_COLOR convention (https://no-color.org/): 0 for
// no color, 256 for a 256-color TERM, otherwise 1 for basic ANSI support.
func colorLevel(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return value.Int(0), nil
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return value.Int(0), nil
	}
	t := os.Getenv("TERM")
	if t == "dumb" {
		return value.Int(0), nil
	}
	if strings.Contains(t, "256color") {
		return value.Int(256), nil
	}
	return value.Int(1), nil
}

func stripAnsi(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("term.strip_ansi expects a string")
	}
	s, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("term.strip_ansi expects a string")
	}
	var b strings.Builder
	runes := []rune(string(s))
	for i := 0; i < len(runes); i++ {
		if runes[i] == 0x1b && i+1 < len(runes) && runes[i+1] == '[' {
			i += 2
			for i < len(runes) && runes[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteRune(runes[i])
	}
	return value.String(b.String()), nil
}
