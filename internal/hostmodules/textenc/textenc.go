// Package textenc is the `textenc` host module: textenc.transliterate(s)
// folds a string to its closest ASCII-ish form by Unicode-normalizing to
// NFD and dropping combining marks, and textenc.normalize(s) applies plain
// NFC normalization.
package textenc

import (
	"fmt"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("textenc")
	ns.Members["transliterate"] = &value.Builtin{Name: "textenc.transliterate", Fn: transliterate}
	ns.Members["normalize"] = &value.Builtin{Name: "textenc.normalize", Fn: normalize}
	return ns
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func transliterate(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	s, err := oneStringArg("textenc.transliterate", args)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return nil, err
	}
	return value.String(out), nil
}

func normalize(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	s, err := oneStringArg("textenc.normalize", args)
	if err != nil {
		return nil, err
	}
	return value.String(norm.NFC.String(s)), nil
}

func oneStringArg(name string, args []value.Value) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s expects a single string argument", name)
	}
	s, ok := args[0].(value.String)
	if !ok {
		return "", fmt.Errorf("%s expects a single string argument", name)
	}
	return string(s), nil
}
