package lexer

import (
	"testing"

	"github.com/aml-lang/aml/internal/token"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %v", src, err)
	}
	var ks []token.Kind
	for _, tok := range toks {
		ks = append(ks, tok.Kind)
	}
	return ks
}

func TestOperators(t *testing.T) {
	cases := []struct {
		src  string
		want []token.Kind
	}{
		{"1 + 2", []token.Kind{token.NUMBER, token.PLUS, token.NUMBER, token.EOF}},
		{"a //= b", []token.Kind{token.IDENTIFIER, token.FLOOR_DIVIDE_ASSIGN, token.IDENTIFIER, token.EOF}},
		{"a // b", []token.Kind{token.IDENTIFIER, token.FLOOR_DIVIDE, token.IDENTIFIER, token.EOF}},
		{"1..5", []token.Kind{token.NUMBER, token.DOT_DOT, token.NUMBER, token.EOF}},
		{"1.5", []token.Kind{token.NUMBER, token.EOF}},
		{"x && y || !z", []token.Kind{token.IDENTIFIER, token.AND, token.IDENTIFIER, token.OR, token.BANG, token.IDENTIFIER, token.EOF}},
		{"@f()", []token.Kind{token.AT, token.IDENTIFIER, token.LPAREN, token.RPAREN, token.EOF}},
	}
	for _, c := range cases {
		got := kinds(t, c.src)
		if len(got) != len(c.want) {
			t.Fatalf("%q: got %v want %v", c.src, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("%q: token %d got %s want %s", c.src, i, got[i], c.want[i])
			}
		}
	}
}

func TestLineCommentStopsAtNewline(t *testing.T) {
	toks, err := Tokenize("1 // comment\n2")
	if err != nil {
		t.Fatal(err)
	}
	var ks []token.Kind
	for _, tok := range toks {
		ks = append(ks, tok.Kind)
	}
	want := []token.Kind{token.NUMBER, token.NEWLINE, token.NUMBER, token.EOF}
	if len(ks) != len(want) {
		t.Fatalf("got %v want %v", ks, want)
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\tc\\d\'e\"f"`)
	if err != nil {
		t.Fatal(err)
	}
	got := toks[0].Literal.(string)
	want := "a\nb\tc\\d'e\"f"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestStringEscapePreservesPathLiterals(t *testing.T) {
	toks, err := Tokenize(`"C:\Users\data"`)
	if err != nil {
		t.Fatal(err)
	}
	got := toks[0].Literal.(string)
	want := `C:\Users\data`
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestUnterminatedStringFails(t *testing.T) {
	_, err := Tokenize(`"abc`)
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
}

func TestTokenPositionsAreOneIndexed(t *testing.T) {
	toks, err := Tokenize("abc\ndef")
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range toks {
		if tok.Line < 1 || tok.Column < 1 {
			t.Errorf("token %v has non-positive line/column", tok)
		}
	}
}

func TestKeywords(t *testing.T) {
	got := kinds(t, "func if else while for in return raise try catch namespace spawn parallel meta as break continue import_py import_aml true false null var const")
	want := []token.Kind{
		token.FUNC, token.IF, token.ELSE, token.WHILE, token.FOR, token.IN, token.RETURN,
		token.RAISE, token.TRY, token.CATCH, token.NAMESPACE, token.SPAWN, token.PARALLEL,
		token.META, token.AS, token.BREAK, token.CONTINUE, token.IMPORT_PY, token.IMPORT_AML,
		token.TRUE, token.FALSE, token.NULL, token.VAR, token.CONST, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}
