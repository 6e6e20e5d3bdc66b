package bundle

import (
	"testing"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/parser"
)

// TestBuildSerializeDeserializeRoundTrip: an entry module's AST survives base64-wrapped JSON encoding and
// decoding unchanged in shape, with the produced text readable back into a
// Bundle whose Program(path) reconstructs a runnable *ast.Program.
func TestBuildSerializeDeserializeRoundTrip(t *testing.T) {
	prog, err := parser.ParseProgram(`
func fib(n) { if (n < 2) { return n } return fib(n-1) + fib(n-2) }
print(fib(10))
`)
	if err != nil {
		t.Fatalf("ParseProgram error: %v", err)
	}

	const entry = "/scripts/fib.aml"
	b := Build(entry, map[string]*ast.Program{entry: prog}, false)
	if b.Version != FormatVersion {
		t.Fatalf("version: got %q want %q", b.Version, FormatVersion)
	}

	text, err := Serialize(b)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	back, err := Deserialize(text)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}
	if back.Entry != entry {
		t.Errorf("entry: got %q want %q", back.Entry, entry)
	}
	if !back.Has(entry) {
		t.Fatalf("deserialized bundle missing entry module %q", entry)
	}

	decoded, err := back.Program(entry)
	if err != nil {
		t.Fatalf("Program error: %v", err)
	}
	if len(decoded.Statements) != len(prog.Statements) {
		t.Fatalf("statement count: got %d want %d", len(decoded.Statements), len(prog.Statements))
	}
	fn, ok := decoded.Statements[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("statements[0]: got %T, want *ast.FunctionDeclaration", decoded.Statements[0])
	}
	if fn.Name != "fib" {
		t.Errorf("function name: got %q want %q", fn.Name, "fib")
	}
	if len(fn.Params) != 1 || fn.Params[0].Name != "n" {
		t.Errorf("unexpected params: %+v", fn.Params)
	}
}

// TestDeserializeRejectsBadBase64 exercises the disk-cache-adjacent contract
// that a bundle file must be valid base64-wrapped JSON.
func TestDeserializeRejectsBadBase64(t *testing.T) {
	if _, err := Deserialize("not valid base64!!"); err == nil {
		t.Fatal("expected an error decoding invalid base64")
	}
}

// TestDeserializeRejectsUnsupportedVersion checks the "version" field gate.
func TestDeserializeRejectsUnsupportedVersion(t *testing.T) {
	b := &Bundle{Version: "9.9", Entry: "x", Modules: map[string]interface{}{}}
	text, err := Serialize(b)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if _, err := Deserialize(text); err == nil {
		t.Fatal("expected an unsupported-version error")
	}
}

// TestObfuscatePreservesEntrypointReachability: declared names are remapped, but the bundle is still
// a decodable, runnable AST afterward.
func TestObfuscatePreservesEntrypointReachability(t *testing.T) {
	prog, err := parser.ParseProgram(`
func add(a, b) { return a + b }
print(add(1, 2))
`)
	if err != nil {
		t.Fatalf("ParseProgram error: %v", err)
	}
	const entry = "/scripts/add.aml"
	b := Build(entry, map[string]*ast.Program{entry: prog}, true)
	if !b.Obfuscated {
		t.Fatal("expected Obfuscated to be true")
	}
	decoded, err := b.Program(entry)
	if err != nil {
		t.Fatalf("Program error after obfuscation: %v", err)
	}
	if len(decoded.Statements) != 2 {
		t.Fatalf("statement count: got %d want 2", len(decoded.Statements))
	}
}
