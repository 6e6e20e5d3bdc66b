package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aml-lang/aml/internal/ast"
)

// FormatVersion is the "version" field written into every produced bundle.
const FormatVersion = "1.0"

// fileExt is the on-disk extension for a compiled bundle.
const fileExt = ".caml"

// Extension returns the compiled-bundle file extension.
func Extension() string { return fileExt }

// Bundle is the decoded form of a .caml file: an entry module path plus the
// AST dict for every module transitively reachable from it.
type Bundle struct {
	Version    string                 `json:"version"`
	Entry      string                 `json:"entry"`
	Modules    map[string]interface{} `json:"modules"`
	Obfuscated bool                   `json:"obfuscated"`
}

// Build assembles a Bundle from an entry path and the set of programs
// reachable from it (including the entry itself), keyed by absolute path.
// If obfuscate is true, declared names across every module are remapped to
// short stable identifiers before encoding.
func Build(entry string, modules map[string]*ast.Program, obfuscate bool) *Bundle {
	if obfuscate {
		ObfuscateAll(modules)
	}
	b := &Bundle{Version: FormatVersion, Entry: entry, Modules: make(map[string]interface{}, len(modules)), Obfuscated: obfuscate}
	for path, prog := range modules {
		b.Modules[path] = EncodeProgram(prog)
	}
	return b
}

// Serialize renders b as base64-wrapped UTF-8 JSON, the on-disk .caml text
// format.
func Serialize(b *Bundle) (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("bundle: marshal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Deserialize parses a base64-wrapped JSON bundle back into a Bundle whose
// Modules map still holds the generic AST-dict form; call Program to decode
// an individual module into a *ast.Program.
func Deserialize(text string) (*Bundle, error) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("bundle: not valid base64: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("bundle: not valid JSON: %w", err)
	}
	if b.Version != FormatVersion {
		return nil, fmt.Errorf("bundle: unsupported version %q", b.Version)
	}
	return &b, nil
}

// Program decodes the module stored at path (an absolute path, one of the
// bundle's map keys) into a usable AST.
func (b *Bundle) Program(path string) (*ast.Program, error) {
	raw, ok := b.Modules[path]
	if !ok {
		return nil, fmt.Errorf("bundle: no module at %q", path)
	}
	return DecodeProgram(raw)
}

// Has reports whether path is one of the bundle's modules; the loader checks
// this ahead of its disk search paths when resolving an import.
func (b *Bundle) Has(path string) bool {
	_, ok := b.Modules[path]
	return ok
}
