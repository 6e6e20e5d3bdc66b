// Package modules resolves import_aml names to source files, parses and
// resolves them, and caches the result so a module imported from several
// places is only lexed and parsed once.
package modules

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/bundle"
	"github.com/aml-lang/aml/internal/parser"
	"github.com/aml-lang/aml/internal/resolver"
)

const sourceExt = ".aml"

func init() {
	for _, v := range []interface{}{
		&ast.VarDeclaration{}, &ast.ConstDeclaration{}, &ast.FunctionDeclaration{},
		&ast.NamespaceDeclaration{}, &ast.MetadataDeclaration{}, &ast.ImportPy{},
		&ast.ImportAml{}, &ast.BlockStatement{}, &ast.Assignment{}, &ast.IfStatement{},
		&ast.WhileStatement{}, &ast.ForStatement{}, &ast.ReturnStatement{},
		&ast.RaiseStatement{}, &ast.BreakStatement{}, &ast.ContinueStatement{},
		&ast.TryCatchStatement{}, &ast.ParallelBlock{}, &ast.ExpressionStatement{},
		&ast.NumberLiteral{}, &ast.StringLiteral{}, &ast.BooleanLiteral{}, &ast.NullLiteral{},
		&ast.Identifier{}, &ast.ListLiteral{}, &ast.DictLiteral{}, &ast.ListComprehension{},
		&ast.DictComprehension{}, &ast.IndexAccess{}, &ast.AttributeAccess{},
		&ast.BinaryOperation{}, &ast.UnaryOperation{}, &ast.RangeExpression{},
		&ast.Pointer{}, &ast.FunctionCall{}, &ast.MethodCall{}, &ast.SpawnCall{},
		&ast.PythonClassInstance{},
	} {
		gob.Register(v)
	}
}

// maxCacheEntries bounds the in-memory cache; once exceeded the whole cache
// is cleared rather than evicting individual entries (modules are small and
// cheap to re-parse, and a clear-all policy avoids LRU bookkeeping for a
// cache that in practice almost never grows past a handful of entries).
const maxCacheEntries = 256

// cached holds a parsed-and-resolved program plus the file stamp it was
// built from.
type cached struct {
	prog    *ast.Program
	locals  int
	modTime int64
	size    int64
}

// Loader implements interp.ModuleLoader, resolving a dotted or bare module
// name against a list of search paths.
type Loader struct {
	mu          sync.Mutex
	searchPaths []string
	memCache    map[string]*cached // keyed by resolved absolute path
	diskCache   string             // directory for the on-disk AST cache, "" disables it
	bundle      *bundle.Bundle     // non-nil once SetBundle is called; takes priority over disk
}

// defaultCacheDir is where parsed-AST cache files live relative to the
// process's working directory, per the embedding API's disk-cache contract.
const defaultCacheDir = ".aml_cache"

// NewLoader creates a Loader with no search paths configured; callers add
// paths via AddSearchPath before the first Load. The on-disk cache defaults
// to enabled under ./.aml_cache; pass "" to SetDiskCacheDir to disable it.
func NewLoader() *Loader {
	return &Loader{memCache: make(map[string]*cached), diskCache: defaultCacheDir}
}

// AddSearchPath appends dir to the list of directories searched for modules,
// mirroring the embedding API's add_search_path.
func (l *Loader) AddSearchPath(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.searchPaths = append(l.searchPaths, dir)
}

// SetDiskCacheDir enables an on-disk gob cache of parsed programs under dir.
// Passing "" disables it.
func (l *Loader) SetDiskCacheDir(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.diskCache = dir
}

// SetBundle switches the loader into bundled mode: module
// lookups try the bundle's AST-dict map first, using a fixed mtime of 0 and
// never touching disk for a hit.
func (l *Loader) SetBundle(b *bundle.Bundle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bundle = b
}

// EntryPath returns the bundle's recorded entry path; used by load_caml to
// know what to run once a bundle has been loaded.
func (l *Loader) EntryPath() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bundle == nil {
		return "", false
	}
	return l.bundle.Entry, true
}

func (l *Loader) resolvePath(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if filepath.Ext(rel) == "" {
		rel += sourceExt
	}
	if filepath.IsAbs(rel) {
		if _, err := os.Stat(rel); err == nil {
			return rel, nil
		}
		return "", fmt.Errorf("module %q not found", name)
	}
	for _, dir := range l.searchPaths {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	if info, err := os.Stat(rel); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(rel)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	return "", fmt.Errorf("module %q not found in any search path", name)
}

// bundleKeyFor reproduces the same name-to-path rule resolvePath uses for
// disk lookups, without requiring the file to actually exist, so a bundled
// module (shipped with no corresponding .aml on disk) can still be matched
// against the bundle's map keys, which are searched ahead of the configured
// search paths.
func (l *Loader) bundleKeyFor(name string) (string, bool) {
	b := l.bundle
	if b == nil {
		return "", false
	}
	rel := filepath.FromSlash(name)
	if filepath.Ext(rel) == "" {
		rel += sourceExt
	}
	if b.Has(name) {
		return name, true
	}
	if filepath.IsAbs(rel) {
		if b.Has(rel) {
			return rel, true
		}
		return "", false
	}
	for _, dir := range l.searchPaths {
		candidate := filepath.Join(dir, rel)
		if b.Has(candidate) {
			return candidate, true
		}
	}
	if abs, err := filepath.Abs(rel); err == nil && b.Has(abs) {
		return abs, true
	}
	return "", false
}

// Load resolves name to a source file, parses and resolves it (using the
// in-memory cache keyed by path+mtime, falling back to the on-disk gob cache,
// and finally to lexing/parsing from scratch), and returns the program along
// with its top-level slot count.
func (l *Loader) Load(name string) (*ast.Program, int, error) {
	path, err := l.resolvePath(name)
	if err != nil {
		if l.bundle != nil {
			if bp, ok := l.bundleKeyFor(name); ok {
				path = bp
			} else {
				return nil, 0, err
			}
		} else {
			return nil, 0, err
		}
	}

	l.mu.Lock()
	b := l.bundle
	l.mu.Unlock()
	if b != nil && b.Has(path) {
		if c, ok := l.memCache[path]; ok && c.modTime == 0 {
			return c.prog, c.locals, nil
		}
		prog, err := b.Program(path)
		if err != nil {
			return nil, 0, err
		}
		locals, rerr := resolver.New().Resolve(prog)
		if rerr != nil {
			return nil, 0, fmt.Errorf("%s: %w", path, rerr)
		}
		c := &cached{prog: prog, locals: locals, modTime: 0, size: 0}
		l.storeMemCache(path, c)
		return prog, locals, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}

	l.mu.Lock()
	if len(l.memCache) > maxCacheEntries {
		l.memCache = make(map[string]*cached)
	}
	if c, ok := l.memCache[path]; ok && c.modTime == info.ModTime().UnixNano() && c.size == info.Size() {
		l.mu.Unlock()
		return c.prog, c.locals, nil
	}
	l.mu.Unlock()

	if l.diskCache != "" {
		if c := l.readDiskCache(path, info); c != nil {
			l.storeMemCache(path, c)
			return c.prog, c.locals, nil
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	prog, err := parser.ParseProgram(string(src))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	locals, rerr := resolver.New().Resolve(prog)
	if rerr != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, rerr)
	}

	c := &cached{prog: prog, locals: locals, modTime: info.ModTime().UnixNano(), size: info.Size()}
	l.storeMemCache(path, c)
	if l.diskCache != "" {
		l.writeDiskCache(path, c)
	}
	return prog, locals, nil
}

func (l *Loader) storeMemCache(path string, c *cached) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.memCache[path] = c
}

// diskRecord is the gob-serializable form of a cached module, keyed on disk
// by a hash of the absolute path so cache files don't collide across
// directories.
type diskRecord struct {
	ModTime int64
	Size    int64
	Prog    *ast.Program
	Locals  int
}

func (l *Loader) diskCachePath(path string) string {
	return filepath.Join(l.diskCache, cacheFileName(path)+".ast")
}

func (l *Loader) readDiskCache(path string, info os.FileInfo) *cached {
	f, err := os.Open(l.diskCachePath(path))
	if err != nil {
		return nil
	}
	defer f.Close()
	var rec diskRecord
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil
	}
	if rec.ModTime != info.ModTime().UnixNano() || rec.Size != info.Size() {
		return nil
	}
	return &cached{prog: rec.Prog, locals: rec.Locals, modTime: rec.ModTime, size: rec.Size}
}

func (l *Loader) writeDiskCache(path string, c *cached) {
	if err := os.MkdirAll(l.diskCache, 0o755); err != nil {
		return
	}
	f, err := os.Create(l.diskCachePath(path))
	if err != nil {
		return
	}
	defer f.Close()
	rec := diskRecord{ModTime: c.modTime, Size: c.size, Prog: c.prog, Locals: c.locals}
	_ = gob.NewEncoder(f).Encode(&rec)
}

func cacheFileName(path string) string {
	h := fnv32a(path)
	return fmt.Sprintf("%08x", h)
}

func fnv32a(s string) uint32 {
	const prime32 = 16777619
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime32
	}
	return hash
}
