// Package aml is the embedding API: the surface a host Go program uses to
// run scripts, exchange values with them, and drive their entrypoint
// convention.
package aml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aml-lang/aml/internal/bundle"
	"github.com/aml-lang/aml/internal/hostmodules/bitstring"
	"github.com/aml-lang/aml/internal/hostmodules/dbmod"
	"github.com/aml-lang/aml/internal/hostmodules/grpcmod"
	"github.com/aml-lang/aml/internal/hostmodules/jsonmod"
	"github.com/aml-lang/aml/internal/hostmodules/term"
	"github.com/aml-lang/aml/internal/hostmodules/textenc"
	"github.com/aml-lang/aml/internal/hostmodules/uuidmod"
	"github.com/aml-lang/aml/internal/hostmodules/yamlmod"
	"github.com/aml-lang/aml/internal/interp"
	"github.com/aml-lang/aml/internal/modules"
	"github.com/aml-lang/aml/internal/parser"
	"github.com/aml-lang/aml/internal/resolver"
	"github.com/aml-lang/aml/internal/value"
)

// Runtime is one embeddable interpreter instance: a global environment, its
// Evaluator, and the module loader backing import/import_aml/run_file.
type Runtime struct {
	eval              *interp.Evaluator
	env               *interp.Environment
	loader            *modules.Loader
	pythonSearchPaths []string
}

// New builds a Runtime with every built-in host module pre-registered and
// cooperative cancellation wired to ctx.
func New(ctx context.Context) *Runtime {
	if ctx == nil {
		ctx = context.Background()
	}
	e := interp.New(ctx, 0)
	l := modules.NewLoader()
	e.Loader = l

	r := &Runtime{eval: e, env: e.Globals, loader: l}
	r.registerDefaultHostModules()
	return r
}

func (r *Runtime) registerDefaultHostModules() {
	r.eval.RegisterHostModule("bitstring", bitstring.New())
	r.eval.RegisterHostModule("uuid", uuidmod.New())
	r.eval.RegisterHostModule("term", term.New())
	r.eval.RegisterHostModule("yaml", yamlmod.New())
	r.eval.RegisterHostModule("json", jsonmod.New())
	r.eval.RegisterHostModule("textenc", textenc.New())
	r.eval.RegisterHostModule("db", dbmod.New())
	r.eval.RegisterHostModule("grpc", grpcmod.New())
}

// Evaluator exposes the underlying evaluator for callers that need lower
// level access (e.g. cmd/amlrun wiring its own Out writer).
func (r *Runtime) Evaluator() *interp.Evaluator { return r.eval }

// RunSource lexes, parses, resolves, and executes text as a standalone
// program against the runtime's persistent global environment.
func (r *Runtime) RunSource(text string) (value.Value, error) {
	prog, err := parser.ParseProgram(text)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	res := resolver.New()
	if _, err := res.Resolve(prog); err != nil {
		return nil, fmt.Errorf("resolve error: %w", err)
	}
	return r.eval.Run(prog, r.env)
}

// RunFile loads path, either via the .aml parsed-AST cache or, for a .caml
// extension, via the compiled bundle loader, and executes it.
func (r *Runtime) RunFile(path string) (value.Value, error) {
	if strings.HasSuffix(path, bundle.Extension()) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read bundle: %w", err)
		}
		b, err := bundle.Deserialize(string(raw))
		if err != nil {
			return nil, fmt.Errorf("deserialize bundle: %w", err)
		}
		entry := b.Entry
		if !b.Has(entry) {
			return nil, fmt.Errorf("bundle has no entry module %q", entry)
		}
		r.loader.SetBundle(b)
		prog, err := b.Program(entry)
		if err != nil {
			return nil, err
		}
		res := resolver.New()
		locals, err := res.Resolve(prog)
		if err != nil {
			return nil, fmt.Errorf("resolve error: %w", err)
		}
		return r.eval.Run(prog, interp.NewEnclosedEnvironment(r.env, locals))
	}

	r.loader.AddSearchPath(filepath.Dir(path))
	prog, locals, err := r.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}
	return r.eval.Run(prog, interp.NewEnclosedEnvironment(r.env, locals))
}

// Cancel/ResetCancel are the cooperative cancellation pair: Cancel stops
// execution at the next statement or loop boundary, ResetCancel re-arms the
// runtime for another run.
func (r *Runtime) Cancel()      { r.eval.Cancel() }
func (r *Runtime) ResetCancel() { r.eval.ResetCancel() }

// Define binds name to v in the runtime's global scope, overwriting any
// existing binding (including a const one — host writes bypass the
// script-level const check since the host is privileged).
func (r *Runtime) Define(name string, v value.Value) {
	r.env.Set(name, v)
}

// Get reads name from globals, following a dotted path through Namespace
// members (`a.b.c`) the way script attribute access does.
func (r *Runtime) Get(name string) (value.Value, bool) {
	parts := strings.Split(name, ".")
	v, ok := r.env.Get(parts[0])
	if !ok {
		return nil, false
	}
	for _, seg := range parts[1:] {
		ns, ok := v.(*value.Namespace)
		if !ok {
			return nil, false
		}
		v, ok = ns.Members[seg]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// Assign writes v at a dotted path, walking namespace members for every
// segment but the last and setting the final segment there; a bare name
// (no dots) just sets the global.
func (r *Runtime) Assign(name string, v value.Value) error {
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		r.env.Set(name, v)
		return nil
	}
	cur, ok := r.env.Get(parts[0])
	if !ok {
		return fmt.Errorf("assign: undefined name %q", parts[0])
	}
	for _, seg := range parts[1 : len(parts)-1] {
		ns, ok := cur.(*value.Namespace)
		if !ok {
			return fmt.Errorf("assign: %q is not a namespace", seg)
		}
		cur, ok = ns.Members[seg]
		if !ok {
			return fmt.Errorf("assign: undefined member %q", seg)
		}
	}
	ns, ok := cur.(*value.Namespace)
	if !ok {
		return fmt.Errorf("assign: %q is not a namespace", parts[len(parts)-2])
	}
	ns.Members[parts[len(parts)-1]] = v
	return nil
}

// CallFunction resolves a (possibly dotted) callable from globals/namespaces
// and invokes it with args, supporting both script Functions and callable
// host Builtins.
func (r *Runtime) CallFunction(dotted string, args ...value.Value) (value.Value, error) {
	callee, ok := r.Get(dotted)
	if !ok {
		return nil, fmt.Errorf("call_function: undefined %q", dotted)
	}
	return r.eval.Call(callee, args, nil)
}

// AddAmlSearchPath extends the .aml module loader's search paths.
func (r *Runtime) AddAmlSearchPath(dir string) { r.loader.AddSearchPath(dir) }

// AddPythonSearchPath records an additional host-module root. Host modules
// in this implementation are statically compiled Go packages rather than
// dynamically loaded extensions, so this does not load code from dir — it
// exists to satisfy the embedding contract's symmetrical search-path pair
// for hosts that organize companion script libraries under it,
// which become reachable once added as an --aml search path too.
func (r *Runtime) AddPythonSearchPath(dir string) {
	r.pythonSearchPaths = append(r.pythonSearchPaths, dir)
}

// CreateNamespace registers and returns a new empty namespace under name.
func (r *Runtime) CreateNamespace(name string) *value.Namespace {
	ns := value.NewNamespace(name)
	r.eval.Namespaces[name] = ns
	r.env.Set(name, ns)
	return ns
}

// GetNamespace looks up a previously created or host-registered namespace.
func (r *Runtime) GetNamespace(name string) (*value.Namespace, bool) {
	ns, ok := r.eval.Namespaces[name]
	return ns, ok
}

// SetNamespaceVar sets a plain value member on an existing namespace.
func (r *Runtime) SetNamespaceVar(nsName, varName string, v value.Value) error {
	ns, ok := r.GetNamespace(nsName)
	if !ok {
		return fmt.Errorf("set_namespace_var: unknown namespace %q", nsName)
	}
	ns.Members[varName] = v
	return nil
}

// AddNamespaceFunction binds a host Go function as a callable member of an
// existing namespace.
func (r *Runtime) AddNamespaceFunction(nsName, fnName string, fn value.BuiltinFunc) error {
	ns, ok := r.GetNamespace(nsName)
	if !ok {
		return fmt.Errorf("add_namespace_function: unknown namespace %q", nsName)
	}
	ns.Members[fnName] = &value.Builtin{Name: nsName + "." + fnName, Fn: fn}
	return nil
}

// AddNamespaceFunctions is the plural convenience form of
// AddNamespaceFunction.
func (r *Runtime) AddNamespaceFunctions(nsName string, fns map[string]value.BuiltinFunc) error {
	for name, fn := range fns {
		if err := r.AddNamespaceFunction(nsName, name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Metadata returns the merged set of every `meta { ... }` entry seen so far.
func (r *Runtime) Metadata() map[string]value.Value { return r.eval.Metadata }

// SetMetadata sets a single metadata entry from the host side, the same way
// a `meta { ... }` block would from script.
func (r *Runtime) SetMetadata(key string, v value.Value) {
	r.eval.Metadata[key] = v
	if key == "entry" || key == "entrypoint" {
		if name, ok := v.(value.String); ok {
			r.eval.Entrypoint = string(name)
		}
	}
}

// SetEntrypoint sets the dotted function name invoked by InvokeEntrypoint
// (and automatically after RunSource/RunFile if never called
// explicitly during top-level execution).
func (r *Runtime) SetEntrypoint(dotted string) { r.eval.Entrypoint = dotted }

// InvokeEntrypoint calls the configured entrypoint with no arguments.
func (r *Runtime) InvokeEntrypoint() (value.Value, error) {
	if r.eval.Entrypoint == "" {
		return nil, fmt.Errorf("invoke_entrypoint: no entrypoint configured")
	}
	return r.CallFunction(r.eval.Entrypoint)
}

// ExposeBuiltinsFromModule imports a registered host module (as import_py
// would) and binds the requested members directly into globals, letting
// scripts call e.g. `v4()` instead of `uuid.v4()`.
func (r *Runtime) ExposeBuiltinsFromModule(module string, names []string) error {
	ns, ok := r.eval.HostModule(module)
	if !ok {
		ns, ok = r.eval.Namespaces[module]
	}
	if !ok {
		return fmt.Errorf("expose_builtins_from_module: unknown module %q", module)
	}
	for _, name := range names {
		member, ok := ns.Members[name]
		if !ok {
			return fmt.Errorf("expose_builtins_from_module: %q has no member %q", module, name)
		}
		r.env.Set(name, member)
	}
	return nil
}
