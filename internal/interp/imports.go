package interp

import (
	"fmt"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/value"
)

// ModuleLoader is the interface internal/modules.Loader satisfies; kept
// narrow here to avoid interp depending on modules' on-disk cache details.
type ModuleLoader interface {
	Load(name string) (*ast.Program, int, error) // returns the program and its top-level slot count
}

// RegisterHostModule exposes a Go-backed namespace to `import_py`, the home
// for every domain-stack host module (bitstring, uuid, term, yaml, json,
// textenc, db, grpc).
func (e *Evaluator) RegisterHostModule(name string, ns *value.Namespace) {
	if e.hostModules == nil {
		e.hostModules = make(map[string]*value.Namespace)
	}
	if _, exists := e.hostModules[name]; !exists {
		e.hostModuleOrder = append(e.hostModuleOrder, name)
	}
	e.hostModules[name] = ns
}

// HostModule looks up a registered host module by name, for embedders that
// need to inspect or re-expose it (pkg/aml's expose_builtins_from_module).
func (e *Evaluator) HostModule(name string) (*value.Namespace, bool) {
	ns, ok := e.hostModules[name]
	return ns, ok
}

func (e *Evaluator) evalImportPy(s *ast.ImportPy, env *Environment) error {
	for _, spec := range s.Specs {
		ns, ok := e.hostModules[spec.Name]
		if !ok {
			tok := s.GetToken()
			return NewRuntimeError(tok.Line, tok.Column, "unknown host module %q", spec.Name)
		}
		name := spec.Alias
		if name == "" {
			name = spec.Name
		}
		env.Set(name, ns)
	}
	return nil
}

// importModule backs the `import(name)` function call form, distinct from
// the `import_aml` statement: it returns the module's explicit top-level
// return value if it has one, else a Namespace named name populated from
// the module's environment.
func (e *Evaluator) importModule(name string) (value.Value, error) {
	if e.Loader == nil {
		return nil, fmt.Errorf("no module loader configured for import")
	}
	prog, locals, err := e.Loader.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to import %q: %v", name, err)
	}
	modEnv := NewEnclosedEnvironment(e.Globals, locals)
	ret, hadReturn, err := e.runModule(prog, modEnv)
	if err != nil {
		return nil, err
	}
	if hadReturn {
		return ret, nil
	}
	ns := value.NewNamespace(name)
	for k, v := range modEnv.Snapshot() {
		ns.Members[k] = v
	}
	return ns, nil
}

// runModule executes prog like Run, but also reports whether a top-level
// ReturnStatement actually fired (as opposed to the script simply falling
// off the end, both of which Run reports as the same Null/last value).
func (e *Evaluator) runModule(prog *ast.Program, env *Environment) (value.Value, bool, error) {
	for _, stmt := range prog.Statements {
		if err := e.checkCancel(stmt); err != nil {
			return nil, false, err
		}
		if es, ok := stmt.(*ast.ExpressionStatement); ok {
			if _, err := e.EvalExpr(es.Expression, env); err != nil {
				return nil, false, err
			}
			continue
		}
		if err := e.Eval(stmt, env); err != nil {
			if ret, isReturn := err.(returnSignal); isReturn {
				return ret.value, true, nil
			}
			return nil, false, err
		}
	}
	return value.NULL, false, nil
}

func (e *Evaluator) evalImportAml(s *ast.ImportAml, env *Environment) error {
	if e.Loader == nil {
		tok := s.GetToken()
		return NewRuntimeError(tok.Line, tok.Column, "no module loader configured for import_aml")
	}
	for _, name := range s.Names {
		prog, locals, err := e.Loader.Load(name)
		if err != nil {
			tok := s.GetToken()
			return NewRuntimeError(tok.Line, tok.Column, "failed to import %q: %v", name, err)
		}
		modEnv := NewEnclosedEnvironment(e.Globals, locals)
		if _, err := e.Run(prog, modEnv); err != nil {
			return err
		}
		// Merges directly into the importing scope — import_aml has no
		// namespace wrapper; use the import(name) builtin for a
		// Namespace view of a module instead.
		for k, v := range modEnv.Snapshot() {
			env.Set(k, v)
		}
	}
	return nil
}
