package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/aml-lang/aml/internal/ast"
	"github.com/aml-lang/aml/internal/task"
	"github.com/aml-lang/aml/internal/token"
	"github.com/aml-lang/aml/internal/value"
)

// maxCallDepth guards against runaway recursion in the Eval loop.
const maxCallDepth = 2000

// Evaluator walks a resolved AST, holding everything shared across a single
// script run: the cancellation context, the global scope, namespaces,
// registered builtins, and the reactive-effect stack.
type Evaluator struct {
	Context    context.Context
	Out        io.Writer
	Globals    *Environment
	Namespaces map[string]*value.Namespace
	Builtins   map[string]*value.Builtin
	Loader     ModuleLoader

	// Metadata holds every value merged in by a MetadataDeclaration
	// (`meta { ... }`), exposed to scripts under the global name `meta`.
	Metadata map[string]value.Value
	// Entrypoint is the dotted function name an `entry`/`entrypoint` meta
	// key promoted, or "" if none was set.
	Entrypoint string

	// YieldInterval controls the micro-yield cadence: after every
	// YieldInterval statements executed (and, separately, expressions
	// evaluated) the evaluator yields the processor to relieve CPU pressure
	// in tight loops. Must be a power of two; 0 disables yielding.
	YieldInterval uint64

	hostModules       map[string]*value.Namespace
	hostModuleOrder   []string
	callDepth         int
	cancelled         *atomic.Bool
	symbolCache       *sync.Map
	effectStack       []*value.Effect
	entrypointInvoked bool
	stmtCount         uint64
	exprCount         uint64
}

// New creates an Evaluator with a fresh global scope and the standard
// builtin set registered.
func New(ctx context.Context, localsCount int) *Evaluator {
	if ctx == nil {
		ctx = context.Background()
	}
	e := &Evaluator{
		Context:       ctx,
		Out:           os.Stdout,
		Globals:       NewEnvironment(localsCount),
		Namespaces:    make(map[string]*value.Namespace),
		Builtins:      make(map[string]*value.Builtin),
		Metadata:      make(map[string]value.Value),
		YieldInterval: 1024,
		cancelled:     &atomic.Bool{},
		symbolCache:   &sync.Map{},
	}
	registerBuiltins(e)
	return e
}

// Fork returns a shallow copy of e for a spawned goroutine: globals,
// namespaces, builtins, metadata, loader, and the cancel flag are shared,
// but the copy owns its call depth, effect stack, and yield counters so
// concurrent tasks never race on evaluator-local state.
func (e *Evaluator) Fork() *Evaluator {
	clone := *e
	clone.callDepth = 0
	clone.effectStack = nil
	clone.stmtCount = 0
	clone.exprCount = 0
	return &clone
}

// microYieldStmt relinquishes the processor every YieldInterval statements.
func (e *Evaluator) microYieldStmt() {
	if e.YieldInterval == 0 {
		return
	}
	e.stmtCount++
	if e.stmtCount&(e.YieldInterval-1) == 0 {
		runtime.Gosched()
	}
}

func (e *Evaluator) microYieldExpr() {
	if e.YieldInterval == 0 {
		return
	}
	e.exprCount++
	if e.exprCount&(e.YieldInterval-1) == 0 {
		runtime.Gosched()
	}
}

// Cancel requests cooperative cancellation; checked at every statement and
// loop-iteration boundary.
func (e *Evaluator) Cancel()      { e.cancelled.Store(true) }
func (e *Evaluator) ResetCancel() { e.cancelled.Store(false) }
func (e *Evaluator) IsCancelled() bool {
	if e.cancelled.Load() {
		return true
	}
	select {
	case <-e.Context.Done():
		return true
	default:
		return false
	}
}

func (e *Evaluator) checkCancel(tok ast.Node) error {
	if e.IsCancelled() {
		t := tok.GetToken()
		return &CancelledError{Line: t.Line, Column: t.Column}
	}
	return nil
}

// Run evaluates every top-level statement of prog against env in order,
// returning the last expression-statement's value (used by the embedding
// API's run_source for a REPL-like "value of the last expression" result).
func (e *Evaluator) Run(prog *ast.Program, env *Environment) (value.Value, error) {
	var last value.Value = value.NULL
	for _, stmt := range prog.Statements {
		if err := e.checkCancel(stmt); err != nil {
			return nil, err
		}
		if es, ok := stmt.(*ast.ExpressionStatement); ok {
			v, err := e.EvalExpr(es.Expression, env)
			if err != nil {
				return nil, err
			}
			last = v
			continue
		}
		if err := e.Eval(stmt, env); err != nil {
			if ret, isReturn := err.(returnSignal); isReturn {
				// A top-level return ends the module/script and its value
				// becomes the module's explicit return value.
				return ret.value, nil
			}
			return nil, err
		}
	}
	if e.Entrypoint != "" && !e.entrypointInvoked {
		if callee, ok := e.resolveCallee(e.Entrypoint, env); ok {
			tok := token.Token{}
			v, err := e.call(callee, nil, nil, tok)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	return last, nil
}

// Eval executes a single statement against env.
func (e *Evaluator) Eval(stmt ast.Statement, env *Environment) error {
	if err := e.checkCancel(stmt); err != nil {
		return err
	}
	e.microYieldStmt()
	switch s := stmt.(type) {
	case *ast.VarDeclaration:
		v, err := e.EvalExpr(s.Value, env)
		if err != nil {
			return err
		}
		env.Define(s.Name, s.ResolvedIndex, v)
		return nil
	case *ast.ConstDeclaration:
		v, err := e.EvalExpr(s.Value, env)
		if err != nil {
			return err
		}
		env.Define(s.Name, s.ResolvedIndex, v)
		env.MarkConstSlot(s.ResolvedIndex)
		env.MarkConstName(s.Name)
		return nil
	case *ast.FunctionDeclaration:
		fn := &value.Function{
			Name: s.Name, Params: s.Params, Body: s.Body,
			Closure: env, NsPath: s.NsPath, LocalsCount: s.LocalsCount,
		}
		if len(s.NsPath) > 0 {
			ns := e.defineInNamespace(s.NsPath, s.Name, fn)
			fn.Self = ns
		} else {
			env.Set(s.Name, fn)
		}
		return nil
	case *ast.NamespaceDeclaration:
		ns, ok := e.Namespaces[s.Name]
		if !ok {
			ns = value.NewNamespace(s.Name)
			e.Namespaces[s.Name] = ns
		}
		nsEnv := NewEnclosedEnvironment(env, 0)
		for _, inner := range s.Body.Statements {
			if err := e.Eval(inner, nsEnv); err != nil {
				return err
			}
		}
		for name, v := range nsEnv.Snapshot() {
			ns.Members[name] = v
			if nsEnv.IsConstName(name) {
				ns.Constants[name] = true
			}
			if fn, ok := v.(*value.Function); ok {
				fn.Self = ns
			}
		}
		env.Set(s.Name, ns)
		return nil
	case *ast.MetadataDeclaration:
		return e.evalMetadata(s, env)
	case *ast.ImportPy:
		return e.evalImportPy(s, env)
	case *ast.ImportAml:
		return e.evalImportAml(s, env)
	case *ast.BlockStatement:
		blockEnv := NewEnclosedEnvironment(env, 0)
		for _, inner := range s.Statements {
			if err := e.Eval(inner, blockEnv); err != nil {
				return err
			}
		}
		return nil
	case *ast.Assignment:
		v, err := e.EvalExpr(s.Value, env)
		if err != nil {
			return err
		}
		return e.evalAssignment(s, v, env)
	case *ast.IfStatement:
		cond, err := e.EvalExpr(s.Condition, env)
		if err != nil {
			return err
		}
		if truthy(cond) {
			return e.Eval(s.Consequence, env)
		}
		if s.Alternative != nil {
			return e.Eval(s.Alternative, env)
		}
		return nil
	case *ast.WhileStatement:
		for {
			if err := e.checkCancel(s); err != nil {
				return err
			}
			cond, err := e.EvalExpr(s.Condition, env)
			if err != nil {
				return err
			}
			if !truthy(cond) {
				return nil
			}
			if err := e.Eval(s.Body, env); err != nil {
				if _, ok := err.(breakSignal); ok {
					return nil
				}
				if _, ok := err.(continueSignal); ok {
					continue
				}
				return err
			}
		}
	case *ast.ForStatement:
		return e.evalFor(s, env)
	case *ast.ReturnStatement:
		var v value.Value = value.NULL
		if s.Value != nil {
			rv, err := e.EvalExpr(s.Value, env)
			if err != nil {
				return err
			}
			v = rv
		}
		return returnSignal{value: v}
	case *ast.RaiseStatement:
		v, err := e.EvalExpr(s.Value, env)
		if err != nil {
			return err
		}
		t := s.GetToken()
		return &RuntimeError{Payload: v, Line: t.Line, Column: t.Column}
	case *ast.BreakStatement:
		return breakSignal{}
	case *ast.ContinueStatement:
		return continueSignal{}
	case *ast.TryCatchStatement:
		return e.evalTryCatch(s, env)
	case *ast.ParallelBlock:
		return e.evalParallel(s, env)
	case *ast.ExpressionStatement:
		_, err := e.EvalExpr(s.Expression, env)
		return err
	}
	t := stmt.GetToken()
	return NewRuntimeError(t.Line, t.Column, "unhandled statement %T", stmt)
}

// evalMetadata evaluates a `meta { ... }` block's entries, merges them into
// e.Metadata, re-exposes the whole set as the global `meta` dict, and
// promotes an `entry`/`entrypoint` string entry to e.Entrypoint.
func (e *Evaluator) evalMetadata(s *ast.MetadataDeclaration, env *Environment) error {
	for _, entry := range s.Entries {
		v, err := e.EvalExpr(entry.Value, env)
		if err != nil {
			return err
		}
		e.Metadata[entry.Key] = v
		if entry.Key == "entry" || entry.Key == "entrypoint" {
			if name, ok := v.(value.String); ok {
				e.Entrypoint = string(name)
			}
		}
	}
	metaDict := value.NewDict()
	for k, v := range e.Metadata {
		metaDict.Set(value.String(k), v)
	}
	env.Set("meta", metaDict)
	return nil
}

func (e *Evaluator) evalAssignment(s *ast.Assignment, v value.Value, env *Environment) error {
	if s.TargetExpr != nil {
		return e.assignTarget(s.TargetExpr, v, env)
	}
	if s.ResolvedIndex >= 0 {
		if env.IsConstSlot(s.ResolvedDepth, s.ResolvedIndex) {
			tok := s.GetToken()
			return NewRuntimeError(tok.Line, tok.Column, "cannot reassign const %q", s.Name)
		}
		// Assigning through a name currently holding a Signal calls Signal.set
		// instead of rebinding it: `x = v` where x is a
		// reactive cell notifies subscribers rather than replacing the cell.
		if sig, ok := env.GetSlot(s.ResolvedDepth, s.ResolvedIndex).(*value.Signal); ok {
			return e.signalSet(sig, v)
		}
		env.AssignAt(s.ResolvedDepth, s.ResolvedIndex, s.Name, v)
		return nil
	}
	if env.IsConstName(s.Name) {
		tok := s.GetToken()
		return NewRuntimeError(tok.Line, tok.Column, "cannot reassign const %q", s.Name)
	}
	if cur, ok := env.Get(s.Name); ok {
		if sig, ok := cur.(*value.Signal); ok {
			return e.signalSet(sig, v)
		}
	}
	if !env.Update(s.Name, v) {
		e.Globals.Set(s.Name, v)
	}
	return nil
}

func (e *Evaluator) assignTarget(target ast.Expression, v value.Value, env *Environment) error {
	switch t := target.(type) {
	case *ast.IndexAccess:
		container, err := e.EvalExpr(t.Target, env)
		if err != nil {
			return err
		}
		idx, err := e.EvalExpr(t.Index, env)
		if err != nil {
			return err
		}
		return e.indexAssign(t, container, idx, v)
	case *ast.AttributeAccess:
		container, err := e.EvalExpr(t.Target, env)
		if err != nil {
			return err
		}
		if ns, ok := container.(*value.Namespace); ok {
			if ns.IsConst(t.AttrName) {
				tok := t.GetToken()
				return NewRuntimeError(tok.Line, tok.Column, "cannot reassign const attribute %q on namespace %s", t.AttrName, ns.Name)
			}
			ns.Members[t.AttrName] = v
			return nil
		}
		// Dict-valued targets take the attribute name as a string key
		//.
		if d, ok := container.(*value.Dict); ok {
			d.Set(value.String(t.AttrName), v)
			return nil
		}
		tok := t.GetToken()
		return NewRuntimeError(tok.Line, tok.Column, "cannot assign attribute %q on %s", t.AttrName, container.Kind())
	}
	tok := target.GetToken()
	return NewRuntimeError(tok.Line, tok.Column, "invalid assignment target")
}

func (e *Evaluator) indexAssign(node ast.Node, container, idx, v value.Value) error {
	tok := node.GetToken()
	switch c := container.(type) {
	case *value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return NewRuntimeError(tok.Line, tok.Column, "list index must be an int")
		}
		n := int(i)
		if n < 0 {
			n += len(c.Elements)
		}
		if n < 0 || n >= len(c.Elements) {
			return NewRuntimeError(tok.Line, tok.Column, "list index out of range")
		}
		c.Elements[n] = v
		return nil
	case *value.Dict:
		c.Set(idx, v)
		return nil
	}
	return NewRuntimeError(tok.Line, tok.Column, "cannot index-assign into %s", container.Kind())
}

// defineInNamespace binds name to v on the namespace reached by walking
// path, creating intermediate namespaces as needed, and returns that
// namespace so the caller can record it as a bound function's self.
func (e *Evaluator) defineInNamespace(path []string, name string, v value.Value) *value.Namespace {
	nsName := path[0]
	ns, ok := e.Namespaces[nsName]
	if !ok {
		ns = value.NewNamespace(nsName)
		e.Namespaces[nsName] = ns
	}
	cur := ns
	for _, seg := range path[1:] {
		next, ok := cur.Members[seg].(*value.Namespace)
		if !ok {
			next = value.NewNamespace(seg)
			cur.Members[seg] = next
		}
		cur = next
	}
	cur.Members[name] = v
	return cur
}

func (e *Evaluator) evalFor(s *ast.ForStatement, env *Environment) error {
	iterable, err := e.EvalExpr(s.Iterable, env)
	if err != nil {
		return err
	}
	items, err := e.iterate(s, iterable)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := e.checkCancel(s); err != nil {
			return err
		}
		env.Define(s.VarName, s.ResolvedIndex, item)
		if err := e.Eval(s.Body, env); err != nil {
			if _, ok := err.(breakSignal); ok {
				break
			}
			if _, ok := err.(continueSignal); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func (e *Evaluator) iterate(node ast.Node, iterable value.Value) ([]value.Value, error) {
	switch it := iterable.(type) {
	case *value.List:
		return it.Elements, nil
	case *value.Dict:
		return it.Keys, nil
	case value.String:
		chars := []rune(string(it))
		out := make([]value.Value, len(chars))
		for i, c := range chars {
			out[i] = value.String(string(c))
		}
		return out, nil
	case *rangeValue:
		var out []value.Value
		if it.step > 0 {
			for i := it.start; i <= it.end; i += it.step {
				out = append(out, value.Int(i))
			}
		} else {
			for i := it.start; i >= it.end; i += it.step {
				out = append(out, value.Int(i))
			}
		}
		return out, nil
	}
	tok := node.GetToken()
	return nil, NewRuntimeError(tok.Line, tok.Column, "value of kind %s is not iterable", iterable.Kind())
}

func (e *Evaluator) evalTryCatch(s *ast.TryCatchStatement, env *Environment) error {
	err := e.Eval(s.TryBody, env)
	if err == nil {
		return nil
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		return err // control-flow signals and cancellation propagate, not caught
	}
	// The catch variable always binds the error's message as a string, even
	// when `raise` threw a non-string payload.
	msg := rerr.Payload
	if _, ok := msg.(value.String); !ok {
		msg = value.String(rerr.Payload.Inspect())
	}
	// Catch statements run directly in catchEnv, which the resolver treats
	// as the same scope as the error variable.
	catchEnv := NewEnclosedEnvironment(env, 0)
	catchEnv.Define(s.ErrorVar, s.ErrorVarResolvedIndex, msg)
	for _, stmt := range s.CatchBody.Statements {
		if cerr := e.Eval(stmt, catchEnv); cerr != nil {
			return cerr
		}
	}
	return nil
}

func (e *Evaluator) evalParallel(s *ast.ParallelBlock, env *Environment) error {
	fns := make([]func(ctx context.Context) (value.Value, error), len(s.Calls))
	for i, call := range s.Calls {
		call := call
		fork := e.Fork()
		fns[i] = func(ctx context.Context) (value.Value, error) {
			return fork.EvalExpr(call, env)
		}
	}
	task.Parallel(e.Context, fns)
	return nil
}

func truthy(v value.Value) bool {
	switch t := v.(type) {
	case value.Bool:
		return bool(t)
	case value.Null:
		return false
	case value.Missing:
		return false
	case value.Int:
		return t != 0
	case value.Float:
		return t != 0
	case value.String:
		return len(t) > 0
	case *value.List:
		return len(t.Elements) > 0
	case *value.Dict:
		return t.Len() > 0
	}
	return true
}

// rangeValue is the evaluated form of ast.RangeExpression: `start..end`.
type rangeValue struct {
	start, end, step int64
}

func (*rangeValue) Kind() value.Kind { return value.Kind("Range") }
func (r *rangeValue) Inspect() string {
	return fmt.Sprintf("%d..%d", r.start, r.end)
}
