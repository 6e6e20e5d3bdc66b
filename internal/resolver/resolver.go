// Package resolver walks a parsed program and assigns every identifier
// reference and assignment a static (depth, slot) address, so the evaluator
// can index straight into an Environment's slot array instead of doing a
// name lookup at every access. It also accumulates coarse type-tag warnings
// for a handful of statically-detectable mistakes; warnings are advisory
// only and never block evaluation.
package resolver

import (
	"fmt"

	"github.com/aml-lang/aml/internal/ast"
)

// Warning is a non-fatal diagnostic produced during resolution.
type Warning struct {
	Line    int
	Column  int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s", w.Line, w.Column, w.Message)
}

// scope tracks the slot assignment for one lexical level: a function body,
// a block, or the program's top level.
type scope struct {
	outer   *scope
	names   map[string]int
	next    int
	isConst map[string]bool
}

func newScope(outer *scope) *scope {
	return &scope{outer: outer, names: make(map[string]int), isConst: make(map[string]bool)}
}

func (s *scope) define(name string, constant bool) int {
	idx := s.next
	s.names[name] = idx
	s.isConst[name] = constant
	s.next++
	return idx
}

// redefine is define, but reports whether name was already bound as a
// constant in this exact scope — `const x = 1; var x = 2` in the same
// block must fail rather than silently shadow.
func (s *scope) redefine(name string, constant bool) (idx int, wasConst bool) {
	wasConst = s.isConst[name]
	_, existed := s.names[name]
	return s.define(name, constant), existed && wasConst
}

// find walks outward from s looking for name, returning its depth (0 = this
// scope) and slot index.
func (s *scope) find(name string) (depth, index int, constant, ok bool) {
	cur := s
	d := 0
	for cur != nil {
		if idx, found := cur.names[name]; found {
			return d, idx, cur.isConst[name], true
		}
		cur = cur.outer
		d++
	}
	return 0, 0, false, false
}

// ConstRedeclarationError is returned by Resolve when a scope redeclares a
// name that scope already bound with `const`: `const x = 1; var x = 2` in
// the same scope fails. Unlike a plain reassignment this is caught
// statically rather than at runtime, since both bindings are declarations.
type ConstRedeclarationError struct {
	Name   string
	Line   int
	Column int
}

func (e *ConstRedeclarationError) Error() string {
	return fmt.Sprintf("%d:%d: cannot redeclare const %q", e.Line, e.Column, e.Name)
}

// Resolver performs the static pass over a Program.
type Resolver struct {
	warnings []Warning
	cur      *scope
	err      error
}

// New creates a Resolver with an empty top-level scope.
func New() *Resolver {
	return &Resolver{cur: newScope(nil)}
}

// Warnings returns every diagnostic accumulated since the last Resolve call.
func (r *Resolver) Warnings() []Warning { return r.warnings }

// fail records the first ConstRedeclarationError encountered; later ones are
// dropped so Resolve's error always reports the earliest offending line.
func (r *Resolver) fail(tok ast.Node, name string) {
	if r.err != nil {
		return
	}
	t := tok.GetToken()
	r.err = &ConstRedeclarationError{Name: name, Line: t.Line, Column: t.Column}
}

func (r *Resolver) warn(tok ast.Node, format string, args ...interface{}) {
	t := tok.GetToken()
	r.warnings = append(r.warnings, Warning{Line: t.Line, Column: t.Column, Message: fmt.Sprintf(format, args...)})
}

// Resolve assigns depth/slot addresses throughout prog in place and returns
// the number of slots the top-level scope requires. A non-nil error means a
// const was illegally redeclared somewhere in prog; the returned
// slot count is still usable (resolution continues past the failure so a
// single pass can report every address), but the program must not execute.
func (r *Resolver) Resolve(prog *ast.Program) (int, error) {
	for _, stmt := range prog.Statements {
		r.resolveStmt(stmt)
	}
	return r.cur.next, r.err
}

func (r *Resolver) pushScope() {
	r.cur = newScope(r.cur)
}

func (r *Resolver) popScope() int {
	n := r.cur.next
	r.cur = r.cur.outer
	return n
}

func (r *Resolver) resolveStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDeclaration:
		r.resolveExpr(s.Value)
		idx, conflict := r.cur.redefine(s.Name, false)
		s.ResolvedIndex = idx
		if conflict {
			r.fail(s, s.Name)
		}
	case *ast.ConstDeclaration:
		r.resolveExpr(s.Value)
		idx, conflict := r.cur.redefine(s.Name, true)
		s.ResolvedIndex = idx
		if conflict {
			r.fail(s, s.Name)
		}
	case *ast.FunctionDeclaration:
		r.cur.define(s.Name, true)
		r.resolveFunction(s)
	case *ast.NamespaceDeclaration:
		r.pushScope()
		for _, inner := range s.Body.Statements {
			r.resolveStmt(inner)
		}
		r.popScope()
	case *ast.MetadataDeclaration:
		for _, e := range s.Entries {
			r.resolveExpr(e.Value)
		}
	case *ast.ImportPy, *ast.ImportAml:
		// nothing to resolve: module/host names are dynamic.
	case *ast.BlockStatement:
		r.pushScope()
		for _, inner := range s.Statements {
			r.resolveStmt(inner)
		}
		r.popScope()
	case *ast.Assignment:
		r.resolveExpr(s.Value)
		if s.TargetExpr != nil {
			r.resolveExpr(s.TargetExpr)
			return
		}
		depth, idx, constant, ok := r.cur.find(s.Name)
		if !ok {
			s.ResolvedDepth = -1
			s.ResolvedIndex = -1
			return
		}
		// Constant reassignment through a resolved slot is still enforced at
		// runtime (Environment.IsConstSlot); the evaluator, not the resolver,
		// owns the fail/no-fail decision. Only warn here so a pass that skips
		// warnings stays behaviorally identical.
		if constant {
			r.warn(s, "assignment to const %q", s.Name)
		}
		s.ResolvedDepth = depth
		s.ResolvedIndex = idx
	case *ast.IfStatement:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Consequence)
		if s.Alternative != nil {
			r.resolveStmt(s.Alternative)
		}
	case *ast.WhileStatement:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Body)
	case *ast.ForStatement:
		r.resolveExpr(s.Iterable)
		// The loop variable lives in the enclosing scope, not a fresh child
		// scope, so it remains visible (holding the final element) after the
		// loop exits.
		s.ResolvedIndex = r.cur.define(s.VarName, false)
		r.pushScope()
		for _, inner := range s.Body.Statements {
			r.resolveStmt(inner)
		}
		r.popScope()
	case *ast.ReturnStatement:
		if s.Value != nil {
			r.resolveExpr(s.Value)
		}
	case *ast.RaiseStatement:
		r.resolveExpr(s.Value)
	case *ast.BreakStatement, *ast.ContinueStatement:
		// no-op
	case *ast.TryCatchStatement:
		r.resolveStmt(s.TryBody)
		r.pushScope()
		s.ErrorVarResolvedIndex = r.cur.define(s.ErrorVar, false)
		for _, inner := range s.CatchBody.Statements {
			r.resolveStmt(inner)
		}
		r.popScope()
	case *ast.ParallelBlock:
		for _, call := range s.Calls {
			r.resolveExpr(call)
		}
	case *ast.ExpressionStatement:
		r.resolveExpr(s.Expression)
	default:
		r.warn(stmt, "resolver: unhandled statement %T", stmt)
	}
}

func (r *Resolver) resolveFunction(decl *ast.FunctionDeclaration) {
	r.pushScope()
	for _, param := range decl.Params {
		if param.Default != nil {
			r.resolveExpr(param.Default)
		}
		r.cur.define(param.Name, false)
	}
	r.cur.define("args", false)
	for _, inner := range decl.Body.Statements {
		r.resolveStmt(inner)
	}
	decl.LocalsCount = r.popScope()
}

func (r *Resolver) resolveExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case nil:
		return
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.NullLiteral:
		// literals carry no references
	case *ast.Identifier:
		depth, idx, _, ok := r.cur.find(e.Name)
		if !ok {
			e.ResolvedDepth = -1
			e.ResolvedIndex = -1
			return
		}
		e.ResolvedDepth = depth
		e.ResolvedIndex = idx
	case *ast.ListLiteral:
		for _, el := range e.Elements {
			r.resolveExpr(el)
		}
	case *ast.DictLiteral:
		for _, entry := range e.Entries {
			r.resolveExpr(entry.Key)
			r.resolveExpr(entry.Value)
		}
	case *ast.ListComprehension:
		r.resolveExpr(e.Iterable)
		r.pushScope()
		e.ResolvedIndex = r.cur.define(e.VarName, false)
		r.resolveExpr(e.Expr)
		if e.Cond != nil {
			r.resolveExpr(e.Cond)
		}
		r.popScope()
	case *ast.DictComprehension:
		r.resolveExpr(e.Iterable)
		r.pushScope()
		e.ResolvedIndex = r.cur.define(e.VarName, false)
		r.resolveExpr(e.KeyExpr)
		r.resolveExpr(e.ValExpr)
		if e.Cond != nil {
			r.resolveExpr(e.Cond)
		}
		r.popScope()
	case *ast.IndexAccess:
		r.resolveExpr(e.Target)
		r.resolveExpr(e.Index)
	case *ast.AttributeAccess:
		r.resolveExpr(e.Target)
	case *ast.BinaryOperation:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
		r.checkNumericHint(e)
	case *ast.UnaryOperation:
		r.resolveExpr(e.Expr)
	case *ast.RangeExpression:
		r.resolveExpr(e.Start)
		r.resolveExpr(e.End)
	case *ast.Pointer:
		r.resolveExpr(e.Target)
	case *ast.FunctionCall:
		if e.CalleeExpr != nil {
			r.resolveExpr(e.CalleeExpr)
		}
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
		for _, kw := range e.Kwargs {
			r.resolveExpr(kw.Value)
		}
	case *ast.MethodCall:
		if e.ObjectExpr != nil {
			r.resolveExpr(e.ObjectExpr)
		}
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
		for _, kw := range e.Kwargs {
			r.resolveExpr(kw.Value)
		}
	case *ast.SpawnCall:
		r.resolveExpr(e.Call)
	case *ast.PythonClassInstance:
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
		for _, kw := range e.Kwargs {
			r.resolveExpr(kw.Value)
		}
	default:
		r.warn(expr, "resolver: unhandled expression %T", expr)
	}
}

// checkNumericHint flags the common mistake of comparing a literal string to
// a literal number, e.g. `"3" < 4`, which the Language quietly coerces at
// runtime but almost always signals a mixed-up variable.
func (r *Resolver) checkNumericHint(n *ast.BinaryOperation) {
	switch n.Op {
	case "<", ">", "<=", ">=":
		_, lok := n.Left.(*ast.StringLiteral)
		_, rok := n.Right.(*ast.NumberLiteral)
		if lok && rok {
			r.warn(n, "comparing a string literal against a number")
		}
	}
}
