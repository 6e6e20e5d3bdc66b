package bundle

import (
	"strconv"

	"github.com/aml-lang/aml/internal/ast"
)

// reserved holds names obfuscation must never touch: builtins and
// host-attribute entry points scripts rely on by exact name.
var reserved = map[string]bool{
	"self": true, "args": true, "error": true,
	"print": true, "len": true, "format": true, "wait": true,
	"signal": true, "effect": true, "import": true,
	"convert": true, "time": true, "events": true, "Python": true,
}

// table assigns every declared name a short, stable, base36 identifier the
// first time it's seen; repeat lookups of the same name return the same
// obfuscated spelling.
type table struct {
	names map[string]string
	next  int
}

func newTable() *table { return &table{names: make(map[string]string)} }

func (t *table) get(name string) string {
	if name == "" || reserved[name] {
		return name
	}
	if short, ok := t.names[name]; ok {
		return short
	}
	short := "_" + strconv.FormatInt(int64(t.next), 36)
	t.next++
	t.names[name] = short
	return short
}

// ObfuscateAll remaps declared identifiers across every module in-place
// using one shared table, so a name defined in one module and imported by
// another still resolves after remapping.
func ObfuscateAll(modules map[string]*ast.Program) {
	t := newTable()
	for _, prog := range modules {
		for _, s := range prog.Statements {
			obfStmt(t, s)
		}
	}
}

func obfStmt(t *table, s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDeclaration:
		n.Name = t.get(n.Name)
		obfExpr(t, n.Value)
	case *ast.ConstDeclaration:
		n.Name = t.get(n.Name)
		obfExpr(t, n.Value)
	case *ast.FunctionDeclaration:
		if len(n.NsPath) == 0 {
			n.Name = t.get(n.Name)
		}
		for i := range n.Params {
			n.Params[i].Name = t.get(n.Params[i].Name)
			obfExpr(t, n.Params[i].Default)
		}
		obfStmt(t, n.Body)
	case *ast.NamespaceDeclaration:
		obfStmt(t, n.Body)
	case *ast.MetadataDeclaration:
		for i := range n.Entries {
			obfExpr(t, n.Entries[i].Value)
		}
	case *ast.BlockStatement:
		for _, inner := range n.Statements {
			obfStmt(t, inner)
		}
	case *ast.Assignment:
		if n.TargetExpr != nil {
			obfExpr(t, n.TargetExpr)
		} else {
			n.Name = t.get(n.Name)
		}
		obfExpr(t, n.Value)
	case *ast.IfStatement:
		obfExpr(t, n.Condition)
		obfStmt(t, n.Consequence)
		if n.Alternative != nil {
			obfStmt(t, n.Alternative)
		}
	case *ast.WhileStatement:
		obfExpr(t, n.Condition)
		obfStmt(t, n.Body)
	case *ast.ForStatement:
		n.VarName = t.get(n.VarName)
		obfExpr(t, n.Iterable)
		obfStmt(t, n.Body)
	case *ast.ReturnStatement:
		obfExpr(t, n.Value)
	case *ast.RaiseStatement:
		obfExpr(t, n.Value)
	case *ast.TryCatchStatement:
		n.ErrorVar = t.get(n.ErrorVar)
		obfStmt(t, n.TryBody)
		obfStmt(t, n.CatchBody)
	case *ast.ParallelBlock:
		for _, c := range n.Calls {
			obfExpr(t, c)
		}
	case *ast.ExpressionStatement:
		obfExpr(t, n.Expression)
	}
}

func obfExpr(t *table, e ast.Expression) {
	switch n := e.(type) {
	case nil:
		return
	case *ast.Identifier:
		n.Name = t.get(n.Name)
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			obfExpr(t, el)
		}
	case *ast.DictLiteral:
		for i := range n.Entries {
			obfExpr(t, n.Entries[i].Key)
			obfExpr(t, n.Entries[i].Value)
		}
	case *ast.ListComprehension:
		obfExpr(t, n.Expr)
		n.VarName = t.get(n.VarName)
		obfExpr(t, n.Iterable)
		obfExpr(t, n.Cond)
	case *ast.DictComprehension:
		obfExpr(t, n.KeyExpr)
		obfExpr(t, n.ValExpr)
		n.VarName = t.get(n.VarName)
		obfExpr(t, n.Iterable)
		obfExpr(t, n.Cond)
	case *ast.IndexAccess:
		obfExpr(t, n.Target)
		obfExpr(t, n.Index)
	case *ast.AttributeAccess:
		obfExpr(t, n.Target) // AttrName preserved: host/namespace attribute
	case *ast.BinaryOperation:
		obfExpr(t, n.Left)
		obfExpr(t, n.Right)
	case *ast.UnaryOperation:
		obfExpr(t, n.Expr)
	case *ast.RangeExpression:
		obfExpr(t, n.Start)
		obfExpr(t, n.End)
	case *ast.Pointer:
		obfExpr(t, n.Target)
	case *ast.FunctionCall:
		if n.CalleeExpr != nil {
			obfExpr(t, n.CalleeExpr)
		} else if !containsDot(n.Name) {
			n.Name = t.get(n.Name)
		}
		obfArgs(t, n.Args, n.Kwargs)
	case *ast.MethodCall:
		if n.ObjectExpr != nil {
			obfExpr(t, n.ObjectExpr)
		} else {
			n.ObjectName = t.get(n.ObjectName)
		}
		// MethodName is preserved: dispatch is by attribute/namespace-member
		// name, not a locally declared identifier.
		obfArgs(t, n.Args, n.Kwargs)
	case *ast.SpawnCall:
		obfExpr(t, n.Call)
	case *ast.PythonClassInstance:
		obfArgs(t, n.Args, n.Kwargs)
	}
}

func obfArgs(t *table, args []ast.Expression, kwargs []ast.Arg) {
	for _, a := range args {
		obfExpr(t, a)
	}
	for i := range kwargs {
		// kwarg names address a parameter by name at call time: rename them
		// through the same table a parameter declaration used.
		kwargs[i].Name = t.get(kwargs[i].Name)
		obfExpr(t, kwargs[i].Value)
	}
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}
