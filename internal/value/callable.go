package value

import (
	"fmt"

	"github.com/aml-lang/aml/internal/ast"
)

// Function is a user-defined function closing over the environment in which
// it was declared (opaque here as Env to avoid an import cycle with
// internal/interp; the evaluator type-asserts it back to its own
// *interp.Environment).
type Function struct {
	Name        string
	Params      []ast.Param
	Body        *ast.BlockStatement
	Closure     interface{}
	NsPath      []string
	LocalsCount int

	// Self is the namespace this function was bound to as a dotted method
	// (`func ns.inc()` or a function declared inside a `namespace` block),
	// nil for a plain function. Bound at call time into the new
	// environment's `self` name.
	Self Value
}

func (*Function) Kind() Kind { return KindFunction }
func (f *Function) Inspect() string {
	return fmt.Sprintf("<function %s>", f.qualifiedName())
}

func (f *Function) qualifiedName() string {
	name := f.Name
	for i := len(f.NsPath) - 1; i >= 0; i-- {
		name = f.NsPath[i] + "." + name
	}
	return name
}

// BuiltinFunc is the Go-side signature every host builtin implements.
type BuiltinFunc func(args []Value, kwargs map[string]Value) (Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) Kind() Kind        { return KindBuiltin }
func (b *Builtin) Inspect() string { return fmt.Sprintf("<builtin %s>", b.Name) }

// Namespace is the runtime value produced by a `namespace` block: a bag of
// names (functions, constants, nested namespaces) reachable by dotted path.
// Constants records which Members names were declared with `const` inside
// the namespace body; those attributes can never be overwritten again.
type Namespace struct {
	Name      string
	Members   map[string]Value
	Constants map[string]bool
}

func NewNamespace(name string) *Namespace {
	return &Namespace{Name: name, Members: make(map[string]Value), Constants: make(map[string]bool)}
}

// IsConst reports whether attr was declared const on this namespace.
func (n *Namespace) IsConst(attr string) bool { return n.Constants[attr] }

func (*Namespace) Kind() Kind { return KindNamespace }
func (n *Namespace) Inspect() string {
	return fmt.Sprintf("<namespace %s>", n.Name)
}

// Task is the first-class handle returned by `spawn`, joinable by the
// embedding evaluator's task package. The fields the evaluator needs to
// drive it (result channel, cancel func) live in internal/task.Handle;
// this wraps that handle behind the Value interface so scripts can hold it
// as a normal identifier.
type Task struct {
	Handle interface {
		Join(timeoutSeconds float64) (Value, error)
		Cancel()
		Done() bool
		Result() (Value, bool)
		LastError() error
	}
}

func (*Task) Kind() Kind      { return KindTask }
func (*Task) Inspect() string { return "<task>" }

// Signal is a reactive cell: reading it records a dependency (handled by the
// evaluator's active-effect tracking), writing it re-runs subscribed
// Effects.
type Signal struct {
	Value       Value
	Subscribers []*Effect
}

func (*Signal) Kind() Kind        { return KindSignal }
func (s *Signal) Inspect() string { return fmt.Sprintf("<signal %s>", s.Value.Inspect()) }

// Effect is a callback re-run whenever a Signal it read during its last run
// changes value.
type Effect struct {
	Run func() error
}

func (*Effect) Kind() Kind      { return KindEffect }
func (*Effect) Inspect() string { return "<effect>" }
