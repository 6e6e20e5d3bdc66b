package interp

import (
	"fmt"

	"github.com/aml-lang/aml/internal/value"
)

// RuntimeError wraps a script-level error (raised explicitly via `raise`, or
// produced by a failed builtin operation) so it can flow back up through Go
// error returns and still carry the original Value for `catch`.
type RuntimeError struct {
	Payload value.Value
	Line    int
	Column  int
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Payload.Inspect())
}

func NewRuntimeError(line, col int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Payload: value.String(fmt.Sprintf(format, args...)), Line: line, Column: col}
}

// CancelledError signals cooperative cancellation. It is
// deliberately not a *RuntimeError: `try`/`catch` must not be able to catch
// it, and a type switch on *RuntimeError alone already lets it pass through
// uncaught.
type CancelledError struct {
	Line, Column int
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%d:%d: execution cancelled", e.Line, e.Column)
}

// control-flow signals: return/break/continue unwind like errors, since
// this evaluator's Eval returns (Value, error) rather than a single Object
// that downstream checks with a type switch.
type returnSignal struct{ value value.Value }

func (returnSignal) Error() string { return "return" }

type breakSignal struct{}

func (breakSignal) Error() string { return "break" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue" }

// DivisionByZero and ModuloByZero are raised at runtime for the literal-zero
// cases the parser's constant folder deliberately left unfolded.
func DivisionByZero(line, col int) *RuntimeError {
	return NewRuntimeError(line, col, "division by zero")
}

func ModuloByZero(line, col int) *RuntimeError {
	return NewRuntimeError(line, col, "modulo by zero")
}
