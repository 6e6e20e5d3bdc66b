package aml

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// run executes src against a fresh Runtime and returns everything printed to
// stdout, trimmed of its trailing newline, driving the embedding API
// directly instead of shelling out to a compiled binary.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	rt := New(context.Background())
	var buf bytes.Buffer
	rt.Evaluator().Out = &buf
	_, err := rt.RunSource(src)
	return strings.TrimRight(buf.String(), "\n"), err
}

// TestFibonacci checks the classic recursive benchmark end to end.
func TestFibonacci(t *testing.T) {
	out, err := run(t, `
func fib(n) { if (n < 2) { return n } return fib(n-1) + fib(n-2) }
print(fib(10))
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "55" {
		t.Errorf("got %q, want %q", out, "55")
	}
}

// TestDefaultsKwargsExtras covers default parameters, keyword
// arguments, and the implicit `args` list only ever collecting the full
// positional list once callers pass more arguments than the function
// declares.
func TestDefaultsKwargsExtras(t *testing.T) {
	out, err := run(t, `
func f(a, b = 10) { return a + b + len(args) }
print(f(1))
print(f(1, b = 2))
print(f(1, 2, 3, 4))
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "11\n3\n7"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestNamespaceDottedFunctionSelf checks that a dotted function declaration
// binds to its namespace and receives it as self.
func TestNamespaceDottedFunctionSelf(t *testing.T) {
	out, err := run(t, `
namespace ns { var n = 0 }
func ns.inc() { self.n = self.n + 1; return self.n }
print(ns.inc())
print(ns.inc())
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1\n2"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestSpawnJoin checks that a spawned call's handle joins to its result.
func TestSpawnJoin(t *testing.T) {
	out, err := run(t, `
func slow(x) { return x * 2 }
var h = spawn slow(21)
print(h.join())
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "42" {
		t.Errorf("got %q, want %q", out, "42")
	}
}

// TestReactiveSignal: the initial effect registration
// run counts as one print, the second `c = 1` is a no-op write that must not
// re-run the effect, and the final `c = 2` re-runs it once more.
func TestReactiveSignal(t *testing.T) {
	out, err := run(t, `
func print_c() { print(c.get()) }
var c = signal(0)
effect(@print_c)
c = 1
c = 1
c = 2
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "0\n1\n2"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestConstViolation: nothing is printed before the
// ConstantReassignment failure, and the error surfaces to the host.
func TestConstViolation(t *testing.T) {
	out, err := run(t, `
const PI = 3.14
PI = 3
print("unreachable")
`)
	if err == nil {
		t.Fatal("expected a constant-reassignment error")
	}
	if out != "" {
		t.Errorf("expected no output before the failure, got %q", out)
	}
}

// TestParallelBlockSwallowsErrors: a failing call
// inside `parallel { ... }` does not propagate to the block's caller.
func TestParallelBlockSwallowsErrors(t *testing.T) {
	out, err := run(t, `
func boom() { raise "boom" }
func ok() { print("ok") }
parallel {
  boom()
  ok()
}
wait(0.05)
print("done")
`)
	if err != nil {
		t.Fatalf("parallel-block error must not propagate to the caller: %v", err)
	}
	if !strings.Contains(out, "ok") || !strings.Contains(out, "done") {
		t.Errorf("expected surviving sibling output, got %q", out)
	}
}

// TestTryCatchBindsErrorMessage:
// catch binds the error as a string to the named catch variable.
func TestTryCatchBindsErrorMessage(t *testing.T) {
	out, err := run(t, `
try {
  raise "kaboom"
} catch (e) {
  print(e)
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "kaboom" {
		t.Errorf("got %q, want %q", out, "kaboom")
	}
}

// TestRangeFlattensIntoListLiteral: a range spliced
// directly into a list literal flattens in place, with inclusive endpoints
// in both directions.
func TestRangeFlattensIntoListLiteral(t *testing.T) {
	out, err := run(t, `print([1..4])`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[1, 2, 3, 4]" {
		t.Errorf("got %q, want %q", out, "[1, 2, 3, 4]")
	}

	out, err = run(t, `print([5..3])`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[5, 4, 3]" {
		t.Errorf("got %q, want %q", out, "[5, 4, 3]")
	}
}

// TestForLoopIteratorOutlivesLoop exercises the Open Question decision
// recorded in DESIGN.md: the iterator variable remains visible (holding the
// final element) in the enclosing scope after the loop exits.
func TestForLoopIteratorOutlivesLoop(t *testing.T) {
	out, err := run(t, `
for i in 1..3 {}
print(i)
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "3" {
		t.Errorf("got %q, want %q", out, "3")
	}
}

// TestDictComprehensionAndInsertionOrder exercises the Open Question
// decision: dict iteration follows insertion order.
func TestDictComprehensionAndInsertionOrder(t *testing.T) {
	out, err := run(t, `
var d = {"x": 1, "y": 2, "z": 3}
for k in d { print(k) }
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "x\ny\nz"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestCancellationStopsLoopWithinOneIteration:
// cancelling before any statement of a loop body stops execution within at
// most one iteration boundary.
func TestCancellationStopsLoopWithinOneIteration(t *testing.T) {
	rt := New(context.Background())
	var buf bytes.Buffer
	rt.Evaluator().Out = &buf

	done := make(chan error, 1)
	go func() {
		_, err := rt.RunSource(`
var n = 0
while (true) {
  n = n + 1
}
`)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	rt.Cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not stop the loop in time")
	}
}
