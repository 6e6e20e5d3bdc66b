package interp_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aml-lang/aml/internal/interp"
	"github.com/aml-lang/aml/internal/parser"
	"github.com/aml-lang/aml/internal/resolver"
	"github.com/aml-lang/aml/internal/value"
)

// run parses, resolves, and executes src against a fresh evaluator, returning
// the captured print output (trailing newline trimmed) and any runtime error.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	locals, err := resolver.New().Resolve(prog)
	if err != nil {
		return "", err
	}
	e := interp.New(context.Background(), locals)
	var buf bytes.Buffer
	e.Out = &buf
	_, err = e.Run(prog, e.Globals)
	return strings.TrimRight(buf.String(), "\n"), err
}

func expect(t *testing.T, src, want string) {
	t.Helper()
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestArithmeticCoercions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print(1 + 2)`, "3"},
		{`print(1 + 2.5)`, "3.5"},
		{`print("n = " + 42)`, "n = 42"},
		{`print(10 + "x" )`, "10x"},
		{`print([1, 2] + [3])`, "[1, 2, 3]"},
		{`print("ab" * 3)`, "ababab"},
		{`print([0] * 2)`, "[0, 0]"},
		{`print(7 // 2)`, "3"},
		{`print(-7 // 2)`, "-4"},
		{`print(7.0 // 2)`, "3"},
		{`print(5.5 % 2)`, "1.5"},
		{`print(7 % 3)`, "1"},
		{`print(2 ** 10)`, "1024"},
		{`print(2 ** -1)`, "0.5"},
		{`print("3" < 4)`, "true"},
		{`print(10 / 4)`, "2.5"},
	}
	for _, tt := range tests {
		expect(t, tt.src, tt.want)
	}
}

func TestDivisionByZeroAtRuntime(t *testing.T) {
	for _, src := range []string{
		`var z = 0
print(1 / z)`,
		`var z = 0
print(1 % z)`,
		`var z = 0
print(1 // z)`,
	} {
		if _, err := run(t, src); err == nil {
			t.Errorf("expected a zero-division error for %q", src)
		}
	}
}

func TestTruthiness(t *testing.T) {
	expect(t, `
var l = []
var d = {}
if (0) { print("a") } else { print("int-zero-false") }
if ("") { print("a") } else { print("empty-string-false") }
if (l) { print("a") } else { print("empty-list-false") }
if (d) { print("a") } else { print("empty-dict-false") }
if (7) { print("int-true") }
if ("x") { print("string-true") }
if (!0) { print("bang-zero") }
`, "int-zero-false\nempty-string-false\nempty-list-false\nempty-dict-false\nint-true\nstring-true\nbang-zero")
}

func TestAugmentedAssignment(t *testing.T) {
	expect(t, `
var x = 10
x += 5
x -= 3
x *= 2
x //= 3
print(x)
var l = [1, 2]
l[0] += 9
print(l)
`, "8\n[10, 2]")
}

func TestWhileBreakContinue(t *testing.T) {
	expect(t, `
var total = 0
var i = 0
while (true) {
  i = i + 1
  if (i > 10) { break }
  if (i % 2 == 0) { continue }
  total = total + i
}
print(total)
`, "25")
}

func TestForOverStringAndDict(t *testing.T) {
	expect(t, `
for ch in "abc" { print(ch) }
var d = {"k1": 1, "k2": 2}
for k in d { print(k) }
`, "a\nb\nc\nk1\nk2")
}

func TestListMethods(t *testing.T) {
	expect(t, `
func double(x) { return x * 2 }
func odd(x) { return x % 2 == 1 }
func add(a, b) { return a + b }
var l = [3, 1, 2]
print(l.sort())
print(l.reverse())
print(l.map(@double))
print(l.filter(@odd))
print(l.reduce(@add, 0))
l.append(9)
print(l.contains(9))
print(l.pop())
`, "[1, 2, 3]\n[2, 1, 3]\n[6, 2, 4]\n[3, 1]\n6\ntrue\n9")
}

func TestStringMethods(t *testing.T) {
	expect(t, `
print("Hello World".upper())
print("  pad  ".trim())
print("a,b,c".split(","))
print(["a", "b"].join("-"))
print("aml".replace("a", "c"))
print("prefix-x".starts_with("prefix"))
`, "HELLO WORLD\npad\n[a, b, c]\na-b\ncml\ntrue")
}

// TestDictKeyDispatch: a dict entry under the called name shadows built-in
// dict methods; callable entries are invoked, plain values returned as-is.
func TestDictKeyDispatch(t *testing.T) {
	expect(t, `
func hi(name) { return "hi " + name }
var d = {"greet": @hi, "answer": 42}
print(d.greet("aml"))
print(d.answer())
print(d.keys())
`, "hi aml\n42\n[greet, answer]")
}

func TestDictAttributeAccessAsKey(t *testing.T) {
	expect(t, `
var d = {"host": "localhost"}
d.port = 8080
print(d.host)
print(d["port"])
`, "localhost\n8080")
}

func TestComprehensions(t *testing.T) {
	expect(t, `
print([x * x for x in 1..4])
print([x for x in 1..10 if x % 3 == 0])
var d = {k: k * 2 for k in 1..3}
print(d[2])
`, "[1, 4, 9, 16]\n[3, 6, 9]\n4")
}

// TestDottedBuiltins drives the flat-registered builtin namespaces
// (convert.*, time.*, events.*).
func TestDottedBuiltins(t *testing.T) {
	expect(t, `
print(convert.to_int("42") + 1)
print(convert.to_float("2.5"))
print(convert.to_string(7) + "!")
print(convert.to_bool(""))
`, "43\n2.5\n7!\nfalse")
}

func TestEventsRegistry(t *testing.T) {
	expect(t, `
func on_tick(n) { print("tick " + n) }
events.on("tick", @on_tick)
events.emit("tick", 1)
events.emit("tick", 2)
events.emit("unheard", 3)
`, "tick 1\ntick 2")
}

func TestTimeBuiltins(t *testing.T) {
	out, err := run(t, `
var t0 = time.now()
var d = time.since(t0)
print(d >= 0)
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "true" {
		t.Errorf("got %q, want %q", out, "true")
	}
}

// TestMetadataEntrypoint: an `entry` meta key names a function auto-invoked
// after top-level execution when nothing called it explicitly.
func TestMetadataEntrypoint(t *testing.T) {
	expect(t, `
meta { entry: "app.main", version: "1.0" }
namespace app {
  func main() { print("entered") }
}
print("top-level")
`, "top-level\nentered")
}

func TestMetadataExposedAsGlobal(t *testing.T) {
	expect(t, `
meta { name: "tool", retries: 3 }
print(meta["name"])
print(meta["retries"])
`, "tool\n3")
}

func TestEntrypointNotReinvokedWhenCalledExplicitly(t *testing.T) {
	expect(t, `
meta { entry: "main" }
func main() { print("ran") }
main()
`, "ran")
}

func TestSignalMethods(t *testing.T) {
	expect(t, `
var s = signal(10)
print(s.get())
s.set(11)
print(s.get())
`, "10\n11")
}

// TestSignalSetSameValueSkipsSubscribers: a set with an equal value runs no
// subscriber.
func TestSignalSetSameValueSkipsSubscribers(t *testing.T) {
	expect(t, `
var s = signal(1)
func watch() { print("saw " + s.get()) }
effect(@watch)
s.set(1)
s.set(2)
`, "saw 1\nsaw 2")
}

// TestEffectWritingOwnSignalDoesNotRecurse: an effect that sets the signal it
// reads must not re-trigger itself.
func TestEffectWritingOwnSignalDoesNotRecurse(t *testing.T) {
	expect(t, `
var s = signal(0)
func bump() {
  var v = s.get()
  if (v < 3) { s.set(v + 1) }
  print("run " + v)
}
effect(@bump)
s.set(5)
`, "run 0\nrun 5")
}

func TestTaskDoneResultError(t *testing.T) {
	expect(t, `
func fine() { return 5 }
var good = spawn fine()
print(good.join())
print(good.done())
`, "5\ntrue")
	out, err := run(t, `
func boom() { raise "task failed" }
var bad = spawn boom()
wait(0.05)
print(bad.error())
print(bad.result())
`)
	if err != nil {
		t.Fatalf("spawn error must stay on the handle: %v", err)
	}
	if !strings.Contains(out, "task failed") {
		t.Errorf("expected captured error, got %q", out)
	}
	if !strings.HasSuffix(out, "null") {
		t.Errorf("expected null result for failed task, got %q", out)
	}
}

func TestPointerPassesCallableUninvoked(t *testing.T) {
	expect(t, `
func shout() { return "loud" }
var f = @shout
print(f())
`, "loud")
}

func TestClosureCapturesEnclosingScope(t *testing.T) {
	expect(t, `
func counter() {
  var n = 0
  func inc() {
    n = n + 1
    return n
  }
  return @inc
}
var c = counter()
print(c())
print(c())
`, "1\n2")
}

func TestNamespaceConstantAttribute(t *testing.T) {
	_, err := run(t, `
namespace cfg { const version = 1 }
cfg.version = 2
`)
	if err == nil {
		t.Fatal("expected a constant-attribute error")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error should name the attribute: %v", err)
	}
}

func TestNestedNamespaceDottedFunction(t *testing.T) {
	expect(t, `
func a.b.greet() { return "deep" }
print(a.b.greet())
`, "deep")
}

func TestRaiseNonStringBindsMessageString(t *testing.T) {
	expect(t, `
try {
  raise 42
} catch (e) {
  print(e + "!")
}
`, "42!")
}

func TestTryCatchDefaultErrorVar(t *testing.T) {
	expect(t, `
try {
  var d = {}
  print(d["missing"])
} catch {
  print("caught: " + error)
}
`, "caught: key missing not found")
}

// TestMicroYieldIntervalConfigurable: a tiny yield interval must not change
// observable behavior, only scheduling.
func TestMicroYieldIntervalConfigurable(t *testing.T) {
	prog, err := parser.ParseProgram(`
var total = 0
for i in 1..100 { total = total + i }
print(total)
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	locals, rerr := resolver.New().Resolve(prog)
	if rerr != nil {
		t.Fatalf("resolve: %v", rerr)
	}
	e := interp.New(context.Background(), locals)
	e.YieldInterval = 2
	var buf bytes.Buffer
	e.Out = &buf
	if _, err := e.Run(prog, e.Globals); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "5050" {
		t.Errorf("got %q, want %q", got, "5050")
	}
}

func TestHostCallSurface(t *testing.T) {
	prog, err := parser.ParseProgram(`func add(a, b) { return a + b }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	locals, rerr := resolver.New().Resolve(prog)
	if rerr != nil {
		t.Fatalf("resolve: %v", rerr)
	}
	e := interp.New(context.Background(), locals)
	if _, err := e.Run(prog, e.Globals); err != nil {
		t.Fatalf("run: %v", err)
	}
	fn, ok := e.Globals.Get("add")
	if !ok {
		t.Fatal("add not defined in globals")
	}
	v, err := e.Call(fn, []value.Value{value.Int(2), value.Int(3)}, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got, ok := v.(value.Int); !ok || got != 5 {
		t.Errorf("got %v, want Int(5)", v)
	}
}

func TestKeywordArgumentErrors(t *testing.T) {
	if _, err := run(t, `
func f(a) { return a }
f(b = 1)
`); err == nil || !strings.Contains(err.Error(), "keyword") {
		t.Errorf("expected unknown-keyword error, got %v", err)
	}
	if _, err := run(t, `
func f(a) { return a }
f(1, a = 2)
`); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate-keyword error, got %v", err)
	}
	if _, err := run(t, `
func f(a, b) { return a }
f(1)
`); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("expected missing-argument error, got %v", err)
	}
}
