// Package value defines the runtime values the evaluator produces and
// consumes: a small tagged union rather than a trait/type-class hierarchy,
// since the language has no generics or type classes to dispatch through.
package value

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Kind tags a Value's concrete type.
type Kind string

const (
	KindInt       Kind = "Int"
	KindFloat     Kind = "Float"
	KindString    Kind = "String"
	KindBool      Kind = "Bool"
	KindNull      Kind = "Null"
	KindList      Kind = "List"
	KindDict      Kind = "Dict"
	KindFunction  Kind = "Function"
	KindBuiltin   Kind = "Builtin"
	KindNamespace Kind = "Namespace"
	KindTask      Kind = "Task"
	KindSignal    Kind = "Signal"
	KindEffect    Kind = "Effect"
	KindHost      Kind = "HostObject"
	KindMissing   Kind = "MissingArg"
)

// Value is any runtime value the evaluator operates on.
type Value interface {
	Kind() Kind
	Inspect() string
}

// Hash returns a stable digest for use as a Dict key, matching Inspect()
// equality.
func Hash(v Value) uint32 {
	h := fnv.New32a()
	h.Write([]byte(string(v.Kind())))
	h.Write([]byte(v.Inspect()))
	return h.Sum32()
}

// Equal reports deep value equality (not identity).
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		// Int and Float compare equal across kinds, matching arithmetic coercion.
		if af, aok := asNumber(a); aok {
			if bf, bok := asNumber(b); bok {
				return af == bf
			}
		}
		return false
	}
	switch av := a.(type) {
	case *List:
		bv := b.(*List)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv := b.(*Dict)
		if len(av.Keys) != len(bv.Keys) {
			return false
		}
		for _, k := range av.Keys {
			aVal, _ := av.Get(k)
			bVal, ok := bv.Get(k)
			if !ok || !Equal(aVal, bVal) {
				return false
			}
		}
		return true
	default:
		return a.Inspect() == b.Inspect()
	}
}

func asNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// ---- Scalars ----

type Int int64

func (Int) Kind() Kind        { return KindInt }
func (i Int) Inspect() string { return fmt.Sprintf("%d", int64(i)) }

type Float float64

func (Float) Kind() Kind        { return KindFloat }
func (f Float) Inspect() string { return fmt.Sprintf("%g", float64(f)) }

type String string

func (String) Kind() Kind        { return KindString }
func (s String) Inspect() string { return string(s) }

type Bool bool

func (Bool) Kind() Kind        { return KindBool }
func (b Bool) Inspect() string { return fmt.Sprintf("%t", bool(b)) }

type Null struct{}

func (Null) Kind() Kind      { return KindNull }
func (Null) Inspect() string { return "null" }

var NULL = Null{}

// Missing is the sentinel passed to a function parameter that received
// neither a caller-supplied value nor had a default: it allows a function
// body to distinguish "not supplied" from an explicit null.
type Missing struct{}

func (Missing) Kind() Kind      { return KindMissing }
func (Missing) Inspect() string { return "<missing>" }

var MISSING_ARG = Missing{}

// ---- Collections ----

type List struct {
	Elements []Value
}

func (*List) Kind() Kind { return KindList }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Dict preserves insertion order for iteration, per the resolved Open
// Question on dict-iteration order.
type Dict struct {
	Keys   []Value
	values map[uint32][]dictEntry
}

type dictEntry struct {
	key Value
	val Value
}

func NewDict() *Dict {
	return &Dict{values: make(map[uint32][]dictEntry)}
}

func (*Dict) Kind() Kind { return KindDict }

func (d *Dict) Inspect() string {
	parts := make([]string, 0, len(d.Keys))
	for _, k := range d.Keys {
		v, _ := d.get(k)
		parts = append(parts, fmt.Sprintf("%s: %s", k.Inspect(), v.Inspect()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d *Dict) Set(key, val Value) {
	h := Hash(key)
	bucket := d.values[h]
	for i, e := range bucket {
		if Equal(e.key, key) {
			bucket[i].val = val
			return
		}
	}
	d.values[h] = append(bucket, dictEntry{key: key, val: val})
	d.Keys = append(d.Keys, key)
}

func (d *Dict) get(key Value) (Value, bool) {
	h := Hash(key)
	for _, e := range d.values[h] {
		if Equal(e.key, key) {
			return e.val, true
		}
	}
	return nil, false
}

func (d *Dict) Get(key Value) (Value, bool) { return d.get(key) }

func (d *Dict) Delete(key Value) {
	h := Hash(key)
	bucket := d.values[h]
	for i, e := range bucket {
		if Equal(e.key, key) {
			d.values[h] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	for i, k := range d.Keys {
		if Equal(k, key) {
			d.Keys = append(d.Keys[:i], d.Keys[i+1:]...)
			break
		}
	}
}

func (d *Dict) Len() int { return len(d.Keys) }

// SortedKeysForDisplay returns Keys sorted by their Inspect() form; used only
// by debug/print paths that want deterministic output regardless of
// insertion order.
func (d *Dict) SortedKeysForDisplay() []Value {
	out := make([]Value, len(d.Keys))
	copy(out, d.Keys)
	sort.Slice(out, func(i, j int) bool { return out[i].Inspect() < out[j].Inspect() })
	return out
}

// ---- Host interop ----

// HostObject wraps a value provided by the embedding host (via import_py or
// a registered host module) that scripts can call methods on without the
// evaluator understanding its internals.
type HostObject struct {
	TypeName string
	Native   interface{}
	Call     func(method string, args []Value, kwargs map[string]Value) (Value, error)
}

func (*HostObject) Kind() Kind        { return KindHost }
func (h *HostObject) Inspect() string { return fmt.Sprintf("<host %s>", h.TypeName) }
