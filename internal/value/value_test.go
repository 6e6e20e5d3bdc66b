package value

import "testing"

func TestEqualCrossKindNumeric(t *testing.T) {
	if !Equal(Int(3), Float(3.0)) {
		t.Error("Int(3) should equal Float(3.0)")
	}
	if Equal(Int(3), Float(3.5)) {
		t.Error("Int(3) should not equal Float(3.5)")
	}
}

func TestEqualListsDeep(t *testing.T) {
	a := &List{Elements: []Value{Int(1), String("x")}}
	b := &List{Elements: []Value{Int(1), String("x")}}
	c := &List{Elements: []Value{Int(1), String("y")}}
	if !Equal(a, b) {
		t.Error("identical-content lists should be equal")
	}
	if Equal(a, c) {
		t.Error("lists differing by element should not be equal")
	}
}

func TestDictInsertionOrderPreserved(t *testing.T) {
	d := NewDict()
	d.Set(String("z"), Int(1))
	d.Set(String("a"), Int(2))
	d.Set(String("m"), Int(3))
	var got []string
	for _, k := range d.Keys {
		got = append(got, string(k.(String)))
	}
	want := []string{"z", "a", "m"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestDictSetOverwritesWithoutDuplicatingKey(t *testing.T) {
	d := NewDict()
	d.Set(String("k"), Int(1))
	d.Set(String("k"), Int(2))
	if d.Len() != 1 {
		t.Fatalf("len: got %d want 1", d.Len())
	}
	v, ok := d.Get(String("k"))
	if !ok || v.(Int) != 2 {
		t.Fatalf("expected overwritten value 2, got %v ok=%v", v, ok)
	}
}

func TestDictDeleteRemovesFromKeysAndBucket(t *testing.T) {
	d := NewDict()
	d.Set(String("a"), Int(1))
	d.Set(String("b"), Int(2))
	d.Delete(String("a"))
	if d.Len() != 1 {
		t.Fatalf("len: got %d want 1", d.Len())
	}
	if _, ok := d.Get(String("a")); ok {
		t.Error("deleted key should no longer be found")
	}
	if _, ok := d.Get(String("b")); !ok {
		t.Error("remaining key should still be found")
	}
}

func TestDictKeyedByKindAndInspectNotNumericEquality(t *testing.T) {
	d := NewDict()
	d.Set(Int(1), String("int-one"))
	// Hash folds in Kind() as well as Inspect(), so Int(1) and Float(1.0) —
	// though Equal() for arithmetic purposes — land in different buckets
	// and are distinct dict keys.
	if _, ok := d.Get(Float(1.0)); ok {
		t.Error("Int(1) and Float(1.0) should be distinct dict keys")
	}
}
