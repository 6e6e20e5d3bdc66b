package dbmod

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func openMemory(t *testing.T) *value.HostObject {
	t.Helper()
	fn := New().Members["open"].(*value.Builtin)
	out, err := fn.Fn([]value.Value{value.String(":memory:")}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return out.(*value.HostObject)
}

func TestExecAndQuery(t *testing.T) {
	db := openMemory(t)
	defer db.Call("close", nil, nil)

	if _, err := db.Call("exec", []value.Value{value.String(`CREATE TABLE readings (host TEXT, cpu REAL)`)}, nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	res, err := db.Call("exec", []value.Value{
		value.String(`INSERT INTO readings (host, cpu) VALUES (?, ?), (?, ?)`),
		value.String("web1"), value.Float(0.25),
		value.String("web2"), value.Float(0.75),
	}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n, _ := res.(*value.Dict).Get(value.String("rows_affected")); n != value.Int(2) {
		t.Errorf("rows_affected: got %v, want 2", n)
	}

	rows, err := db.Call("query", []value.Value{value.String(`SELECT host, cpu FROM readings ORDER BY host`)}, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	list := rows.(*value.List)
	if len(list.Elements) != 2 {
		t.Fatalf("got %d rows, want 2", len(list.Elements))
	}
	first := list.Elements[0].(*value.Dict)
	if h, _ := first.Get(value.String("host")); h != value.String("web1") {
		t.Errorf("host: got %v", h)
	}
	if c, _ := first.Get(value.String("cpu")); c != value.Float(0.25) {
		t.Errorf("cpu: got %v", c)
	}
}

func TestQueryWithParams(t *testing.T) {
	db := openMemory(t)
	defer db.Call("close", nil, nil)

	mustExec := func(sql string, params ...value.Value) {
		t.Helper()
		if _, err := db.Call("exec", append([]value.Value{value.String(sql)}, params...), nil); err != nil {
			t.Fatalf("exec %q: %v", sql, err)
		}
	}
	mustExec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)`)
	mustExec(`INSERT INTO kv VALUES ('a', 1), ('b', 2)`)

	rows, err := db.Call("query", []value.Value{value.String(`SELECT v FROM kv WHERE k = ?`), value.String("b")}, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	list := rows.(*value.List)
	if len(list.Elements) != 1 {
		t.Fatalf("got %d rows, want 1", len(list.Elements))
	}
	if v, _ := list.Elements[0].(*value.Dict).Get(value.String("v")); v != value.Int(2) {
		t.Errorf("v: got %v, want 2", v)
	}
}
