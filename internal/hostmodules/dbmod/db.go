// Package dbmod is the `db` host module: a thin database/sql wrapper over
// modernc.org/sqlite exposing a plain open/exec/query/close surface through
// a HostObject handle.
package dbmod

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("db")
	ns.Members["open"] = &value.Builtin{Name: "db.open", Fn: open}
	return ns
}

func open(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("db.open expects a DSN/path string")
	}
	dsn, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("db.open expects a DSN/path string")
	}
	conn, err := sql.Open("sqlite", string(dsn))
	if err != nil {
		return nil, fmt.Errorf("db.open: %v", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db.open: %v", err)
	}
	h := &handle{conn: conn}
	return &value.HostObject{TypeName: "DB", Native: h, Call: h.call}, nil
}

type handle struct {
	conn *sql.DB
}

func (h *handle) call(method string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch method {
	case "exec":
		return h.exec(args)
	case "query":
		return h.query(args)
	case "close":
		if err := h.conn.Close(); err != nil {
			return nil, fmt.Errorf("db.close: %v", err)
		}
		return value.NULL, nil
	}
	return nil, fmt.Errorf("DB has no method %q", method)
}

func (h *handle) exec(args []value.Value) (value.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("db.exec expects (sql, ...params)")
	}
	stmt, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("db.exec: sql must be a string")
	}
	params := toGoParams(args[1:])
	res, err := h.conn.Exec(string(stmt), params...)
	if err != nil {
		return nil, fmt.Errorf("db.exec: %v", err)
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	out := value.NewDict()
	out.Set(value.String("rows_affected"), value.Int(affected))
	out.Set(value.String("last_insert_id"), value.Int(lastID))
	return out, nil
}

func (h *handle) query(args []value.Value) (value.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("db.query expects (sql, ...params)")
	}
	stmt, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("db.query: sql must be a string")
	}
	params := toGoParams(args[1:])
	rows, err := h.conn.Query(string(stmt), params...)
	if err != nil {
		return nil, fmt.Errorf("db.query: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("db.query: %v", err)
	}

	var out []value.Value
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("db.query: %v", err)
		}
		row := value.NewDict()
		for i, col := range cols {
			row.Set(value.String(col), fromGo(raw[i]))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db.query: %v", err)
	}
	return &value.List{Elements: out}, nil
}

func toGoParams(args []value.Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case value.Int:
			out[i] = int64(v)
		case value.Float:
			out[i] = float64(v)
		case value.String:
			out[i] = string(v)
		case value.Bool:
			out[i] = bool(v)
		case value.Null:
			out[i] = nil
		default:
			out[i] = v.Inspect()
		}
	}
	return out
}

func fromGo(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.NULL
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case bool:
		return value.Bool(t)
	case []byte:
		return value.String(string(t))
	case string:
		return value.String(t)
	}
	return value.String(fmt.Sprintf("%v", v))
}
