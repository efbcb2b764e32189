// Package rawsql executes statements directly against a *sqlite3.SQLiteConn,
// bypassing database/sql's pooling so the connection manager can own
// connection lifecycle itself and expose the raw handle to the change
// observer for hook registration.
package rawsql

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"

	"github.com/mattn/go-sqlite3"
)

// ExecResult mirrors database/sql.Result for the two fields SQLite can
// actually report.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Exec runs a write statement and returns the affected row count and last
// inserted rowid.
func Exec(ctx context.Context, conn *sqlite3.SQLiteConn, query string, args []any) (ExecResult, error) {
	execer, ok := driver.Conn(conn).(driver.ExecerContext)
	if !ok {
		return ExecResult{}, fmt.Errorf("rawsql: connection does not support ExecContext")
	}
	res, err := execer.ExecContext(ctx, query, toNamedValues(args))
	if err != nil {
		return ExecResult{}, err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return ExecResult{}, err
	}
	li, err := res.LastInsertId()
	if err != nil {
		return ExecResult{}, err
	}
	return ExecResult{RowsAffected: ra, LastInsertID: li}, nil
}

// Rows is the decoded result of a read query: column names plus one slice
// of native Go values per row, in column order.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Query runs a read statement and decodes every row into memory. SQLite
// result sets in this core are always small enough that streaming isn't
// worth the added API surface (see dispatch.FetchAll/FetchOne).
func Query(ctx context.Context, conn *sqlite3.SQLiteConn, query string, args []any) (Rows, error) {
	queryer, ok := driver.Conn(conn).(driver.QueryerContext)
	if !ok {
		return Rows{}, fmt.Errorf("rawsql: connection does not support QueryContext")
	}
	rws, err := queryer.QueryContext(ctx, query, toNamedValues(args))
	if err != nil {
		return Rows{}, err
	}
	defer rws.Close()

	cols := rws.Columns()
	out := Rows{Columns: cols}
	dest := make([]driver.Value, len(cols))
	for {
		if err := rws.Next(dest); err != nil {
			if err == io.EOF {
				break
			}
			return Rows{}, err
		}
		row := make([]any, len(dest))
		for i, v := range dest {
			row[i] = v
		}
		out.Values = append(out.Values, row)
	}
	return out, nil
}

func toNamedValues(args []any) []driver.NamedValue {
	nv := make([]driver.NamedValue, len(args))
	for i, a := range args {
		nv[i] = driver.NamedValue{Ordinal: i + 1, Value: toDriverValue(a)}
	}
	return nv
}

// toDriverValue coerces the Go values the dispatcher accepts (bound from
// JSON-ish input: nil, strings, integers of any width, float64, bool,
// []byte) into one of driver.Value's allowed types.
func toDriverValue(a any) driver.Value {
	switch v := a.(type) {
	case nil:
		return nil
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		return toDriverValue(uint64(v))
	case int64:
		return v
	case uint64:
		if v <= 1<<63-1 {
			return int64(v)
		}
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case bool:
		return v
	case string:
		return v
	case []byte:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
