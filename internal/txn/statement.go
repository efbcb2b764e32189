package txn

import (
	"context"

	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/coltype"
	"go.sqlitecore.dev/core/internal/rawsql"
)

// Statement is one (query, values) pair (spec.md §4.B "Atomic
// transaction": "an ordered list of (query, values) pairs").
type Statement struct {
	Query  string
	Values []any
}

// WriteResult is the per-statement outcome spec.md §4.B and §6 name:
// {rows_affected, last_insert_id}.
type WriteResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Row is one result row, name -> typed value (spec.md §6 "Rows returned
// as name->value objects").
type Row map[string]coltype.Value

func execStatements(ctx context.Context, conn *sqlite3.SQLiteConn, statements []Statement) ([]WriteResult, error) {
	results := make([]WriteResult, 0, len(statements))
	for _, stmt := range statements {
		res, err := rawsql.Exec(ctx, conn, stmt.Query, stmt.Values)
		if err != nil {
			return results, err
		}
		results = append(results, WriteResult{RowsAffected: res.RowsAffected, LastInsertID: res.LastInsertID})
	}
	return results, nil
}

func queryRows(ctx context.Context, conn *sqlite3.SQLiteConn, query string, values []any) ([]Row, error) {
	rows, err := rawsql.Query(ctx, conn, query, values)
	if err != nil {
		return nil, err
	}
	return RowsFromRaw(rows)
}

// RowsFromRaw converts a rawsql.Rows result into the name->typed-value
// shape spec.md §6 specifies ("Rows returned as name->value objects").
// Exported so the dispatcher can apply it to rows read from a plain
// reader connection, outside any transaction.
func RowsFromRaw(rows rawsql.Rows) ([]Row, error) {
	out := make([]Row, 0, len(rows.Values))
	for _, raw := range rows.Values {
		row := make(Row, len(rows.Columns))
		for i, col := range rows.Columns {
			v, err := coltype.FromDriverValue(raw[i])
			if err != nil {
				return nil, err
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, nil
}
