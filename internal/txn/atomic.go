package txn

import (
	"context"

	"go.sqlitecore.dev/core/internal/connmgr"
	"go.sqlitecore.dev/core/internal/rawsql"
)

// ExecuteTransaction runs statements under a single BEGIN/COMMIT frame on
// mgr's writer connection, rolling back on the first error (spec.md §4.B
// "Atomic transaction"). Output is per-statement {rows_affected,
// last_insert_id} aligned with input order, or the first error after
// rollback.
func ExecuteTransaction(ctx context.Context, mgr *connmgr.Manager, statements []Statement) ([]WriteResult, error) {
	writer, err := mgr.AcquireWriter(ctx)
	if err != nil {
		return nil, err
	}
	defer writer.Release()

	conn := writer.Conn()
	if _, err := rawsql.Exec(ctx, conn, "BEGIN", nil); err != nil {
		return nil, err
	}

	results, err := execStatements(ctx, conn, statements)
	if err != nil {
		rawsql.Exec(ctx, conn, "ROLLBACK", nil)
		return results, err
	}

	if _, err := rawsql.Exec(ctx, conn, "COMMIT", nil); err != nil {
		rawsql.Exec(ctx, conn, "ROLLBACK", nil)
		return results, err
	}
	return results, nil
}
