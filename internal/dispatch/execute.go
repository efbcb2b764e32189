package dispatch

import (
	"context"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/rawsql"
	"go.sqlitecore.dev/core/internal/txn"
)

// Execute runs one ad-hoc write statement against db's writer connection
// outside any transaction frame (spec.md §6 "execute").
func (d *Dispatcher) Execute(ctx context.Context, db, query string, values []any) (txn.WriteResult, *dberrors.Error) {
	mgr, ok := d.conns.Get(db)
	if !ok {
		return txn.WriteResult{}, dberrors.Newf(dberrors.DatabaseNotLoaded, "database %q is not loaded", db)
	}

	writer, err := mgr.AcquireWriter(ctx)
	if err != nil {
		return txn.WriteResult{}, translateSQLiteError(err)
	}
	defer writer.Release()

	res, err := rawsql.Exec(ctx, writer.Conn(), query, values)
	if err != nil {
		return txn.WriteResult{}, translateSQLiteError(err)
	}
	return txn.WriteResult{RowsAffected: res.RowsAffected, LastInsertID: res.LastInsertID}, nil
}

// ExecuteTransaction runs an ordered batch of statements under one
// BEGIN/COMMIT frame, rolling back on the first error (spec.md §6
// "execute_transaction", §4.B "Atomic transaction").
func (d *Dispatcher) ExecuteTransaction(ctx context.Context, db string, statements []txn.Statement) ([]txn.WriteResult, *dberrors.Error) {
	mgr, ok := d.conns.Get(db)
	if !ok {
		return nil, dberrors.Newf(dberrors.DatabaseNotLoaded, "database %q is not loaded", db)
	}

	results, err := txn.ExecuteTransaction(ctx, mgr, statements)
	if err != nil {
		return results, translateSQLiteError(err)
	}
	return results, nil
}

// FetchAll runs a read query against a reader connection and returns every
// matching row (spec.md §6 "fetch_all").
func (d *Dispatcher) FetchAll(ctx context.Context, db, query string, values []any) ([]txn.Row, *dberrors.Error) {
	mgr, ok := d.conns.Get(db)
	if !ok {
		return nil, dberrors.Newf(dberrors.DatabaseNotLoaded, "database %q is not loaded", db)
	}

	reader, err := mgr.AcquireReader(ctx)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	defer reader.Release()

	rows, err := rawsql.Query(ctx, reader.Conn(), query, values)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	out, convErr := txn.RowsFromRaw(rows)
	if convErr != nil {
		return nil, translateSQLiteError(convErr)
	}
	return out, nil
}

// FetchOne runs a read query and returns its single matching row, or nil
// if none matched. More than one matching row is a caller error
// (spec.md §6 "fetch_one").
func (d *Dispatcher) FetchOne(ctx context.Context, db, query string, values []any) (txn.Row, *dberrors.Error) {
	rows, dbErr := d.FetchAll(ctx, db, query, values)
	if dbErr != nil {
		return nil, dbErr
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		return nil, dberrors.Newf(dberrors.MultipleRows, "fetch_one matched %d rows", len(rows))
	}
	return rows[0], nil
}
