package dispatch

import (
	"context"

	"go.sqlitecore.dev/core/internal/dberrors"
)

// Close transitions db to draining and disposes of its connections,
// reporting whether it had been loaded (spec.md §6 "close").
func (d *Dispatcher) Close(ctx context.Context, db string) (bool, *dberrors.Error) {
	wasLoaded, err := d.conns.Close(ctx, db)
	if err != nil {
		return wasLoaded, translateSQLiteError(err)
	}
	return wasLoaded, nil
}

// CloseAll rolls back every live interruptible transaction, then closes
// every loaded database (spec.md §6 "close_all", §4.B "A server-wide
// shutdown rolls back all live transactions and then drains the manager").
func (d *Dispatcher) CloseAll(ctx context.Context) *dberrors.Error {
	d.txns.AbortAll(ctx)
	if err := d.conns.CloseAll(ctx); err != nil {
		return translateSQLiteError(err)
	}
	return nil
}

// Remove closes db, then deletes its main file and WAL/SHM/journal
// sidecars (spec.md §6 "remove").
func (d *Dispatcher) Remove(ctx context.Context, db string) (bool, *dberrors.Error) {
	wasLoaded, err := d.conns.Remove(ctx, db)
	if err != nil {
		return wasLoaded, translateSQLiteError(err)
	}
	return wasLoaded, nil
}
