//go:build sqlite_preupdate_hook

package observer

import (
	"context"
	"time"

	"github.com/mattn/go-sqlite3"
)

// PreupdateHookEnabled reports whether this binary was built with the
// sqlite_preupdate_hook tag go-sqlite3 requires to expose
// RegisterPreUpdateHook (spec.md §4.C "runtime predicate
// is_preupdate_hook_enabled()").
func PreupdateHookEnabled() bool { return true }

// Register installs the pre-update, commit, and rollback hooks on conn
// that turn row-level engine callbacks into committed ChangeEvents
// published through b (spec.md §4.C "Registration").
//
// Hooks run synchronously on the engine's calling thread and must not
// suspend or call back into the connection manager (spec.md §5); all they
// do is buffer or flush through b's mutex-guarded state.
func (b *Broker) Register(conn *sqlite3.SQLiteConn, cfg Config) {
	conn.RegisterPreUpdateHook(func(data sqlite3.SQLitePreUpdateData) {
		b.onPreUpdate(conn, cfg, data)
	})
	conn.RegisterCommitHook(func() int {
		return b.onCommit(conn)
	})
	conn.RegisterRollbackHook(func() {
		b.onRollback()
	})
}

func (b *Broker) onPreUpdate(conn *sqlite3.SQLiteConn, cfg Config, data sqlite3.SQLitePreUpdateData) {
	var op Operation
	switch data.Op {
	case sqlite3.SQLITE_INSERT:
		op = Insert
	case sqlite3.SQLITE_UPDATE:
		op = Update
	case sqlite3.SQLITE_DELETE:
		op = Delete
	default:
		return
	}
	if !cfg.observes(data.TableName) {
		return
	}

	rc := rawChange{
		table:     data.TableName,
		operation: op,
		oldRowID:  data.OldRowID,
		newRowID:  data.NewRowID,
	}

	n := data.Count()
	if cfg.CaptureValues {
		// Old is invalid for SQLITE_INSERT, New is invalid for
		// SQLITE_DELETE; data.Count() reports the row's column count
		// either way, not an old/new pair.
		if op != Insert {
			if old, err := scanValues(n, data.Old); err == nil {
				rc.oldValues, rc.hasOld = old, true
			}
		}
		if op != Delete {
			if nw, err := scanValues(n, data.New); err == nil {
				rc.newValues, rc.hasNew = nw, true
			}
		}
	}

	b.bufferChange(rc)
}

// onCommit resolves table info for every buffered change, builds the
// published ChangeEvents, and fans them out. It runs on the engine's
// calling thread inside the commit itself, so table-info lookups use
// context.Background() rather than a context threaded in from the
// caller's Exec/BEGIN call.
func (b *Broker) onCommit(conn *sqlite3.SQLiteConn) int {
	b.mu.Lock()
	pending := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	ctx := context.Background()
	now := time.Now()
	events := make([]ChangeEvent, 0, len(pending))
	for _, rc := range pending {
		info, err := b.tableInfoFor(ctx, conn, rc.table)
		if err != nil {
			// A schema lookup failure must not silently drop the
			// commit's notification; publish the event with an empty
			// TableInfo (so a rowid-based primary key) rather than
			// aborting the commit the engine already decided on.
			info = TableInfo{}
		}
		events = append(events, buildChangeEvent(rc, info, b.seq.next(), now))
	}
	b.publish(events)
	return 0
}

func (b *Broker) onRollback() {
	b.flushRollback()
}
