//go:build !sqlite_preupdate_hook

package observer

import "github.com/mattn/go-sqlite3"

// PreupdateHookEnabled reports whether this binary was built with the
// sqlite_preupdate_hook tag go-sqlite3 requires to expose
// RegisterPreUpdateHook (spec.md §4.C "runtime predicate
// is_preupdate_hook_enabled()").
func PreupdateHookEnabled() bool { return false }

// Register is a no-op in builds without the preupdate hook; callers must
// check PreupdateHookEnabled before acquiring an observable writer and
// fail fast with dberrors.PreupdateHookUnavailable (spec.md §4.C
// "Preconditions and failure modes").
func (b *Broker) Register(conn *sqlite3.SQLiteConn, cfg Config) {}
