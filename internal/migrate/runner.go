package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/rawsql"
)

// Runner applies pending migrations on load, publishing and caching the
// three event kinds spec.md §4.D names (spec.md §4.D "Migration Runner").
type Runner struct {
	bus   *EventBus
	cache *Cache
	log   *slog.Logger
}

// NewRunner creates a Runner backed by bus and cache, both shared across
// every database the process loads.
func NewRunner(bus *EventBus, cache *Cache, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{bus: bus, cache: cache, log: logger}
}

// Run applies every migration in migrations whose Version exceeds conn's
// current PRAGMA user_version, in ascending version order. Each migration
// commits under its own BEGIN/COMMIT frame (spec.md §4.D: "it applies each
// pending migration in order", matching the source migrator's
// one-transaction-per-migration discipline). A failure partway through the
// pending set rolls back only that migration; every migration that already
// committed stays applied, so the database remains at the last
// successfully-applied version rather than reverting to where it started
// (spec.md §7 "MIGRATION_FAILED", §8 scenario 6).
func (r *Runner) Run(ctx context.Context, conn *sqlite3.SQLiteConn, dbPath string, migrations []Migration) error {
	r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Running, Timestamp: time.Now()})

	current, err := userVersion(ctx, conn)
	if err != nil {
		dbErr := dberrors.Wrap(dberrors.MigrationFailed, "read PRAGMA user_version", err)
		r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Failed, Error: dbErr.Error(), Timestamp: time.Now()})
		return dbErr
	}

	pending := sortedPending(migrations, current)
	if len(pending) == 0 {
		r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Completed, MigrationCount: len(migrations), Timestamp: time.Now()})
		return nil
	}

	for _, m := range pending {
		if dbErr := r.runOne(ctx, conn, dbPath, m); dbErr != nil {
			return dbErr
		}
	}

	r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Completed, MigrationCount: len(migrations), Timestamp: time.Now()})
	return nil
}

// runOne applies m's statements and bumps user_version under one
// BEGIN/COMMIT frame of its own, so a failure here never touches a
// migration that already committed.
func (r *Runner) runOne(ctx context.Context, conn *sqlite3.SQLiteConn, dbPath string, m Migration) error {
	if _, err := rawsql.Exec(ctx, conn, "BEGIN", nil); err != nil {
		dbErr := dberrors.Wrap(dberrors.MigrationFailed, "begin migration transaction", err)
		r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Failed, Error: dbErr.Error(), Timestamp: time.Now()})
		return dbErr
	}

	for _, stmt := range m.Statements {
		if _, err := rawsql.Exec(ctx, conn, stmt, nil); err != nil {
			rawsql.Exec(ctx, conn, "ROLLBACK", nil)
			dbErr := dberrors.Wrap(dberrors.MigrationFailed,
				fmt.Sprintf("migration %d (%s): %s", m.Version, m.Description, stmt), err)
			r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Failed, Error: dbErr.Error(), Timestamp: time.Now()})
			return dbErr
		}
	}
	if err := setUserVersion(ctx, conn, m.Version); err != nil {
		rawsql.Exec(ctx, conn, "ROLLBACK", nil)
		dbErr := dberrors.Wrap(dberrors.MigrationFailed, "set PRAGMA user_version", err)
		r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Failed, Error: dbErr.Error(), Timestamp: time.Now()})
		return dbErr
	}

	if _, err := rawsql.Exec(ctx, conn, "COMMIT", nil); err != nil {
		dbErr := dberrors.Wrap(dberrors.MigrationFailed, "commit migration transaction", err)
		r.emit(Event{ID: uuid.New(), DBPath: dbPath, Status: Failed, Error: dbErr.Error(), Timestamp: time.Now()})
		return dbErr
	}
	return nil
}

func (r *Runner) emit(ev Event) {
	r.cache.Append(ev)
	r.bus.Publish(ev)
	switch ev.Status {
	case Failed:
		r.log.Error("migration failed", "db", ev.DBPath, "error", ev.Error)
	default:
		r.log.Info("migration "+string(ev.Status), "db", ev.DBPath, "count", ev.MigrationCount)
	}
}

func userVersion(ctx context.Context, conn *sqlite3.SQLiteConn) (int, error) {
	rows, err := rawsql.Query(ctx, conn, "PRAGMA user_version", nil)
	if err != nil {
		return 0, err
	}
	if len(rows.Values) == 0 {
		return 0, nil
	}
	switch v := rows.Values[0][0].(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("migrate: unexpected user_version type %T", v)
	}
}

func setUserVersion(ctx context.Context, conn *sqlite3.SQLiteConn, version int) error {
	_, err := rawsql.Exec(ctx, conn, fmt.Sprintf("PRAGMA user_version = %d", version), nil)
	return err
}
