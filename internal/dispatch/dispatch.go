// Package dispatch implements the in-process command bus spec.md §6
// describes: one method per command, each returning a typed result or a
// *dberrors.Error envelope. The RPC bridge that would carry these across
// a process boundary is explicitly out of scope (spec.md §1); any
// embedding host — here, internal/cli — turns the returned pair into
// whatever wire shape it needs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/connmgr"
	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/metrics"
	"go.sqlitecore.dev/core/internal/migrate"
	"go.sqlitecore.dev/core/internal/observer"
	"go.sqlitecore.dev/core/internal/txn"
)

// Dispatcher owns every cooperating component (spec.md §2) and is the
// single entry point an embedding host drives.
type Dispatcher struct {
	conns      *connmgr.Service
	txns       *txn.Coordinator
	migrations []migrate.Migration
	migRunner  *migrate.Runner
	migCache   *migrate.Cache
	migBus     *migrate.EventBus
	metrics    *metrics.Registry
	log        *slog.Logger
}

// Option configures a Dispatcher at construction time.
type Option func(*config)

type config struct {
	baseDir    string
	migrations []migrate.Migration
	logger     *slog.Logger
}

// WithBaseDir sets the directory logical database paths resolve against.
func WithBaseDir(dir string) Option { return func(c *config) { c.baseDir = dir } }

// WithMigrations sets the embedded, ordered migration set applied on
// every load (spec.md §4.D).
func WithMigrations(migrations []migrate.Migration) Option {
	return func(c *config) { c.migrations = migrations }
}

// WithLogger injects a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// New wires the Connection Manager registry, Transaction Coordinator,
// Migration Runner, and a shared Prometheus registry into one Dispatcher.
func New(opts ...Option) *Dispatcher {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	reg := metrics.Get()
	conns := connmgr.NewService(
		connmgr.WithBaseDir(cfg.baseDir),
		connmgr.WithLogger(cfg.logger),
		connmgr.WithMetricsFactory(func(path string) (connmgr.Metrics, observer.BrokerMetrics) {
			return reg.ForDatabase(path)
		}),
	)
	bus := migrate.NewEventBus()
	cache := migrate.NewCache()

	return &Dispatcher{
		conns:      conns,
		txns:       txn.NewCoordinator(conns),
		migrations: cfg.migrations,
		migRunner:  migrate.NewRunner(bus, cache, cfg.logger),
		migCache:   cache,
		migBus:     bus,
		metrics:    reg,
		log:        cfg.logger,
	}
}

// translateSQLiteError classifies a raw error from the SQLite driver into
// the core's {code, message} taxonomy (spec.md §7): constraint violations
// get their own code, and every native error keeps its SQLite extended
// result code in SQLiteCode.
func translateSQLiteError(err error) *dberrors.Error {
	if err == nil {
		return nil
	}
	var dbErr *dberrors.Error
	if errors.As(err, &dbErr) {
		return dbErr
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		// Preserve the engine's own numeric extended result code
		// (spec.md §7 "engine-reported errors pass through with their
		// native code preserved"), not the formatted message.
		nativeCode := fmt.Sprintf("%d", int(sqliteErr.ExtendedCode))
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return &dberrors.Error{
				Code:       dberrors.SQLiteConstraint,
				Message:    sqliteErr.Error(),
				Cause:      err,
				SQLiteCode: nativeCode,
			}
		}
		return &dberrors.Error{
			Code:       dberrors.SQLite,
			Message:    sqliteErr.Error(),
			Cause:      err,
			SQLiteCode: nativeCode,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dberrors.Wrap(dberrors.Closed, "operation cancelled", err)
	}
	return dberrors.Wrap(dberrors.SQLite, "sqlite operation failed", err)
}
