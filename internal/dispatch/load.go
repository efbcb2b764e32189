package dispatch

import (
	"context"
	"time"

	"go.sqlitecore.dev/core/internal/connmgr"
	"go.sqlitecore.dev/core/internal/dberrors"
)

// LoadOptions mirrors spec.md §6 load's optional
// custom_config {max_read_connections, idle_timeout_secs}.
type LoadOptions struct {
	MaxReadConnections *int
	IdleTimeoutSecs    *int
	Tables             []string
	CaptureValues      *bool
}

func (o *LoadOptions) toConfig() connmgr.Config {
	cfg := connmgr.DefaultConfig()
	if o == nil {
		return cfg
	}
	if o.MaxReadConnections != nil {
		cfg.MaxReadConnections = *o.MaxReadConnections
	}
	if o.IdleTimeoutSecs != nil {
		cfg.IdleTimeout = time.Duration(*o.IdleTimeoutSecs) * time.Second
	}
	if o.Tables != nil {
		cfg.Observer.Tables = o.Tables
	}
	if o.CaptureValues != nil {
		cfg.Observer.CaptureValues = *o.CaptureValues
	}
	return cfg
}

// Load resolves db's path, opens its writer/reader pool, and runs pending
// migrations under the Migration Runner before returning the resolved
// path (spec.md §4.A "load"). Idempotent: a repeat call with an
// equivalent config returns the same resolved path without re-running
// migrations.
func (d *Dispatcher) Load(ctx context.Context, db string, opts *LoadOptions) (string, *dberrors.Error) {
	cfg := opts.toConfig()

	onOpen := func(ctx context.Context, path string, mgr *connmgr.Manager) error {
		writer, err := mgr.AcquireWriter(ctx)
		if err != nil {
			return err
		}
		defer writer.Release()
		return d.migRunner.Run(ctx, writer.Conn(), path, d.migrations)
	}

	mgr, _, err := d.conns.Load(ctx, db, cfg, onOpen)
	if err != nil {
		return "", translateSQLiteError(err)
	}
	return mgr.ResolvedPath(), nil
}
