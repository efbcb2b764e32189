package connmgr

import (
	"context"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/observer"
)

// Manager owns the writer connection and reader pool for one database
// identity (spec.md §4.A). One Manager exists per logical path for the
// process's lifetime (spec.md §3 "Database identity").
type Manager struct {
	path         string
	resolvedPath string
	dsn          string
	cfg          Config
	log          *slog.Logger

	writerConn  *sqlite3.SQLiteConn
	writerQueue *fifoQueue
	readers     *readerPool
	broker      *observer.Broker
	metrics     Metrics

	closedMu chan struct{} // 1-buffered mutex guarding closed
	closed   bool
}

// newManager opens the writer connection, installs the Change Observer's
// hooks on it, and creates the reader pool. It does not run migrations or
// register itself anywhere; that is Service.Load's job (spec.md §4.A
// "load").
func newManager(path, resolvedPath, dsn string, cfg Config, metrics Metrics, brokerMetrics observer.BrokerMetrics, logger *slog.Logger) (*Manager, error) {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if !observer.PreupdateHookEnabled() {
		return nil, dberrors.New(dberrors.PreupdateHookUnavailable,
			"go-sqlite3 was not built with the sqlite_preupdate_hook tag")
	}

	conn, err := openWriterConn(dsn)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.IOError, "open writer connection", err)
	}

	broker := observer.NewBroker(brokerMetrics)
	broker.Register(conn, cfg.Observer)

	m := &Manager{
		path:         path,
		resolvedPath: resolvedPath,
		dsn:          dsn,
		cfg:         cfg,
		log:         logger,
		writerConn:  conn,
		writerQueue: newFIFOQueue(),
		readers:     newReaderPool(dsn, cfg.MaxReadConnections, cfg.IdleTimeout),
		broker:      broker,
		metrics:     metrics,
		closedMu:    make(chan struct{}, 1),
	}
	m.closedMu <- struct{}{}
	return m, nil
}

// Broker exposes the Change Observer's broadcast broker so the
// Transaction Coordinator and dispatch layer can subscribe to committed
// changes (spec.md §4.C).
func (m *Manager) Broker() *observer.Broker { return m.broker }

// Path returns the logical database path this Manager serves.
func (m *Manager) Path() string { return m.path }

// ResolvedPath returns the on-disk path the logical path resolved to
// (spec.md §6 "load" result: "resolved db path").
func (m *Manager) ResolvedPath() string { return m.resolvedPath }

func (m *Manager) isClosed() bool {
	<-m.closedMu
	c := m.closed
	m.closedMu <- struct{}{}
	return c
}

// AcquireReader blocks until a reader connection is available, or ctx is
// cancelled (spec.md §4.A "acquire_reader").
func (m *Manager) AcquireReader(ctx context.Context) (*ReaderHandle, error) {
	if m.isClosed() {
		return nil, dberrors.New(dberrors.Closed, "database is closed")
	}

	r, err := m.readers.acquire(ctx)
	if err != nil {
		return nil, err
	}
	m.metrics.ReaderAcquired()
	return &ReaderHandle{pool: m.readers, reader: r, metrics: m.metrics}, nil
}

// AcquireWriter blocks until the writer connection is available, or ctx is
// cancelled (spec.md §4.A "acquire_writer"). At most one outstanding at a
// time; subsequent requests queue FIFO (spec.md §8, invariants 1 and 5).
func (m *Manager) AcquireWriter(ctx context.Context) (*WriterHandle, error) {
	if m.isClosed() {
		return nil, dberrors.New(dberrors.Closed, "database is closed")
	}

	if err := m.writerQueue.acquire(ctx); err != nil {
		return nil, err
	}
	m.metrics.WriterAcquired()
	return &WriterHandle{mgr: m, conn: m.writerConn}, nil
}

func (m *Manager) releaseWriter() {
	m.metrics.WriterReleased()
	m.writerQueue.release()
}

// Close transitions to draining: rejects new acquisitions with Closed,
// waits for outstanding handles to drop, then disposes of connections
// (spec.md §4.A "close"). Closing an already-closed Manager returns nil;
// Service.Close is what reports whether the database had been loaded.
func (m *Manager) Close(ctx context.Context) error {
	<-m.closedMu
	if m.closed {
		m.closedMu <- struct{}{}
		return nil
	}
	m.closed = true
	m.closedMu <- struct{}{}

	// Wait for the writer to become free, then hold it forever so no
	// further acquisition can proceed.
	if err := m.writerQueue.acquire(ctx); err != nil {
		return err
	}
	// Wait for every checked-out reader to come back to the pool.
	for {
		m.readers.lock()
		busy := m.readers.opened - len(m.readers.idle)
		m.readers.unlock()
		if busy <= 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	m.readers.closeAll()
	return m.writerConn.Close()
}
