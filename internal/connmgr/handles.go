package connmgr

import (
	"sync"

	"github.com/mattn/go-sqlite3"
)

// ReaderHandle is a scoped, exclusive lease on one reader connection
// (spec.md §4.A "acquire_reader"). Reader handles must not begin
// transactions or acquire write locks. Reader connections are opened with
// PRAGMA query_only, so write statements on them fail; beginning a
// transaction is not checked (spec.md §4.A: "it is the caller's contract").
type ReaderHandle struct {
	pool     *readerPool
	reader   *pooledReader
	metrics  Metrics
	released sync.Once
}

// Conn returns the underlying raw connection for statement execution.
func (h *ReaderHandle) Conn() *sqlite3.SQLiteConn { return h.reader.conn }

// Release returns the reader connection to the pool. Safe to call more
// than once; only the first call has effect.
func (h *ReaderHandle) Release() {
	h.released.Do(func() {
		h.pool.release(h.reader)
		h.metrics.ReaderReleased()
	})
}

// WriterHandle is a scoped, exclusive lease on the single writer
// connection (spec.md §4.A "acquire_writer"). At most one is outstanding
// per database at any instant (spec.md §8, invariant 1); the Transaction
// Coordinator holds one for a transaction's entire lifetime across
// multiple asynchronous calls.
type WriterHandle struct {
	mgr      *Manager
	conn     *sqlite3.SQLiteConn
	released sync.Once
}

// Conn returns the underlying raw connection for statement execution.
func (h *WriterHandle) Conn() *sqlite3.SQLiteConn { return h.conn }

// Release relinquishes the writer lock, letting the next FIFO waiter (or
// the next acquire_writer/begin call) proceed. Safe to call more than
// once; only the first call has effect.
func (h *WriterHandle) Release() {
	h.released.Do(func() {
		h.mgr.releaseWriter()
	})
}
