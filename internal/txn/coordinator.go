package txn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.sqlitecore.dev/core/internal/connmgr"
	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/rawsql"
)

// Phase is one of the interruptible transaction state machine's four
// states (spec.md §4.B).
type Phase int

const (
	Open Phase = iota
	Committing
	RolledBack
	Closed
)

// record is the server-side bookkeeping for one live interruptible
// transaction (spec.md §3 "Transaction record (server-side)"). Grounded
// on original_source/src/transactions.rs's ActiveInterruptibleTransaction:
// the writer guard plus a token, with a registry keyed by database path
// enforcing at most one live transaction per database.
type record struct {
	dbPath    string
	id        uuid.UUID
	writer    *connmgr.WriterHandle
	createdAt time.Time
	phase     Phase
}

// Coordinator implements the interruptible transaction family (spec.md
// §4.B). One Coordinator is shared by every database the process loads;
// its registry enforces that at most one interruptible transaction is
// active per database path at a time (spec.md §4.B "Tie-breaks": "this
// follows automatically from the single-writer rule" — the Coordinator
// makes it an explicit, fast-failing TRANSACTION_BUSY instead of a silent
// indefinite block).
type Coordinator struct {
	conns *connmgr.Service

	mu     sync.Mutex
	active map[string]*record
}

// NewCoordinator creates a Coordinator over conns, the process-wide
// Connection Manager registry.
func NewCoordinator(conns *connmgr.Service) *Coordinator {
	return &Coordinator{conns: conns, active: make(map[string]*record)}
}

func (c *Coordinator) managerFor(dbPath string) (*connmgr.Manager, error) {
	mgr, ok := c.conns.Get(dbPath)
	if !ok {
		return nil, dberrors.Newf(dberrors.DatabaseNotLoaded, "database %q is not loaded", dbPath)
	}
	return mgr, nil
}

// Begin starts an interruptible transaction: acquires the writer, issues
// BEGIN, runs initialStatements, and returns a token identifying the live
// transaction (spec.md §4.B "begin(initial_statements)"). Any statement
// error triggers immediate rollback and writer release before the error
// is returned (spec.md §4.B "Tie-breaks").
func (c *Coordinator) Begin(ctx context.Context, dbPath string, initialStatements []Statement) (Token, error) {
	c.mu.Lock()
	if _, busy := c.active[dbPath]; busy {
		c.mu.Unlock()
		return Token{}, dberrors.Newf(dberrors.TransactionBusy,
			"an interruptible transaction is already active on %q", dbPath)
	}
	c.mu.Unlock()

	mgr, err := c.managerFor(dbPath)
	if err != nil {
		return Token{}, err
	}

	writer, err := mgr.AcquireWriter(ctx)
	if err != nil {
		return Token{}, err
	}

	rec := &record{
		dbPath:    dbPath,
		id:        uuid.New(),
		writer:    writer,
		createdAt: time.Now(),
		phase:     Open,
	}

	if _, err := rawsql.Exec(ctx, writer.Conn(), "BEGIN", nil); err != nil {
		writer.Release()
		return Token{}, err
	}
	if _, err := execStatements(ctx, writer.Conn(), initialStatements); err != nil {
		c.abort(writer)
		return Token{}, err
	}

	c.mu.Lock()
	c.active[dbPath] = rec
	c.mu.Unlock()

	return Token{DBPath: dbPath, TransactionID: rec.id.String()}, nil
}

// lookup returns the live record for token, or UnknownTransaction if it
// has no match: the database has no live transaction, or token's id is
// stale (spec.md §4.B "Reads and continues with a stale or unknown token
// fail with UnknownTransaction").
func (c *Coordinator) lookup(token Token) (*record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.active[token.DBPath]
	if !ok || rec.id.String() != token.TransactionID || rec.phase != Open {
		return nil, dberrors.New(dberrors.UnknownTransaction, "unknown or stale transaction token")
	}
	return rec, nil
}

// abort rolls back and releases the writer for a transaction that failed
// mid-phase or is being rolled back (spec.md §4.B "triggers immediate
// rollback, writer release, and terminal RolledBack"). It does not touch
// the registry: callers drop a registered record with remove (or, in
// AbortAll, by replacing the map) so subsequent calls with its token see
// UnknownTransaction.
func (c *Coordinator) abort(writer *connmgr.WriterHandle) {
	rawsql.Exec(context.Background(), writer.Conn(), "ROLLBACK", nil)
	writer.Release()
}

func (c *Coordinator) remove(dbPath string) {
	c.mu.Lock()
	delete(c.active, dbPath)
	c.mu.Unlock()
}

// Continue runs statements on the transaction token identifies and
// returns a refreshed token (spec.md §4.B "continue(token, statements)":
// "the Coordinator may reissue a new transaction_id to refresh the opaque
// handle"). A statement error rolls the transaction back and releases
// the writer; the returned error's token is the zero Token since the
// transaction no longer exists.
func (c *Coordinator) Continue(ctx context.Context, token Token, statements []Statement) (Token, []WriteResult, error) {
	rec, err := c.lookup(token)
	if err != nil {
		return Token{}, nil, err
	}

	results, err := execStatements(ctx, rec.writer.Conn(), statements)
	if err != nil {
		c.remove(token.DBPath)
		c.abort(rec.writer)
		return Token{}, results, err
	}

	c.mu.Lock()
	rec.id = uuid.New()
	newToken := Token{DBPath: rec.dbPath, TransactionID: rec.id.String()}
	c.mu.Unlock()

	return newToken, results, nil
}

// Read runs a SELECT on the same writer connection as token, so the
// caller observes its own uncommitted writes (spec.md §4.B "read runs a
// SELECT on the same writer connection").
func (c *Coordinator) Read(ctx context.Context, token Token, query string, values []any) ([]Row, error) {
	rec, err := c.lookup(token)
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, rec.writer.Conn(), query, values)
}

// Commit issues COMMIT and releases the writer, transitioning the
// transaction to its terminal Committed phase (spec.md §4.B "commit(token)").
func (c *Coordinator) Commit(ctx context.Context, token Token) error {
	rec, err := c.lookup(token)
	if err != nil {
		return err
	}

	if _, err := rawsql.Exec(ctx, rec.writer.Conn(), "COMMIT", nil); err != nil {
		c.remove(token.DBPath)
		c.abort(rec.writer)
		return err
	}

	c.remove(token.DBPath)
	rec.writer.Release()
	return nil
}

// Rollback issues ROLLBACK and releases the writer, transitioning the
// transaction to its terminal RolledBack phase (spec.md §4.B
// "rollback(token)").
func (c *Coordinator) Rollback(ctx context.Context, token Token) error {
	rec, err := c.lookup(token)
	if err != nil {
		return err
	}
	c.remove(token.DBPath)
	c.abort(rec.writer)
	return nil
}

// AbortAll rolls back and releases every live interruptible transaction,
// used on server-wide shutdown (spec.md §4.B "A server-wide shutdown
// rolls back all live transactions and then drains the manager";
// grounded on original_source/src/transactions.rs's abort_all).
func (c *Coordinator) AbortAll(ctx context.Context) {
	c.mu.Lock()
	records := make([]*record, 0, len(c.active))
	for _, rec := range c.active {
		records = append(records, rec)
	}
	c.active = make(map[string]*record)
	c.mu.Unlock()

	for _, rec := range records {
		c.abort(rec.writer)
	}
}
