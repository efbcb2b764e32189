//go:build sqlite_preupdate_hook

package txn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.sqlitecore.dev/core/internal/dberrors"
)

func TestCoordinator_BeginCommit(t *testing.T) {
	s := newTestService(t)
	mgr := loadTestDB(t, s, "tx.db")
	mustCreateTable(t, mgr)

	c := NewCoordinator(s)
	token, err := c.Begin(context.Background(), "tx.db", []Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"sprocket"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.TransactionID)

	rows, err := c.Read(context.Background(), token, "SELECT name FROM widgets", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, c.Commit(context.Background(), token))

	// Committed data is visible to a fresh reader.
	reader, err := mgr.AcquireReader(context.Background())
	require.NoError(t, err)
	defer reader.Release()
	rows, err = queryRows(context.Background(), reader.Conn(), "SELECT name FROM widgets", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCoordinator_BeginFailsWhenDatabaseNotLoaded(t *testing.T) {
	s := newTestService(t)
	c := NewCoordinator(s)

	_, err := c.Begin(context.Background(), "nope.db", nil)
	require.Error(t, err)
	assert.Equal(t, dberrors.DatabaseNotLoaded, dberrors.CodeOf(err))
}

func TestCoordinator_OnlyOneActiveTransactionPerDatabase(t *testing.T) {
	s := newTestService(t)
	mgr := loadTestDB(t, s, "tx.db")
	mustCreateTable(t, mgr)

	c := NewCoordinator(s)
	token, err := c.Begin(context.Background(), "tx.db", nil)
	require.NoError(t, err)

	_, err = c.Begin(context.Background(), "tx.db", nil)
	require.Error(t, err)
	assert.Equal(t, dberrors.TransactionBusy, dberrors.CodeOf(err))

	require.NoError(t, c.Commit(context.Background(), token))

	// Released after the first one commits.
	token2, err := c.Begin(context.Background(), "tx.db", nil)
	require.NoError(t, err)
	require.NoError(t, c.Rollback(context.Background(), token2))
}

func TestCoordinator_ContinueReissuesToken(t *testing.T) {
	s := newTestService(t)
	mgr := loadTestDB(t, s, "tx.db")
	mustCreateTable(t, mgr)

	c := NewCoordinator(s)
	token, err := c.Begin(context.Background(), "tx.db", nil)
	require.NoError(t, err)

	newToken, results, err := c.Continue(context.Background(), token, []Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"cog"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEqual(t, token.TransactionID, newToken.TransactionID)
	assert.Equal(t, token.DBPath, newToken.DBPath)

	// The old token no longer resolves.
	_, err = c.Read(context.Background(), token, "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, dberrors.UnknownTransaction, dberrors.CodeOf(err))

	require.NoError(t, c.Commit(context.Background(), newToken))
}

func TestCoordinator_ContinueStatementErrorRollsBackAndFreesDatabase(t *testing.T) {
	s := newTestService(t)
	mgr := loadTestDB(t, s, "tx.db")
	mustCreateTable(t, mgr)

	c := NewCoordinator(s)
	token, err := c.Begin(context.Background(), "tx.db", nil)
	require.NoError(t, err)

	_, _, err = c.Continue(context.Background(), token, []Statement{
		{Query: "INSERT INTO nonexistent_table (name) VALUES (?)", Values: []any{"x"}},
	})
	require.Error(t, err)

	// The registry slot is freed, so a new transaction can begin immediately.
	token2, err := c.Begin(context.Background(), "tx.db", nil)
	require.NoError(t, err)
	require.NoError(t, c.Rollback(context.Background(), token2))
}

func TestCoordinator_RollbackDiscardsWrites(t *testing.T) {
	s := newTestService(t)
	mgr := loadTestDB(t, s, "tx.db")
	mustCreateTable(t, mgr)

	c := NewCoordinator(s)
	token, err := c.Begin(context.Background(), "tx.db", []Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"sprocket"}},
	})
	require.NoError(t, err)
	require.NoError(t, c.Rollback(context.Background(), token))

	reader, err := mgr.AcquireReader(context.Background())
	require.NoError(t, err)
	defer reader.Release()
	rows, err := queryRows(context.Background(), reader.Conn(), "SELECT name FROM widgets", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCoordinator_UnknownTokenFails(t *testing.T) {
	s := newTestService(t)
	loadTestDB(t, s, "tx.db")

	c := NewCoordinator(s)
	_, err := c.Read(context.Background(), Token{DBPath: "tx.db", TransactionID: "bogus"}, "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, dberrors.UnknownTransaction, dberrors.CodeOf(err))
}

func TestCoordinator_AbortAllRollsBackEveryLiveTransaction(t *testing.T) {
	s := newTestService(t)
	mgrA := loadTestDB(t, s, "a.db")
	mgrB := loadTestDB(t, s, "b.db")
	mustCreateTable(t, mgrA)
	mustCreateTable(t, mgrB)

	c := NewCoordinator(s)
	tokenA, err := c.Begin(context.Background(), "a.db", []Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"x"}},
	})
	require.NoError(t, err)
	tokenB, err := c.Begin(context.Background(), "b.db", nil)
	require.NoError(t, err)

	c.AbortAll(context.Background())

	_, err = c.Read(context.Background(), tokenA, "SELECT 1", nil)
	assert.Equal(t, dberrors.UnknownTransaction, dberrors.CodeOf(err))
	_, err = c.Read(context.Background(), tokenB, "SELECT 1", nil)
	assert.Equal(t, dberrors.UnknownTransaction, dberrors.CodeOf(err))

	// Writers were released, so both databases accept new transactions.
	w, err := mgrA.AcquireWriter(context.Background())
	require.NoError(t, err)
	w.Release()
}
