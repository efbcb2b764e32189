//go:build sqlite_preupdate_hook

package connmgr

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/rawsql"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	dsn := "file:" + path
	m, err := newManager(path, path, dsn, cfg, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func TestManager_AcquireWriterExclusive(t *testing.T) {
	m := newTestManager(t, DefaultConfig())

	w, err := m.AcquireWriter(context.Background())
	require.NoError(t, err)

	_, err = rawsql.Exec(context.Background(), w.Conn(), "CREATE TABLE t (id INTEGER PRIMARY KEY)", nil)
	require.NoError(t, err)

	w.Release()
}

func TestManager_AcquireReaderSeesWriterCommits(t *testing.T) {
	m := newTestManager(t, DefaultConfig())

	w, err := m.AcquireWriter(context.Background())
	require.NoError(t, err)
	_, err = rawsql.Exec(context.Background(), w.Conn(), "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)
	_, err = rawsql.Exec(context.Background(), w.Conn(), "INSERT INTO t (name) VALUES (?)", []any{"alice"})
	require.NoError(t, err)
	w.Release()

	r, err := m.AcquireReader(context.Background())
	require.NoError(t, err)
	defer r.Release()

	rows, err := rawsql.Query(context.Background(), r.Conn(), "SELECT name FROM t", nil)
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, "alice", rows.Values[0][0])
}

func TestManager_ReaderCannotWrite(t *testing.T) {
	m := newTestManager(t, DefaultConfig())

	r, err := m.AcquireReader(context.Background())
	require.NoError(t, err)
	defer r.Release()

	_, err = rawsql.Exec(context.Background(), r.Conn(), "CREATE TABLE t (id INTEGER)", nil)
	assert.Error(t, err)
}

func TestManager_CloseRejectsFurtherAcquisitions(t *testing.T) {
	m := newTestManager(t, DefaultConfig())

	require.NoError(t, m.Close(context.Background()))

	_, err := m.AcquireWriter(context.Background())
	require.Error(t, err)
	assert.Equal(t, dberrors.Closed, dberrors.CodeOf(err))

	_, err = m.AcquireReader(context.Background())
	require.Error(t, err)
	assert.Equal(t, dberrors.Closed, dberrors.CodeOf(err))
}

func TestManager_CloseWaitsForOutstandingWriter(t *testing.T) {
	m := newTestManager(t, DefaultConfig())

	w, err := m.AcquireWriter(context.Background())
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() { closed <- m.Close(context.Background()) }()

	w.Release()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("close did not complete after the writer was released")
	}
}
