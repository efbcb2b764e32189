//go:build sqlite_preupdate_hook

package connmgr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.sqlitecore.dev/core/internal/dberrors"
)

func TestService_LoadOpensFreshManager(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))

	m, fresh, err := s.Load(context.Background(), "app.db", DefaultConfig(), nil)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.FileExists(t, m.ResolvedPath())
	t.Cleanup(func() { s.CloseAll(context.Background()) })
}

func TestService_LoadIsIdempotentWithEquivalentConfig(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))
	t.Cleanup(func() { s.CloseAll(context.Background()) })

	m1, fresh1, err := s.Load(context.Background(), "app.db", DefaultConfig(), nil)
	require.NoError(t, err)
	assert.True(t, fresh1)

	m2, fresh2, err := s.Load(context.Background(), "app.db", DefaultConfig(), nil)
	require.NoError(t, err)
	assert.False(t, fresh2)
	assert.Same(t, m1, m2)
}

func TestService_LoadConflictingConfigFails(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))
	t.Cleanup(func() { s.CloseAll(context.Background()) })

	_, _, err := s.Load(context.Background(), "app.db", DefaultConfig(), nil)
	require.NoError(t, err)

	_, _, err = s.Load(context.Background(), "app.db", NewConfig(WithMaxReadConnections(99)), nil)
	require.Error(t, err)
	assert.Equal(t, dberrors.AlreadyLoaded, dberrors.CodeOf(err))
}

func TestService_LoadOnOpenFailureLeavesNothingRegistered(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))

	boom := errors.New("migration boom")
	_, _, err := s.Load(context.Background(), "app.db", DefaultConfig(), func(context.Context, string, *Manager) error {
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, dberrors.MigrationFailed, dberrors.CodeOf(err))

	_, ok := s.Get("app.db")
	assert.False(t, ok)
}

func TestService_OnOpenRunsBeforeManagerIsVisible(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))
	t.Cleanup(func() { s.CloseAll(context.Background()) })

	var sawRegistered bool
	_, _, err := s.Load(context.Background(), "app.db", DefaultConfig(), func(context.Context, string, *Manager) error {
		_, ok := s.Get("app.db")
		sawRegistered = ok
		return nil
	})
	require.NoError(t, err)
	assert.False(t, sawRegistered)

	_, ok := s.Get("app.db")
	assert.True(t, ok)
}

func TestService_CloseUnregistersManager(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))

	_, _, err := s.Load(context.Background(), "app.db", DefaultConfig(), nil)
	require.NoError(t, err)

	wasLoaded, err := s.Close(context.Background(), "app.db")
	require.NoError(t, err)
	assert.True(t, wasLoaded)

	_, ok := s.Get("app.db")
	assert.False(t, ok)

	wasLoaded, err = s.Close(context.Background(), "app.db")
	require.NoError(t, err)
	assert.False(t, wasLoaded)
}

func TestService_RemoveDeletesFileAndSidecars(t *testing.T) {
	base := t.TempDir()
	s := NewService(WithBaseDir(base))

	m, _, err := s.Load(context.Background(), "app.db", DefaultConfig(), nil)
	require.NoError(t, err)
	resolved := m.ResolvedPath()

	for _, suffix := range []string{"-wal", "-shm"} {
		require.NoError(t, os.WriteFile(resolved+suffix, []byte("x"), 0o644))
	}

	wasLoaded, err := s.Remove(context.Background(), "app.db")
	require.NoError(t, err)
	assert.True(t, wasLoaded)

	for _, suffix := range []string{"", "-wal", "-shm"} {
		_, statErr := os.Stat(resolved + suffix)
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestService_RemoveNotLoadedFails(t *testing.T) {
	s := NewService(WithBaseDir(t.TempDir()))

	_, err := s.Remove(context.Background(), "missing.db")
	require.Error(t, err)
	assert.Equal(t, dberrors.DatabaseNotLoaded, dberrors.CodeOf(err))
}

func TestService_ResolvePathCreatesContainingDirectory(t *testing.T) {
	base := t.TempDir()
	s := NewService(WithBaseDir(base))

	resolved, err := s.resolvePath(filepath.Join("nested", "dir", "app.db"))
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(resolved))
}
