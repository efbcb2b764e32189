package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.sqlitecore.dev/core/internal/dberrors"
)

func TestTranslateSQLiteError_Nil(t *testing.T) {
	assert.Nil(t, translateSQLiteError(nil))
}

func TestTranslateSQLiteError_PassesThroughExistingDBError(t *testing.T) {
	original := dberrors.New(dberrors.DatabaseNotLoaded, "boom")
	got := translateSQLiteError(original)
	assert.Same(t, original, got)
}

func TestTranslateSQLiteError_ConstraintViolation(t *testing.T) {
	err := sqlite3.Error{Code: sqlite3.ErrConstraint}
	got := translateSQLiteError(err)
	require.NotNil(t, got)
	assert.Equal(t, dberrors.SQLiteConstraint, got.Code)
}

func TestTranslateSQLiteError_GenericSQLiteError(t *testing.T) {
	err := sqlite3.Error{Code: sqlite3.ErrBusy}
	got := translateSQLiteError(err)
	require.NotNil(t, got)
	assert.Equal(t, dberrors.SQLite, got.Code)
}

func TestTranslateSQLiteError_ContextCancelled(t *testing.T) {
	got := translateSQLiteError(context.Canceled)
	require.NotNil(t, got)
	assert.Equal(t, dberrors.Closed, got.Code)
}

func TestTranslateSQLiteError_UnknownErrorWrapsAsSQLite(t *testing.T) {
	got := translateSQLiteError(errors.New("something odd"))
	require.NotNil(t, got)
	assert.Equal(t, dberrors.SQLite, got.Code)
}
