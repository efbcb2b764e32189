//go:build sqlite_preupdate_hook

package dispatch

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/migrate"
	"go.sqlitecore.dev/core/internal/txn"
)

func newTestDispatcher(t *testing.T, migrations []migrate.Migration) *Dispatcher {
	t.Helper()
	d := New(
		WithBaseDir(t.TempDir()),
		WithMigrations(migrations),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	t.Cleanup(func() { d.CloseAll(context.Background()) })
	return d
}

var widgetMigrations = []migrate.Migration{
	{Version: 1, Description: "create widgets", Statements: []string{
		"CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)",
	}},
}

func TestDispatcher_LoadRunsMigrationsAndIsIdempotent(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)

	resolved, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)
	assert.NotEmpty(t, resolved)

	events := d.GetMigrationEvents("app.db")
	require.Len(t, events, 2)
	assert.Equal(t, migrate.Completed, events[len(events)-1].Status)

	resolved2, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)
	assert.Equal(t, resolved, resolved2)
}

func TestDispatcher_ExecuteAndFetch(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	res, dbErr := d.Execute(context.Background(), "app.db", "INSERT INTO widgets (name) VALUES (?)", []any{"sprocket"})
	require.Nil(t, dbErr)
	assert.Equal(t, int64(1), res.RowsAffected)

	rows, dbErr := d.FetchAll(context.Background(), "app.db", "SELECT name FROM widgets", nil)
	require.Nil(t, dbErr)
	require.Len(t, rows, 1)
	name, _ := rows[0]["name"].Text()
	assert.Equal(t, "sprocket", name)

	row, dbErr := d.FetchOne(context.Background(), "app.db", "SELECT name FROM widgets WHERE name = ?", []any{"sprocket"})
	require.Nil(t, dbErr)
	require.NotNil(t, row)

	none, dbErr := d.FetchOne(context.Background(), "app.db", "SELECT name FROM widgets WHERE name = ?", []any{"missing"})
	require.Nil(t, dbErr)
	assert.Nil(t, none)
}

func TestDispatcher_FetchOneMultipleRowsFails(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	_, dbErr = d.ExecuteTransaction(context.Background(), "app.db", []txn.Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"a"}},
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"b"}},
	})
	require.Nil(t, dbErr)

	_, dbErr = d.FetchOne(context.Background(), "app.db", "SELECT name FROM widgets", nil)
	require.NotNil(t, dbErr)
	assert.Equal(t, dberrors.MultipleRows, dbErr.Code)
}

func TestDispatcher_OperationsOnUnloadedDatabaseFail(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)

	_, dbErr := d.Execute(context.Background(), "never-loaded.db", "SELECT 1", nil)
	require.NotNil(t, dbErr)
	assert.Equal(t, dberrors.DatabaseNotLoaded, dbErr.Code)
}

func TestDispatcher_ExecuteTransactionRollsBackOnError(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	_, dbErr = d.ExecuteTransaction(context.Background(), "app.db", []txn.Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"a"}},
		{Query: "INSERT INTO nonexistent (x) VALUES (1)"},
	})
	require.NotNil(t, dbErr)

	rows, dbErr := d.FetchAll(context.Background(), "app.db", "SELECT name FROM widgets", nil)
	require.Nil(t, dbErr)
	assert.Empty(t, rows)
}

func TestDispatcher_InterruptibleTransactionLifecycle(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	token, dbErr := d.ExecuteInterruptibleTransaction(context.Background(), "app.db", []txn.Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"sprocket"}},
	})
	require.Nil(t, dbErr)

	rows, dbErr := d.TransactionRead(context.Background(), token, "SELECT name FROM widgets", nil)
	require.Nil(t, dbErr)
	assert.Len(t, rows, 1)

	result, dbErr := d.TransactionContinue(context.Background(), token, Action{
		Kind: ActionContinue,
		Statements: []txn.Statement{
			{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"cog"}},
		},
	})
	require.Nil(t, dbErr)
	require.NotNil(t, result.Token)

	_, dbErr = d.TransactionContinue(context.Background(), *result.Token, Action{Kind: ActionCommit})
	require.Nil(t, dbErr)

	rows, dbErr = d.FetchAll(context.Background(), "app.db", "SELECT name FROM widgets ORDER BY name", nil)
	require.Nil(t, dbErr)
	assert.Len(t, rows, 2)
}

func TestDispatcher_InterruptibleTransactionRollback(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	token, dbErr := d.ExecuteInterruptibleTransaction(context.Background(), "app.db", []txn.Statement{
		{Query: "INSERT INTO widgets (name) VALUES (?)", Values: []any{"sprocket"}},
	})
	require.Nil(t, dbErr)

	_, dbErr = d.TransactionContinue(context.Background(), token, Action{Kind: ActionRollback})
	require.Nil(t, dbErr)

	rows, dbErr := d.FetchAll(context.Background(), "app.db", "SELECT name FROM widgets", nil)
	require.Nil(t, dbErr)
	assert.Empty(t, rows)
}

func TestDispatcher_CloseAndRemove(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	wasLoaded, dbErr := d.Close(context.Background(), "app.db")
	require.Nil(t, dbErr)
	assert.True(t, wasLoaded)

	_, dbErr = d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	wasLoaded, dbErr = d.Remove(context.Background(), "app.db")
	require.Nil(t, dbErr)
	assert.True(t, wasLoaded)
}

func TestDispatcher_SubscribeChanges(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	sub, ok := d.SubscribeChanges("app.db", nil, 8)
	require.True(t, ok)
	defer sub.Close()

	_, dbErr = d.Execute(context.Background(), "app.db", "INSERT INTO widgets (name) VALUES (?)", []any{"sprocket"})
	require.Nil(t, dbErr)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "widgets", ev.Table)
	default:
		t.Fatal("expected a buffered change event after commit")
	}
}

func TestDispatcher_SubscribeChangesUnknownDatabase(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	_, ok := d.SubscribeChanges("never-loaded.db", nil, 8)
	assert.False(t, ok)
}

func TestDispatcher_SubscribeMigrations(t *testing.T) {
	d := newTestDispatcher(t, widgetMigrations)
	ch, unsub := d.SubscribeMigrations(8)
	defer unsub()

	_, dbErr := d.Load(context.Background(), "app.db", nil)
	require.Nil(t, dbErr)

	var sawCompleted bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			if ev.Status == migrate.Completed {
				sawCompleted = true
			}
		default:
		}
	}
	assert.True(t, sawCompleted)
}
