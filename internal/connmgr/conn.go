package connmgr

import (
	"context"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/rawsql"
)

// writerPragmas are applied to the single writer connection: WAL mode for
// concurrent readers, foreign-key enforcement, and a busy timeout so a
// reader briefly racing a checkpoint doesn't surface as SQLITE_BUSY
// (spec.md §4.A "opens the writer in WAL mode, applies foreign-key
// enforcement pragma").
var writerPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// readerPragmas mirror the writer's durability-relevant settings that are
// per-connection in SQLite (foreign_keys, busy_timeout); journal_mode is
// database-wide and only needs setting once via the writer.
var readerPragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA query_only = ON",
}

func openRawConn(dsn string) (*sqlite3.SQLiteConn, error) {
	driverConn, err := (&sqlite3.SQLiteDriver{}).Open(dsn)
	if err != nil {
		return nil, err
	}
	conn, ok := driverConn.(*sqlite3.SQLiteConn)
	if !ok {
		return nil, fmt.Errorf("connmgr: unexpected driver connection type %T", driverConn)
	}
	return conn, nil
}

func applyPragmas(conn *sqlite3.SQLiteConn, pragmas []string) error {
	ctx := context.Background()
	for _, p := range pragmas {
		if _, err := rawsql.Exec(ctx, conn, p, nil); err != nil {
			return fmt.Errorf("connmgr: %s: %w", p, err)
		}
	}
	return nil
}

func openWriterConn(dsn string) (*sqlite3.SQLiteConn, error) {
	conn, err := openRawConn(dsn)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(conn, writerPragmas); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func openReaderConn(dsn string) (*sqlite3.SQLiteConn, error) {
	conn, err := openRawConn(dsn)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(conn, readerPragmas); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
