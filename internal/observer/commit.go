package observer

import (
	"context"
	"time"

	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/coltype"
)

// tableInfoFor resolves table's schema, consulting the cache first and
// falling back to a PRAGMA table_info/sqlite_master query on a miss
// (spec.md §3 "Table info cache").
func (b *Broker) tableInfoFor(ctx context.Context, conn *sqlite3.SQLiteConn, table string) (TableInfo, error) {
	if info, ok := b.tables.get(table); ok {
		return info, nil
	}
	info, exists, err := queryTableInfo(ctx, conn, table)
	if err != nil {
		return TableInfo{}, err
	}
	if !exists {
		info = TableInfo{}
	}
	b.tables.set(table, info)
	return info, nil
}

// scanValues decodes n preupdate column values using scan, which is either
// SQLitePreUpdateData.Old or .New. It scans into *interface{} destinations
// since the column's SQLite storage class, not its declared type, decides
// what comes back.
func scanValues(n int, scan func(dst ...any) error) ([]coltype.Value, error) {
	if n == 0 {
		return nil, nil
	}
	raw := make([]any, n)
	ptrs := make([]any, n)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := scan(ptrs...); err != nil {
		return nil, err
	}
	values := make([]coltype.Value, n)
	for i, d := range raw {
		v, err := coltype.FromDriverValue(d)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// buildChangeEvent turns a buffered raw change plus its resolved schema
// into the public ChangeEvent shape, applying the primary-key extraction
// rules of spec.md §4.C.
func buildChangeEvent(rc rawChange, info TableInfo, seq uint64, now time.Time) ChangeEvent {
	ev := ChangeEvent{
		Table:     rc.table,
		Operation: rc.operation,
		OldValues: rc.oldValues,
		NewValues: rc.newValues,
		Sequence:  seq,
		Timestamp: now,
	}

	rowid := rc.newRowID
	if rc.operation == Delete {
		rowid = rc.oldRowID
	}
	if !info.WithoutRowid {
		r := rowid
		ev.Rowid = &r
	}
	ev.PrimaryKey = extractPrimaryKey(rc, info, rowid)
	return ev
}

// extractPrimaryKey implements spec.md §4.C's "Primary-key extraction
// rules": the PK is read from the captured column values (new values for
// Insert/Update, old values for Delete). A rowid table with no declared PK
// uses [Integer(rowid)], and so does a rowid table with a single-column PK
// when values were not captured (rowid is known even with capture
// disabled); composite keys and WITHOUT ROWID tables need the captured
// column values and come back empty when capture is off (DESIGN.md Open
// Question 2).
func extractPrimaryKey(rc rawChange, info TableInfo, rowid int64) []coltype.Value {
	source := rc.newValues
	if rc.operation == Delete {
		source = rc.oldValues
	}
	if !info.WithoutRowid && (len(info.PKColumns) == 0 || (len(info.PKColumns) == 1 && source == nil)) {
		return []coltype.Value{coltype.IntegerValue(rowid)}
	}
	if source == nil {
		return nil
	}

	pk := make([]coltype.Value, 0, len(info.PKColumns))
	for _, idx := range info.PKColumns {
		if idx >= 0 && idx < len(source) {
			pk = append(pk, source[idx])
		}
	}
	return pk
}
