package observer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/golang-lru"
	"github.com/mattn/go-sqlite3"

	"go.sqlitecore.dev/core/internal/rawsql"
)

// TableInfo is the schema knowledge the observer needs to turn raw
// pre-update column values into a primary-key tuple (spec.md §3 "Table
// info cache").
type TableInfo struct {
	// PKColumns holds column indices that form the primary key, in
	// declaration order. A rowid table with no explicit PK has an empty
	// slice here but is still addressable by rowid.
	PKColumns []int
	// WithoutRowid is true if the table was declared WITHOUT ROWID.
	WithoutRowid bool
}

// tableInfoCacheSize bounds memory for schemas that observe many tables.
// Grounded on the route cache in gazette-core's broker client, which faces
// the same hot/cold metadata shape: a handful of tables get queried on
// every write, a long tail gets queried once and never again.
const tableInfoCacheSize = 256

// tableInfoCache is a table_name -> TableInfo cache, populated lazily on
// first hook fire per table (spec.md §3).
type tableInfoCache struct {
	cache *lru.Cache
}

func newTableInfoCache() *tableInfoCache {
	c, err := lru.New(tableInfoCacheSize)
	if err != nil {
		// lru.New only fails for size <= 0, which tableInfoCacheSize never is.
		panic(fmt.Sprintf("observer: table info cache: %v", err))
	}
	return &tableInfoCache{cache: c}
}

func (c *tableInfoCache) get(table string) (TableInfo, bool) {
	v, ok := c.cache.Get(table)
	if !ok {
		return TableInfo{}, false
	}
	return v.(TableInfo), true
}

func (c *tableInfoCache) set(table string, info TableInfo) {
	c.cache.Add(table, info)
}

func (c *tableInfoCache) invalidate(table string) {
	c.cache.Remove(table)
}

var withoutRowidPattern = regexp.MustCompile(`(?i)\)\s*WITHOUT\s+ROWID\s*;?\s*$`)

// queryTableInfo introspects a table's schema via PRAGMA table_info and
// sqlite_master, mirroring sqlx-sqlite-observer/src/schema.rs. Returns
// (TableInfo{}, false) if the table does not exist.
func queryTableInfo(ctx context.Context, conn *sqlite3.SQLiteConn, table string) (TableInfo, bool, error) {
	withoutRowid, err := isWithoutRowid(ctx, conn, table)
	if err != nil {
		return TableInfo{}, false, err
	}

	pkColumns, exists, err := queryPKColumns(ctx, conn, table)
	if err != nil {
		return TableInfo{}, false, err
	}

	if !exists && !withoutRowid {
		return TableInfo{}, false, nil
	}

	return TableInfo{PKColumns: pkColumns, WithoutRowid: withoutRowid}, true, nil
}

func isWithoutRowid(ctx context.Context, conn *sqlite3.SQLiteConn, table string) (bool, error) {
	rows, err := rawsql.Query(ctx, conn,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`,
		[]any{table})
	if err != nil {
		return false, fmt.Errorf("observer: query sqlite_master: %w", err)
	}
	if len(rows.Values) == 0 {
		return false, nil
	}
	createSQL, _ := rows.Values[0][0].(string)
	return withoutRowidPattern.MatchString(createSQL), nil
}

// queryPKColumns returns the 0-based column indices making up table's
// primary key, ordered by their declared PK position, and whether the
// table exists at all.
func queryPKColumns(ctx context.Context, conn *sqlite3.SQLiteConn, table string) ([]int, bool, error) {
	rows, err := rawsql.Query(ctx, conn, "PRAGMA table_info("+quoteIdentifier(table)+")", nil)
	if err != nil {
		return nil, false, fmt.Errorf("observer: query table_info(%s): %w", table, err)
	}
	if len(rows.Values) == 0 {
		return nil, false, nil
	}

	cidIdx, pkIdx := columnIndex(rows.Columns, "cid"), columnIndex(rows.Columns, "pk")
	type pkCol struct {
		cid int
		pos int64
	}
	var pkCols []pkCol
	for _, row := range rows.Values {
		pk := asInt64(row[pkIdx])
		if pk <= 0 {
			continue
		}
		pkCols = append(pkCols, pkCol{cid: int(asInt64(row[cidIdx])), pos: pk})
	}
	// Stable-sort by declared PK position so composite keys come out in
	// declaration order, not table_info's natural column order.
	for i := 1; i < len(pkCols); i++ {
		for j := i; j > 0 && pkCols[j-1].pos > pkCols[j].pos; j-- {
			pkCols[j-1], pkCols[j] = pkCols[j], pkCols[j-1]
		}
	}

	indices := make([]int, len(pkCols))
	for i, pc := range pkCols {
		indices[i] = pc.cid
	}
	return indices, true, nil
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	default:
		return 0
	}
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
