// Package migrate implements the Migration Runner & Event Cache
// (spec.md §4.D): on load, applies an embedded, ordered set of migrations
// under PRAGMA user_version, emitting Running/Completed/Failed events into
// both a live broadcast stream and an append-only per-database cache that
// late subscribers can still retrieve in full.
package migrate

// Migration is one forward-only schema change, applied when its Version
// exceeds the database's current PRAGMA user_version (spec.md §4.E,
// recovered from original_source/src/wrapper.rs: Tauri's SQL plugin
// tracks migrations as an ordered {version, description, sql} list rather
// than the bare "embedded, ordered list... keyed by version" the
// distilled spec only gestures at).
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// sortedPending returns migrations whose Version exceeds current,
// ascending by Version. The caller is responsible for supplying a set
// with unique versions; sortedPending does not itself enforce that.
func sortedPending(migrations []Migration, current int) []Migration {
	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	for i := 1; i < len(pending); i++ {
		for j := i; j > 0 && pending[j-1].Version > pending[j].Version; j-- {
			pending[j-1], pending[j] = pending[j], pending[j-1]
		}
	}
	return pending
}
