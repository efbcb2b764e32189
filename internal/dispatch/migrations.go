package dispatch

import (
	"go.sqlitecore.dev/core/internal/migrate"
	"go.sqlitecore.dev/core/internal/observer"
)

// GetMigrationEvents returns db's full migration event trail, retrievable
// even when called long after load finished (spec.md §6
// "get_migration_events", §4.D "This removes the race where a frontend
// subscriber registers after migrations have already finished").
func (d *Dispatcher) GetMigrationEvents(db string) []migrate.Event {
	return d.migCache.Get(db)
}

// SubscribeMigrations registers a live receiver on the sqlite:migration
// event stream (spec.md §6 "Event channel"). Call the returned function
// to unsubscribe.
func (d *Dispatcher) SubscribeMigrations(capacity int) (<-chan migrate.Event, func()) {
	return d.migBus.Subscribe(capacity)
}

// SubscribeChanges registers a live receiver on db's committed-change
// stream (spec.md §4.C). The RPC bridge that would carry this to a UI
// process is out of scope (spec.md §1); this is the in-process API other
// Go code embeds against.
func (d *Dispatcher) SubscribeChanges(db string, tables []string, capacity int) (*observer.Subscription, bool) {
	mgr, found := d.conns.Get(db)
	if !found {
		return nil, false
	}
	return mgr.Broker().Subscribe(tables, capacity), true
}
