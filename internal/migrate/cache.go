package migrate

import "sync"

// Cache is the append-only, per-database migration event trail retained
// for the process's lifetime (spec.md §3 "Migration events", §4.D: "This
// removes the race where a frontend subscriber registers after migrations
// have already finished").
type Cache struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{events: make(map[string][]Event)}
}

// Append adds ev to dbPath's trail.
func (c *Cache) Append(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[ev.DBPath] = append(c.events[ev.DBPath], ev)
}

// Get returns dbPath's full event trail in emission order, or nil if
// nothing has been recorded for it yet.
func (c *Cache) Get(dbPath string) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	events := c.events[dbPath]
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
