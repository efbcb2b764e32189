package observer

// Config controls what the Change Observer tracks and whether it captures
// column values.
type Config struct {
	// Tables restricts observation to these table names. Empty means
	// observe every table (spec.md §4.C: "all of them, in this core").
	Tables []string

	// CaptureValues controls whether the pre-update hook records full
	// old/new column values (true) or only (table, operation, rowid)
	// (false). See spec.md §4.C "Value-capture toggle" and DESIGN.md's
	// Open Question 2 for the documented limitation of the false case.
	CaptureValues bool

	// ChannelCapacity is compared when a database is loaded again
	// (connmgr.Config.Equal); the Broker does not read it. Each
	// subscriber's backlog is the capacity passed to Broker.Subscribe
	// (DefaultChannelCapacity when that is zero or less); a subscriber that
	// falls that far behind starts losing its oldest buffered events
	// (spec.md §4.C "Broadcast discipline").
	ChannelCapacity int
}

// DefaultChannelCapacity accommodates a typical multi-statement transaction
// without the producer ever blocking on a live subscriber.
const DefaultChannelCapacity = 256

// DefaultConfig observes every table with full value capture.
func DefaultConfig() Config {
	return Config{
		CaptureValues:   true,
		ChannelCapacity: DefaultChannelCapacity,
	}
}

func (c Config) observes(table string) bool {
	if len(c.Tables) == 0 {
		return true
	}
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
