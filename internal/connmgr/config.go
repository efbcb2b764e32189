// Package connmgr implements the Connection Manager (spec.md §4.A): for a
// single database identity, exactly one long-lived writer connection
// guarded by an exclusive-acquire primitive, plus a bounded pool of reader
// connections guarded by a shared-acquire primitive.
package connmgr

import (
	"time"

	"go.sqlitecore.dev/core/internal/observer"
)

// DefaultMaxReadConnections matches typical UI concurrency (spec.md §9
// "Design Notes").
const DefaultMaxReadConnections = 6

// DefaultIdleTimeout is how long an idle reader may sit in the pool before
// it is eligible for reclamation (spec.md §3).
const DefaultIdleTimeout = 30 * time.Second

// Config holds the per-database overrides a caller may supply to load
// (spec.md §6 "custom_config {max_read_connections, idle_timeout_secs}").
type Config struct {
	MaxReadConnections int
	IdleTimeout        time.Duration
	Observer           observer.Config
}

// ConfigOption mutates a Config being built by NewConfig.
type ConfigOption func(*Config)

// WithMaxReadConnections overrides the reader pool's capacity.
func WithMaxReadConnections(n int) ConfigOption {
	return func(c *Config) { c.MaxReadConnections = n }
}

// WithIdleTimeout overrides how long idle readers may be kept warm.
func WithIdleTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.IdleTimeout = d }
}

// WithObserverConfig overrides the Change Observer's table allow-list and
// value-capture behavior for this database.
func WithObserverConfig(oc observer.Config) ConfigOption {
	return func(c *Config) { c.Observer = oc }
}

// DefaultConfig returns the defaults spec.md §3 documents.
func DefaultConfig() Config {
	return Config{
		MaxReadConnections: DefaultMaxReadConnections,
		IdleTimeout:        DefaultIdleTimeout,
		Observer:           observer.DefaultConfig(),
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...ConfigOption) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Equal reports whether two configs are equivalent for the purposes of
// load's idempotence check (spec.md §4.A: "fails with AlreadyLoaded if an
// identity is re-registered with a conflicting config").
func (c Config) Equal(other Config) bool {
	if c.MaxReadConnections != other.MaxReadConnections || c.IdleTimeout != other.IdleTimeout {
		return false
	}
	if c.Observer.CaptureValues != other.Observer.CaptureValues {
		return false
	}
	if c.Observer.ChannelCapacity != other.Observer.ChannelCapacity {
		return false
	}
	if len(c.Observer.Tables) != len(other.Observer.Tables) {
		return false
	}
	for i, t := range c.Observer.Tables {
		if other.Observer.Tables[i] != t {
			return false
		}
	}
	return true
}
