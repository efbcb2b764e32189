// Package metrics wires the core's pool and observer signals into
// Prometheus, implementing the connmgr.Metrics and observer.BrokerMetrics
// interfaces those packages define so they never import Prometheus
// directly (spec.md §10 "DOMAIN STACK").
//
// Grounded on _examples/grimm-is-glacic/internal/metrics/prometheus.go's
// promauto-based registry with a package-level sync.Once singleton,
// scoped down to this core's gauges and counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.sqlitecore.dev/core/internal/observer"
)

// Registry holds every metric the core exports.
type Registry struct {
	WritersHeld   prometheus.Gauge
	ReadersInUse  *prometheus.GaugeVec
	WriterWaits   prometheus.Counter
	EventsPub     *prometheus.CounterVec
	EventsDropped prometheus.Counter
}

var (
	once sync.Once
	reg  *Registry
)

// Get returns the process-wide metrics registry, creating and registering
// it with the default Prometheus registerer on first use.
func Get() *Registry {
	once.Do(func() {
		reg = newRegistry()
	})
	return reg
}

func newRegistry() *Registry {
	return &Registry{
		WritersHeld: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sqlitecore_writers_held",
			Help: "Number of writer connections currently checked out (0 or 1 per database).",
		}),
		ReadersInUse: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sqlitecore_readers_in_use",
			Help: "Number of reader connections currently checked out, per database.",
		}, []string{"db"}),
		WriterWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sqlitecore_writer_acquisitions_total",
			Help: "Total number of successful writer acquisitions.",
		}),
		EventsPub: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlitecore_change_events_published_total",
			Help: "Committed change events published by the observer, by table and operation.",
		}, []string{"table", "operation"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sqlitecore_change_events_dropped_total",
			Help: "Change events dropped because a subscriber fell behind.",
		}),
	}
}

// poolMetrics adapts Registry to connmgr.Metrics for one database.
type poolMetrics struct {
	db  string
	reg *Registry
}

// ForDatabase returns connmgr.Metrics and observer.BrokerMetrics
// implementations scoped to one database's label values.
func (r *Registry) ForDatabase(db string) (*poolMetrics, observer.BrokerMetrics) {
	pm := &poolMetrics{db: db, reg: r}
	return pm, brokerMetrics{reg: r}
}

func (p *poolMetrics) WriterAcquired() {
	p.reg.WritersHeld.Inc()
	p.reg.WriterWaits.Inc()
}
func (p *poolMetrics) WriterReleased() { p.reg.WritersHeld.Dec() }
func (p *poolMetrics) ReaderAcquired() { p.reg.ReadersInUse.WithLabelValues(p.db).Inc() }
func (p *poolMetrics) ReaderReleased() { p.reg.ReadersInUse.WithLabelValues(p.db).Dec() }

type brokerMetrics struct {
	reg *Registry
}

func (b brokerMetrics) EventsPublished(table string, op observer.Operation) {
	b.reg.EventsPub.WithLabelValues(table, op.String()).Inc()
}

func (b brokerMetrics) EventsDropped(count int) {
	b.reg.EventsDropped.Add(float64(count))
}
