package connmgr

// Metrics receives pool occupancy signals; internal/metrics implements
// this against Prometheus gauges without connmgr importing that package
// directly.
type Metrics interface {
	WriterAcquired()
	WriterReleased()
	ReaderAcquired()
	ReaderReleased()
}

type noopMetrics struct{}

func (noopMetrics) WriterAcquired() {}
func (noopMetrics) WriterReleased() {}
func (noopMetrics) ReaderAcquired() {}
func (noopMetrics) ReaderReleased() {}
