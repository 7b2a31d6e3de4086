package interfaces

// MetricsRegistry collects in-process counters and histograms
type MetricsRegistry interface {
	// IncrCounter adds delta to a monotone labelled counter
	IncrCounter(name string, labels map[string]string, delta float64)
	// Observe records a value into a labelled histogram
	Observe(name string, labels map[string]string, value float64)
	// Snapshot returns a JSON-serializable view of all metrics
	Snapshot() map[string]interface{}
}
