package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/aptihub/chatetl/internal/interfaces"
)

// Metric names used across the core. Handlers and services reference these
// constants rather than raw strings.
const (
	MetricVectorSearchQueryMS       = "vector_search_query_ms"
	MetricVectorSearchErrors        = "vector_search_errors_total"
	MetricRAGResponseSeconds        = "rag_response_seconds"
	MetricRAGResponseErrors         = "rag_response_errors_total"
	MetricLLMAPIErrors              = "llm_api_errors_total"
	MetricPreferenceQueryTotal      = "preference_query_total"
	MetricPreferenceQueryDurationMS = "preference_query_duration_ms"
	MetricPreferenceDocCreation     = "preference_document_creation_total"
	MetricPreferenceAlerts          = "preference_alerts_total"
)

// Registry is a process-wide metrics collector safe for concurrent use
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]float64
	histograms map[string]*histogram
}

type histogram struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// NewRegistry creates an empty metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]float64),
		histograms: make(map[string]*histogram),
	}
}

var _ interfaces.MetricsRegistry = (*Registry)(nil)

// IncrCounter adds delta to a monotone labelled counter
func (r *Registry) IncrCounter(name string, labels map[string]string, delta float64) {
	if delta < 0 {
		return
	}
	key := metricKey(name, labels)
	r.mu.Lock()
	r.counters[key] += delta
	r.mu.Unlock()
}

// Observe records a value into a labelled histogram
func (r *Registry) Observe(name string, labels map[string]string, value float64) {
	key := metricKey(name, labels)
	r.mu.Lock()
	h, ok := r.histograms[key]
	if !ok {
		h = &histogram{Min: value, Max: value}
		r.histograms[key] = h
	}
	h.Count++
	h.Sum += value
	if value < h.Min {
		h.Min = value
	}
	if value > h.Max {
		h.Max = value
	}
	r.mu.Unlock()
}

// CounterValue returns the current value of a labelled counter
func (r *Registry) CounterValue(name string, labels map[string]string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[metricKey(name, labels)]
}

// Snapshot returns a JSON-serializable view of all metrics
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]float64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}

	histograms := make(map[string]map[string]float64, len(r.histograms))
	for k, h := range r.histograms {
		avg := 0.0
		if h.Count > 0 {
			avg = h.Sum / float64(h.Count)
		}
		histograms[k] = map[string]float64{
			"count": float64(h.Count),
			"sum":   h.Sum,
			"min":   h.Min,
			"max":   h.Max,
			"avg":   avg,
		}
	}

	return map[string]interface{}{
		"counters":   counters,
		"histograms": histograms,
	}
}

// metricKey renders name{k1=v1,k2=v2} with sorted label keys
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}
