package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterAccumulates(t *testing.T) {
	r := NewRegistry()
	labels := map[string]string{"query_type": "preferenceDataQuery", "success": "true"}

	r.IncrCounter(MetricPreferenceQueryTotal, labels, 1)
	r.IncrCounter(MetricPreferenceQueryTotal, labels, 1)
	r.IncrCounter(MetricPreferenceQueryTotal, map[string]string{"query_type": "other", "success": "false"}, 1)

	assert.Equal(t, 2.0, r.CounterValue(MetricPreferenceQueryTotal, labels))
}

func TestCounterRejectsNegativeDelta(t *testing.T) {
	r := NewRegistry()
	r.IncrCounter(MetricLLMAPIErrors, nil, 3)
	r.IncrCounter(MetricLLMAPIErrors, nil, -1)
	assert.Equal(t, 3.0, r.CounterValue(MetricLLMAPIErrors, nil))
}

func TestHistogramStats(t *testing.T) {
	r := NewRegistry()
	for _, v := range []float64{10, 20, 30} {
		r.Observe(MetricVectorSearchQueryMS, nil, v)
	}

	snapshot := r.Snapshot()
	histograms := snapshot["histograms"].(map[string]map[string]float64)
	h := histograms[MetricVectorSearchQueryMS]
	assert.Equal(t, 3.0, h["count"])
	assert.Equal(t, 60.0, h["sum"])
	assert.Equal(t, 10.0, h["min"])
	assert.Equal(t, 30.0, h["max"])
	assert.Equal(t, 20.0, h["avg"])
}

func TestMetricKeyLabelOrderIsStable(t *testing.T) {
	a := metricKey("m", map[string]string{"b": "2", "a": "1"})
	b := metricKey("m", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "m{a=1,b=2}", a)
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.IncrCounter(MetricRAGResponseErrors, nil, 1)
			r.Observe(MetricRAGResponseSeconds, nil, 0.5)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50.0, r.CounterValue(MetricRAGResponseErrors, nil))
}
