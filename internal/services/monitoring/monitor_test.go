package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

type fakeJobCounts struct {
	interfaces.JobStorage
	counts map[models.JobStatus]int
}

func (f *fakeJobCounts) CountJobsByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	return f.counts, nil
}

type fakeDocStats struct {
	interfaces.DocumentStorage
	stats *models.DocumentStats
}

func (f *fakeDocStats) GetStats(ctx context.Context) (*models.DocumentStats, error) {
	return f.stats, nil
}

type fakeStores struct {
	jobs *fakeJobCounts
	docs *fakeDocStats
}

func (f *fakeStores) UserStorage() interfaces.UserStorage         { return nil }
func (f *fakeStores) JobStorage() interfaces.JobStorage           { return f.jobs }
func (f *fakeStores) DocumentStorage() interfaces.DocumentStorage { return f.docs }
func (f *fakeStores) LegacyStorage() interfaces.LegacyStorage     { return nil }
func (f *fakeStores) Close() error                                { return nil }

func newTestMonitor(registry *metrics.Registry) *Monitor {
	stores := &fakeStores{
		jobs: &fakeJobCounts{counts: map[models.JobStatus]int{
			models.JobStatusSuccess: 10,
			models.JobStatusFailure: 2,
			models.JobStatusPartial: 1,
		}},
		docs: &fakeDocStats{stats: &models.DocumentStats{
			TotalDocuments: 70,
			DocumentsByType: map[models.DocType]int{
				models.DocTypePreferenceAnalysis: 14,
			},
		}},
	}
	return NewMonitor(&common.MonitoringConfig{Enabled: true, WindowHours: 24},
		registry, stores, common.GetLogger())
}

func recordQueries(registry *metrics.Registry, query string, succeeded, failed int) {
	for i := 0; i < succeeded; i++ {
		registry.IncrCounter(metrics.MetricPreferenceQueryTotal,
			map[string]string{"query": query, "success": "true"}, 1)
	}
	for i := 0; i < failed; i++ {
		registry.IncrCounter(metrics.MetricPreferenceQueryTotal,
			map[string]string{"query": query, "success": "false"}, 1)
	}
}

func TestMetricsSummaryValidatesWindow(t *testing.T) {
	monitor := newTestMonitor(metrics.NewRegistry())

	_, err := monitor.MetricsSummary(0)
	assert.Error(t, err)
	_, err = monitor.MetricsSummary(169)
	assert.Error(t, err)

	summary, err := monitor.MetricsSummary(24)
	require.NoError(t, err)
	assert.Equal(t, 24, summary["window_hours"])
}

func TestQuerySuccessRates(t *testing.T) {
	registry := metrics.NewRegistry()
	recordQueries(registry, "preferenceDataQuery", 8, 2)
	recordQueries(registry, "imagePreferenceStatsQuery", 5, 0)
	monitor := newTestMonitor(registry)

	rates := monitor.QuerySuccessRates()
	require.Len(t, rates, 2)

	// sorted by query name
	assert.Equal(t, "imagePreferenceStatsQuery", rates[0].QueryName)
	assert.InDelta(t, 1.0, rates[0].SuccessRate, 1e-9)

	assert.Equal(t, "preferenceDataQuery", rates[1].QueryName)
	assert.InDelta(t, 0.8, rates[1].SuccessRate, 1e-9)
	assert.Equal(t, 10.0, rates[1].Total)
	assert.Equal(t, 2.0, rates[1].Failed)
}

func TestCheckAlertsTriggersOnLowSuccessRate(t *testing.T) {
	registry := metrics.NewRegistry()
	recordQueries(registry, "preferenceDataQuery", 4, 6)
	monitor := newTestMonitor(registry)

	triggered := monitor.CheckAlerts(context.Background())
	require.Len(t, triggered, 2)

	names := []string{triggered[0].RuleName, triggered[1].RuleName}
	assert.Contains(t, names, "query-success-rate-low")
	assert.Contains(t, names, "query-success-rate-critical")

	assert.Equal(t, 1.0, registry.CounterValue(metrics.MetricPreferenceAlerts,
		map[string]string{"severity": "critical"}))
	assert.Equal(t, 1.0, registry.CounterValue(metrics.MetricPreferenceAlerts,
		map[string]string{"severity": "warning"}))

	critical := monitor.Alerts("critical")
	require.Len(t, critical, 1)
	assert.Equal(t, "query-success-rate-critical", critical[0].RuleName)
	assert.Len(t, monitor.Alerts(""), 2)
}

func TestCheckAlertsUsesDeltaSincePreviousCheck(t *testing.T) {
	registry := metrics.NewRegistry()
	recordQueries(registry, "preferenceDataQuery", 1, 9)
	monitor := newTestMonitor(registry)

	require.NotEmpty(t, monitor.CheckAlerts(context.Background()))

	// no new activity since the last check, nothing to alert on
	assert.Empty(t, monitor.CheckAlerts(context.Background()))

	// healthy new traffic stays quiet
	recordQueries(registry, "preferenceDataQuery", 20, 0)
	assert.Empty(t, monitor.CheckAlerts(context.Background()))
}

func TestDocumentCreationFailureAlert(t *testing.T) {
	registry := metrics.NewRegistry()
	registry.IncrCounter(metrics.MetricPreferenceDocCreation, map[string]string{"success": "true"}, 2)
	registry.IncrCounter(metrics.MetricPreferenceDocCreation, map[string]string{"success": "false"}, 3)
	monitor := newTestMonitor(registry)

	triggered := monitor.CheckAlerts(context.Background())
	require.Len(t, triggered, 1)
	assert.Equal(t, "document-creation-failures", triggered[0].RuleName)
	assert.InDelta(t, 0.6, triggered[0].Value, 1e-9)

	stats := monitor.DocumentCreationStats()
	assert.Equal(t, 5.0, stats.Total)
	assert.InDelta(t, 0.4, stats.SuccessRate, 1e-9)
}

func TestToggleAlertRule(t *testing.T) {
	registry := metrics.NewRegistry()
	recordQueries(registry, "preferenceDataQuery", 0, 10)
	monitor := newTestMonitor(registry)

	require.NoError(t, monitor.ToggleAlertRule("query-success-rate-low", false))
	require.NoError(t, monitor.ToggleAlertRule("query-success-rate-critical", false))
	assert.Error(t, monitor.ToggleAlertRule("no-such-rule", true))

	assert.Empty(t, monitor.CheckAlerts(context.Background()))

	rules := monitor.AlertRules()
	require.Len(t, rules, 3)
	for _, rule := range rules {
		if rule.Name == "query-success-rate-low" {
			assert.False(t, rule.Enabled)
		}
	}
}

func TestMetricsSummaryWindowDelta(t *testing.T) {
	registry := metrics.NewRegistry()
	recordQueries(registry, "preferenceDataQuery", 5, 5)
	monitor := newTestMonitor(registry)

	// first check records the baseline sample
	monitor.CheckAlerts(context.Background())

	recordQueries(registry, "preferenceDataQuery", 3, 0)
	summary, err := monitor.MetricsSummary(1)
	require.NoError(t, err)

	queries := summary["queries"].(map[string]interface{})
	assert.Equal(t, 3.0, queries["total"])
	assert.Equal(t, 3.0, queries["succeeded"])
	assert.InDelta(t, 1.0, queries["success_rate"].(float64), 1e-9)
}

func TestUserImpactReport(t *testing.T) {
	monitor := newTestMonitor(metrics.NewRegistry())

	report, err := monitor.UserImpact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FailedJobs)
	assert.Equal(t, 1, report.PartialJobs)
	assert.Equal(t, 70, report.TotalDocuments)
	assert.Equal(t, 14, report.PreferenceDocuments)
	assert.Contains(t, report.Assessment, "failed jobs")
}
