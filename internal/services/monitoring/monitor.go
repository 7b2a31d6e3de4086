package monitoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

const (
	minWindowHours    = 1
	maxWindowHours    = 168
	alertHistoryLimit = 100
	defaultSchedule   = "*/5 * * * *"
)

// counterSample is one timestamped copy of the counter section of the
// metrics snapshot, used for windowed deltas.
type counterSample struct {
	at       time.Time
	counters map[string]float64
}

// Monitor watches the preference pipeline health: query success rates,
// document creation outcomes, threshold alert rules and a scheduled
// alert evaluation.
type Monitor struct {
	config  *common.MonitoringConfig
	metrics interfaces.MetricsRegistry
	storage interfaces.StorageManager
	logger  arbor.ILogger
	cron    *cron.Cron

	mu      sync.Mutex
	rules   map[string]*models.AlertRule
	alerts  []models.PreferenceAlert
	history []counterSample
}

// NewMonitor creates a preference pipeline monitor with the default rules
func NewMonitor(config *common.MonitoringConfig, registry interfaces.MetricsRegistry,
	storage interfaces.StorageManager, logger arbor.ILogger) *Monitor {

	rules := map[string]*models.AlertRule{
		"query-success-rate-low": {
			Name:        "query-success-rate-low",
			Description: "Preference query success rate fell below threshold",
			Severity:    models.SeverityWarning,
			Threshold:   0.90,
			Enabled:     true,
		},
		"query-success-rate-critical": {
			Name:        "query-success-rate-critical",
			Description: "Preference query success rate fell critically low",
			Severity:    models.SeverityCritical,
			Threshold:   0.50,
			Enabled:     true,
		},
		"document-creation-failures": {
			Name:        "document-creation-failures",
			Description: "Preference document creation failure rate exceeded threshold",
			Severity:    models.SeverityWarning,
			Threshold:   0.20,
			Enabled:     true,
		},
	}

	return &Monitor{
		config:  config,
		metrics: registry,
		storage: storage,
		logger:  logger,
		rules:   rules,
	}
}

// Start schedules the periodic alert evaluation
func (m *Monitor) Start() error {
	if !m.config.Enabled {
		m.logger.Info().Msg("Preference monitoring disabled")
		return nil
	}

	schedule := m.config.AlertSchedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	m.cron = cron.New()
	if _, err := m.cron.AddFunc(schedule, func() {
		m.CheckAlerts(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid alert schedule %q: %w", schedule, err)
	}
	m.cron.Start()
	m.logger.Info().Str("schedule", schedule).Msg("Preference monitoring started")
	return nil
}

// Stop halts the scheduled evaluation
func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// MetricsSummary aggregates preference metrics over a trailing window.
// Deltas are computed against the oldest recorded sample inside the
// window; without history the lifetime totals are reported.
func (m *Monitor) MetricsSummary(windowHours int) (map[string]interface{}, error) {
	if windowHours < minWindowHours || windowHours > maxWindowHours {
		return nil, fmt.Errorf("time_window_hours must be between %d and %d", minWindowHours, maxWindowHours)
	}

	now := time.Now()
	current := m.counterSnapshot()
	baseline, baselineAt := m.baselineFor(now.Add(-time.Duration(windowHours) * time.Hour))

	delta := func(key string) float64 {
		d := current[key] - baseline[key]
		if d < 0 {
			d = 0
		}
		return d
	}

	queryTotal, querySucceeded := 0.0, 0.0
	for key := range current {
		name, labels := parseMetricKey(key)
		if name != metrics.MetricPreferenceQueryTotal {
			continue
		}
		d := delta(key)
		queryTotal += d
		if labels["success"] == "true" {
			querySucceeded += d
		}
	}

	docs := m.documentStatsFrom(current, baseline)

	summary := map[string]interface{}{
		"window_hours": windowHours,
		"generated_at": now,
		"queries": map[string]interface{}{
			"total":        queryTotal,
			"succeeded":    querySucceeded,
			"failed":       queryTotal - querySucceeded,
			"success_rate": rate(querySucceeded, queryTotal),
		},
		"documents":        docs,
		"alerts_in_window": m.alertCountSince(now.Add(-time.Duration(windowHours) * time.Hour)),
	}
	if !baselineAt.IsZero() {
		summary["baseline_at"] = baselineAt
	}
	return summary, nil
}

// QuerySuccessRates reports lifetime per-query outcomes
func (m *Monitor) QuerySuccessRates() []models.QuerySuccessRate {
	current := m.counterSnapshot()

	byQuery := make(map[string]*models.QuerySuccessRate)
	for key, value := range current {
		name, labels := parseMetricKey(key)
		if name != metrics.MetricPreferenceQueryTotal {
			continue
		}
		queryName := labels["query"]
		entry, ok := byQuery[queryName]
		if !ok {
			entry = &models.QuerySuccessRate{QueryName: queryName}
			byQuery[queryName] = entry
		}
		entry.Total += value
		if labels["success"] == "true" {
			entry.Succeeded += value
		} else {
			entry.Failed += value
		}
	}

	out := make([]models.QuerySuccessRate, 0, len(byQuery))
	for _, entry := range byQuery {
		entry.SuccessRate = rate(entry.Succeeded, entry.Total)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueryName < out[j].QueryName })
	return out
}

// DocumentCreationStats reports lifetime document creation outcomes
func (m *Monitor) DocumentCreationStats() models.DocumentCreationStats {
	return m.documentStatsFrom(m.counterSnapshot(), nil)
}

// Alerts returns recorded alerts, newest first, optionally filtered by
// severity.
func (m *Monitor) Alerts(severity string) []models.PreferenceAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PreferenceAlert, 0, len(m.alerts))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		alert := m.alerts[i]
		if severity != "" && string(alert.Severity) != severity {
			continue
		}
		out = append(out, alert)
	}
	return out
}

// AlertRules returns the configured rules sorted by name
func (m *Monitor) AlertRules() []models.AlertRule {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.AlertRule, 0, len(m.rules))
	for _, rule := range m.rules {
		out = append(out, *rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToggleAlertRule enables or disables one rule
func (m *Monitor) ToggleAlertRule(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, ok := m.rules[name]
	if !ok {
		return fmt.Errorf("unknown alert rule %q", name)
	}
	rule.Enabled = enabled
	m.logger.Info().Str("rule", name).Bool("enabled", enabled).Msg("Alert rule toggled")
	return nil
}

// CheckAlerts evaluates the enabled rules against metric deltas since the
// previous check and records any triggered alerts.
func (m *Monitor) CheckAlerts(ctx context.Context) []models.PreferenceAlert {
	now := time.Now()
	current := m.counterSnapshot()

	m.mu.Lock()
	var baseline map[string]float64
	if len(m.history) > 0 {
		baseline = m.history[len(m.history)-1].counters
	}
	rules := make([]models.AlertRule, 0, len(m.rules))
	for _, rule := range m.rules {
		rules = append(rules, *rule)
	}
	m.mu.Unlock()

	queryTotal, querySucceeded := 0.0, 0.0
	for key := range current {
		name, labels := parseMetricKey(key)
		if name != metrics.MetricPreferenceQueryTotal {
			continue
		}
		d := current[key] - baseline[key]
		if d <= 0 {
			continue
		}
		queryTotal += d
		if labels["success"] == "true" {
			querySucceeded += d
		}
	}
	docs := m.documentStatsFrom(current, baseline)

	var triggered []models.PreferenceAlert
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		var alert *models.PreferenceAlert
		switch rule.Name {
		case "query-success-rate-low", "query-success-rate-critical":
			if queryTotal > 0 {
				successRate := rate(querySucceeded, queryTotal)
				if successRate < rule.Threshold {
					alert = &models.PreferenceAlert{
						RuleName:  rule.Name,
						Severity:  rule.Severity,
						Message:   fmt.Sprintf("preference query success rate %.2f below %.2f", successRate, rule.Threshold),
						Value:     successRate,
						Threshold: rule.Threshold,
					}
				}
			}
		case "document-creation-failures":
			if docs.Total > 0 {
				failureRate := rate(docs.Failed, docs.Total)
				if failureRate > rule.Threshold {
					alert = &models.PreferenceAlert{
						RuleName:  rule.Name,
						Severity:  rule.Severity,
						Message:   fmt.Sprintf("preference document creation failure rate %.2f above %.2f", failureRate, rule.Threshold),
						Value:     failureRate,
						Threshold: rule.Threshold,
					}
				}
			}
		}
		if alert == nil {
			continue
		}
		alert.TriggeredAt = now
		triggered = append(triggered, *alert)

		m.metrics.IncrCounter(metrics.MetricPreferenceAlerts,
			map[string]string{"severity": string(alert.Severity)}, 1)
		m.logger.Warn().
			Str("rule", alert.RuleName).
			Str("severity", string(alert.Severity)).
			Str("message", alert.Message).
			Msg("Preference alert triggered")
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, triggered...)
	if len(m.alerts) > alertHistoryLimit {
		m.alerts = m.alerts[len(m.alerts)-alertHistoryLimit:]
	}
	m.history = append(m.history, counterSample{at: now, counters: current})
	if len(m.history) > alertHistoryLimit {
		m.history = m.history[len(m.history)-alertHistoryLimit:]
	}
	m.mu.Unlock()

	return triggered
}

// UserImpact estimates how pipeline failures reach end users
func (m *Monitor) UserImpact(ctx context.Context) (*models.UserImpactReport, error) {
	byStatus, err := m.storage.JobStorage().CountJobsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	stats, err := m.storage.DocumentStorage().GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document stats: %w", err)
	}

	report := &models.UserImpactReport{
		GeneratedAt:         time.Now(),
		JobsByStatus:        byStatus,
		FailedJobs:          byStatus[models.JobStatusFailure],
		PartialJobs:         byStatus[models.JobStatusPartial],
		TotalDocuments:      stats.TotalDocuments,
		PreferenceDocuments: stats.DocumentsByType[models.DocTypePreferenceAnalysis],
	}
	switch {
	case report.FailedJobs == 0 && report.PartialJobs == 0:
		report.Assessment = "no user impact detected"
	case report.FailedJobs > report.PartialJobs:
		report.Assessment = "failed jobs are blocking chat coverage for affected users"
	default:
		report.Assessment = "partial jobs left affected users with reduced preference coverage"
	}
	return report, nil
}

func (m *Monitor) counterSnapshot() map[string]float64 {
	snapshot := m.metrics.Snapshot()
	counters, ok := snapshot["counters"].(map[string]float64)
	if !ok {
		return map[string]float64{}
	}
	return counters
}

// baselineFor returns the oldest sample at or after cutoff
func (m *Monitor) baselineFor(cutoff time.Time) (map[string]float64, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sample := range m.history {
		if !sample.at.Before(cutoff) {
			return sample.counters, sample.at
		}
	}
	return map[string]float64{}, time.Time{}
}

func (m *Monitor) alertCountSince(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, alert := range m.alerts {
		if !alert.TriggeredAt.Before(cutoff) {
			count++
		}
	}
	return count
}

func (m *Monitor) documentStatsFrom(current, baseline map[string]float64) models.DocumentCreationStats {
	stats := models.DocumentCreationStats{}
	for key, value := range current {
		name, labels := parseMetricKey(key)
		if name != metrics.MetricPreferenceDocCreation {
			continue
		}
		d := value - baseline[key]
		if d < 0 {
			d = 0
		}
		stats.Total += d
		if labels["success"] == "true" {
			stats.Succeeded += d
		} else {
			stats.Failed += d
		}
	}
	stats.SuccessRate = rate(stats.Succeeded, stats.Total)
	return stats
}

// parseMetricKey splits "name{k=v,k2=v2}" into name and labels
func parseMetricKey(key string) (string, map[string]string) {
	open := strings.IndexByte(key, '{')
	if open < 0 || !strings.HasSuffix(key, "}") {
		return key, nil
	}
	name := key[:open]
	labels := make(map[string]string)
	for _, pair := range strings.Split(key[open+1:len(key)-1], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			labels[kv[0]] = kv[1]
		}
	}
	return name, labels
}

func rate(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total
}
