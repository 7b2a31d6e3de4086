package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/services/monitoring"
)

// MonitoringHandler exposes the preference pipeline monitoring endpoints
type MonitoringHandler struct {
	monitor *monitoring.Monitor
	logger  arbor.ILogger
}

// NewMonitoringHandler creates the monitoring HTTP handler
func NewMonitoringHandler(monitor *monitoring.Monitor, logger arbor.ILogger) *MonitoringHandler {
	return &MonitoringHandler{monitor: monitor, logger: logger}
}

// MetricsSummaryHandler aggregates preference metrics over a window.
// GET /api/monitoring/preference/metrics/summary?time_window_hours=1..168
func (h *MonitoringHandler) MetricsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	windowHours := QueryInt(r, "time_window_hours", 24)
	summary, err := h.monitor.MetricsSummary(windowHours)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// QuerySuccessRatesHandler reports per-query preference outcomes.
// GET /api/monitoring/preference/metrics/query-success-rates
func (h *MonitoringHandler) QuerySuccessRatesHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query_success_rates": h.monitor.QuerySuccessRates(),
	})
}

// DocumentCreationHandler reports preference document creation stats.
// GET /api/monitoring/preference/metrics/document-creation
func (h *MonitoringHandler) DocumentCreationHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.DocumentCreationStats())
}

// AlertsHandler lists recorded alerts, optionally filtered by severity.
// GET /api/monitoring/preference/alerts?severity=info|warning|critical
func (h *MonitoringHandler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	switch severity {
	case "", "info", "warning", "critical":
	default:
		WriteError(w, http.StatusBadRequest, "severity must be info, warning or critical")
		return
	}

	alerts := h.monitor.Alerts(severity)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// UserImpactHandler estimates user-facing impact of pipeline failures.
// GET /api/monitoring/preference/user-impact
func (h *MonitoringHandler) UserImpactHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.UserImpact(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// AlertRulesHandler lists the configured alert rules.
// GET /api/monitoring/preference/alert-rules
func (h *MonitoringHandler) AlertRulesHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rules": h.monitor.AlertRules(),
	})
}

// ToggleAlertRuleHandler enables or disables one alert rule.
// POST /api/monitoring/preference/alert-rules/{rule_name}/toggle?enabled=bool
func (h *MonitoringHandler) ToggleAlertRuleHandler(w http.ResponseWriter, r *http.Request) {
	ruleName := r.PathValue("rule_name")
	if r.URL.Query().Get("enabled") == "" {
		WriteError(w, http.StatusBadRequest, "enabled query parameter is required")
		return
	}
	enabled := QueryBool(r, "enabled")

	if err := h.monitor.ToggleAlertRule(ruleName, enabled); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteSuccess(w, "alert rule updated")
}

// CheckAlertsHandler runs an immediate alert evaluation.
// POST /api/monitoring/preference/check-alerts
func (h *MonitoringHandler) CheckAlertsHandler(w http.ResponseWriter, r *http.Request) {
	triggered := h.monitor.CheckAlerts(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"triggered": len(triggered),
		"alerts":    triggered,
	})
}
