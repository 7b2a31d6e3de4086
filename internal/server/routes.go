package server

import (
	"net/http"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - ETL pipeline
	mux.HandleFunc("POST /api/etl/test-completion", s.app.ETLHandler.TestCompletionHandler)
	mux.HandleFunc("GET /api/etl/jobs/{job_id}/status", s.app.ETLHandler.JobStatusHandler)
	mux.HandleFunc("GET /api/etl/jobs/{job_id}/progress", s.app.ETLHandler.JobProgressHandler)
	mux.HandleFunc("POST /api/etl/jobs/{job_id}/cancel", s.app.ETLHandler.CancelJobHandler)
	mux.HandleFunc("POST /api/etl/jobs/{job_id}/retry", s.app.ETLHandler.RetryJobHandler)
	mux.HandleFunc("GET /api/etl/users/{user_id}/jobs", s.app.ETLHandler.UserJobsHandler)
	mux.HandleFunc("POST /api/etl/users/{user_id}/reprocess", s.app.ETLHandler.ReprocessHandler)
	mux.HandleFunc("GET /api/etl/health", s.app.ETLHandler.HealthHandler)
	mux.HandleFunc("GET /api/etl/stats", s.app.ETLHandler.StatsHandler)

	// API routes - Chat (RAG-enabled chat)
	mux.HandleFunc("POST /api/chat", s.app.ChatHandler.ChatHandler)

	// API routes - Preference pipeline monitoring
	mux.HandleFunc("GET /api/monitoring/preference/metrics/summary", s.app.MonitoringHandler.MetricsSummaryHandler)
	mux.HandleFunc("GET /api/monitoring/preference/metrics/query-success-rates", s.app.MonitoringHandler.QuerySuccessRatesHandler)
	mux.HandleFunc("GET /api/monitoring/preference/metrics/document-creation", s.app.MonitoringHandler.DocumentCreationHandler)
	mux.HandleFunc("GET /api/monitoring/preference/alerts", s.app.MonitoringHandler.AlertsHandler)
	mux.HandleFunc("GET /api/monitoring/preference/user-impact", s.app.MonitoringHandler.UserImpactHandler)
	mux.HandleFunc("GET /api/monitoring/preference/alert-rules", s.app.MonitoringHandler.AlertRulesHandler)
	mux.HandleFunc("POST /api/monitoring/preference/alert-rules/{rule_name}/toggle", s.app.MonitoringHandler.ToggleAlertRuleHandler)
	mux.HandleFunc("POST /api/monitoring/preference/check-alerts", s.app.MonitoringHandler.CheckAlertsHandler)

	// Service-level routes
	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.HandleFunc("GET /api/version", s.versionHandler)

	return mux
}

// healthHandler is the basic liveness probe
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "chatetl",
		"version": common.GetVersion(),
	})
}

// versionHandler reports build information
func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetFullVersion(),
	})
}
