package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/liquidity-sentinel/internal/version"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
	defaultAlertLimit  = 50
	maxAlertLimit      = 500
)

// handleHealth reports service and database health. Any failing
// database degrades the whole check to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	databases := map[string]string{
		s.marketDB.Name(): "ok",
		s.riskDB.Name():   "ok",
		s.archive.Name():  "ok",
	}
	healthy := true

	if err := s.marketDB.HealthCheck(r.Context()); err != nil {
		databases[s.marketDB.Name()] = err.Error()
		healthy = false
	}
	if err := s.riskDB.HealthCheck(r.Context()); err != nil {
		databases[s.riskDB.Name()] = err.Error()
		healthy = false
	}
	if _, err := s.archive.Count(); err != nil {
		databases[s.archive.Name()] = err.Error()
		healthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "liquidity-sentinel",
		"version":   version.Version,
		"databases": databases,
	})
}

// handleRiskLatest returns the most recent scored row, its run, and the
// current signal.
func (s *Server) handleRiskLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.riskRepo.Latest()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		s.writeError(w, http.StatusNotFound, "No scored data yet, run the pipeline first")
		return
	}

	run, err := s.riskRepo.LastRun()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Signal may be nil when the row was scored but nothing archived yet.
	sig, err := s.archive.Latest()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":             latest.Date,
		"risk_probability": latest.RiskScore,
		"row":              latest,
		"run":              run,
		"signal":           sig,
	})
}

// handleRiskHistory returns scored rows for the trailing N days,
// ascending by date.
func (s *Server) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultHistoryDays, 1, maxHistoryDays)

	rows, err := s.riskRepo.History(days)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":  days,
		"count": len(rows),
		"rows":  rows,
	})
}

// handleAlertsLatest returns the most recently archived signal.
func (s *Server) handleAlertsLatest(w http.ResponseWriter, r *http.Request) {
	sig, err := s.archive.Latest()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sig == nil {
		s.writeError(w, http.StatusNotFound, "No signals archived yet")
		return
	}

	s.writeJSON(w, http.StatusOK, sig)
}

// handleAlertsHistory returns archived signals, newest first.
func (s *Server) handleAlertsHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultAlertLimit, 1, maxAlertLimit)

	signals, err := s.archive.List(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"limit":   limit,
		"count":   len(signals),
		"signals": signals,
	})
}

// handleDashboard serves the text dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	text, err := s.dashboard.Summary()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write dashboard response")
	}
}

// handleTriggerPipeline runs the pipeline job outside its schedule.
// The run happens in the background; the response only acknowledges
// the trigger.
func (s *Server) handleTriggerPipeline(w http.ResponseWriter, r *http.Request) {
	if s.pipelineJob == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Pipeline job not registered")
		return
	}

	s.log.Info().Msg("Manual pipeline run triggered")
	go func() {
		if err := s.sched.RunNow(s.pipelineJob); err != nil {
			s.log.Error().Err(err).Msg("Triggered pipeline run failed")
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Pipeline triggered successfully",
	})
}

// handleTriggerBackup runs the backup job outside its schedule.
func (s *Server) handleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if s.backupJob == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Backup not configured")
		return
	}

	s.log.Info().Msg("Manual backup triggered")
	go func() {
		if err := s.sched.RunNow(s.backupJob); err != nil {
			s.log.Error().Err(err).Msg("Triggered backup failed")
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Backup triggered successfully",
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// queryInt parses an integer query parameter, falling back to def and
// clamping to [min, max].
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
