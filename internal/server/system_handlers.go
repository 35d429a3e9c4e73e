package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/liquidity-sentinel/internal/database"
	"github.com/aristath/liquidity-sentinel/internal/version"
)

// databaseStatus is the per-database block of the system status payload.
type databaseStatus struct {
	SizeBytes    int64 `json:"size_bytes"`
	WALSizeBytes int64 `json:"wal_size_bytes"`
	PageCount    int64 `json:"page_count"`
}

// handleSystemStatus returns process and database statistics plus the
// effective monitoring configuration.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := s.systemStats()

	databases := map[string]interface{}{
		s.marketDB.Name(): s.databaseStats(s.marketDB),
		s.riskDB.Name():   s.databaseStats(s.riskDB),
	}
	if count, err := s.archive.Count(); err == nil {
		databases[s.archive.Name()] = map[string]int{"signals": count}
	} else {
		s.log.Warn().Err(err).Msg("Failed to count archived signals")
	}

	lastRun, err := s.riskRepo.LastRun()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load last run for status")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "running",
		"version":        version.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"databases":      databases,
		"last_run":       lastRun,
		"config": map[string]interface{}{
			"test_mode":           s.cfg.TestMode,
			"securities":          s.cfg.Securities,
			"index_symbol":        s.cfg.IndexSymbol,
			"rolling_window_days": s.cfg.RollingWindowDays,
			"short_window_days":   s.cfg.ShortWindowDays,
			"red_threshold":       s.cfg.RedThreshold,
			"amber_threshold":     s.cfg.AmberThreshold,
		},
	})
}

// systemStats calculates CPU and RAM usage percentages. The short CPU
// sampling interval keeps the status endpoint fast.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// databaseStats collects size statistics for one database; failures
// degrade to an empty block rather than failing the status call.
func (s *Server) databaseStats(db *database.DB) databaseStatus {
	stats, err := db.GetStats()
	if err != nil {
		s.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to collect database stats")
		return databaseStatus{}
	}
	return databaseStatus{
		SizeBytes:    stats.SizeBytes,
		WALSizeBytes: stats.WALSizeBytes,
		PageCount:    stats.PageCount,
	}
}
