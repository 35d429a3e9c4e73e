package risk

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/liquidity-sentinel/internal/database"
	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/rs/zerolog"
)

// RunRecord is the append-only log entry for one pipeline run.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	RowsScored  int       `json:"rows_scored"`
	RowsDropped int       `json:"rows_dropped"`
	CrisisDays  int       `json:"crisis_days"`
	TestMode    bool      `json:"test_mode"`
	LatestDate  string    `json:"latest_date"`
	LatestScore float64   `json:"latest_score"`
}

// Repository persists scored feature rows in risk.db. The feature and
// score tables always hold exactly one run; pipeline_runs keeps the
// append-only run log.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new risk repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "risk").Logger(),
	}
}

// ReplaceRun atomically swaps the stored feature and score tables for
// the given rows and appends the run record.
func (r *Repository) ReplaceRun(rows []domain.FeatureRow, run RunRecord) error {
	err := database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM security_features"); err != nil {
			return fmt.Errorf("failed to clear security_features: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM risk_scores"); err != nil {
			return fmt.Errorf("failed to clear risk_scores: %w", err)
		}

		featStmt, err := tx.Prepare(`
			INSERT INTO security_features
				(date, symbol, volume, avg_volume, liquidity_ratio, risk_component, momentum, volume_vol, liquidity_premium)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare feature insert: %w", err)
		}
		defer featStmt.Close()

		scoreStmt, err := tx.Prepare(`
			INSERT INTO risk_scores
				(date, index_vol, index_momentum, day_of_week, month, quarter, crisis, risk_score, run_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare score insert: %w", err)
		}
		defer scoreStmt.Close()

		for _, row := range rows {
			for sym, feats := range row.Securities {
				_, err := featStmt.Exec(row.Date, sym, feats.Volume, feats.AvgVolume, feats.LiquidityRatio,
					feats.RiskComponent, feats.Momentum, feats.VolumeVol, feats.LiquidityPremium)
				if err != nil {
					return fmt.Errorf("failed to insert features for %s on %s: %w", sym, row.Date, err)
				}
			}

			crisis := 0
			if row.Crisis {
				crisis = 1
			}
			_, err := scoreStmt.Exec(row.Date, row.IndexVol, row.IndexMomentum, row.DayOfWeek,
				row.Month, row.Quarter, crisis, row.RiskScore, run.RunID)
			if err != nil {
				return fmt.Errorf("failed to insert score for %s: %w", row.Date, err)
			}
		}

		testMode := 0
		if run.TestMode {
			testMode = 1
		}
		_, err = tx.Exec(`
			INSERT INTO pipeline_runs
				(run_id, started_at, finished_at, rows_scored, rows_dropped, crisis_days, test_mode, latest_date, latest_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.RowsScored, run.RowsDropped,
			run.CrisisDays, testMode, run.LatestDate, run.LatestScore)
		if err != nil {
			return fmt.Errorf("failed to insert run record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("run_id", run.RunID).
		Int("rows", len(rows)).
		Msg("Scored rows replaced")
	return nil
}

// Latest returns the most recent scored row, or nil when no run has been
// stored yet.
func (r *Repository) Latest() (*domain.FeatureRow, error) {
	rows, err := r.History(1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// History returns the most recent days of scored rows in ascending date
// order.
func (r *Repository) History(days int) ([]domain.FeatureRow, error) {
	scoreRows, err := r.db.Query(`
		SELECT date, index_vol, index_momentum, day_of_week, month, quarter, crisis, risk_score
		FROM risk_scores
		ORDER BY date DESC
		LIMIT ?`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk scores: %w", err)
	}
	defer scoreRows.Close()

	var result []domain.FeatureRow
	for scoreRows.Next() {
		var row domain.FeatureRow
		var crisis int
		err := scoreRows.Scan(&row.Date, &row.IndexVol, &row.IndexMomentum, &row.DayOfWeek,
			&row.Month, &row.Quarter, &crisis, &row.RiskScore)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk score: %w", err)
		}
		row.Crisis = crisis != 0
		row.Securities = make(map[string]domain.SecurityFeatures)
		result = append(result, row)
	}
	if err := scoreRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk scores: %w", err)
	}
	if len(result) == 0 {
		return nil, nil
	}

	// Reverse newest-first into chronological order
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	if err := r.attachFeatures(result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachFeatures fills the Securities map for each row from
// security_features.
func (r *Repository) attachFeatures(rows []domain.FeatureRow) error {
	byDate := make(map[string]*domain.FeatureRow, len(rows))
	for i := range rows {
		byDate[rows[i].Date] = &rows[i]
	}

	featRows, err := r.db.Query(`
		SELECT date, symbol, volume, avg_volume, liquidity_ratio, risk_component, momentum, volume_vol, liquidity_premium
		FROM security_features
		WHERE date >= ? AND date <= ?`, rows[0].Date, rows[len(rows)-1].Date)
	if err != nil {
		return fmt.Errorf("failed to query security features: %w", err)
	}
	defer featRows.Close()

	for featRows.Next() {
		var date, symbol string
		var feats domain.SecurityFeatures
		err := featRows.Scan(&date, &symbol, &feats.Volume, &feats.AvgVolume, &feats.LiquidityRatio,
			&feats.RiskComponent, &feats.Momentum, &feats.VolumeVol, &feats.LiquidityPremium)
		if err != nil {
			return fmt.Errorf("failed to scan security features: %w", err)
		}
		if row, ok := byDate[date]; ok {
			row.Securities[symbol] = feats
		}
	}
	if err := featRows.Err(); err != nil {
		return fmt.Errorf("error iterating security features: %w", err)
	}
	return nil
}

// LastRun returns the most recent pipeline run record, or nil when the
// pipeline has never completed.
func (r *Repository) LastRun() (*RunRecord, error) {
	var run RunRecord
	var started, finished int64
	var testMode int
	err := r.db.QueryRow(`
		SELECT run_id, started_at, finished_at, rows_scored, rows_dropped, crisis_days, test_mode, latest_date, latest_score
		FROM pipeline_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1`).Scan(&run.RunID, &started, &finished, &run.RowsScored, &run.RowsDropped,
		&run.CrisisDays, &testMode, &run.LatestDate, &run.LatestScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}

	run.StartedAt = time.Unix(started, 0).UTC()
	run.FinishedAt = time.Unix(finished, 0).UTC()
	run.TestMode = testMode != 0
	return &run, nil
}

// RunCount returns the number of logged pipeline runs.
func (r *Repository) RunCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM pipeline_runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pipeline runs: %w", err)
	}
	return count, nil
}
