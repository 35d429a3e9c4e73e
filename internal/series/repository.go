package series

import (
	"database/sql"
	"fmt"

	"github.com/aristath/liquidity-sentinel/internal/database"
	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/rs/zerolog"
)

// Repository persists the aligned series in market.db. The ingest
// service replaces the whole series on every fetch (the upstream feed is
// the source of truth), so there are no incremental updates here.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new series repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "series").Logger(),
	}
}

// Replace atomically swaps the stored series for the given records.
// Records are validated for alignment before anything is written, so a
// misaligned fetch can never corrupt the store.
func (r *Repository) Replace(records []domain.DailyRecord, symbols []string) error {
	if _, err := NewTable(records, symbols); err != nil {
		return fmt.Errorf("refusing to store series: %w", err)
	}

	err := database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM daily_volumes"); err != nil {
			return fmt.Errorf("failed to clear daily_volumes: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM index_closes"); err != nil {
			return fmt.Errorf("failed to clear index_closes: %w", err)
		}

		volStmt, err := tx.Prepare("INSERT INTO daily_volumes (date, symbol, volume) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare volume insert: %w", err)
		}
		defer volStmt.Close()

		idxStmt, err := tx.Prepare("INSERT INTO index_closes (date, close) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare index insert: %w", err)
		}
		defer idxStmt.Close()

		for _, rec := range records {
			for _, sym := range symbols {
				if _, err := volStmt.Exec(rec.Date, sym, rec.Volumes[sym]); err != nil {
					return fmt.Errorf("failed to insert volume for %s on %s: %w", sym, rec.Date, err)
				}
			}
			if _, err := idxStmt.Exec(rec.Date, rec.IndexClose); err != nil {
				return fmt.Errorf("failed to insert index close for %s: %w", rec.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Int("days", len(records)).
		Int("symbols", len(symbols)).
		Msg("Market series replaced")
	return nil
}

// Load reads the full stored series back as an aligned table. The index
// closes form the date spine; a date with a missing volume for any of
// the requested symbols is treated as corruption and returned as an
// error rather than silently skipped.
func (r *Repository) Load(symbols []string) (*Table, error) {
	volumes, err := r.loadVolumes()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query("SELECT date, close FROM index_closes ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query index closes: %w", err)
	}
	defer rows.Close()

	var records []domain.DailyRecord
	for rows.Next() {
		var rec domain.DailyRecord
		if err := rows.Scan(&rec.Date, &rec.IndexClose); err != nil {
			return nil, fmt.Errorf("failed to scan index close: %w", err)
		}
		rec.Volumes = volumes[rec.Date]
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index closes: %w", err)
	}

	return NewTable(records, symbols)
}

// loadVolumes reads daily_volumes into a date -> symbol -> volume map.
func (r *Repository) loadVolumes() (map[string]map[string]float64, error) {
	rows, err := r.db.Query("SELECT date, symbol, volume FROM daily_volumes ORDER BY date ASC, symbol ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query daily volumes: %w", err)
	}
	defer rows.Close()

	volumes := make(map[string]map[string]float64)
	for rows.Next() {
		var date, symbol string
		var volume float64
		if err := rows.Scan(&date, &symbol, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily volume: %w", err)
		}
		if volumes[date] == nil {
			volumes[date] = make(map[string]float64)
		}
		volumes[date][symbol] = volume
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily volumes: %w", err)
	}

	return volumes, nil
}

// Count returns the number of stored trading days.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM index_closes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count series days: %w", err)
	}
	return count, nil
}

// LatestDate returns the most recent stored date, or "" when the store
// is empty.
func (r *Repository) LatestDate() (string, error) {
	var date sql.NullString
	err := r.db.QueryRow("SELECT MAX(date) FROM index_closes").Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest date: %w", err)
	}
	if !date.Valid {
		return "", nil
	}
	return date.String, nil
}

// IndexCloses returns the most recent index closes in ascending date
// order, at most limit values. Used for indicator computations that only
// need the tail of the series.
func (r *Repository) IndexCloses(limit int) ([]float64, error) {
	rows, err := r.db.Query("SELECT close FROM index_closes ORDER BY date DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query index closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan index close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index closes: %w", err)
	}

	// Reverse newest-first into chronological order
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}
	return closes, nil
}
