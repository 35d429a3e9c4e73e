// Package history is the append-only archive of emitted signals. It
// lives in its own SQLite database (signal_history.db) on the mattn
// driver so a corrupted market or risk database can never take the
// signal trail down with it.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id           TEXT NOT NULL,
    created_at       INTEGER NOT NULL,
    trade_date       TEXT NOT NULL,
    risk_probability REAL NOT NULL,
    risk_level       TEXT NOT NULL,
    action           TEXT NOT NULL,
    code             TEXT NOT NULL,
    source           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals(created_at);
`

// Archive provides access to the signal history database.
type Archive struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Open opens (creating if necessary) the signal history database at the
// given path and applies the schema.
func Open(path string, log zerolog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("failed to open signal history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping signal history database: %w", err)
	}

	a := NewArchive(db, log)
	a.path = path
	if err := a.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewArchive wraps an existing connection. Used by tests with an
// in-memory database; production code goes through Open.
func NewArchive(db *sql.DB, log zerolog.Logger) *Archive {
	return &Archive{
		db:  db,
		log: log.With().Str("component", "signal_archive").Logger(),
	}
}

// Init applies the archive schema. Idempotent.
func (a *Archive) Init() error {
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply signal history schema: %w", err)
	}
	return nil
}

// Append stores one signal. Signals are never updated or rewritten.
func (a *Archive) Append(sig domain.Signal) error {
	_, err := a.db.Exec(`
		INSERT INTO signals (run_id, created_at, trade_date, risk_probability, risk_level, action, code, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.RunID, sig.CreatedAt.Unix(), sig.TradeDate, sig.RiskProbability,
		string(sig.RiskLevel), sig.Action, sig.Code, string(sig.Source))
	if err != nil {
		return fmt.Errorf("failed to append signal: %w", err)
	}

	a.log.Debug().
		Str("level", string(sig.RiskLevel)).
		Str("code", sig.Code).
		Str("source", string(sig.Source)).
		Msg("Signal archived")
	return nil
}

// Latest returns the most recently archived signal, or nil when the
// archive is empty.
func (a *Archive) Latest() (*domain.Signal, error) {
	row := a.db.QueryRow(`
		SELECT id, run_id, created_at, trade_date, risk_probability, risk_level, action, code, source
		FROM signals
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)

	sig, err := scanSignal(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest signal: %w", err)
	}
	return sig, nil
}

// List returns up to limit signals, newest first.
func (a *Archive) List(limit int) ([]domain.Signal, error) {
	rows, err := a.db.Query(`
		SELECT id, run_id, created_at, trade_date, risk_probability, risk_level, action, code, source
		FROM signals
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, *sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}
	return signals, nil
}

// DeleteOlderThan removes signals created before the cutoff and returns
// the number deleted.
func (a *Archive) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := a.db.Exec("DELETE FROM signals WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old signals: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted signals: %w", err)
	}

	if deleted > 0 {
		a.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Old signals removed")
	}
	return deleted, nil
}

// Count returns the number of archived signals.
func (a *Archive) Count() (int, error) {
	var count int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM signals").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

// Name identifies this database to the backup service.
func (a *Archive) Name() string {
	return "signal_history"
}

// Path returns the database file path ("" for in-memory archives).
func (a *Archive) Path() string {
	return a.path
}

// VacuumInto writes a consistent snapshot of the archive to destPath.
// Safe while the archive is in use.
func (a *Archive) VacuumInto(destPath string) error {
	if _, err := a.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into %s failed for signal history: %w", destPath, err)
	}
	return nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// scanSignal reads one signals row via the given scan function.
func scanSignal(scan func(dest ...interface{}) error) (*domain.Signal, error) {
	var sig domain.Signal
	var createdAt int64
	var level, source string

	err := scan(&sig.ID, &sig.RunID, &createdAt, &sig.TradeDate, &sig.RiskProbability,
		&level, &sig.Action, &sig.Code, &source)
	if err != nil {
		return nil, err
	}

	sig.CreatedAt = time.Unix(createdAt, 0).UTC()
	sig.RiskLevel = domain.RiskLevel(level)
	sig.Source = domain.SignalSource(source)
	return &sig, nil
}
