package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/config"
	"github.com/aristath/liquidity-sentinel/internal/database"
	"github.com/aristath/liquidity-sentinel/internal/history"
)

// InitializeDatabases opens all three databases and applies schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. market.db - ingested daily series. Re-fetchable from Yahoo, so
	// the ingest profile trades durability for write speed.
	marketDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/market.db",
		Profile: database.ProfileIngest,
		Name:    "market",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market database: %w", err)
	}
	container.MarketDB = marketDB

	// 2. risk.db - scored feature rows and pipeline run records
	riskDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/risk.db",
		Profile: database.ProfileStandard,
		Name:    "risk",
	})
	if err != nil {
		marketDB.Close()
		return nil, fmt.Errorf("failed to initialize risk database: %w", err)
	}
	container.RiskDB = riskDB

	// 3. signal_history.db - append-only signal archive. Lives on its own
	// driver so a corrupted market or risk database cannot take the
	// signal trail down with it.
	archive, err := history.Open(cfg.DataDir+"/signal_history.db", log)
	if err != nil {
		riskDB.Close()
		marketDB.Close()
		return nil, fmt.Errorf("failed to initialize signal history database: %w", err)
	}
	container.Archive = archive

	// Apply schemas (single source of truth, idempotent)
	for _, db := range []*database.DB{marketDB, riskDB} {
		if err := db.Migrate(); err != nil {
			archive.Close()
			riskDB.Close()
			marketDB.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
