package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/risk"
	"github.com/aristath/liquidity-sentinel/internal/series"
)

// InitializeRepositories creates all repositories and stores them in the
// container.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Series repository (needs marketDB)
	container.SeriesRepo = series.NewRepository(container.MarketDB, log)

	// Risk repository (needs riskDB)
	container.RiskRepo = risk.NewRepository(container.RiskDB, log)

	log.Info().Msg("All repositories initialized")

	return nil
}
