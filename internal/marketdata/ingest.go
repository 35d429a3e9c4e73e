package marketdata

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/series"
	"github.com/aristath/liquidity-sentinel/internal/utils"
)

// Config carries the symbols and fetch range for ingestion.
type Config struct {
	Securities  []string
	IndexSymbol string
	Range       string // Yahoo range spec, e.g. "5y"
}

// Service refreshes the stored market series from Yahoo Finance. The
// fetched series are aligned by intersecting their trading days: a date
// missing from any one series (different exchange holidays, listing
// gaps) is dropped from all of them.
type Service struct {
	client *Client
	series *series.Repository
	cfg    Config
	log    zerolog.Logger
}

// NewService creates the ingest service.
func NewService(client *Client, seriesRepo *series.Repository, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		series: seriesRepo,
		cfg:    cfg,
		log:    log.With().Str("service", "ingest").Logger(),
	}
}

// Refresh fetches the monitored pair and the index, aligns their dates
// and replaces the stored series in one transaction. Returns the number
// of aligned days stored.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	defer utils.OperationTimer("market_refresh", s.log)()

	volumes := make(map[string]map[string]float64, len(s.cfg.Securities))
	for _, sym := range s.cfg.Securities {
		bars, err := s.client.DailyHistory(ctx, sym, s.cfg.Range)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch %s: %w", sym, err)
		}
		byDate := make(map[string]float64, len(bars))
		for _, bar := range bars {
			byDate[bar.Date] = bar.Volume
		}
		volumes[sym] = byDate
	}

	indexBars, err := s.client.DailyHistory(ctx, s.cfg.IndexSymbol, s.cfg.Range)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch index %s: %w", s.cfg.IndexSymbol, err)
	}
	closes := make(map[string]float64, len(indexBars))
	for _, bar := range indexBars {
		closes[bar.Date] = bar.Close
	}

	dates := s.alignedDates(volumes, closes)
	if len(dates) == 0 {
		return 0, fmt.Errorf("%w: no trading days shared by %v and %s",
			domain.ErrInsufficientData, s.cfg.Securities, s.cfg.IndexSymbol)
	}

	records := make([]domain.DailyRecord, 0, len(dates))
	for _, date := range dates {
		vols := make(map[string]float64, len(s.cfg.Securities))
		for _, sym := range s.cfg.Securities {
			vols[sym] = volumes[sym][date]
		}
		records = append(records, domain.DailyRecord{
			Date:       date,
			Volumes:    vols,
			IndexClose: closes[date],
		})
	}

	if err := s.series.Replace(records, s.cfg.Securities); err != nil {
		return 0, fmt.Errorf("failed to store market series: %w", err)
	}

	s.log.Info().
		Int("days", len(records)).
		Str("from", records[0].Date).
		Str("to", records[len(records)-1].Date).
		Msg("Market series refreshed")
	return len(records), nil
}

// alignedDates returns the dates present in every series, ascending.
func (s *Service) alignedDates(volumes map[string]map[string]float64, closes map[string]float64) []string {
	dates := make([]string, 0, len(closes))
	dropped := 0
	for date := range closes {
		shared := true
		for _, sym := range s.cfg.Securities {
			if _, ok := volumes[sym][date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, date)
		} else {
			dropped++
		}
	}
	sort.Strings(dates)

	if dropped > 0 {
		s.log.Debug().
			Int("dropped", dropped).
			Msg("Dates missing from at least one series dropped")
	}
	return dates
}
