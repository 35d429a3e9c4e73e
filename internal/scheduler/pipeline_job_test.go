package scheduler

import (
	"database/sql"
	"errors"
	"math/rand"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/alert"
	"github.com/aristath/liquidity-sentinel/internal/display"
	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/events"
	"github.com/aristath/liquidity-sentinel/internal/features"
	"github.com/aristath/liquidity-sentinel/internal/history"
	"github.com/aristath/liquidity-sentinel/internal/risk"
	"github.com/aristath/liquidity-sentinel/internal/series"
	testingpkg "github.com/aristath/liquidity-sentinel/internal/testing"
)

// newPipelineJob wires a complete pipeline over test databases, with
// fetching disabled so the job scores whatever the store holds.
func newPipelineJob(t *testing.T) (*PipelineJob, *series.Repository, *risk.Repository) {
	t.Helper()

	marketDB, marketCleanup := testingpkg.NewTestDB(t, "market")
	t.Cleanup(marketCleanup)
	riskDB, riskCleanup := testingpkg.NewTestDB(t, "risk")
	t.Cleanup(riskCleanup)

	historyDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyDB.Close() })
	archive := history.NewArchive(historyDB, zerolog.Nop())
	require.NoError(t, archive.Init())

	broadcaster, err := display.NewBroadcaster("", zerolog.Nop())
	require.NoError(t, err)

	bus := events.NewBus(zerolog.Nop())
	em := events.NewManager(bus, zerolog.Nop())

	seriesRepo := series.NewRepository(marketDB, zerolog.Nop())
	riskRepo := risk.NewRepository(riskDB, zerolog.Nop())

	rng := rand.New(rand.NewSource(42))
	securities := testingpkg.TestSecurities()
	pipeline := risk.NewService(risk.ServiceDeps{
		Series:      seriesRepo,
		Window:      features.NewWindowEngine(30),
		Derived:     features.NewDerivedEngine(5, 10),
		Labeler:     risk.NewLabeler(nil, false, nil, rng),
		Scorer:      risk.NewScorer(false, "2023-09-01", 0.7, securities, rng),
		Repo:        riskRepo,
		Decisions:   alert.NewEngine(0.85, 0.70, "BP.L/TSCO.L"),
		Archive:     archive,
		Broadcaster: broadcaster,
		Events:      em,
	}, risk.ServiceConfig{
		Securities:  securities,
		IndexSymbol: testingpkg.TestIndexSymbol,
		ShortWindow: 5,
	}, zerolog.Nop())

	job := NewPipelineJob(nil, pipeline, false, zerolog.Nop())
	return job, seriesRepo, riskRepo
}

func TestPipelineJob_ScoresStoredSeries(t *testing.T) {
	job, seriesRepo, riskRepo := newPipelineJob(t)
	records := testingpkg.TrendingRecords("2024-01-01", 40)
	require.NoError(t, seriesRepo.Replace(records, testingpkg.TestSecurities()))

	require.NoError(t, job.Run())

	runs, err := riskRepo.RunCount()
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	latest, err := riskRepo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-02-09", latest.Date)
}

func TestPipelineJob_FailsOnEmptyStore(t *testing.T) {
	job, _, riskRepo := newPipelineJob(t)

	err := job.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientData))

	runs, err := riskRepo.RunCount()
	require.NoError(t, err)
	assert.Equal(t, 0, runs)
}
