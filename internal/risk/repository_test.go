package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	testingpkg "github.com/aristath/liquidity-sentinel/internal/testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "risk")
	t.Cleanup(cleanup)
	return NewRepository(db, zerolog.Nop())
}

func scoredRows(start string, n int) []domain.FeatureRow {
	dates := testingpkg.DateSequence(start, n)
	rows := make([]domain.FeatureRow, n)
	for i := range rows {
		row := testingpkg.FeatureRowFixture(dates[i])
		row.Crisis = i%4 == 0
		row.RiskScore = 0.3 + float64(i)*0.01
		rows[i] = row
	}
	return rows
}

func runRecordFor(id string, rows []domain.FeatureRow) RunRecord {
	started := time.Date(2024, 2, 9, 17, 30, 0, 0, time.UTC)
	return RunRecord{
		RunID:       id,
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Second),
		RowsScored:  len(rows),
		RowsDropped: 10,
		CrisisDays:  3,
		TestMode:    true,
		LatestDate:  rows[len(rows)-1].Date,
		LatestScore: rows[len(rows)-1].RiskScore,
	}
}

func TestRepository_EmptyState(t *testing.T) {
	repo := newTestRepository(t)

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	history, err := repo.History(30)
	require.NoError(t, err)
	assert.Empty(t, history)

	run, err := repo.LastRun()
	require.NoError(t, err)
	assert.Nil(t, run)

	count, err := repo.RunCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_ReplaceRunAndLatest(t *testing.T) {
	repo := newTestRepository(t)

	rows := scoredRows("2024-01-02", 10)
	run := runRecordFor("run-1", rows)
	require.NoError(t, repo.ReplaceRun(rows, run))

	latest, err := repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-01-11", latest.Date)
	assert.InDelta(t, 0.39, latest.RiskScore, 1e-9)
	require.Len(t, latest.Securities, 2)

	feats := latest.Securities[testingpkg.TestSecurityA]
	assert.Equal(t, 1_000_000.0, feats.Volume)
	assert.InDelta(t, 1.05, feats.LiquidityRatio, 1e-9)
	assert.InDelta(t, 0.74, feats.RiskComponent, 1e-9)

	count, err := repo.RunCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_LastRunRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	rows := scoredRows("2024-01-02", 4)
	want := runRecordFor("run-1", rows)
	require.NoError(t, repo.ReplaceRun(rows, want))

	got, err := repo.LastRun()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, got.StartedAt.Equal(want.StartedAt), "started at %s", got.StartedAt)
	assert.True(t, got.FinishedAt.Equal(want.FinishedAt), "finished at %s", got.FinishedAt)
	assert.Equal(t, want.RowsScored, got.RowsScored)
	assert.Equal(t, want.RowsDropped, got.RowsDropped)
	assert.Equal(t, want.CrisisDays, got.CrisisDays)
	assert.True(t, got.TestMode)
	assert.Equal(t, want.LatestDate, got.LatestDate)
	assert.InDelta(t, want.LatestScore, got.LatestScore, 1e-9)
}

func TestRepository_HistoryAscendingWithFeatures(t *testing.T) {
	repo := newTestRepository(t)

	rows := scoredRows("2024-01-02", 10)
	require.NoError(t, repo.ReplaceRun(rows, runRecordFor("run-1", rows)))

	history, err := repo.History(5)
	require.NoError(t, err)
	require.Len(t, history, 5)

	assert.Equal(t, "2024-01-07", history[0].Date)
	assert.Equal(t, "2024-01-11", history[4].Date)
	for i, row := range history {
		assert.Len(t, row.Securities, 2, "date %s", row.Date)
		assert.Contains(t, row.Securities, testingpkg.TestSecurityA)
		assert.Contains(t, row.Securities, testingpkg.TestSecurityB)
		if i > 0 {
			assert.Greater(t, row.Date, history[i-1].Date, "ascending order")
		}
	}

	// Crisis flags survive the integer round trip: row 8 is the only
	// multiple of 4 among the last five (indices 5..9)
	assert.False(t, history[0].Crisis)
	assert.True(t, history[3].Crisis)
}

func TestRepository_HistoryMoreThanStored(t *testing.T) {
	repo := newTestRepository(t)

	rows := scoredRows("2024-01-02", 4)
	require.NoError(t, repo.ReplaceRun(rows, runRecordFor("run-1", rows)))

	history, err := repo.History(365)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestRepository_ReplaceRunSwapsStoredRows(t *testing.T) {
	repo := newTestRepository(t)

	first := scoredRows("2024-01-02", 10)
	require.NoError(t, repo.ReplaceRun(first, runRecordFor("run-1", first)))

	second := scoredRows("2024-03-01", 3)
	secondRun := runRecordFor("run-2", second)
	secondRun.StartedAt = secondRun.StartedAt.Add(24 * time.Hour)
	secondRun.FinishedAt = secondRun.FinishedAt.Add(24 * time.Hour)
	require.NoError(t, repo.ReplaceRun(second, secondRun))

	// Feature and score tables hold only the latest run
	history, err := repo.History(365)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2024-03-01", history[0].Date)

	// The run log is append-only
	count, err := repo.RunCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	run, err := repo.LastRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-2", run.RunID)
}
