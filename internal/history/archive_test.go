package history

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	testingpkg "github.com/aristath/liquidity-sentinel/internal/testing"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	archive := NewArchive(db, zerolog.Nop())
	require.NoError(t, archive.Init())
	return archive
}

func TestArchive_AppendAndLatest(t *testing.T) {
	archive := newTestArchive(t)

	// Empty archive has no latest signal
	latest, err := archive.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	sig := testingpkg.SignalFixture("2024-03-15", 0.87, domain.RiskLevelRed)
	sig.Code = "LIQ_RISK RED 87%"
	require.NoError(t, archive.Append(sig))

	latest, err = archive.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-03-15", latest.TradeDate)
	assert.Equal(t, domain.RiskLevelRed, latest.RiskLevel)
	assert.Equal(t, "LIQ_RISK RED 87%", latest.Code)
	assert.Equal(t, 0.87, latest.RiskProbability)
	assert.NotZero(t, latest.ID)
	// Stored at second precision
	assert.WithinDuration(t, sig.CreatedAt, latest.CreatedAt, time.Second)
}

func TestArchive_ListNewestFirst(t *testing.T) {
	archive := newTestArchive(t)

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sig := testingpkg.SignalFixture("2024-03-15", 0.3, domain.RiskLevelGreen)
		sig.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		sig.RunID = string(rune('a' + i))
		require.NoError(t, archive.Append(sig))
	}

	signals, err := archive.List(3)
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, "e", signals[0].RunID)
	assert.Equal(t, "d", signals[1].RunID)
	assert.Equal(t, "c", signals[2].RunID)

	// Limit beyond the archive returns everything
	signals, err = archive.List(100)
	require.NoError(t, err)
	assert.Len(t, signals, 5)
}

func TestArchive_ListEmpty(t *testing.T) {
	archive := newTestArchive(t)

	signals, err := archive.List(10)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestArchive_DeleteOlderThan(t *testing.T) {
	archive := newTestArchive(t)

	now := time.Now().UTC()
	old := testingpkg.SignalFixture("2024-01-02", 0.3, domain.RiskLevelGreen)
	old.CreatedAt = now.AddDate(0, 0, -120)
	recent := testingpkg.SignalFixture("2024-03-15", 0.3, domain.RiskLevelGreen)
	recent.CreatedAt = now

	require.NoError(t, archive.Append(old))
	require.NoError(t, archive.Append(recent))

	deleted, err := archive.DeleteOlderThan(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	latest, err := archive.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-03-15", latest.TradeDate)

	// Nothing left to delete
	deleted, err = archive.DeleteOlderThan(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestArchive_InitIdempotent(t *testing.T) {
	archive := newTestArchive(t)
	require.NoError(t, archive.Init())
	require.NoError(t, archive.Init())

	require.NoError(t, archive.Append(testingpkg.SignalFixture("2024-03-15", 0.3, domain.RiskLevelGreen)))
	count, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
