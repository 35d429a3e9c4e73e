package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/risk"
	testingpkg "github.com/aristath/liquidity-sentinel/internal/testing"
)

func seededRenderer(t *testing.T, days int) *Renderer {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "risk")
	t.Cleanup(cleanup)
	repo := risk.NewRepository(db, zerolog.Nop())

	dates := testingpkg.DateSequence("2024-01-02", days)
	rows := make([]domain.FeatureRow, days)
	for i := range rows {
		row := testingpkg.FeatureRowFixture(dates[i])
		row.RiskScore = 0.30 + float64(i)*0.01
		rows[i] = row
	}
	run := risk.RunRecord{
		RunID:       "run-1",
		StartedAt:   time.Date(2024, 2, 9, 17, 30, 0, 0, time.UTC),
		FinishedAt:  time.Date(2024, 2, 9, 17, 30, 2, 0, time.UTC),
		RowsScored:  days,
		LatestDate:  dates[days-1],
		LatestScore: rows[days-1].RiskScore,
	}
	require.NoError(t, repo.ReplaceRun(rows, run))

	return NewRenderer(repo, testingpkg.TestSecurities())
}

func TestRender_RecentDaysNewestFirst(t *testing.T) {
	renderer := seededRenderer(t, 7)

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "Recent liquidity trends:")
	assert.Contains(t, out, "TSCO Ratio")
	assert.Contains(t, out, "BP Ratio")
	assert.Contains(t, out, "Risk Prob")
	assert.Contains(t, out, strings.Repeat("-", 50))

	// Only the last five days, newest first
	assert.NotContains(t, out, "2024-01-02")
	assert.NotContains(t, out, "2024-01-03")
	assert.Less(t, strings.Index(out, "2024-01-08"), strings.Index(out, "2024-01-04"))

	// Latest row: fixture ratios and the per-day score
	lines := strings.Split(out, "\n")
	var latest string
	for _, line := range lines {
		if strings.HasPrefix(line, "2024-01-08") {
			latest = line
			break
		}
	}
	require.NotEmpty(t, latest, "expected a row for the latest date")
	assert.Equal(t, []string{"2024-01-08", "1.05", "0.95", "36.00%"}, strings.Fields(latest))
}

func TestRender_FewerDaysThanWindow(t *testing.T) {
	renderer := seededRenderer(t, 2)

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf))

	assert.Contains(t, buf.String(), "2024-01-02")
	assert.Contains(t, buf.String(), "2024-01-03")
}

func TestRender_EmptyRepository(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "risk")
	t.Cleanup(cleanup)
	renderer := NewRenderer(risk.NewRepository(db, zerolog.Nop()), testingpkg.TestSecurities())

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf))
	assert.Contains(t, buf.String(), "No scored data yet")
}

func TestSummary(t *testing.T) {
	renderer := seededRenderer(t, 5)

	out, err := renderer.Summary()
	require.NoError(t, err)
	assert.Contains(t, out, "Recent liquidity trends:")
}
