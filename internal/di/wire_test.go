package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/config"
	testingpkg "github.com/aristath/liquidity-sentinel/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:              t.TempDir(),
		Port:                 8002,
		Securities:           testingpkg.TestSecurities(),
		IndexSymbol:          testingpkg.TestIndexSymbol,
		RollingWindowDays:    30,
		ShortWindowDays:      5,
		IndexMomentumDays:    10,
		CrisisDates:          config.DefaultCrisisDates,
		CrisisSampleFraction: 0.7,
		ScoreCutoffDate:      "2023-09-01",
		RandomSeed:           42,
		RedThreshold:         0.85,
		AmberThreshold:       0.70,
		YahooRange:           "5y",
		HistoryRetentionDays: 90,
	}
}

func TestWire_BuildsFullContainer(t *testing.T) {
	log := zerolog.Nop()

	container, jobs, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	defer container.Close(log)

	assert.NotNil(t, container.MarketDB)
	assert.NotNil(t, container.RiskDB)
	assert.NotNil(t, container.Archive)
	assert.NotNil(t, container.SeriesRepo)
	assert.NotNil(t, container.RiskRepo)
	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.YahooClient)
	assert.NotNil(t, container.Ingest)
	assert.NotNil(t, container.Window)
	assert.NotNil(t, container.Derived)
	assert.NotNil(t, container.Labeler)
	assert.NotNil(t, container.Scorer)
	assert.NotNil(t, container.Pipeline)
	assert.NotNil(t, container.Decisions)
	assert.NotNil(t, container.Dashboard)
	assert.NotNil(t, container.Broadcaster)
	assert.NotNil(t, container.MonitorRand)

	// Display address unset: broadcaster exists but sends nowhere.
	assert.False(t, container.Broadcaster.Enabled())
}

func TestWire_JobsCarryTheirNames(t *testing.T) {
	log := zerolog.Nop()

	container, jobs, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	defer container.Close(log)

	assert.Equal(t, "pipeline", jobs.Pipeline.Name())
	assert.Equal(t, "monitor", jobs.Monitor.Name())
	assert.Equal(t, "history_cleanup", jobs.HistoryCleanup.Name())
}

func TestWire_NoR2MeansNoBackup(t *testing.T) {
	log := zerolog.Nop()

	container, jobs, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	defer container.Close(log)

	assert.Nil(t, container.R2Client)
	assert.Nil(t, container.BackupService)
	assert.Nil(t, jobs.Backup)
}

func TestWire_InvalidDisplayAddressFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.DisplayUDPAddr = "no-port-here"

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize services")
	assert.Nil(t, container)
	assert.Nil(t, jobs)
}
