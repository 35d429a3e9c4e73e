package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/config"
)

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &config.Config{DataDir: tmpDir}
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close(log)

	assert.NotNil(t, container.MarketDB)
	assert.NotNil(t, container.RiskDB)
	assert.NotNil(t, container.Archive)

	assert.FileExists(t, filepath.Join(tmpDir, "market.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "risk.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "signal_history.db"))
}

func TestInitializeDatabases_SchemasApplied(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &config.Config{DataDir: tmpDir}
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	defer container.Close(log)

	// Smoke-test one table per database; full schema coverage lives in
	// the database package tests.
	_, err = container.MarketDB.Conn().Exec(
		"INSERT INTO index_closes (date, close) VALUES ('2024-01-02', 7450.0)")
	assert.NoError(t, err)

	_, err = container.RiskDB.Conn().Exec(
		"SELECT COUNT(*) FROM risk_scores")
	assert.NoError(t, err)

	count, err := container.Archive.Count()
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInitializeDatabases_DataDirIsAFile(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := &config.Config{DataDir: blocker}
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	assert.Error(t, err)
	assert.Nil(t, container)
}
