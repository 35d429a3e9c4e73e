// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/liquidity-sentinel/internal/utils"
)

// DefaultCrisisDates are the historical liquidity-crisis events used for labeling.
// Overridable via the CRISIS_DATES environment variable.
var DefaultCrisisDates = []string{
	"2016-06-24",
	"2018-12-24",
	"2019-08-14",
	"2020-02-24",
	"2020-03-09",
	"2020-03-12",
	"2020-03-16",
	"2020-03-18",
	"2022-09-26",
	"2022-09-28",
}

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	Port      int
	LogLevel  string
	LogPretty bool
	DevMode   bool

	// TestMode substitutes the synthetic scoring/labeling policies for what a
	// trained model would produce in production. Off by default.
	TestMode bool

	// Securities is the monitored pair, in order. The fallback risk formula
	// blends the pair's risk components in this order.
	Securities  []string
	IndexSymbol string

	RollingWindowDays int // liquidity ratio window
	ShortWindowDays   int // momentum / volatility window
	IndexMomentumDays int

	CrisisDates          []string
	CrisisSampleFraction float64
	ScoreCutoffDate      string // days strictly after this get elevated synthetic scores
	RandomSeed           int64  // 0 = time-seeded

	RedThreshold   float64
	AmberThreshold float64

	YahooRange             string
	FetchOnStart           bool
	PipelineOnStart        bool
	PipelineCron           string
	MonitorIntervalSeconds int
	HistoryRetentionDays   int

	// DisplayUDPAddr is the optional host:port of an external ticker display.
	// Empty disables broadcasting.
	DisplayUDPAddr string

	R2 R2Config
}

// R2Config holds S3-compatible backup storage settings (Cloudflare R2)
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RetentionDays   int
}

// Configured reports whether backup uploads can run
func (r R2Config) Configured() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	securities := utils.ParseCSV(getEnv("SECURITIES", "TSCO.L,BP.L"))
	crisisDates := utils.ParseCSV(getEnv("CRISIS_DATES", ""))
	if crisisDates == nil {
		crisisDates = append([]string(nil), DefaultCrisisDates...)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		Port:      getEnvAsInt("GO_PORT", 8002),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		TestMode:    getEnvAsBool("TEST_MODE", false),
		Securities:  securities,
		IndexSymbol: getEnv("INDEX_SYMBOL", "^FTSE"),

		RollingWindowDays: getEnvAsInt("ROLLING_WINDOW_DAYS", 30),
		ShortWindowDays:   getEnvAsInt("SHORT_WINDOW_DAYS", 5),
		IndexMomentumDays: getEnvAsInt("INDEX_MOMENTUM_DAYS", 10),

		CrisisDates:          crisisDates,
		CrisisSampleFraction: getEnvAsFloat("CRISIS_SAMPLE_FRACTION", 0.7),
		ScoreCutoffDate:      getEnv("SCORE_CUTOFF_DATE", "2023-09-01"),
		RandomSeed:           getEnvAsInt64("RANDOM_SEED", 0),

		RedThreshold:   getEnvAsFloat("RED_THRESHOLD", 0.85),
		AmberThreshold: getEnvAsFloat("AMBER_THRESHOLD", 0.70),

		YahooRange:             getEnv("YAHOO_RANGE", "5y"),
		FetchOnStart:           getEnvAsBool("FETCH_ON_START", true),
		PipelineOnStart:        getEnvAsBool("PIPELINE_ON_START", true),
		PipelineCron:           getEnv("PIPELINE_CRON", "0 30 17 * * MON-FRI"),
		MonitorIntervalSeconds: getEnvAsInt("MONITOR_INTERVAL_SECONDS", 2),
		HistoryRetentionDays:   getEnvAsInt("HISTORY_RETENTION_DAYS", 90),

		DisplayUDPAddr: getEnv("DISPLAY_UDP_ADDR", ""),

		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
			RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if len(c.Securities) != 2 {
		return fmt.Errorf("exactly two monitored securities required, got %d", len(c.Securities))
	}
	if c.IndexSymbol == "" {
		return fmt.Errorf("index symbol required")
	}
	if c.ShortWindowDays < 2 {
		return fmt.Errorf("short window must be at least 2 days, got %d", c.ShortWindowDays)
	}
	if c.RollingWindowDays < c.ShortWindowDays {
		return fmt.Errorf("rolling window (%d) must be at least the short window (%d)",
			c.RollingWindowDays, c.ShortWindowDays)
	}
	if c.IndexMomentumDays < 1 {
		return fmt.Errorf("index momentum lag must be positive, got %d", c.IndexMomentumDays)
	}
	if c.CrisisSampleFraction < 0 || c.CrisisSampleFraction > 1 {
		return fmt.Errorf("crisis sample fraction must be in [0,1], got %v", c.CrisisSampleFraction)
	}
	if c.RedThreshold < 0 || c.RedThreshold > 1 || c.AmberThreshold < 0 || c.AmberThreshold > 1 {
		return fmt.Errorf("alert thresholds must be in [0,1]")
	}
	if c.AmberThreshold >= c.RedThreshold {
		return fmt.Errorf("amber threshold (%v) must be below red threshold (%v)",
			c.AmberThreshold, c.RedThreshold)
	}
	if _, err := time.Parse(utils.ISODate, c.ScoreCutoffDate); err != nil {
		return fmt.Errorf("invalid score cutoff date: %w", err)
	}
	for _, d := range c.CrisisDates {
		if _, err := time.Parse(utils.ISODate, d); err != nil {
			return fmt.Errorf("invalid crisis date %q: %w", d, err)
		}
	}
	if c.MonitorIntervalSeconds < 1 {
		return fmt.Errorf("monitor interval must be at least 1 second, got %d", c.MonitorIntervalSeconds)
	}
	if c.HistoryRetentionDays < 0 {
		return fmt.Errorf("history retention days must not be negative, got %d", c.HistoryRetentionDays)
	}
	return nil
}

// SecurityPairLabel renders the monitored pair for alert messages, e.g. "BP.L/TSCO.L"
func (c *Config) SecurityPairLabel() string {
	return c.Securities[1] + "/" + c.Securities[0]
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
