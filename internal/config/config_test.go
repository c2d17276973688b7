package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
data_source:
  primary: yahoo
  secondary: vstrader
  symbol: QQQ
  vstrader:
    base_url: http://localhost:8080
study:
  nboot: 500
  range_policy: reject
telegram:
  bot_token: "test_token"
  chat_id: 12345
schedule:
  jobs:
    - name: weekly-spy
      cron: "0 0 8 * * 1"
      kind: study
      symbol: SPY
      lookback_days: 1825
    - name: daily-trend
      cron: "0 0 22 * * 1-5"
      kind: trend
      lookback_days: 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "QQQ", cfg.DataSource.Symbol)
	assert.Equal(t, "http://localhost:8080", cfg.DataSource.VsTrader.BaseURL)
	assert.Equal(t, 500, cfg.Study.NBoot)
	assert.Equal(t, "reject", cfg.Study.RangePolicy)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
	assert.True(t, cfg.Telegram.Enabled())

	require.Len(t, cfg.Schedule.Jobs, 2)
	assert.Equal(t, "weekly-spy", cfg.Schedule.Jobs[0].Name)
	assert.Equal(t, 1825, cfg.Schedule.Jobs[0].LookbackDays)
	assert.Equal(t, "QQQ", cfg.SymbolFor(cfg.Schedule.Jobs[1]))

	// untouched sections keep their defaults
	assert.Equal(t, 2*time.Second, cfg.Acquisition.RetryDelay)
	assert.Equal(t, 365, cfg.Acquisition.ChunkDays)
	assert.Equal(t, 3650, cfg.Study.MaxSpanDays)
	assert.Equal(t, 30*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "yahoo", cfg.DataSource.Primary)
	assert.Equal(t, "alphavantage", cfg.DataSource.Secondary)
	assert.Equal(t, 2000, cfg.Study.NBoot)
	assert.Equal(t, "clamp", cfg.Study.RangePolicy)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Empty(t, cfg.Schedule.Jobs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy-token")
	t.Setenv("TELEGRAM_CHAT_ID", "987")
	t.Setenv("SQLITE_PATH", "/tmp/legacy.db")
	t.Setenv("EVENTLENS_STUDY_NBOOT", "750")
	t.Setenv("EVENTLENS_DATA_SOURCE_SYMBOL", "IWM")

	cfg, err := Load(writeConfig(t, "telegram:\n  bot_token: from-file\n  chat_id: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Telegram.BotToken)
	assert.Equal(t, int64(987), cfg.Telegram.ChatID)
	assert.Equal(t, "/tmp/legacy.db", cfg.Database.SQLitePath)
	assert.Equal(t, 750, cfg.Study.NBoot)
	assert.Equal(t, "IWM", cfg.DataSource.Symbol)
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "data_source: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(c *Config){
		"unknown primary":      func(c *Config) { c.DataSource.Primary = "bloomberg" },
		"unknown secondary":    func(c *Config) { c.DataSource.Secondary = "reuters" },
		"vstrader without url": func(c *Config) { c.DataSource.Secondary = "vstrader" },
		"zero nboot":           func(c *Config) { c.Study.NBoot = 0 },
		"bad range policy":     func(c *Config) { c.Study.RangePolicy = "truncate" },
		"half telegram":        func(c *Config) { c.Telegram.BotToken = "x" },
		"zero chunk":           func(c *Config) { c.Acquisition.ChunkDays = 0 },
		"bad cron": func(c *Config) {
			c.Schedule.Jobs = []JobConfig{{Name: "j", Cron: "every day", Kind: JobStudy, LookbackDays: 10}}
		},
		"bad kind": func(c *Config) {
			c.Schedule.Jobs = []JobConfig{{Name: "j", Cron: "0 0 8 * * 1", Kind: "backtest", LookbackDays: 10}}
		},
		"no lookback": func(c *Config) {
			c.Schedule.Jobs = []JobConfig{{Name: "j", Cron: "0 0 8 * * 1", Kind: JobTrend}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
