package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"EventLens/internal/logging"
)

// Job kinds understood by the scheduler.
const (
	JobStudy = "study"
	JobTrend = "trend"
)

// Config holds all application configuration.
type Config struct {
	DataSource  DataSourceConfig  `mapstructure:"data_source"`
	Acquisition AcquisitionConfig `mapstructure:"acquisition"`
	Study       StudyConfig       `mapstructure:"study"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     logging.Config    `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	RefData     RefDataConfig     `mapstructure:"refdata"`
	Proxy       string            `mapstructure:"proxy"`
}

// DataSourceConfig selects the price providers.
type DataSourceConfig struct {
	Primary      string             `mapstructure:"primary"`   // yahoo | vstrader | mock
	Secondary    string             `mapstructure:"secondary"` // alphavantage | vstrader | mock | ""
	Symbol       string             `mapstructure:"symbol"`
	Timeout      time.Duration      `mapstructure:"timeout"`
	VsTrader     VsTraderConfig     `mapstructure:"vstrader"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
}

type VsTraderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type AlphaVantageConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AcquisitionConfig tunes the fallback tiers and the provider guards.
type AcquisitionConfig struct {
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	ChunkDays         int           `mapstructure:"chunk_days"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	FailureThreshold  uint32        `mapstructure:"failure_threshold"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

type StudyConfig struct {
	NBoot       int    `mapstructure:"nboot"`
	MaxSpanDays int    `mapstructure:"max_span_days"`
	RangePolicy string `mapstructure:"range_policy"` // clamp | reject
	Windows     string `mapstructure:"windows"`
	Seed        uint64 `mapstructure:"seed"` // 0 = random per run
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Enabled reports whether both telegram credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

type ScheduleConfig struct {
	Jobs []JobConfig `mapstructure:"jobs"`
}

// JobConfig is one cron-triggered study or trend report.
type JobConfig struct {
	Name         string `mapstructure:"name"`
	Cron         string `mapstructure:"cron"` // six fields, seconds first
	Kind         string `mapstructure:"kind"`
	Symbol       string `mapstructure:"symbol"`
	LookbackDays int    `mapstructure:"lookback_days"`
	Windows      string `mapstructure:"windows"`
}

type DatabaseConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"` // empty disables recording
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type RefDataConfig struct {
	CalendarFile string `mapstructure:"calendar_file"` // empty = built-in calendar
	FallbackFile string `mapstructure:"fallback_file"` // empty = built-in table
}

// legacyEnv maps config keys to the unprefixed variable names also honoured.
var legacyEnv = map[string]string{
	"telegram.bot_token":               "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":                 "TELEGRAM_CHAT_ID",
	"data_source.vstrader.base_url":    "VSTRADER_BASE_URL",
	"data_source.vstrader.api_key":     "VSTRADER_API_KEY",
	"data_source.alphavantage.api_key": "ALPHA_VANTAGE_API_KEY",
	"proxy":                            "HTTPS_PROXY",
	"database.sqlite_path":             "SQLITE_PATH",
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("EVENTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "EVENTLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_source.primary", "yahoo")
	v.SetDefault("data_source.secondary", "alphavantage")
	v.SetDefault("data_source.symbol", "SPY")
	v.SetDefault("data_source.timeout", "30s")
	v.SetDefault("data_source.vstrader.base_url", "")
	v.SetDefault("data_source.vstrader.api_key", "")
	v.SetDefault("data_source.alphavantage.api_key", "")

	v.SetDefault("acquisition.retry_delay", "2s")
	v.SetDefault("acquisition.chunk_days", 365)
	v.SetDefault("acquisition.requests_per_second", 2.0)
	v.SetDefault("acquisition.burst", 2)
	v.SetDefault("acquisition.failure_threshold", 5)
	v.SetDefault("acquisition.breaker_timeout", "60s")

	v.SetDefault("study.nboot", 2000)
	v.SetDefault("study.max_span_days", 3650)
	v.SetDefault("study.range_policy", "clamp")
	v.SetDefault("study.windows", "-5:5,-1:1,0:1")
	v.SetDefault("study.seed", 0)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("schedule.jobs", []map[string]interface{}{})

	v.SetDefault("database.sqlite_path", "data/eventlens.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", "logs/eventlens.log")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", ":9090")

	v.SetDefault("refdata.calendar_file", "")
	v.SetDefault("refdata.fallback_file", "")

	v.SetDefault("proxy", "")
}

var (
	primaryProviders   = map[string]bool{"yahoo": true, "vstrader": true, "mock": true}
	secondaryProviders = map[string]bool{"": true, "alphavantage": true, "vstrader": true, "mock": true}
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !primaryProviders[c.DataSource.Primary] {
		return fmt.Errorf("data_source.primary: unknown provider %q", c.DataSource.Primary)
	}
	if !secondaryProviders[c.DataSource.Secondary] {
		return fmt.Errorf("data_source.secondary: unknown provider %q", c.DataSource.Secondary)
	}
	if c.DataSource.Primary == "vstrader" || c.DataSource.Secondary == "vstrader" {
		if c.DataSource.VsTrader.BaseURL == "" {
			return fmt.Errorf("data_source.vstrader.base_url is required")
		}
	}
	if c.Acquisition.ChunkDays <= 0 {
		return fmt.Errorf("acquisition.chunk_days must be positive")
	}
	if c.Acquisition.RequestsPerSecond <= 0 {
		return fmt.Errorf("acquisition.requests_per_second must be positive")
	}
	if c.Study.NBoot <= 0 {
		return fmt.Errorf("study.nboot must be positive")
	}
	if c.Study.MaxSpanDays <= 0 {
		return fmt.Errorf("study.max_span_days must be positive")
	}
	if c.Study.RangePolicy != "clamp" && c.Study.RangePolicy != "reject" {
		return fmt.Errorf("study.range_policy must be clamp or reject, got %q", c.Study.RangePolicy)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for i, job := range c.Schedule.Jobs {
		if job.Name == "" {
			return fmt.Errorf("schedule.jobs[%d].name is required", i)
		}
		if _, err := parser.Parse(job.Cron); err != nil {
			return fmt.Errorf("schedule.jobs[%d] %s: invalid cron %q: %w", i, job.Name, job.Cron, err)
		}
		if job.Kind != JobStudy && job.Kind != JobTrend {
			return fmt.Errorf("schedule.jobs[%d] %s: kind must be %s or %s", i, job.Name, JobStudy, JobTrend)
		}
		if job.LookbackDays <= 0 {
			return fmt.Errorf("schedule.jobs[%d] %s: lookback_days must be positive", i, job.Name)
		}
	}
	return nil
}

// SymbolFor returns the job symbol, or the data source default.
func (c *Config) SymbolFor(job JobConfig) string {
	if job.Symbol != "" {
		return job.Symbol
	}
	return c.DataSource.Symbol
}
