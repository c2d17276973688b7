package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"EventLens/internal/collector"
	"EventLens/internal/config"
	"EventLens/internal/logging"
	"EventLens/internal/metrics"
	"EventLens/internal/model"
	"EventLens/internal/recorder"
	"EventLens/internal/refdata"
	"EventLens/internal/study"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	calendar  *refdata.EventCalendar
	fallback  *refdata.FallbackTable
	collector *collector.Collector
	engine    *study.Engine
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func newApp(cfgPath string, debug bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	logger := logging.New(cfg.Logging)

	calendar, err := refdata.LoadCalendar(cfg.RefData.CalendarFile)
	if err != nil {
		return nil, err
	}
	fallback := refdata.DefaultFallbackTable()
	if cfg.RefData.FallbackFile != "" {
		if fallback, err = refdata.LoadFallbackTable(cfg.RefData.FallbackFile); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New(), calendar: calendar, fallback: fallback}

	primary, err := a.fetcher(cfg.DataSource.Primary)
	if err != nil {
		return nil, err
	}
	var secondary collector.Fetcher
	switch {
	case cfg.DataSource.Secondary == "alphavantage" && cfg.DataSource.AlphaVantage.APIKey == "":
		logger.Warn().Msg("alphavantage api key not set, secondary provider disabled")
	case cfg.DataSource.Secondary != "":
		if secondary, err = a.fetcher(cfg.DataSource.Secondary); err != nil {
			return nil, err
		}
	}
	a.collector = collector.NewCollector(primary, secondary, collector.Options{
		RetryDelay: cfg.Acquisition.RetryDelay,
		ChunkDays:  cfg.Acquisition.ChunkDays,
	}, fallback, a.metrics, logger)

	a.engine = study.NewEngine(a.collector, a.metrics, logger)
	a.engine.NBoot = cfg.Study.NBoot
	a.engine.MaxSpanDays = cfg.Study.MaxSpanDays
	a.engine.RangePolicy = cfg.Study.RangePolicy
	if seed := cfg.Study.Seed; seed != 0 {
		a.engine.Seed = func() uint64 { return seed }
	}

	logger.Debug().Str("primary", primary.Name()).Strs("strategies", a.collector.Strategies()).
		Str("calendar", calendar.Version).Msg("eventlens initialized")
	return a, nil
}

// fetcher builds a guarded provider by name.
func (a *app) fetcher(name string) (collector.Fetcher, error) {
	ds := a.cfg.DataSource
	var f collector.Fetcher
	switch name {
	case "yahoo":
		f = collector.NewYahooFetcher(a.cfg.Proxy, ds.Timeout)
	case "alphavantage":
		f = collector.NewAlphaVantageFetcher(ds.AlphaVantage.APIKey, a.cfg.Proxy, ds.Timeout)
	case "vstrader":
		f = collector.NewVsTraderFetcher(ds.VsTrader.BaseURL, ds.VsTrader.APIKey, a.cfg.Proxy, ds.Timeout)
	case "mock":
		return &collector.MockFetcher{ProviderName: "mock", Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	acq := a.cfg.Acquisition
	return collector.NewGuard(f, collector.GuardOptions{
		RequestsPerSecond: acq.RequestsPerSecond,
		Burst:             acq.Burst,
		FailureThreshold:  acq.FailureThreshold,
		OpenTimeout:       acq.BreakerTimeout,
	}, a.metrics, a.logger), nil
}

// recorder opens the configured SQLite store, falling back to a no-op recorder.
func (a *app) recorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func parseDateFlag(name, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return d, nil
}
