package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"EventLens/internal/errors"
	"EventLens/internal/logging"
	"EventLens/internal/metrics"
	"EventLens/internal/model"
	"EventLens/internal/refdata"
)

// Options tunes the acquisition tiers.
type Options struct {
	RetryDelay time.Duration
	ChunkDays  int
}

// Collector acquires daily price series through an ordered list of fallback strategies.
type Collector struct {
	Primary   Fetcher
	Secondary Fetcher
	Fallback  *refdata.FallbackTable
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger

	strategies []Strategy
	now        func() time.Time
}

// NewCollector creates a Collector. The primary provider serves the period-bucket
// tier (when it supports periods) and the exact-range tier; the secondary serves
// the chunked tier. secondary may be nil.
func NewCollector(primary, secondary Fetcher, opts Options, fallback *refdata.FallbackTable, m *metrics.Metrics, logger zerolog.Logger) *Collector {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.ChunkDays <= 0 {
		opts.ChunkDays = 365
	}
	c := &Collector{
		Primary:   primary,
		Secondary: secondary,
		Fallback:  fallback,
		Metrics:   m,
		Logger:    logging.WithComponent(logger, "collector"),
		now:       time.Now,
	}
	if pf, ok := primary.(PeriodFetcher); ok {
		c.strategies = append(c.strategies, PeriodBucket(pf))
	}
	c.strategies = append(c.strategies, ExactRange(primary, opts.RetryDelay))
	if secondary != nil {
		c.strategies = append(c.strategies, ChunkedSecondary(secondary, opts.ChunkDays, c.Logger))
	}
	return c
}

// Strategies returns the tier names in the order they are tried.
func (c *Collector) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name
	}
	return names
}

// Fetch returns the normalized daily series of symbol between start and end inclusive.
func (c *Collector) Fetch(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	start, end = model.Day(start), model.Day(end)
	log := logging.WithSymbol(c.Logger, symbol)

	bars, source, err := FirstNonEmpty(ctx, c.strategies, symbol, start, end, func(strategy, outcome string) {
		c.Metrics.ObserveAcquisition(strategy, outcome)
		log.Debug().Str("strategy", strategy).Str("outcome", outcome).Msg("acquisition attempt")
	})
	if err != nil {
		if errors.Is(err, errors.ErrDataUnavailable) {
			log.Error().Err(err).Msg("all acquisition strategies exhausted")
		}
		return nil, err
	}

	series := &model.PriceSeries{
		Symbol:    symbol,
		Bars:      Normalize(bars),
		Source:    source,
		FetchedAt: c.now().UTC(),
	}
	log.Info().Str("source", source).Int("bars", series.Len()).
		Str("first", model.FormatDate(series.First())).Str("last", model.FormatDate(series.Last())).
		Msg("price series acquired")
	return series, nil
}

// FetchRecent fetches roughly the last days calendar days.
func (c *Collector) FetchRecent(ctx context.Context, symbol string, days int) (*model.PriceSeries, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	end := model.Day(c.now().UTC())
	return c.Fetch(ctx, symbol, end.AddDate(0, 0, -days), end)
}

// Quote returns the latest price from the first live provider that answers,
// falling back to the stale reference table.
func (c *Collector) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.ErrSymbolRequired
	}
	log := logging.WithSymbol(c.Logger, symbol)

	var errs []error
	for _, f := range []Fetcher{c.Primary, c.Secondary} {
		qf, ok := f.(QuoteFetcher)
		if !ok {
			continue
		}
		q, err := qf.FetchQuote(ctx, symbol)
		if err == nil {
			return q, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, errors.ErrUnsupported) {
			log.Warn().Err(err).Str("provider", f.Name()).Msg("live quote failed")
			errs = append(errs, err)
		}
	}

	if q, ok := c.Fallback.Quote(symbol); ok {
		log.Warn().Str("source", q.Source).Msg("serving stale fallback quote")
		return q, nil
	}
	return nil, fmt.Errorf("quote %s: %w", symbol, errors.Join(append([]error{errors.ErrDataUnavailable}, errs...)...))
}

// Normalize deduplicates bars by date (first occurrence wins), sorts them
// ascending and derives the simple daily return.
func Normalize(bars []model.PriceBar) []model.PriceBar {
	seen := make(map[time.Time]struct{}, len(bars))
	out := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		b.Date = model.Day(b.Date)
		if _, dup := seen[b.Date]; dup {
			continue
		}
		seen[b.Date] = struct{}{}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := range out {
		out[i].Ret = null.Float{}
		if i > 0 && out[i-1].Close != 0 {
			out[i].Ret = null.FloatFrom(out[i].Close/out[i-1].Close - 1)
		}
	}
	return out
}

func filterRange(bars []model.PriceBar, start, end time.Time) []model.PriceBar {
	start, end = model.Day(start), model.Day(end)
	out := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
