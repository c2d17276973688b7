package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"EventLens/internal/errors"
	"EventLens/internal/metrics"
	"EventLens/internal/model"
)

// Strategy names, in default fallback order.
const (
	StrategyPeriodBucket     = "period-bucket"
	StrategyExactRange       = "exact-range"
	StrategyChunkedSecondary = "chunked-secondary"
)

// FetchFunc retrieves the bars of symbol between start and end inclusive.
type FetchFunc func(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)

// Strategy is one named acquisition tier.
type Strategy struct {
	Name  string
	Fetch FetchFunc
}

// AttemptHook is notified of every tier outcome.
type AttemptHook func(strategy, outcome string)

// BucketFor maps a span in calendar days to a lookback period. ok is false
// when no bucket can cover the span.
func BucketFor(spanDays int) (period string, ok bool) {
	switch {
	case spanDays <= 5:
		return "5d", true
	case spanDays <= 30:
		return "1mo", true
	case spanDays <= 90:
		return "3mo", true
	case spanDays <= 180:
		return "6mo", true
	case spanDays <= 365:
		return "1y", true
	}
	return "", false
}

func spanDays(start, end time.Time) int {
	return int(model.Day(end).Sub(model.Day(start)).Hours() / 24)
}

// PeriodBucket fetches the smallest lookback bucket covering the span and
// filters it to [start, end].
func PeriodBucket(p PeriodFetcher) Strategy {
	return Strategy{
		Name: StrategyPeriodBucket,
		Fetch: func(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
			period, ok := BucketFor(spanDays(start, end))
			if !ok {
				return nil, nil
			}
			bars, err := p.FetchPeriod(ctx, symbol, period)
			if errors.Is(err, errors.ErrUnsupported) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return filterRange(bars, start, end), nil
		},
	}
}

// ExactRange requests [start, end] from f and retries once after retryDelay
// when the first attempt fails or comes back empty.
func ExactRange(f Fetcher, retryDelay time.Duration) Strategy {
	return Strategy{
		Name: StrategyExactRange,
		Fetch: func(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
			bars, err := f.FetchRange(ctx, symbol, start, end)
			if err == nil && len(bars) > 0 {
				return bars, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retry, rerr := f.FetchRange(ctx, symbol, start, end)
			if rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			if len(retry) == 0 && err != nil {
				return nil, err
			}
			return retry, nil
		},
	}
}

// ChunkedSecondary splits the range into chunkDays-long pieces and fetches each
// from f. Failed chunks are logged and skipped.
func ChunkedSecondary(f Fetcher, chunkDays int, logger zerolog.Logger) Strategy {
	if chunkDays <= 0 {
		chunkDays = 365
	}
	return Strategy{
		Name: StrategyChunkedSecondary,
		Fetch: func(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
			var (
				all  []model.PriceBar
				errs []error
			)
			start, end = model.Day(start), model.Day(end)
			for cs := start; !cs.After(end); cs = cs.AddDate(0, 0, chunkDays) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				ce := cs.AddDate(0, 0, chunkDays-1)
				if ce.After(end) {
					ce = end
				}
				bars, err := f.FetchRange(ctx, symbol, cs, ce)
				if err != nil {
					logger.Warn().Err(err).Str("provider", f.Name()).
						Str("chunk_start", model.FormatDate(cs)).Str("chunk_end", model.FormatDate(ce)).
						Msg("chunk fetch failed, skipping")
					errs = append(errs, err)
					continue
				}
				all = append(all, bars...)
			}
			if len(all) == 0 && len(errs) > 0 {
				return nil, errors.Join(errs...)
			}
			return all, nil
		},
	}
}

// FirstNonEmpty tries strategies in order and returns the first non-empty
// result together with the name of the tier that produced it.
func FirstNonEmpty(ctx context.Context, strategies []Strategy, symbol string, start, end time.Time, hook AttemptHook) ([]model.PriceBar, string, error) {
	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		bars, err := s.Fetch(ctx, symbol, start, end)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			if hook != nil {
				hook(s.Name, metrics.OutcomeError)
			}
		case len(bars) == 0:
			if hook != nil {
				hook(s.Name, metrics.OutcomeEmpty)
			}
		default:
			if hook != nil {
				hook(s.Name, metrics.OutcomeSuccess)
			}
			return bars, s.Name, nil
		}
	}
	return nil, "", errors.NewDataUnavailable(symbol, start, end, errors.Join(errs...))
}
