package collector

import (
	"context"
	"time"

	"EventLens/internal/model"
)

// Fetcher is a daily price provider able to serve an explicit date range.
// Implementations may return an error or an empty slice on transient failure.
type Fetcher interface {
	FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
	Name() string
}

// PeriodFetcher serves coarse lookback buckets such as "5d", "1mo" or "1y".
type PeriodFetcher interface {
	FetchPeriod(ctx context.Context, symbol, period string) ([]model.PriceBar, error)
}

// QuoteFetcher serves the latest price for a symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
}
