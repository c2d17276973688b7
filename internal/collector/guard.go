package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"EventLens/internal/errors"
	"EventLens/internal/metrics"
	"EventLens/internal/model"
)

// GuardOptions tunes the rate limiter and circuit breaker placed in front of a provider.
type GuardOptions struct {
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	OpenTimeout       time.Duration
}

// Guard wraps a Fetcher with a token-bucket limiter and a circuit breaker.
// It forwards FetchPeriod and FetchQuote when the inner fetcher supports them.
type Guard struct {
	inner   Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// NewGuard creates a Guard around f.
func NewGuard(f Fetcher, opts GuardOptions, m *metrics.Metrics, logger zerolog.Logger) *Guard {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 60 * time.Second
	}
	name := f.Name()
	threshold := opts.FailureThreshold
	g := &Guard{
		inner:   f,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		metrics: m,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
			m.SetBreakerState(name, float64(to))
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	return g
}

func (g *Guard) Name() string { return g.inner.Name() }

// State reports the breaker state.
func (g *Guard) State() gobreaker.State { return g.breaker.State() }

func (g *Guard) do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := g.breaker.Execute(fn)
	switch {
	case err != nil:
		g.metrics.ObserveProvider(g.Name(), metrics.OutcomeError)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.NewProviderError(g.Name(), "guard", err)
		}
	default:
		g.metrics.ObserveProvider(g.Name(), metrics.OutcomeSuccess)
	}
	return v, err
}

func (g *Guard) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	v, err := g.do(ctx, func() (interface{}, error) {
		return g.inner.FetchRange(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.PriceBar), nil
}

func (g *Guard) FetchPeriod(ctx context.Context, symbol, period string) ([]model.PriceBar, error) {
	pf, ok := g.inner.(PeriodFetcher)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	v, err := g.do(ctx, func() (interface{}, error) {
		return pf.FetchPeriod(ctx, symbol, period)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.PriceBar), nil
}

func (g *Guard) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	qf, ok := g.inner.(QuoteFetcher)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	v, err := g.do(ctx, func() (interface{}, error) {
		return qf.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Quote), nil
}
