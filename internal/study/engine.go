// Package study runs event studies: it acquires a price series, measures
// returns around every calendar event and summarizes each (event, window) group.
package study

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"EventLens/internal/calculator"
	"EventLens/internal/errors"
	"EventLens/internal/logging"
	"EventLens/internal/metrics"
	"EventLens/internal/model"
	"EventLens/internal/refdata"
)

// Range policies for spans longer than MaxSpanDays.
const (
	RangePolicyClamp  = "clamp"
	RangePolicyReject = "reject"
)

const DefaultMaxSpanDays = 3650

// SeriesFetcher supplies the daily price series for a study.
type SeriesFetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error)
}

// Request describes one study run. Empty Windows and a nil Calendar select the defaults.
type Request struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Windows  []model.EventWindow
	Calendar *refdata.EventCalendar
}

// Engine runs event studies. Runs share no mutable state.
type Engine struct {
	Fetcher     SeriesFetcher
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	NBoot       int
	MaxSpanDays int
	RangePolicy string

	// Seed returns the seed of each run's bootstrap generator.
	Seed func() uint64
	now  func() time.Time
}

// NewEngine creates an Engine with default bootstrap and range settings.
func NewEngine(fetcher SeriesFetcher, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		Fetcher:     fetcher,
		Metrics:     m,
		Logger:      logging.WithComponent(logger, "study"),
		NBoot:       calculator.DefaultBootstrapIterations,
		MaxSpanDays: DefaultMaxSpanDays,
		RangePolicy: RangePolicyClamp,
		Seed:        rand.Uint64,
		now:         time.Now,
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// validate normalizes the request and applies the range policy. It performs no I/O.
func (e *Engine) validate(req Request) (Request, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return req, errors.ErrSymbolRequired
	}
	req.Start, req.End = model.Day(req.Start), model.Day(req.End)
	if req.Start.IsZero() || req.End.IsZero() {
		return req, errors.NewInvalidRange(req.Start, req.End, "start and end dates are required")
	}
	if req.Start.After(req.End) {
		return req, errors.NewInvalidRange(req.Start, req.End, "start date must be on or before end date")
	}

	maxSpan := e.MaxSpanDays
	if maxSpan <= 0 {
		maxSpan = DefaultMaxSpanDays
	}
	span := int(req.End.Sub(req.Start).Hours() / 24)
	if span > maxSpan {
		if e.RangePolicy == RangePolicyReject {
			return req, errors.NewInvalidRange(req.Start, req.End,
				fmt.Sprintf("span of %d days exceeds the maximum of %d", span, maxSpan))
		}
		clamped := req.End.AddDate(0, 0, -maxSpan)
		e.Logger.Warn().Str("symbol", req.Symbol).
			Str("requested_start", model.FormatDate(req.Start)).Str("start", model.FormatDate(clamped)).
			Int("max_span_days", maxSpan).Msg("date range clamped")
		req.Start = clamped
	}

	if len(req.Windows) == 0 {
		req.Windows = DefaultWindows()
	}
	if req.Calendar == nil {
		req.Calendar = refdata.DefaultCalendar()
	}
	return req, nil
}

type groupKey struct {
	event  string
	window string
}

// Run executes one event study.
func (e *Engine) Run(ctx context.Context, req Request) (report *model.AnalysisReport, err error) {
	began := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		e.Metrics.ObserveStudy(outcome, time.Since(began))
	}()

	req, err = e.validate(req)
	if err != nil {
		return nil, err
	}
	log := logging.WithSymbol(e.Logger, req.Symbol)

	series, err := e.Fetcher.Fetch(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, errors.NewDataUnavailable(req.Symbol, req.Start, req.End, nil)
	}
	first, last := series.First(), series.Last()

	var (
		observations []model.EventObservation
		order        []groupKey
		groups       = map[groupKey][]null.Float{}
	)
	for _, ev := range req.Calendar.Events {
		for _, ds := range ev.Dates {
			d, perr := model.ParseDate(ds)
			if perr != nil {
				log.Warn().Str("event", ev.Name).Str("date", ds).Msg("skipping unparseable event date")
				continue
			}
			if d.Before(first) || d.After(last) {
				continue
			}
			for _, w := range req.Windows {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				r := calculator.WindowReturn(series, d, w)
				obs := model.EventObservation{
					EventName:        ev.Name,
					AnchorDate:       model.FormatDate(d),
					WindowLabel:      w.Label(),
					CumulativeReturn: r,
				}
				observations = append(observations, obs)

				k := groupKey{ev.Name, obs.WindowLabel}
				if _, seen := groups[k]; !seen {
					order = append(order, k)
				}
				groups[k] = append(groups[k], r)
			}
		}
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("%s %s..%s: %w", req.Symbol, model.FormatDate(req.Start), model.FormatDate(req.End), errors.ErrNoEvents)
	}

	nboot := e.NBoot
	if nboot <= 0 {
		nboot = calculator.DefaultBootstrapIterations
	}
	seed := e.Seed()
	rng := newRand(seed)

	summary := make([]model.GroupSummary, 0, len(order))
	for _, k := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		returns := groups[k]
		valid := calculator.Valid(returns)
		if len(valid) == 0 {
			continue
		}
		m := calculator.Mean(valid)
		std := calculator.SampleStd(valid)
		summary = append(summary, model.GroupSummary{
			EventName:   k.event,
			WindowLabel: k.window,
			Count:       len(valid),
			Mean:        m,
			Std:         std,
			TStat:       calculator.TStat(m, std, len(valid)),
			BootstrapP:  calculator.BootstrapP(rng, returns, nboot),
			N:           len(valid),
		})
		e.Metrics.IncBootstrapGroups()
	}

	report = &model.AnalysisReport{
		RunID:           uuid.NewString(),
		Symbol:          req.Symbol,
		StartDate:       model.FormatDate(req.Start),
		EndDate:         model.FormatDate(req.End),
		CalendarVersion: req.Calendar.Version,
		Source:          series.Source,
		Summary:         summary,
		Events:          observations,
		Timestamp:       e.now().UTC(),
	}
	log.Info().Str("run_id", report.RunID).Str("source", series.Source).
		Int("observations", len(observations)).Int("groups", len(summary)).Uint64("seed", seed).
		Dur("elapsed", time.Since(began)).Msg("event study complete")
	return report, nil
}
