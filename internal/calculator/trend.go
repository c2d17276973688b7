package calculator

import (
	"fmt"

	"EventLens/internal/errors"
	"EventLens/internal/model"
)

// MinTrendBars is the minimum number of sessions SummarizeTrend needs.
const MinTrendBars = 5

// trendThresholdPct separates BULLISH/BEARISH from NEUTRAL on total % change.
const trendThresholdPct = 2.0

// SummarizeTrend computes direction, volatility and day counts over a price series.
// It depends only on the acquired series, not on any event-study state.
func SummarizeTrend(series *model.PriceSeries) (*model.PriceTrend, error) {
	if series.Len() < MinTrendBars {
		return nil, fmt.Errorf("%w: need at least %d trading days for %s, got %d",
			errors.ErrInsufficientData, MinTrendBars, series.Symbol, series.Len())
	}
	closes := series.Closes()

	changes := make([]float64, 0, len(closes)-1)
	tr := &model.PriceTrend{
		Symbol:      series.Symbol,
		StartDate:   model.FormatDate(series.First()),
		EndDate:     model.FormatDate(series.Last()),
		TradingDays: series.Len(),
		FirstClose:  closes[0],
		LastClose:   closes[len(closes)-1],
	}
	for i := 1; i < len(closes); i++ {
		pct := 0.0
		if closes[i-1] > 0 {
			pct = (closes[i] - closes[i-1]) / closes[i-1] * 100
		}
		changes = append(changes, pct)
		switch {
		case pct > 0:
			tr.PositiveDays++
		case pct < 0:
			tr.NegativeDays++
		default:
			tr.NeutralDays++
		}
	}

	tr.TotalChange = tr.LastClose - tr.FirstClose
	if tr.FirstClose > 0 {
		tr.TotalChangePct = tr.TotalChange / tr.FirstClose * 100
	}
	switch {
	case tr.TotalChangePct > trendThresholdPct:
		tr.Trend = model.TrendBullish
	case tr.TotalChangePct < -trendThresholdPct:
		tr.Trend = model.TrendBearish
	default:
		tr.Trend = model.TrendNeutral
	}

	tr.AverageDailyChange = Mean(changes).ValueOrZero()
	tr.Volatility = SampleStd(changes).ValueOrZero()

	high, low, err := PeriodRange(series.Bars)
	if err != nil {
		return nil, err
	}
	tr.PeriodHigh, tr.PeriodLow = high, low
	if pos, err := RangePosition(tr.LastClose, high, low); err == nil {
		tr.RangePosition = pos
	}
	return tr, nil
}
