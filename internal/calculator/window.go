package calculator

import (
	"time"

	"github.com/guregu/null/v6"

	"EventLens/internal/model"
)

// WindowReturn computes close[end]/close[start] - 1 over window, where both
// endpoints are offsets from the aligned anchor of eventDate (not from eventDate itself).
func WindowReturn(series *model.PriceSeries, eventDate time.Time, window model.EventWindow) null.Float {
	anchor, ok := Align(series, eventDate)
	if !ok {
		return null.Float{}
	}
	start, ok := Align(series, anchor.AddDate(0, 0, window.Start))
	if !ok {
		return null.Float{}
	}
	end, ok := Align(series, anchor.AddDate(0, 0, window.End))
	if !ok {
		return null.Float{}
	}
	return CumulativeReturn(series, start, end)
}

// CumulativeReturn returns close[end]/close[start] - 1 for two session dates in the series.
func CumulativeReturn(series *model.PriceSeries, start, end time.Time) null.Float {
	p0, ok := series.CloseOn(start)
	if !ok || p0 == 0 {
		return null.Float{}
	}
	p1, ok := series.CloseOn(end)
	if !ok {
		return null.Float{}
	}
	return null.FloatFrom(p1/p0 - 1)
}
