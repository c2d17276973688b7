package calculator

import (
	"time"

	"EventLens/internal/model"
)

// Align maps target to the nearest trading session on or before it.
// Returns false when target predates the whole series.
func Align(series *model.PriceSeries, target time.Time) (time.Time, bool) {
	i := series.SearchOnOrBefore(target)
	if i < 0 {
		return time.Time{}, false
	}
	return series.Bars[i].Date, true
}
