package calculator

import (
	"time"

	"EventLens/internal/model"
)

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// weekdaySeries builds one bar per weekday starting at start, using closes in order.
func weekdaySeries(start string, closes ...float64) *model.PriceSeries {
	d := date(start)
	bars := make([]model.PriceBar, 0, len(closes))
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		bars = append(bars, model.PriceBar{Date: d, Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1000})
		d = d.AddDate(0, 0, 1)
	}
	return &model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func scaled(s *model.PriceSeries, k float64) *model.PriceSeries {
	out := &model.PriceSeries{Symbol: s.Symbol, Bars: make([]model.PriceBar, len(s.Bars))}
	for i, b := range s.Bars {
		b.Open *= k
		b.High *= k
		b.Low *= k
		b.Close *= k
		out.Bars[i] = b
	}
	return out
}
