package model

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-date format used on the wire and in reference data.
const DateLayout = "2006-01-02"

// PriceBar represents one daily trading session.
type PriceBar struct {
	Date   time.Time  `json:"date"`
	Open   float64    `json:"open"`
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Close  float64    `json:"close"`
	Volume int64      `json:"volume"`
	Ret    null.Float `json:"ret"` // close-to-close return vs the previous bar; missing for the first bar
}

// PriceSeries is an ascending, duplicate-free run of daily bars for one symbol.
// Callers must treat Bars as read-only.
type PriceSeries struct {
	Symbol    string
	Bars      []PriceBar
	Source    string // acquisition tier that produced the bars
	FetchedAt time.Time
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func (s *PriceSeries) Len() int { return len(s.Bars) }

// First returns the earliest session date. The series must be non-empty.
func (s *PriceSeries) First() time.Time { return s.Bars[0].Date }

// Last returns the latest session date. The series must be non-empty.
func (s *PriceSeries) Last() time.Time { return s.Bars[len(s.Bars)-1].Date }

// Covers reports whether d lies within [First, Last].
func (s *PriceSeries) Covers(d time.Time) bool {
	if len(s.Bars) == 0 {
		return false
	}
	d = Day(d)
	return !d.Before(s.First()) && !d.After(s.Last())
}

// SearchOnOrBefore returns the index of the last bar dated on or before d, or -1.
func (s *PriceSeries) SearchOnOrBefore(d time.Time) int {
	d = Day(d)
	// first index strictly after d
	i := sort.Search(len(s.Bars), func(i int) bool { return s.Bars[i].Date.After(d) })
	return i - 1
}

// IndexOf returns the index of the bar dated exactly d, or -1.
func (s *PriceSeries) IndexOf(d time.Time) int {
	i := s.SearchOnOrBefore(d)
	if i >= 0 && s.Bars[i].Date.Equal(Day(d)) {
		return i
	}
	return -1
}

// CloseOn returns the close of the session dated exactly d.
func (s *PriceSeries) CloseOn(d time.Time) (float64, bool) {
	i := s.IndexOf(d)
	if i < 0 {
		return 0, false
	}
	return s.Bars[i].Close, true
}

// Closes returns the close prices in series order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}
