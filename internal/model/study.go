package model

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// EventWindow is an inclusive pair of calendar-day offsets relative to an anchor trading day.
type EventWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Label renders the window as "{start}..{end}".
func (w EventWindow) Label() string {
	return fmt.Sprintf("%d..%d", w.Start, w.End)
}

// EventObservation is the cumulative return of one event instance over one window.
type EventObservation struct {
	EventName        string     `json:"holiday"`
	AnchorDate       string     `json:"event_date"`
	WindowLabel      string     `json:"window"`
	CumulativeReturn null.Float `json:"cum_return"`
}

// GroupSummary aggregates all observations sharing one (event, window) pair.
type GroupSummary struct {
	EventName   string     `json:"holiday"`
	WindowLabel string     `json:"window"`
	Count       int        `json:"count"`
	Mean        null.Float `json:"mean"`
	Std         null.Float `json:"std"`
	TStat       null.Float `json:"t_stat"`
	BootstrapP  null.Float `json:"bootstrap_p"`
	N           int        `json:"n"`
}

// AnalysisReport is the terminal artifact of an event study run.
type AnalysisReport struct {
	RunID           string             `json:"run_id"`
	Symbol          string             `json:"symbol"`
	StartDate       string             `json:"start_date"`
	EndDate         string             `json:"end_date"`
	CalendarVersion string             `json:"calendar_version"`
	Source          string             `json:"source"`
	Summary         []GroupSummary     `json:"summary"`
	Events          []EventObservation `json:"events"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Display precision for report values.
const (
	ReturnPlaces = 6
	StatPlaces   = 4
)

// Rounded returns a copy for display: mean, std and returns to 6 places,
// t-stat and bootstrap p to 4. The receiver keeps full precision.
func (r *AnalysisReport) Rounded() *AnalysisReport {
	out := *r
	out.Summary = make([]GroupSummary, len(r.Summary))
	for i, g := range r.Summary {
		g.Mean = roundFloat(g.Mean, ReturnPlaces)
		g.Std = roundFloat(g.Std, ReturnPlaces)
		g.TStat = roundFloat(g.TStat, StatPlaces)
		g.BootstrapP = roundFloat(g.BootstrapP, StatPlaces)
		out.Summary[i] = g
	}
	out.Events = make([]EventObservation, len(r.Events))
	for i, e := range r.Events {
		e.CumulativeReturn = roundFloat(e.CumulativeReturn, ReturnPlaces)
		out.Events[i] = e
	}
	return &out
}

func roundFloat(v null.Float, places int32) null.Float {
	if !v.Valid {
		return v
	}
	f, _ := decimal.NewFromFloat(v.Float64).Round(places).Float64()
	return null.FloatFrom(f)
}
