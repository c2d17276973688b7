package notifier

import (
	"fmt"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"

	"EventLens/internal/model"
	"EventLens/internal/recorder"
	"EventLens/internal/refdata"
)

func TestFormatStudyReport(t *testing.T) {
	report := &model.AnalysisReport{
		RunID: "abc", Symbol: "SPY", StartDate: "2018-01-01", EndDate: "2024-12-31",
		CalendarVersion: "builtin-2025.1", Source: "exact-range",
		Summary: []model.GroupSummary{
			{EventName: "Yom_Kippur", WindowLabel: "-1..1", Count: 7, N: 7,
				Mean: null.FloatFrom(0.0123456789), Std: null.FloatFrom(0.02), TStat: null.FloatFrom(1.63), BootstrapP: null.FloatFrom(0.0312)},
			{EventName: "Yom_Kippur", WindowLabel: "0..1", Count: 1, N: 1, Mean: null.FloatFrom(-0.004)},
		},
		Events: make([]model.EventObservation, 14),
	}
	out := FormatStudyReport(report)
	assert.Contains(t, out, "<b>Event study</b> | SPY")
	assert.Contains(t, out, "<b>Yom Kippur</b>")
	assert.Contains(t, out, "[-1..1] n=7 mean +1.23% sd 2.00% t 1.63 p 0.0312 ⭐")
	assert.Contains(t, out, "[0..1] n=1 mean -0.40% sd n/a t n/a p n/a\n")
	assert.Contains(t, out, "observations: 14")
}

func TestFormatStudyReport_Empty(t *testing.T) {
	out := FormatStudyReport(&model.AnalysisReport{Symbol: "SPY"})
	assert.Contains(t, out, "No event window produced a usable return")
}

func TestFormatTrendAndQuote(t *testing.T) {
	out := FormatTrend(&model.PriceTrend{Symbol: "SPY", Trend: model.TrendBearish, TradingDays: 21,
		FirstClose: 100, LastClose: 95, TotalChange: -5, TotalChangePct: -5, RangePosition: 0.25})
	assert.Contains(t, out, "📉 <b>SPY trend</b> | BEARISH")
	assert.Contains(t, out, "(-5.00, -5.00%)")
	assert.Contains(t, out, "position 25%")

	q := FormatQuote(&model.Quote{Symbol: "SPY", Price: 589.5, Change: 2.3, ChangePercent: 0.39,
		AsOf: time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), Source: "fallback:builtin", Stale: true})
	assert.Contains(t, q, "<b>SPY</b> 589.50 (+2.30, +0.39%)")
	assert.Contains(t, q, "last known price")
}

func TestFormatHistoryCalendarError(t *testing.T) {
	assert.Equal(t, "No recorded studies yet.", FormatHistory(nil))
	h := FormatHistory([]recorder.RunSummary{{Symbol: "SPY", StartDate: "2020-01-01", EndDate: "2020-12-31",
		Groups: 4, Observations: 12, Source: "exact-range", Timestamp: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}})
	assert.Contains(t, h, "2024-05-01 08:00 SPY 2020-01-01→2020-12-31 groups=4 obs=12 [exact-range]")

	c := FormatCalendar(refdata.DefaultCalendar())
	assert.Contains(t, c, "• Rosh_Hashanah: 8 dates, 2018-09-10 … 2025-09-22")

	assert.Equal(t, "❌ study failed: bad &lt;input&gt;", FormatError("study", fmt.Errorf("bad <input>")))
}
