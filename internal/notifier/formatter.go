package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/guregu/null/v6"

	"EventLens/internal/model"
	"EventLens/internal/recorder"
	"EventLens/internal/refdata"
)

// SignificanceLevel marks bootstrap p-values worth highlighting.
const SignificanceLevel = 0.05

func pct(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v.Float64*100)
}

func spread(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v.Float64*100)
}

func num(v null.Float, format string) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf(format, v.Float64)
}

// FormatStudyReport formats an event study report into a Telegram message.
func FormatStudyReport(report *model.AnalysisReport) string {
	r := report.Rounded()
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Event study</b> | %s\n", html.EscapeString(r.Symbol)))
	b.WriteString(fmt.Sprintf("%s → %s | calendar %s\n", r.StartDate, r.EndDate, html.EscapeString(r.CalendarVersion)))
	b.WriteString(fmt.Sprintf("source: %s | observations: %d\n\n", html.EscapeString(r.Source), len(r.Events)))

	if len(r.Summary) == 0 {
		b.WriteString("No event window produced a usable return.\n")
		return b.String()
	}

	current := ""
	for _, g := range r.Summary {
		if g.EventName != current {
			current = g.EventName
			b.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(strings.ReplaceAll(g.EventName, "_", " "))))
		}
		mark := ""
		if g.BootstrapP.Valid && g.BootstrapP.Float64 < SignificanceLevel {
			mark = " ⭐"
		}
		b.WriteString(fmt.Sprintf("  [%s] n=%d mean %s sd %s t %s p %s%s\n",
			g.WindowLabel, g.N, pct(g.Mean), spread(g.Std), num(g.TStat, "%.2f"), num(g.BootstrapP, "%.4f"), mark))
	}
	b.WriteString(fmt.Sprintf("\nrun %s", r.RunID))
	return b.String()
}

// FormatTrend formats a price trend summary.
func FormatTrend(t *model.PriceTrend) string {
	emoji := "➖"
	switch t.Trend {
	case model.TrendBullish:
		emoji = "📈"
	case model.TrendBearish:
		emoji = "📉"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s trend</b> | %s\n\n", emoji, html.EscapeString(t.Symbol), t.Trend))
	b.WriteString(fmt.Sprintf("Period: %s → %s (%d sessions)\n", t.StartDate, t.EndDate, t.TradingDays))
	b.WriteString(fmt.Sprintf("Close: %.2f → %.2f (%+.2f, %+.2f%%)\n", t.FirstClose, t.LastClose, t.TotalChange, t.TotalChangePct))
	b.WriteString(fmt.Sprintf("Avg daily: %+.3f%% | Volatility: %.3f%%\n", t.AverageDailyChange, t.Volatility))
	b.WriteString(fmt.Sprintf("Days up/down/flat: %d/%d/%d\n", t.PositiveDays, t.NegativeDays, t.NeutralDays))
	b.WriteString(fmt.Sprintf("Range: %.2f - %.2f (position %.0f%%)\n", t.PeriodLow, t.PeriodHigh, t.RangePosition*100))
	return b.String()
}

// FormatQuote formats a current quote.
func FormatQuote(q *model.Quote) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💵 <b>%s</b> %.2f (%+.2f, %+.2f%%)\n", html.EscapeString(q.Symbol), q.Price, q.Change, q.ChangePercent))
	b.WriteString(fmt.Sprintf("as of %s via %s", q.AsOf.Format("2006-01-02 15:04"), html.EscapeString(q.Source)))
	if q.Stale {
		b.WriteString("\n⚠️ live providers unavailable, showing last known price")
	}
	return b.String()
}

// FormatHistory lists recent study runs.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No recorded studies yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent studies</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s %s %s→%s groups=%d obs=%d [%s]\n",
			r.Timestamp.Format("2006-01-02 15:04"), html.EscapeString(r.Symbol), r.StartDate, r.EndDate,
			r.Groups, r.Observations, html.EscapeString(r.Source)))
	}
	return b.String()
}

// FormatCalendar lists the events of a calendar and their date ranges.
func FormatCalendar(cal *refdata.EventCalendar) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Event calendar</b> %s\n\n", html.EscapeString(cal.Version)))
	for _, ev := range cal.Events {
		span := "no dates"
		if n := len(ev.Dates); n > 0 {
			span = fmt.Sprintf("%d dates, %s … %s", n, ev.Dates[0], ev.Dates[n-1])
		}
		b.WriteString(fmt.Sprintf("• %s: %s\n", html.EscapeString(ev.Name), span))
	}
	return b.String()
}

// FormatError reports a failed operation.
func FormatError(op string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", html.EscapeString(op), html.EscapeString(err.Error()))
}
