package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guregu/null/v6"
	"github.com/spf13/cobra"

	"EventLens/internal/calculator"
	"EventLens/internal/model"
	"EventLens/internal/refdata"
	"EventLens/internal/study"
)

const version = "0.3.0"

type rootOptions struct {
	config string
	json   bool
	debug  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "eventlens",
		Short: "Event-study analytics for recurring calendar events",
		Long: `EventLens measures how a ticker's price behaves around a calendar of recurring
events (holidays by default) and estimates whether the move is significant.

Use 'eventlens serve' to run scheduled studies with Telegram delivery.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.config, "config", "", "config file (default: $CONFIG_PATH or configs/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newStudyCmd(opts),
		newTrendCmd(opts),
		newQuoteCmd(opts),
		newCalendarCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func (o *rootOptions) app() (*app, error) {
	return newApp(configPath(o.config), o.debug)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStudyCmd(opts *rootOptions) *cobra.Command {
	var (
		start, end, windows, calendarFile string
		nboot                             int
		record                            bool
	)
	cmd := &cobra.Command{
		Use:   "study SYMBOL",
		Short: "Run an event study for a ticker",
		Example: `  eventlens study SPY --start 2018-01-01 --end 2024-12-31
  eventlens study QQQ --windows "-1:1,0:1" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			today := model.Day(time.Now().UTC())
			endDate, err := parseDateFlag("end", end, today)
			if err != nil {
				return err
			}
			startDate, err := parseDateFlag("start", start, endDate.AddDate(-5, 0, 0))
			if err != nil {
				return err
			}
			if windows == "" {
				windows = a.cfg.Study.Windows
			}
			ws, err := study.ParseWindows(windows)
			if err != nil {
				return err
			}
			cal := a.calendar
			if calendarFile != "" {
				if cal, err = refdata.LoadCalendar(calendarFile); err != nil {
					return err
				}
			}
			if nboot > 0 {
				a.engine.NBoot = nboot
			}

			report, err := a.engine.Run(cmd.Context(), study.Request{
				Symbol: args[0], Start: startDate, End: endDate, Windows: ws, Calendar: cal,
			})
			if err != nil {
				return err
			}
			if record {
				rec := a.recorder()
				defer rec.Close()
				if err := rec.RecordStudy(cmd.Context(), report); err != nil {
					return fmt.Errorf("record study: %w", err)
				}
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), report.Rounded())
			}
			printStudy(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default: five years before --end)")
	cmd.Flags().StringVar(&end, "end", "", "last date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&windows, "windows", "", `comma-separated start:end offsets, e.g. "-1:1,0:1"`)
	cmd.Flags().StringVar(&calendarFile, "calendar", "", "event calendar YAML (default: configured or built-in)")
	cmd.Flags().IntVar(&nboot, "nboot", 0, "bootstrap resamples (default: configured)")
	cmd.Flags().BoolVar(&record, "record", false, "persist the report to the SQLite history")
	return cmd
}

func cell(v null.Float, format string) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf(format, v.Float64)
}

func printStudy(w io.Writer, report *model.AnalysisReport) {
	r := report.Rounded()
	fmt.Fprintf(w, "%s  %s..%s  calendar=%s  source=%s  run=%s\n\n",
		r.Symbol, r.StartDate, r.EndDate, r.CalendarVersion, r.Source, r.RunID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tWINDOW\tN\tMEAN\tSTD\tT\tP")
	for _, g := range r.Summary {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n", g.EventName, g.WindowLabel, g.N,
			cell(g.Mean, "%.6f"), cell(g.Std, "%.6f"), cell(g.TStat, "%.4f"), cell(g.BootstrapP, "%.4f"))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d observations\n", len(r.Events))
}

func newTrendCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "trend SYMBOL",
		Short: "Summarize the recent price trend of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			series, err := a.collector.FetchRecent(cmd.Context(), strings.ToUpper(args[0]), days)
			if err != nil {
				return err
			}
			trend, err := calculator.SummarizeTrend(series)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), trend)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s  %s..%s (%d sessions)\n", trend.Symbol, trend.Trend, trend.StartDate, trend.EndDate, trend.TradingDays)
			fmt.Fprintf(out, "close %.2f -> %.2f (%+.2f%%)  avg daily %+.3f%%  volatility %.3f%%\n",
				trend.FirstClose, trend.LastClose, trend.TotalChangePct, trend.AverageDailyChange, trend.Volatility)
			fmt.Fprintf(out, "up/down/flat %d/%d/%d  range %.2f-%.2f\n",
				trend.PositiveDays, trend.NegativeDays, trend.NeutralDays, trend.PeriodLow, trend.PeriodHigh)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "calendar days to look back")
	return cmd
}

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Show the latest price, falling back to the last known table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			q, err := a.collector.Quote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), q)
			}
			stale := ""
			if q.Stale {
				stale = " (stale)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %.2f %+.2f (%+.2f%%) as of %s via %s%s\n",
				q.Symbol, q.Price, q.Change, q.ChangePercent, q.AsOf.Format("2006-01-02 15:04"), q.Source, stale)
			return nil
		},
	}
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	var calendarFile string
	cmd := &cobra.Command{
		Use:   "calendar [EVENT]",
		Short: "List the events of the active calendar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cal *refdata.EventCalendar
				err error
			)
			if calendarFile != "" {
				cal, err = refdata.LoadCalendar(calendarFile)
			} else {
				var a *app
				if a, err = opts.app(); err == nil {
					cal = a.calendar
				}
			}
			if err != nil {
				return err
			}
			events := cal.Events
			if len(args) == 1 {
				ev, ok := cal.Lookup(args[0])
				if !ok {
					return fmt.Errorf("event %q not in calendar %s (have: %s)", args[0], cal.Version, strings.Join(cal.Names(), ", "))
				}
				events = []refdata.Event{ev}
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), &refdata.EventCalendar{Version: cal.Version, Events: events})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "calendar %s\n", cal.Version)
			for _, ev := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %s\n", ev.Name, strings.Join(ev.Dates, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarFile, "calendar", "", "event calendar YAML to inspect")
	return cmd
}
