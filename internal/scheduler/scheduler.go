package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"EventLens/internal/calculator"
	"EventLens/internal/config"
	"EventLens/internal/model"
	"EventLens/internal/notifier"
	"EventLens/internal/recorder"
	"EventLens/internal/refdata"
	"EventLens/internal/study"
)

// StudyRunner runs one event study.
type StudyRunner interface {
	Run(ctx context.Context, req study.Request) (*model.AnalysisReport, error)
}

// PriceSource serves recent series and quotes.
type PriceSource interface {
	FetchRecent(ctx context.Context, symbol string, days int) (*model.PriceSeries, error)
	Quote(ctx context.Context, symbol string) (*model.Quote, error)
}

// Sender delivers formatted messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const (
	sendRetries         = 3
	defaultLookbackDays = 5 * 365
	defaultTrendDays    = 30
	defaultHistory      = 10
)

// Scheduler manages cron-triggered studies and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   StudyRunner
	Prices   PriceSource
	Notifier Sender // nil disables push messages
	Recorder recorder.Recorder
	Calendar *refdata.EventCalendar
	Windows  []model.EventWindow

	DefaultSymbol string
	LookbackDays  int

	Ctx    context.Context
	logger zerolog.Logger
	now    func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, engine StudyRunner, prices PriceSource, sender Sender, rec recorder.Recorder, cal *refdata.EventCalendar, logger zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if cal == nil {
		cal = refdata.DefaultCalendar()
	}
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Engine:        engine,
		Prices:        prices,
		Notifier:      sender,
		Recorder:      rec,
		Calendar:      cal,
		Windows:       study.DefaultWindows(),
		DefaultSymbol: "SPY",
		LookbackDays:  defaultLookbackDays,
		Ctx:           ctx,
		logger:        logger.With().Str("component", "scheduler").Logger(),
		now:           time.Now,
	}
}

// RegisterJobs registers every configured job.
func (s *Scheduler) RegisterJobs(jobs []config.JobConfig) error {
	for _, job := range jobs {
		job := job
		if _, err := s.Cron.AddFunc(job.Cron, func() { s.RunJob(s.Ctx, job) }); err != nil {
			return fmt.Errorf("register job %s: %w", job.Name, err)
		}
		s.logger.Info().Str("job", job.Name).Str("cron", job.Cron).Str("kind", job.Kind).Msg("job registered")
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunJob executes one job immediately.
func (s *Scheduler) RunJob(ctx context.Context, job config.JobConfig) {
	symbol := job.Symbol
	if symbol == "" {
		symbol = s.DefaultSymbol
	}
	log := s.logger.With().Str("job", job.Name).Str("symbol", symbol).Logger()
	log.Info().Msg("running job")

	switch job.Kind {
	case config.JobTrend:
		trend, err := s.trend(ctx, symbol, job.LookbackDays)
		if err != nil {
			log.Error().Err(err).Msg("trend job failed")
			s.trySend(ctx, notifier.FormatError("trend "+symbol, err))
			return
		}
		s.trySend(ctx, notifier.FormatTrend(trend))
	default:
		windows := s.Windows
		if job.Windows != "" {
			w, err := study.ParseWindows(job.Windows)
			if err != nil {
				log.Error().Err(err).Msg("invalid job windows")
				return
			}
			windows = w
		}
		end := model.Day(s.now().UTC())
		report, err := s.study(ctx, symbol, end.AddDate(0, 0, -job.LookbackDays), end, windows)
		if err != nil {
			log.Error().Err(err).Msg("study job failed")
			s.trySend(ctx, notifier.FormatError("study "+symbol, err))
			return
		}
		s.trySend(ctx, notifier.FormatStudyReport(report))
	}
}

func (s *Scheduler) study(ctx context.Context, symbol string, start, end time.Time, windows []model.EventWindow) (*model.AnalysisReport, error) {
	report, err := s.Engine.Run(ctx, study.Request{
		Symbol:   symbol,
		Start:    start,
		End:      end,
		Windows:  windows,
		Calendar: s.Calendar,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordStudy(ctx, report); err != nil {
		s.logger.Error().Err(err).Str("run_id", report.RunID).Msg("record study")
	}
	return report, nil
}

func (s *Scheduler) trend(ctx context.Context, symbol string, days int) (*model.PriceTrend, error) {
	series, err := s.Prices.FetchRecent(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	trend, err := calculator.SummarizeTrend(series)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordTrend(ctx, trend); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("record trend")
	}
	return trend, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i] // "/study@EventLensBot"
	}
	args := fields[1:]

	switch cmd {
	case "/study":
		return s.handleStudy(ctx, args)
	case "/trend":
		symbol := s.symbolArg(args)
		days := defaultTrendDays
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return "Usage: /trend SYMBOL [DAYS]"
			}
			days = n
		}
		trend, err := s.trend(ctx, symbol, days)
		if err != nil {
			return notifier.FormatError("trend "+symbol, err)
		}
		return notifier.FormatTrend(trend)
	case "/quote":
		symbol := s.symbolArg(args)
		q, err := s.Prices.Quote(ctx, symbol)
		if err != nil {
			return notifier.FormatError("quote "+symbol, err)
		}
		return notifier.FormatQuote(q)
	case "/history":
		limit := defaultHistory
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				limit = n
			}
		}
		runs, err := s.Recorder.RecentRuns(ctx, limit)
		if err != nil {
			return notifier.FormatError("history", err)
		}
		return notifier.FormatHistory(runs)
	case "/calendar":
		return notifier.FormatCalendar(s.Calendar)
	default:
		return helpText
	}
}

const helpText = `Available commands:
• /study SYMBOL [START] [END] [WINDOWS]
• /trend SYMBOL [DAYS]
• /quote SYMBOL
• /history [N]
• /calendar`

// handleStudy parses "/study SYMBOL [START] [END] [WINDOWS]" with dates as YYYY-MM-DD
// and windows as "-1:1,0:1".
func (s *Scheduler) handleStudy(ctx context.Context, args []string) string {
	symbol := s.symbolArg(args)
	end := model.Day(s.now().UTC())
	start := end.AddDate(0, 0, -s.LookbackDays)
	windows := s.Windows

	var err error
	if len(args) > 1 {
		if start, err = model.ParseDate(args[1]); err != nil {
			return fmt.Sprintf("Invalid start date %q, expected YYYY-MM-DD", args[1])
		}
	}
	if len(args) > 2 {
		if end, err = model.ParseDate(args[2]); err != nil {
			return fmt.Sprintf("Invalid end date %q, expected YYYY-MM-DD", args[2])
		}
	}
	if len(args) > 3 {
		if windows, err = study.ParseWindows(args[3]); err != nil {
			return fmt.Sprintf("Invalid windows: %v", err)
		}
	}

	report, err := s.study(ctx, symbol, start, end, windows)
	if err != nil {
		return notifier.FormatError("study "+symbol, err)
	}
	return notifier.FormatStudyReport(report)
}

func (s *Scheduler) symbolArg(args []string) string {
	if len(args) > 0 {
		return strings.ToUpper(args[0])
	}
	return s.DefaultSymbol
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		s.logger.Info().Str("message", text).Msg("notifier disabled, message not sent")
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, sendRetries); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
