package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"EventLens/internal/config"
	"EventLens/internal/notifier"
	"EventLens/internal/scheduler"
	"EventLens/internal/study"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled studies, Telegram commands and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a, runOnStart || os.Getenv("RUN_ON_START") == "true")
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run every scheduled job once at startup")
	return cmd
}

func serve(parent context.Context, a *app, runOnStart bool) error {
	log := a.logger
	log.Info().Str("version", version).Msg("EventLens starting")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := a.recorder()
	defer rec.Close()

	var (
		tn     *notifier.TelegramNotifier
		sender scheduler.Sender
	)
	if a.cfg.Telegram.Enabled() {
		var err error
		tn, err = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, log)
		if err != nil {
			return err
		}
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, reports will only be logged")
	}

	sched := scheduler.NewScheduler(ctx, a.engine, a.collector, sender, rec, a.calendar, log)
	sched.DefaultSymbol = a.cfg.DataSource.Symbol
	if ws, err := study.ParseWindows(a.cfg.Study.Windows); err == nil {
		sched.Windows = ws
	}
	if err := sched.RegisterJobs(a.cfg.Schedule.Jobs); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
	}

	var srv *http.Server
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		srv = &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		log.Info().Str("listen", a.cfg.Metrics.Listen).Msg("metrics endpoint started")
	}

	startup := &sync.WaitGroup{}
	if runOnStart {
		log.Info().Msg("running scheduled jobs at startup")
		for _, job := range a.cfg.Schedule.Jobs {
			log.Debug().Str("job", job.Name).Str("symbol", a.cfg.SymbolFor(job)).Msg("startup run")
		}
		startup = runJobs(ctx, sched, a.cfg.Schedule.Jobs)
	}

	log.Info().Msg("EventLens is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	// startup jobs must finish before the deferred recorder close
	startup.Wait()
	log.Info().Msg("EventLens stopped")
	return nil
}

type jobRunner interface {
	RunJob(ctx context.Context, job config.JobConfig)
}

// runJobs starts every job on its own goroutine and returns a WaitGroup
// that completes when all of them have returned.
func runJobs(ctx context.Context, r jobRunner, jobs []config.JobConfig) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	for _, job := range jobs {
		wg.Add(1)
		go func(job config.JobConfig) {
			defer wg.Done()
			r.RunJob(ctx, job)
		}(job)
	}
	return wg
}
