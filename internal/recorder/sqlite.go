package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"EventLens/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while runs are being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS study_runs (
			run_id           TEXT PRIMARY KEY,
			timestamp        INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			start_date       TEXT NOT NULL,
			end_date         TEXT NOT NULL,
			calendar_version TEXT,
			source           TEXT,
			group_count      INTEGER,
			obs_count        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON study_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS group_summaries (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES study_runs(run_id),
			event_name  TEXT NOT NULL,
			window_label TEXT NOT NULL,
			count       INTEGER,
			mean        REAL,
			std         REAL,
			t_stat      REAL,
			bootstrap_p REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_run ON group_summaries(run_id)`,

		`CREATE TABLE IF NOT EXISTS event_observations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL REFERENCES study_runs(run_id),
			event_name TEXT NOT NULL,
			event_date TEXT NOT NULL,
			window_label TEXT NOT NULL,
			cum_return REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_run ON event_observations(run_id)`,

		`CREATE TABLE IF NOT EXISTS trend_snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			start_date       TEXT,
			end_date         TEXT,
			trading_days     INTEGER,
			first_close      REAL,
			last_close       REAL,
			total_change_pct REAL,
			trend            TEXT,
			volatility       REAL,
			period_high      REAL,
			period_low       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trend_ts ON trend_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordStudy writes the run, its summaries and its observations in one transaction.
func (r *SQLiteRecorder) RecordStudy(ctx context.Context, report *model.AnalysisReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO study_runs
		(run_id, timestamp, symbol, start_date, end_date, calendar_version, source, group_count, obs_count)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		report.RunID, report.Timestamp.Unix(), report.Symbol, report.StartDate, report.EndDate,
		report.CalendarVersion, report.Source, len(report.Summary), len(report.Events),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, g := range report.Summary {
		if _, err := tx.ExecContext(ctx, `INSERT INTO group_summaries
			(run_id, event_name, window_label, count, mean, std, t_stat, bootstrap_p)
			VALUES (?,?,?,?,?,?,?,?)`,
			report.RunID, g.EventName, g.WindowLabel, g.Count, g.Mean, g.Std, g.TStat, g.BootstrapP,
		); err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
	}

	for _, o := range report.Events {
		if _, err := tx.ExecContext(ctx, `INSERT INTO event_observations
			(run_id, event_name, event_date, window_label, cum_return)
			VALUES (?,?,?,?,?)`,
			report.RunID, o.EventName, o.AnchorDate, o.WindowLabel, o.CumulativeReturn,
		); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug().Str("run_id", report.RunID).Int("groups", len(report.Summary)).Msg("study recorded")
	return nil
}

func (r *SQLiteRecorder) RecordTrend(ctx context.Context, t *model.PriceTrend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO trend_snapshots
		(timestamp, symbol, start_date, end_date, trading_days, first_close, last_close,
		 total_change_pct, trend, volatility, period_high, period_low)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), t.Symbol, t.StartDate, t.EndDate, t.TradingDays, t.FirstClose, t.LastClose,
		t.TotalChangePct, t.Trend, t.Volatility, t.PeriodHigh, t.PeriodLow,
	)
	return err
}

// RecentRuns lists the newest runs first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, symbol, start_date, end_date, calendar_version,
		source, group_count, obs_count, timestamp
		FROM study_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s  RunSummary
			ts int64
		)
		if err := rows.Scan(&s.RunID, &s.Symbol, &s.StartDate, &s.EndDate, &s.CalendarVersion,
			&s.Source, &s.Groups, &s.Observations, &ts); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0).UTC()
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
