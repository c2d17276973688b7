package recorder

import (
	"context"
	"time"

	"EventLens/internal/model"
)

// RunSummary is one row of study history.
type RunSummary struct {
	RunID           string
	Symbol          string
	StartDate       string
	EndDate         string
	CalendarVersion string
	Source          string
	Groups          int
	Observations    int
	Timestamp       time.Time
}

// Recorder persists study runs and trend snapshots for later analysis.
type Recorder interface {
	RecordStudy(ctx context.Context, report *model.AnalysisReport) error
	RecordTrend(ctx context.Context, trend *model.PriceTrend) error
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}
