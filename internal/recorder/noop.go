package recorder

import (
	"context"

	"EventLens/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordStudy(context.Context, *model.AnalysisReport) error { return nil }
func (n *NoopRecorder) RecordTrend(context.Context, *model.PriceTrend) error     { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]RunSummary, error)    { return nil, nil }
func (n *NoopRecorder) Close() error                                             { return nil }
