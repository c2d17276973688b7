package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EventLens/internal/model"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func sampleReport(runID string, ts time.Time) *model.AnalysisReport {
	return &model.AnalysisReport{
		RunID:           runID,
		Symbol:          "SPY",
		StartDate:       "2020-01-01",
		EndDate:         "2020-12-31",
		CalendarVersion: "builtin-2025.1",
		Source:          "exact-range",
		Summary: []model.GroupSummary{{
			EventName: "Yom_Kippur", WindowLabel: "-1..1", Count: 1, N: 1,
			Mean: null.FloatFrom(0.01),
		}},
		Events: []model.EventObservation{
			{EventName: "Yom_Kippur", AnchorDate: "2020-09-28", WindowLabel: "-1..1", CumulativeReturn: null.FloatFrom(0.01)},
			{EventName: "Yom_Kippur", AnchorDate: "2020-09-28", WindowLabel: "0..1"},
		},
		Timestamp: ts,
	}
}

func TestSQLiteRecorder_RecordStudy(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordStudy(ctx, sampleReport("run-1", base)))
	require.NoError(t, r.RecordStudy(ctx, sampleReport("run-2", base.Add(time.Hour))))

	runs, err := r.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 1, runs[0].Groups)
	assert.Equal(t, 2, runs[0].Observations)
	assert.Equal(t, "SPY", runs[1].Symbol)
	assert.True(t, runs[1].Timestamp.Equal(base))

	var missing int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM event_observations WHERE cum_return IS NULL`).Scan(&missing))
	assert.Equal(t, 2, missing, "missing returns are stored as NULL")

	var std null.Float
	require.NoError(t, r.db.QueryRow(`SELECT std FROM group_summaries WHERE run_id = 'run-1'`).Scan(&std))
	assert.False(t, std.Valid)

	runs, err = r.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	require.NoError(t, r.RecordStudy(ctx, sampleReport("dup", time.Now())))
	require.Error(t, r.RecordStudy(ctx, sampleReport("dup", time.Now())))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM event_observations WHERE run_id = 'dup'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLiteRecorder_RecordTrend(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.RecordTrend(context.Background(), &model.PriceTrend{
		Symbol: "SPY", StartDate: "2024-01-02", EndDate: "2024-01-31", TradingDays: 21,
		FirstClose: 470, LastClose: 480, TotalChangePct: 2.13, Trend: model.TrendBullish,
	}))
	var trend string
	require.NoError(t, r.db.QueryRow(`SELECT trend FROM trend_snapshots`).Scan(&trend))
	assert.Equal(t, model.TrendBullish, trend)
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordStudy(context.Background(), sampleReport("x", time.Now())))
	runs, err := rec.RecentRuns(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, rec.Close())
}
