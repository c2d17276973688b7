package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EventLens/internal/errors"
	"EventLens/internal/model"
)

func TestSummarizeTrend_Bullish(t *testing.T) {
	s := weekdaySeries("2024-03-04", 100, 101, 101, 99, 104, 105)
	tr, err := SummarizeTrend(s)
	require.NoError(t, err)

	assert.Equal(t, model.TrendBullish, tr.Trend)
	assert.Equal(t, 6, tr.TradingDays)
	assert.Equal(t, 3, tr.PositiveDays)
	assert.Equal(t, 1, tr.NegativeDays)
	assert.Equal(t, 1, tr.NeutralDays)
	assert.InDelta(t, 5.0, tr.TotalChange, 1e-9)
	assert.InDelta(t, 5.0, tr.TotalChangePct, 1e-9)
	assert.InDelta(t, 105*1.01, tr.PeriodHigh, 1e-9)
	assert.InDelta(t, 99*0.99, tr.PeriodLow, 1e-9)
	assert.Greater(t, tr.Volatility, 0.0)
	assert.Equal(t, "2024-03-04", tr.StartDate)
	assert.Equal(t, "2024-03-11", tr.EndDate)
}

func TestSummarizeTrend_Labels(t *testing.T) {
	bear, err := SummarizeTrend(weekdaySeries("2024-03-04", 100, 99, 98, 97, 96))
	require.NoError(t, err)
	assert.Equal(t, model.TrendBearish, bear.Trend)

	flat, err := SummarizeTrend(weekdaySeries("2024-03-04", 100, 101, 100, 101, 101.5))
	require.NoError(t, err)
	assert.Equal(t, model.TrendNeutral, flat.Trend)
}

func TestSummarizeTrend_InsufficientData(t *testing.T) {
	_, err := SummarizeTrend(weekdaySeries("2024-03-04", 100, 101, 102))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestRangePosition(t *testing.T) {
	pos, err := RangePosition(150, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	pos, err = RangePosition(250, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos)

	_, err = RangePosition(150, 100, 200)
	assert.Error(t, err)
}
