package calculator

import (
	"math"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndSampleStd(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := Mean(xs)
	require.True(t, m.Valid)
	assert.InDelta(t, 5.0, m.Float64, 1e-12)

	sd := SampleStd(xs)
	require.True(t, sd.Valid)
	assert.InDelta(t, math.Sqrt(32.0/7.0), sd.Float64, 1e-12)
}

func TestStats_Degenerate(t *testing.T) {
	assert.False(t, Mean(nil).Valid)
	assert.False(t, SampleStd([]float64{0.1}).Valid)

	m := null.FloatFrom(0.01)
	assert.False(t, TStat(m, null.Float{}, 1).Valid)
	assert.False(t, TStat(m, null.FloatFrom(0), 5).Valid)
	assert.False(t, TStat(null.Float{}, null.FloatFrom(0.1), 5).Valid)
}

func TestTStat(t *testing.T) {
	got := TStat(null.FloatFrom(0.02), null.FloatFrom(0.04), 16)
	require.True(t, got.Valid)
	assert.InDelta(t, 2.0, got.Float64, 1e-12)
}

func TestValid(t *testing.T) {
	in := []null.Float{null.FloatFrom(1), {}, null.FloatFrom(math.NaN()), null.FloatFrom(-2)}
	assert.Equal(t, []float64{1, -2}, Valid(in))
}
