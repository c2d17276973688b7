package calculator

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign_Identity(t *testing.T) {
	s := weekdaySeries("2020-01-02", 100, 101, 102, 103, 104, 105, 106, 107)
	for _, b := range s.Bars {
		got, ok := Align(s, b.Date)
		require.True(t, ok)
		assert.True(t, got.Equal(b.Date), "align(%s) = %s", b.Date, got)
	}
}

func TestAlign_WeekendLooksBackward(t *testing.T) {
	s := weekdaySeries("2020-01-02", 100, 101, 102, 103) // Thu, Fri, Mon, Tue

	got, ok := Align(s, date("2020-01-04")) // Saturday
	require.True(t, ok)
	assert.Equal(t, "2020-01-03", got.Format("2006-01-02"))

	got, ok = Align(s, date("2020-01-05")) // Sunday
	require.True(t, ok)
	assert.Equal(t, "2020-01-03", got.Format("2006-01-02"))
}

func TestAlign_BeforeSeriesIsMissing(t *testing.T) {
	s := weekdaySeries("2020-01-02", 100, 101)
	_, ok := Align(s, date("2020-01-01"))
	assert.False(t, ok)
}

func TestAlign_AfterSeriesReturnsLast(t *testing.T) {
	s := weekdaySeries("2020-01-02", 100, 101)
	got, ok := Align(s, date("2021-06-30"))
	require.True(t, ok)
	assert.True(t, got.Equal(s.Last()))
}

func TestAlign_IgnoresTimeOfDay(t *testing.T) {
	s := weekdaySeries("2020-01-02", 100, 101)
	got, ok := Align(s, time.Date(2020, 1, 3, 21, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "2020-01-03", got.Format("2006-01-02"))
}

func TestProperty_AlignBackwardAndMonotonic(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := weekdaySeries("2021-03-01", closes...)
	base := date("2021-02-15")

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("align(d) <= d and is missing only before the first session", prop.ForAll(
		func(offset int) bool {
			d := base.AddDate(0, 0, offset)
			got, ok := Align(s, d)
			if d.Before(s.First()) {
				return !ok
			}
			return ok && !got.After(d)
		},
		gen.IntRange(0, 220),
	))

	properties.Property("d1 <= d2 implies align(d1) <= align(d2)", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			g1, ok1 := Align(s, base.AddDate(0, 0, a))
			g2, ok2 := Align(s, base.AddDate(0, 0, b))
			if !ok1 || !ok2 {
				return true
			}
			return !g1.After(g2)
		},
		gen.IntRange(0, 220),
		gen.IntRange(0, 220),
	))

	properties.TestingRun(t)
}
