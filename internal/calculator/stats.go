package calculator

import (
	"math"

	"github.com/guregu/null/v6"
)

// Valid drops missing and NaN entries.
func Valid(values []null.Float) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid && !math.IsNaN(v.Float64) {
			out = append(out, v.Float64)
		}
	}
	return out
}

// Mean returns the arithmetic mean, missing for an empty sample.
func Mean(xs []float64) null.Float {
	if len(xs) == 0 {
		return null.Float{}
	}
	return null.FloatFrom(mean(xs))
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStd returns the N-1 standard deviation, missing when len(xs) < 2.
func SampleStd(xs []float64) null.Float {
	if len(xs) < 2 {
		return null.Float{}
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return null.FloatFrom(math.Sqrt(ss / float64(len(xs)-1)))
}

// TStat returns mean / (std / sqrt(count)); missing when any input is missing,
// count is zero or std is zero.
func TStat(m, std null.Float, count int) null.Float {
	if !m.Valid || !std.Valid || count <= 0 || std.Float64 == 0 {
		return null.Float{}
	}
	t := m.Float64 / (std.Float64 / math.Sqrt(float64(count)))
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return null.Float{}
	}
	return null.FloatFrom(t)
}
