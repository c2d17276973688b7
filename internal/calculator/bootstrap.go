package calculator

import (
	"math"
	"math/rand/v2"

	"github.com/guregu/null/v6"
)

// DefaultBootstrapIterations is the resample count used by the study engine.
const DefaultBootstrapIterations = 2000

// BootstrapP resamples returns with replacement nboot times and reports the
// fraction of resampled means whose magnitude is at least |observed mean|.
//
// The resampled means are not centered, so this measures how extreme the
// observed mean is within its own bootstrap distribution rather than against
// a zero-mean null. Reports already depend on these exact numbers.
//
// Missing and NaN entries are dropped first; fewer than two values yields missing.
func BootstrapP(rng *rand.Rand, returns []null.Float, nboot int) null.Float {
	xs := Valid(returns)
	if len(xs) < 2 || nboot <= 0 {
		return null.Float{}
	}
	observed := math.Abs(mean(xs))

	sample := make([]float64, len(xs))
	hits := 0
	for b := 0; b < nboot; b++ {
		for i := range sample {
			sample[i] = xs[rng.IntN(len(xs))]
		}
		if math.Abs(mean(sample)) >= observed {
			hits++
		}
	}
	return null.FloatFrom(float64(hits) / float64(nboot))
}
