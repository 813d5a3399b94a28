package denoise

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// abundancePValue is the probability of observing at least count reads of a
// sequence when errors from its partition center produce Poisson(mu) copies,
// conditioned on the sequence being observed at all. Singletons are always
// consistent with error (p = 1) and can never found a partition.
func abundancePValue(count int, mu float64) float64 {
	if count <= 1 {
		return 1
	}
	if mu <= 0 {
		// the center cannot generate this sequence, yet it was seen repeatedly
		return 0
	}
	pois := distuv.Poisson{Lambda: mu}
	surv := pois.Survival(float64(count) - 1) // P(X >= count)
	denom := -math.Expm1(-mu)                 // P(X >= 1)
	if denom <= 0 {
		return 0
	}
	p := surv / denom
	if p > 1 {
		p = 1
	}
	return p
}
