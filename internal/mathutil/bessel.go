// Package mathutil provides the small numeric helpers shared by the filter
// designers and the beamforming engine.
package mathutil

// BesselI0 computes the modified Bessel function of the first kind, order zero: I₀(x).
// It is only needed for Kaiser windows, whose arguments stay below ~20, so the
// plain power series
//
//	I₀(x) = Σ ((x/2)^k / k!)²
//
// converges in a few dozen terms to full float64 precision.
func BesselI0(x float64) float64 {
	half := x / halfDivisor
	sum := 1.0
	term := 1.0

	for k := 1; k < besselMaxTerms; k++ {
		f := half / float64(k)
		term *= f * f
		sum += term
		if term < sum*besselRelTolerance {
			break
		}
	}

	return sum
}
