package mathutil

// Bessel series constants
const (
	besselMaxTerms     = 500   // Hard stop for the I₀ power series
	besselRelTolerance = 1e-17 // Stop once a term no longer moves the sum
)

// Common division constants
const (
	halfDivisor = 2.0 // Division by 2
)
