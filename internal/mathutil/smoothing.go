package mathutil

import (
	"math"
	"math/bits"
)

// SmoothingAlpha returns the one-pole update coefficient for a parameter that
// is refreshed once every blockSize samples and should settle with the given
// time constant:
//
//	α = 1 - exp(-(blockSize / sampleRate) / timeConstant)
//
// A non-positive time constant means "no smoothing" and yields 1.
func SmoothingAlpha(blockSize int, sampleRate, timeConstant float64) float64 {
	if timeConstant <= 0 {
		return 1
	}
	return 1 - math.Exp(-(float64(blockSize)/sampleRate)/timeConstant)
}

// NextPowerOfTwo returns the smallest power of two >= n. Values below 1 map to 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
