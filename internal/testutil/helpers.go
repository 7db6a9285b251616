// Package testutil provides reusable test helpers for the beamformer packages.
package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance     = 1e-10
	ConvolutionTolerance = 1e-9
	WindowTolerance      = 1e-12
)

// halfDivisor is used for finding center indices in symmetric arrays.
const halfDivisor = 2

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric(t *testing.T, s []float64, tolerance float64) bool {
	t.Helper()
	n := len(s)
	for i := 0; i < n/halfDivisor; i++ {
		j := n - 1 - i
		if !assert.InDelta(t, s[i], s[j], tolerance,
			"slice not symmetric at i=%d: s[%d]=%f != s[%d]=%f", i, i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllZero verifies that every sample of every channel is exactly zero.
func AssertAllZero(t *testing.T, channels [][]float64, msgAndArgs ...any) bool {
	t.Helper()
	for ch, data := range channels {
		for i, v := range data {
			if v != 0 {
				return assert.Fail(t, fmt.Sprintf("non-zero sample: channel %d sample %d = %g", ch, i, v), msgAndArgs...)
			}
		}
	}
	return true
}

// AssertSlicesInDelta compares two slices element-wise within an absolute tolerance.
func AssertSlicesInDelta(t *testing.T, expected, actual []float64, tolerance float64) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected)) {
		return false
	}
	for i := range expected {
		if !assert.InDelta(t, expected[i], actual[i], tolerance, "index %d", i) {
			return false
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	if relError > tolerance {
		return assert.Fail(t, fmt.Sprintf("relative error %e exceeds tolerance %e (expected=%g, actual=%g)",
			relError, tolerance, expected, actual), msgAndArgs...)
	}
	return true
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}

// DirectConvolve computes the full linear convolution of signal and kernel
// (length len(signal)+len(kernel)-1) with the textbook double loop.
func DirectConvolve(signal, kernel []float64) []float64 {
	if len(signal) == 0 || len(kernel) == 0 {
		return nil
	}
	out := make([]float64, len(signal)+len(kernel)-1)
	for i, s := range signal {
		for j, h := range kernel {
			out[i+j] += s * h
		}
	}
	return out
}

// Impulse returns a slice of length n with a single 1 at position pos.
func Impulse(n, pos int) []float64 {
	s := make([]float64, n)
	if pos >= 0 && pos < n {
		s[pos] = 1
	}
	return s
}

// Noise returns n uniformly distributed samples in [-1, 1) from a fixed seed.
func Noise(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := make([]float64, n)
	for i := range s {
		s[i] = rng.Float64()*2 - 1
	}
	return s
}

// Sine returns n samples of a unit sine at freq Hz.
func Sine(n int, freq, sampleRate float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return s
}

// Planar allocates a zeroed channels × samples buffer.
func Planar(channels, samples int) [][]float64 {
	buf := make([][]float64, channels)
	for ch := range buf {
		buf[ch] = make([]float64, samples)
	}
	return buf
}
