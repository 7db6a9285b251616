// Package filter provides the FIR design routines behind the array strategies:
// the Kaiser taper, fractional-delay windowed-sinc interpolators, and frequency
// response evaluation for diagnostics.
package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-beamformer/internal/mathutil"
	"github.com/tphakala/simd/f64"
)

const (
	// Window normalization
	windowNormalizationFactor = 2.0

	// Sinc function constants
	sincCenterTap     = 1.0
	sincZeroThreshold = 1e-10

	// Fractional delay design limits
	taperSides   = 2
	minHalfWidth = 1
	maxHalfWidth = 512
)

// ErrInvalidDelay is returned for unusable fractional-delay parameters.
var ErrInvalidDelay = errors.New("invalid fractional delay")

// KaiserAt evaluates a continuous Kaiser window of half width halfWidth at
// offset t from its centre. It is zero outside [-halfWidth, halfWidth].
func KaiserAt(t, halfWidth, beta float64) float64 {
	x := t / halfWidth
	if x < -1 || x > 1 {
		return 0
	}
	return mathutil.BesselI0(beta*math.Sqrt(1.0-x*x)) / mathutil.BesselI0(beta)
}

// Sinc returns the normalized sinc sin(πx)/(πx).
func Sinc(x float64) float64 {
	if math.Abs(x) < sincZeroThreshold {
		return sincCenterTap
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// DelayParams describes a Kaiser-windowed sinc fractional-delay interpolator.
type DelayParams struct {
	// HalfWidth is the number of taps on each side of the interpolation centre.
	HalfWidth int

	// Beta is the Kaiser β of the tapering window.
	Beta float64

	// Gain scales the interpolator after DC normalisation.
	Gain float64
}

// Validate checks if delay parameters are usable.
func (p *DelayParams) Validate() error {
	if p.HalfWidth < minHalfWidth || p.HalfWidth > maxHalfWidth {
		return fmt.Errorf("%w: half width %d (must be in [%d, %d])", ErrInvalidDelay, p.HalfWidth, minHalfWidth, maxHalfWidth)
	}
	if !(p.Beta >= 0) || math.IsInf(p.Beta, 0) {
		return fmt.Errorf("%w: kaiser beta %f (must be finite and non-negative)", ErrInvalidDelay, p.Beta)
	}
	if !(p.Gain > 0) || math.IsInf(p.Gain, 0) {
		return fmt.Errorf("%w: gain %f (must be finite and positive)", ErrInvalidDelay, p.Gain)
	}
	return nil
}

// Span returns the number of taps needed to hold an interpolator whose centre
// may move anywhere in [HalfWidth, HalfWidth+maxDelay].
func (p *DelayParams) Span(maxDelay float64) int {
	return int(math.Ceil(maxDelay)) + taperSides*p.HalfWidth + 1
}

// FractionalDelay writes into dst a windowed-sinc impulse response whose peak
// sits at the (possibly fractional) tap position center. dst is fully
// overwritten; taps farther than HalfWidth from center are zero. The response
// is normalised to Gain at DC.
//
// dst must be preallocated; nothing is allocated here, so the function can
// run inside an audio callback.
func FractionalDelay(dst []float64, center float64, p DelayParams) {
	for i := range dst {
		dst[i] = 0
	}

	halfWidth := float64(p.HalfWidth)
	lo := max(int(math.Ceil(center-halfWidth)), 0)
	hi := min(int(math.Floor(center+halfWidth)), len(dst)-1)
	if lo > hi {
		return
	}

	for n := lo; n <= hi; n++ {
		t := float64(n) - center
		dst[n] = Sinc(t) * KaiserAt(t, halfWidth, p.Beta)
	}

	sum := f64.Sum(dst[lo : hi+1])
	if math.Abs(sum) > sincZeroThreshold {
		f64.Scale(dst[lo:hi+1], dst[lo:hi+1], p.Gain/sum)
	}
}

// FilterResponse holds the frequency response of a filter.
type FilterResponse struct {
	// Frequencies at which response was calculated (normalized, 0 to 0.5)
	Frequencies []float64

	// Magnitude response at each frequency (linear scale)
	Magnitude []float64

	// Phase response at each frequency (radians)
	Phase []float64
}

// ComputeFrequencyResponse calculates the frequency response of a FIR filter
// by evaluating its DTFT at numPoints frequencies from DC to just below Nyquist.
func ComputeFrequencyResponse(coeffs []float64, numPoints int) FilterResponse {
	if numPoints <= 0 {
		numPoints = 512
	}

	response := FilterResponse{
		Frequencies: make([]float64, numPoints),
		Magnitude:   make([]float64, numPoints),
		Phase:       make([]float64, numPoints),
	}

	for k := range numPoints {
		freq := float64(k) / float64(windowNormalizationFactor*numPoints)
		response.Frequencies[k] = freq

		// H(e^jω) = Σ h[n]·e^(-jωn)
		var realPart, imagPart float64
		omega := windowNormalizationFactor * math.Pi * freq

		for n, h := range coeffs {
			angle := omega * float64(n)
			realPart += h * math.Cos(angle)
			imagPart -= h * math.Sin(angle)
		}

		response.Magnitude[k] = math.Sqrt(realPart*realPart + imagPart*imagPart)
		response.Phase[k] = math.Atan2(imagPart, realPart)
	}

	return response
}

// MagnitudeDB converts linear magnitude to decibels.
func MagnitudeDB(magnitude float64) float64 {
	const (
		minMagnitude = 1e-10 // Avoid log(0)
		dbMultiplier = 20.0  // 20*log10 for magnitude
	)

	if magnitude < minMagnitude {
		magnitude = minMagnitude
	}
	return dbMultiplier * math.Log10(magnitude)
}
