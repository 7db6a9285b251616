package host

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// butterworthQ is the quality factor of a second-order Butterworth section.
const butterworthQ = 1 / math.Sqrt2

// highPassCoefficients designs the input high-pass for cutoff, clamped to
// [MinHPFHz, MaxHPFHz].
func highPassCoefficients(cutoff, sampleRate float64) biquad.Coefficients {
	return design.Highpass(clamp(cutoff, MinHPFHz, MaxHPFHz), butterworthQ, sampleRate)
}

// newHighPass returns a zero-state high-pass section for cutoff.
func newHighPass(cutoff, sampleRate float64) *biquad.Section {
	return biquad.NewSection(highPassCoefficients(cutoff, sampleRate))
}
