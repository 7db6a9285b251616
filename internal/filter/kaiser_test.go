package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-beamformer/internal/mathutil"
	"github.com/tphakala/go-beamformer/internal/testutil"
)

const (
	testBeta = 8.6
	testHalf = 16
)

func testDelayParams() DelayParams {
	return DelayParams{HalfWidth: testHalf, Beta: testBeta, Gain: 1}
}

// kaiserWindow samples KaiserAt into a discrete window of the given length.
func kaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return []float64{}
	}
	window := make([]float64, length)
	if length == 1 {
		window[0] = 1
		return window
	}

	// w[n] = I₀(β * sqrt(1 - ((n - α)/α)²)) / I₀(β), α = (N-1)/2
	alpha := float64(length-1) / 2
	for n := range length {
		window[n] = KaiserAt(float64(n)-alpha, alpha, beta)
	}
	return window
}

// TestKaiserAt_Symmetry verifies that the sampled Kaiser taper is symmetric.
func TestKaiserAt_Symmetry(t *testing.T) {
	for _, length := range []int{11, 21, 51} {
		w := kaiserWindow(length, testBeta)
		require.Len(t, w, length)
		testutil.AssertSymmetric(t, w, testutil.WindowTolerance)
		assert.InDelta(t, 1.0, w[length/2], testutil.WindowTolerance, "centre should be 1")
	}
}

func TestKaiserAt_EdgeSamples(t *testing.T) {
	assert.Empty(t, kaiserWindow(0, testBeta))
	assert.Equal(t, []float64{1}, kaiserWindow(1, testBeta))

	w := kaiserWindow(33, testBeta)
	assert.InDelta(t, 1/mathutil.BesselI0(testBeta), w[0], 1e-15, "edge is I0(0)/I0(beta)")
}

func TestKaiserAt_OutsideSupport(t *testing.T) {
	assert.Equal(t, 0.0, KaiserAt(17, testHalf, testBeta))
	assert.Equal(t, 0.0, KaiserAt(-17, testHalf, testBeta))
	assert.InDelta(t, 1.0, KaiserAt(0, testHalf, testBeta), 1e-15)
}

func TestSinc(t *testing.T) {
	assert.Equal(t, 1.0, Sinc(0))
	for k := 1; k < 5; k++ {
		assert.InDelta(t, 0.0, Sinc(float64(k)), 1e-15)
	}
	assert.InDelta(t, 2/math.Pi, Sinc(0.5), 1e-15)
}

// TestFractionalDelay_IntegerCenter checks that an integer centre collapses to
// a unit impulse, since the sinc vanishes on every other tap.
func TestFractionalDelay_IntegerCenter(t *testing.T) {
	dst := make([]float64, 64)
	FractionalDelay(dst, 20, testDelayParams())

	for i, v := range dst {
		if i == 20 {
			assert.InDelta(t, 1.0, v, 1e-12)
		} else {
			assert.InDelta(t, 0.0, v, 1e-12, "tap %d", i)
		}
	}
}

func TestFractionalDelay_DCGainAndSupport(t *testing.T) {
	dst := make([]float64, 80)
	for i := range dst {
		dst[i] = 99 // stale content must be overwritten
	}
	center := 30.37
	FractionalDelay(dst, center, testDelayParams())

	testutil.AssertNoNaNOrInf(t, dst)
	var sum float64
	for i, v := range dst {
		sum += v
		if math.Abs(float64(i)-center) > testHalf {
			assert.Equal(t, 0.0, v, "tap %d outside support", i)
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	// Peak sits on the tap nearest the centre.
	peak := 0
	for i := range dst {
		if dst[i] > dst[peak] {
			peak = i
		}
	}
	assert.Equal(t, 30, peak)
}

// TestFractionalDelay_Shift verifies that the interpolator delays a low
// frequency sine by the requested fractional amount.
func TestFractionalDelay_Shift(t *testing.T) {
	const (
		fs    = 48000.0
		freq  = 500.0
		delay = 3.25
	)
	p := testDelayParams()
	h := make([]float64, p.Span(delay))
	center := float64(testHalf) + delay
	FractionalDelay(h, center, p)

	x := testutil.Sine(2048, freq, fs)
	y := testutil.DirectConvolve(x, h)

	// Compare in the steady-state region against an analytically shifted sine.
	for n := 200; n < 1800; n++ {
		want := math.Sin(2 * math.Pi * freq * (float64(n) - center) / fs)
		assert.InDelta(t, want, y[n], 1e-3, "sample %d", n)
	}
}

func TestDelayParams_Validate(t *testing.T) {
	p := testDelayParams()
	require.NoError(t, p.Validate())

	tests := []struct {
		name   string
		modify func(*DelayParams)
	}{
		{"zero half width", func(d *DelayParams) { d.HalfWidth = 0 }},
		{"half width too large", func(d *DelayParams) { d.HalfWidth = maxHalfWidth + 1 }},
		{"negative beta", func(d *DelayParams) { d.Beta = -1 }},
		{"NaN beta", func(d *DelayParams) { d.Beta = math.NaN() }},
		{"zero gain", func(d *DelayParams) { d.Gain = 0 }},
		{"NaN gain", func(d *DelayParams) { d.Gain = math.NaN() }},
		{"infinite gain", func(d *DelayParams) { d.Gain = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := p
			tt.modify(&bad)
			assert.ErrorIs(t, bad.Validate(), ErrInvalidDelay)
		})
	}
}

func TestDelayParams_Span(t *testing.T) {
	p := testDelayParams()
	assert.Equal(t, 2*testHalf+1, p.Span(0))
	assert.Equal(t, 63+2*testHalf+1, p.Span(62.97))
}

func TestComputeFrequencyResponse_Impulse(t *testing.T) {
	resp := ComputeFrequencyResponse([]float64{1}, 64)
	require.Len(t, resp.Magnitude, 64)
	for k := range resp.Magnitude {
		assert.InDelta(t, 1.0, resp.Magnitude[k], 1e-12)
		assert.InDelta(t, 0.0, resp.Phase[k], 1e-12)
	}
	assert.InDelta(t, 0.0, resp.Frequencies[0], 1e-15)
	assert.Less(t, resp.Frequencies[63], 0.5)
}

func TestComputeFrequencyResponse_DefaultPoints(t *testing.T) {
	resp := ComputeFrequencyResponse([]float64{0.5, 0.5}, 0)
	assert.Len(t, resp.Magnitude, 512)
	assert.InDelta(t, 1.0, resp.Magnitude[0], 1e-12)
}

func TestMagnitudeDB(t *testing.T) {
	assert.InDelta(t, 0.0, MagnitudeDB(1), 1e-12)
	assert.InDelta(t, -20.0, MagnitudeDB(0.1), 1e-12)
	assert.InDelta(t, -200.0, MagnitudeDB(0), 1e-12)
}
