package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-beamformer/internal/testutil"
)

func TestPlan(t *testing.T) {
	p := NewPlan(1024)
	assert.Equal(t, 1024, p.Len())
	assert.Equal(t, 513, p.Bins())
}

func TestFFTBuffer_SetTimeSeries(t *testing.T) {
	plan := NewPlan(8)
	b := NewFFTBuffer(3, plan)
	require.Equal(t, 3, b.Channels())
	assert.Same(t, plan, b.Plan())

	// Pre-fill to check that everything not supplied is cleared.
	for ch := range 3 {
		for i := range b.TimeSeries(ch) {
			b.TimeSeries(ch)[i] = 9
		}
	}

	b.SetTimeSeries([][]float64{
		{1, 2, 3},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	assert.Equal(t, []float64{1, 2, 3, 0, 0, 0, 0, 0}, b.TimeSeries(0), "short channel is zero-padded")
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, b.TimeSeries(1), "long channel is truncated")
	assert.Equal(t, make([]float64, 8), b.TimeSeries(2), "missing channel is cleared")
}

func TestFFTBuffer_ConvolveMatchesDirect(t *testing.T) {
	const size = 256
	plan := NewPlan(size)

	signal := testutil.Noise(100, 1)
	kernel := testutil.Noise(90, 2)
	want := testutil.DirectConvolve(signal, kernel)
	require.LessOrEqual(t, len(want), size)

	a := NewFFTBuffer(2, plan)
	a.SetTimeSeries([][]float64{nil, kernel})
	a.PrepareForConvolution()

	x := NewFFTBuffer(1, plan)
	x.SetTimeSeries([][]float64{signal})
	x.PrepareForConvolution()

	result := NewFFTBuffer(2, plan)
	result.Convolve(1, a, 1, x, 0)

	got := result.TimeSeries(1)
	testutil.AssertSlicesInDelta(t, want, got[:len(want)], testutil.ConvolutionTolerance)
	for i := len(want); i < size; i++ {
		assert.InDelta(t, 0, got[i], testutil.ConvolutionTolerance, "sample %d past the linear result", i)
	}
	assert.Equal(t, make([]float64, size), result.TimeSeries(0), "other channels untouched")
}

func TestFFTBuffer_ConvolveIsCircular(t *testing.T) {
	plan := NewPlan(8)
	a := NewFFTBuffer(1, plan)
	a.SetTimeSeries([][]float64{testutil.Impulse(8, 3)})
	a.PrepareForConvolution()

	x := NewFFTBuffer(1, plan)
	x.SetTimeSeries([][]float64{testutil.Impulse(8, 6)})
	x.PrepareForConvolution()

	r := NewFFTBuffer(1, plan)
	r.Convolve(0, a, 0, x, 0)
	testutil.AssertSlicesInDelta(t, testutil.Impulse(8, 1), r.TimeSeries(0), testutil.ConvolutionTolerance)
}

func TestFFTBuffer_AddToTimeSeries(t *testing.T) {
	plan := NewPlan(4)
	b := NewFFTBuffer(2, plan)
	b.SetTimeSeries([][]float64{{1, 2, 3, 4}, {10, 20, 30, 40}})

	acc := NewAccumulator(2, 4)
	b.AddToTimeSeries(1, acc, 0)
	b.AddToTimeSeries(0, acc, 0)
	b.AddToTimeSeries(0, acc, 1)

	out := testutil.Planar(2, 4)
	acc.Read(out, 4)
	assert.Equal(t, []float64{11, 22, 33, 44}, out[0])
	assert.Equal(t, []float64{1, 2, 3, 4}, out[1])
}

func TestFFTBuffer_Clear(t *testing.T) {
	plan := NewPlan(16)
	b := NewFFTBuffer(2, plan)
	b.SetTimeSeries([][]float64{testutil.Noise(16, 3), testutil.Noise(16, 4)})
	b.PrepareForConvolution()

	b.Clear()
	for ch := range 2 {
		assert.Equal(t, make([]float64, 16), b.TimeSeries(ch))
		assert.Equal(t, make([]complex128, plan.Bins()), b.Spectrum(ch))
	}
}

func BenchmarkFFTBuffer_Convolve(b *testing.B) {
	plan := NewPlan(1024)
	k := NewFFTBuffer(1, plan)
	k.SetTimeSeries([][]float64{testutil.Noise(100, 1)})
	k.PrepareForConvolution()
	x := NewFFTBuffer(1, plan)
	x.SetTimeSeries([][]float64{testutil.Noise(512, 2)})
	x.PrepareForConvolution()
	r := NewFFTBuffer(1, plan)

	b.ReportAllocs()
	for b.Loop() {
		r.Convolve(0, k, 0, x, 0)
	}
}
