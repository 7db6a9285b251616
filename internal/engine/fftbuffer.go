package engine

import (
	"github.com/tphakala/simd/c128"
	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// fftHermitianDivisor is used to calculate unique frequency bins in real FFT.
// Due to Hermitian symmetry, a real FFT of size N has N/2 + 1 unique complex coefficients.
const fftHermitianDivisor = 2

// Plan is a real FFT of fixed size shared by every FFTBuffer of one engine.
// Sharing a single plan is what guarantees all operands of a convolution
// have the same transform size.
type Plan struct {
	fft   *fourier.FFT
	size  int
	bins  int
	scale float64 // 1/size for IFFT normalization (gonum doesn't normalize)
}

// NewPlan creates a plan for transforms of the given size.
func NewPlan(size int) *Plan {
	return &Plan{
		fft:   fourier.NewFFT(size),
		size:  size,
		bins:  size/fftHermitianDivisor + 1,
		scale: 1.0 / float64(size),
	}
}

// Len returns the transform size in samples.
func (p *Plan) Len() int { return p.size }

// Bins returns the number of complex coefficients of one spectrum.
func (p *Plan) Bins() int { return p.bins }

// FFTBuffer holds a multichannel time series together with its spectrum.
//
// The usual sequence is SetTimeSeries, then PrepareForConvolution, after
// which the buffer can be an operand of Convolve. A buffer that is the
// receiver of Convolve holds results instead: the spectrum product and its
// inverse land in the destination channel and are drained with
// AddToTimeSeries.
//
// FFTBuffer never allocates after construction.
type FFTBuffer struct {
	plan     *Plan
	time     [][]float64
	spectrum [][]complex128
}

// NewFFTBuffer allocates a buffer of numChannels channels sized by plan.
func NewFFTBuffer(numChannels int, plan *Plan) *FFTBuffer {
	b := &FFTBuffer{
		plan:     plan,
		time:     make([][]float64, numChannels),
		spectrum: make([][]complex128, numChannels),
	}
	for ch := range numChannels {
		b.time[ch] = make([]float64, plan.size)
		b.spectrum[ch] = make([]complex128, plan.bins)
	}
	return b
}

// Channels returns the channel count.
func (b *FFTBuffer) Channels() int { return len(b.time) }

// Plan returns the transform plan the buffer was built for.
func (b *FFTBuffer) Plan() *Plan { return b.plan }

// TimeSeries returns the time-domain samples of channel ch. The slice aliases
// internal storage.
func (b *FFTBuffer) TimeSeries(ch int) []float64 { return b.time[ch] }

// Spectrum returns the spectrum of channel ch. The slice aliases internal
// storage.
func (b *FFTBuffer) Spectrum(ch int) []complex128 { return b.spectrum[ch] }

// SetTimeSeries copies src into the time-domain storage, zero-padding every
// channel to the transform size. Channels beyond len(src) are cleared and
// samples beyond the transform size are dropped. No transform is performed.
func (b *FFTBuffer) SetTimeSeries(src [][]float64) {
	for ch, dst := range b.time {
		n := 0
		if ch < len(src) {
			n = copy(dst, src[ch])
		}
		clear(dst[n:])
	}
}

// PrepareForConvolution runs the forward transform on every channel.
// It must be called exactly once after each SetTimeSeries.
func (b *FFTBuffer) PrepareForConvolution() {
	for ch, seq := range b.time {
		b.fft().Coefficients(b.spectrum[ch], seq)
	}
}

// Convolve multiplies channel chA of a with channel chB of bb into channel
// dstCh of the receiver and inverse-transforms the product into the time
// series of dstCh. The result is the circular convolution of the two
// operands; with zero padding to FIR length + block size - 1 it equals the
// linear one.
func (b *FFTBuffer) Convolve(dstCh int, a *FFTBuffer, chA int, bb *FFTBuffer, chB int) {
	c128.Mul(b.spectrum[dstCh], a.spectrum[chA], bb.spectrum[chB])
	b.fft().Sequence(b.time[dstCh], b.spectrum[dstCh])
	f64.Scale(b.time[dstCh], b.time[dstCh], b.plan.scale)
}

// AddToTimeSeries adds the time series of channel srcCh into channel dstCh
// of dst, starting at the accumulator's read position.
func (b *FFTBuffer) AddToTimeSeries(srcCh int, dst *Accumulator, dstCh int) {
	dst.Add(dstCh, b.time[srcCh])
}

// Clear zeroes both domains of every channel.
func (b *FFTBuffer) Clear() {
	for ch := range b.time {
		clear(b.time[ch])
		clear(b.spectrum[ch])
	}
}

func (b *FFTBuffer) fft() *fourier.FFT { return b.plan.fft }
