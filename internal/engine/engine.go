// Package engine implements the real-time beamforming core: per-source FIR
// filter sets that are steered through an array strategy, and FFT
// convolution of every source against every microphone with overlap-add
// reconstruction.
//
// An Engine is not safe for concurrent use and does not allocate after New.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-beamformer/internal/array"
	"github.com/tphakala/go-beamformer/internal/mathutil"
	"github.com/tphakala/simd/cpu"
)

// DefaultFIRUpdateTime is the smoothing time constant, in seconds, with which
// a beam follows a change of direction.
const DefaultFIRUpdateTime = 0.2

// Byte size of one sample and one spectrum bin.
const (
	bytesPerFloat64    = 8
	bytesPerComplex128 = 16
)

// Construction errors.
var (
	ErrInvalidSampleRate    = errors.New("invalid sample rate")
	ErrInvalidBlockSize     = errors.New("invalid block size")
	ErrInvalidSourceCount   = errors.New("invalid source count")
	ErrInvalidFIRUpdateTime = errors.New("invalid FIR update time")
)

type options struct {
	firUpdateTime float64
	strategy      array.Strategy
}

// Option customizes an Engine at construction.
type Option func(*options)

// WithFIRUpdateTime sets the smoothing time constant in seconds. Zero makes
// every SetBeamParameters call a full override.
func WithFIRUpdateTime(seconds float64) Option {
	return func(o *options) { o.firUpdateTime = seconds }
}

// WithStrategy replaces the topology's default strategy. The microphone
// count and FIR length are then taken from s.
func WithStrategy(s array.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// Engine renders numSources source signals into the microphone signals of
// an array. Each source has its own FIR filter set, one impulse response per
// microphone, which is steered with SetBeamParameters.
//
// Per audio block the caller steers (optionally), then calls ProcessBlock
// once and Output once.
type Engine struct {
	topology   array.Topology
	strategy   array.Strategy
	plan       *Plan
	numMic     int
	numSources int
	blockSize  int
	firLen     int
	sampleRate float64
	alpha      float64

	firs   [][][]float64 // [source][mic][tap]
	beams  []*FFTBuffer  // one per source, numMic channels
	input  *FFTBuffer    // numSources channels
	conv   *FFTBuffer    // single result channel
	output *Accumulator  // numMic channels
}

// New creates an engine for the given topology. blockSize is the largest
// block ProcessBlock will be given.
func New(topology array.Topology, numSources int, sampleRate float64, blockSize int, opts ...Option) (*Engine, error) {
	o := options{firUpdateTime: DefaultFIRUpdateTime}
	for _, opt := range opts {
		opt(&o)
	}

	if !topology.Valid() {
		return nil, fmt.Errorf("%w: %d", array.ErrUnsupportedTopology, int(topology))
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %f (must be positive)", ErrInvalidSampleRate, sampleRate)
	}
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: %d (must be positive)", ErrInvalidBlockSize, blockSize)
	}
	if numSources < 1 {
		return nil, fmt.Errorf("%w: %d (must be positive)", ErrInvalidSourceCount, numSources)
	}
	if o.firUpdateTime < 0 || math.IsNaN(o.firUpdateTime) {
		return nil, fmt.Errorf("%w: %f (must be non-negative)", ErrInvalidFIRUpdateTime, o.firUpdateTime)
	}

	strategy := o.strategy
	if strategy == nil {
		var err error
		if strategy, err = topology.NewStrategy(sampleRate); err != nil {
			return nil, fmt.Errorf("failed to create array strategy: %w", err)
		}
	}

	e := &Engine{
		topology:   topology,
		strategy:   strategy,
		numMic:     strategy.NumMic(),
		numSources: numSources,
		blockSize:  blockSize,
		firLen:     strategy.FIRLen(),
		sampleRate: sampleRate,
		alpha:      mathutil.SmoothingAlpha(blockSize, sampleRate, o.firUpdateTime),
	}

	e.plan = NewPlan(mathutil.NextPowerOfTwo(e.firLen + blockSize - 1))
	e.firs = make([][][]float64, numSources)
	e.beams = make([]*FFTBuffer, numSources)
	for src := range numSources {
		e.firs[src] = make([][]float64, e.numMic)
		for m := range e.numMic {
			e.firs[src][m] = make([]float64, e.firLen)
		}
		e.beams[src] = NewFFTBuffer(e.numMic, e.plan)
	}
	e.input = NewFFTBuffer(numSources, e.plan)
	e.conv = NewFFTBuffer(1, e.plan)
	e.output = NewAccumulator(e.numMic, e.plan.Len())

	return e, nil
}

// SetBeamParameters steers source i towards p, blending the new filters in
// with the engine's smoothing factor.
func (e *Engine) SetBeamParameters(i int, p array.Params) {
	e.SetBeamParametersAlpha(i, p, e.alpha)
}

// SetBeamParametersAlpha steers source i towards p with an explicit blend
// factor: 1 replaces the filters, 0 keeps them.
func (e *Engine) SetBeamParametersAlpha(i int, p array.Params, alpha float64) {
	e.strategy.FIR(e.firs[i], p, alpha)
	e.beams[i].SetTimeSeries(e.firs[i])
	e.beams[i].PrepareForConvolution()
}

// ProcessBlock convolves every source channel of in with its filter set and
// overlap-adds the result into the output window. in must have at least
// NumSources channels of at most BlockSize samples; extra channels are
// ignored.
func (e *Engine) ProcessBlock(in [][]float64) {
	e.input.SetTimeSeries(in[:e.numSources])
	e.input.PrepareForConvolution()

	for src, beam := range e.beams {
		for m := range e.numMic {
			e.conv.Convolve(0, beam, m, e.input, src)
			e.conv.AddToTimeSeries(0, e.output, m)
		}
	}
}

// Output copies len(dst[0]) samples per microphone into dst, for the first
// min(NumMic, len(dst)) channels, and slides the output window forward.
func (e *Engine) Output(dst [][]float64) {
	if len(dst) == 0 {
		return
	}
	e.output.Read(dst, len(dst[0]))
}

// FIR writes the filters the strategy produces for p into dst, blended with
// alpha into what dst already holds. Engine state is not touched.
func (e *Engine) FIR(dst [][]float64, p array.Params, alpha float64) {
	e.strategy.FIR(dst, p, alpha)
}

// BeamFIR returns the stored filter set of source i. The slices alias engine
// state and must not be modified.
func (e *Engine) BeamFIR(i int) [][]float64 {
	return e.firs[i]
}

// Reset silences every beam and clears the output window.
func (e *Engine) Reset() {
	for src := range e.firs {
		for _, fir := range e.firs[src] {
			clear(fir)
		}
		e.beams[src].Clear()
	}
	e.input.Clear()
	e.conv.Clear()
	e.output.Clear()
}

// Topology returns the array layout.
func (e *Engine) Topology() array.Topology { return e.topology }

// NumMic returns the microphone (output channel) count.
func (e *Engine) NumMic() int { return e.numMic }

// NumSources returns the source (input channel) count.
func (e *Engine) NumSources() int { return e.numSources }

// FIRLen returns the length of every impulse response.
func (e *Engine) FIRLen() int { return e.firLen }

// FFTSize returns the transform size.
func (e *Engine) FFTSize() int { return e.plan.Len() }

// BlockSize returns the maximum block size.
func (e *Engine) BlockSize() int { return e.blockSize }

// SampleRate returns the sample rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Alpha returns the smoothing factor applied by SetBeamParameters.
func (e *Engine) Alpha() float64 { return e.alpha }

// TailLength returns how many samples a block keeps ringing after it was
// processed, i.e. FIRLen - 1.
func (e *Engine) TailLength() int { return e.firLen - 1 }

// MemoryUsage returns approximate memory usage in bytes.
func (e *Engine) MemoryUsage() int64 {
	var usage int64
	fftSize, bins := int64(e.plan.Len()), int64(e.plan.Bins())

	// Filter sets and their spectra
	usage += int64(e.numSources*e.numMic) * (int64(e.firLen)*bytesPerFloat64 + fftSize*bytesPerFloat64 + bins*bytesPerComplex128)

	// Input, convolution scratch and output window
	usage += int64(e.numSources+1) * (fftSize*bytesPerFloat64 + bins*bytesPerComplex128)
	usage += int64(e.numMic) * int64(e.output.Capacity()) * bytesPerFloat64

	return usage
}

// SIMDInfo returns SIMD optimization info.
func (e *Engine) SIMDInfo() string {
	return cpu.Info()
}
