// Package host wraps the beamforming engine the way an audio plugin host
// drives it: per-source input gain and mute, a high-pass pre-filter, steering
// applied every block, a load meter, and engine rebuilds whenever topology,
// sample rate or block size change.
//
// Parameters are published through SetParams from any goroutine; the audio
// callback picks the latest set up at the start of each block.
package host

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"

	"github.com/tphakala/go-beamformer/internal/array"
	"github.com/tphakala/go-beamformer/internal/engine"
	"github.com/tphakala/go-beamformer/internal/mathutil"
)

// Parameter ranges and defaults.
const (
	DefaultNumSources = 2
	DefaultHPFHz      = 250.0
	MinHPFHz          = 20.0
	MaxHPFHz          = 500.0
	MinLevelDB        = -10.0
	MaxLevelDB        = 10.0

	// defaultSpread is the steering of the outermost sources by default.
	defaultSpread = 0.5

	gainRampSeconds   = 0.1
	loadTimeConstant  = 1.0 // seconds
	amplitudeDBFactor = 20.0
)

// Processor errors.
var (
	ErrNotPrepared   = errors.New("processor not prepared")
	ErrBlockTooLarge = errors.New("block larger than prepared block size")
	ErrShortBuffer   = errors.New("output buffer shorter than block")
	ErrInvalidSetup  = errors.New("invalid processor setup")
)

// SourceParams are the user controls of one source.
type SourceParams struct {
	SteerX  float64 // horizontal direction, [-1, 1]
	SteerY  float64 // vertical direction, [-1, 1]
	LevelDB float64 // input level, [MinLevelDB, MaxLevelDB]
	Mute    bool
}

func (s SourceParams) gain() float64 {
	if s.Mute {
		return 0
	}
	return dbToGain(clamp(s.LevelDB, MinLevelDB, MaxLevelDB))
}

// Params is the complete user-facing parameter set.
type Params struct {
	HPFHz   float64
	Sources []SourceParams
}

// DefaultParams spreads numSources sources evenly between -0.5 and +0.5 on
// the horizontal axis, all at unity level with the default high-pass.
func DefaultParams(numSources int) Params {
	p := Params{HPFHz: DefaultHPFHz, Sources: make([]SourceParams, numSources)}
	if numSources > 1 {
		for i := range p.Sources {
			p.Sources[i].SteerX = -defaultSpread + 2*defaultSpread*float64(i)/float64(numSources-1)
		}
	}
	return p
}

func (p *Params) clone() *Params {
	c := *p
	c.Sources = append([]SourceParams(nil), p.Sources...)
	return &c
}

func (p *Params) source(i int) SourceParams {
	if i < len(p.Sources) {
		return p.Sources[i]
	}
	return SourceParams{}
}

// Option customizes a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithFIRUpdateTime sets the engine's steering time constant in seconds.
func WithFIRUpdateTime(seconds float64) Option {
	return func(p *Processor) { p.firUpdateTime = seconds }
}

// Processor owns an engine and everything around it that a host needs.
// Process, Prepare, Release and SetTopology serialize on an internal mutex;
// SetParams, Params and Load never block.
type Processor struct {
	mu sync.Mutex

	topology      array.Topology
	numSources    int
	firUpdateTime float64
	logger        *slog.Logger

	params atomic.Pointer[Params]
	load   atomic.Uint64 // float64 bits

	// Valid while prepared.
	prepared   bool
	sampleRate float64
	blockSize  int
	engine     *engine.Engine
	hpf        []*biquad.Section
	prevHPFHz  float64
	gains      []gainRamp
	scratch    [][]float64
	inView     [][]float64
	outView    [][]float64
	discard    [][]float64
	loadAlpha  float64
}

// NewProcessor creates an unprepared processor.
func NewProcessor(topology array.Topology, numSources int, opts ...Option) (*Processor, error) {
	if !topology.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, array.ErrUnsupportedTopology)
	}
	if numSources < 1 {
		return nil, fmt.Errorf("%w: source count %d", ErrInvalidSetup, numSources)
	}

	p := &Processor{
		topology:      topology,
		numSources:    numSources,
		firUpdateTime: engine.DefaultFIRUpdateTime,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.SetParams(DefaultParams(numSources))
	return p, nil
}

// SetParams publishes a new parameter set. The slice is copied.
func (p *Processor) SetParams(params Params) {
	p.params.Store(params.clone())
}

// Params returns a copy of the current parameter set.
func (p *Processor) Params() Params {
	return *p.params.Load().clone()
}

// Load returns the smoothed ratio of processing time to block duration.
func (p *Processor) Load() float64 {
	return math.Float64frombits(p.load.Load())
}

// Topology returns the current array layout.
func (p *Processor) Topology() array.Topology {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topology
}

// NumMic returns the output channel count of the current topology.
func (p *Processor) NumMic() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topology.NumMic()
}

// NumSources returns the input channel count.
func (p *Processor) NumSources() int { return p.numSources }

// TailLength returns how long a block keeps ringing in samples, or 0 when
// the processor is not prepared.
func (p *Processor) TailLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.prepared {
		return 0
	}
	return p.engine.TailLength()
}

// Prepare allocates everything for the given stream format. It can be called
// again to change the format.
func (p *Processor) Prepare(sampleRate float64, blockSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.newEngine(p.topology, sampleRate, blockSize)
	if err != nil {
		return err
	}

	params := p.params.Load()
	p.engine = e
	p.sampleRate = sampleRate
	p.blockSize = blockSize
	p.hpf = make([]*biquad.Section, p.numSources)
	p.prevHPFHz = params.HPFHz
	p.gains = make([]gainRamp, p.numSources)
	p.scratch = make([][]float64, p.numSources)
	for i := range p.numSources {
		p.hpf[i] = newHighPass(params.HPFHz, sampleRate)
		p.gains[i] = newGainRamp(sampleRate, gainRampSeconds, params.source(i).gain())
		p.scratch[i] = make([]float64, blockSize)
	}
	p.inView = make([][]float64, p.numSources)
	p.discard = [][]float64{make([]float64, blockSize)}
	p.loadAlpha = mathutil.SmoothingAlpha(blockSize, sampleRate, loadTimeConstant)
	p.resizeOutView()
	p.load.Store(0)
	p.prepared = true

	p.logger.Info("processor prepared",
		"topology", p.topology.String(),
		"sources", p.numSources,
		"sample_rate", sampleRate,
		"block_size", blockSize,
		"fir_len", e.FIRLen(),
		"fft_size", e.FFTSize())
	return nil
}

// Release frees the engine. Process fails with ErrNotPrepared until the next
// Prepare.
func (p *Processor) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.prepared {
		return
	}
	p.prepared = false
	p.engine = nil
	p.hpf = nil
	p.gains = nil
	p.scratch = nil
	p.logger.Info("processor released")
}

// SetTopology switches the array layout, rebuilding the engine if prepared.
// On error the previous layout stays active.
func (p *Processor) SetTopology(t array.Topology) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t == p.topology {
		return nil
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidSetup, array.ErrUnsupportedTopology)
	}

	if p.prepared {
		e, err := p.newEngine(t, p.sampleRate, p.blockSize)
		if err != nil {
			return err
		}
		p.engine = e
		p.resizeOutView()
	}

	p.logger.Info("topology changed", "from", p.topology.String(), "to", t.String())
	p.topology = t
	return nil
}

// Process runs one block. in holds one channel per source, each len(in[0])
// samples; missing channels are silent. out receives up to NumMic channels
// and each must hold at least len(in[0]) samples.
func (p *Processor) Process(in, out [][]float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.prepared {
		return ErrNotPrepared
	}
	start := time.Now()

	n := 0
	if len(in) > 0 {
		n = len(in[0])
	}
	if n > p.blockSize {
		return fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, n, p.blockSize)
	}

	params := p.params.Load()
	// The cutoff is compared as a frequency; any change recomputes.
	if params.HPFHz != p.prevHPFHz {
		c := highPassCoefficients(params.HPFHz, p.sampleRate)
		for _, s := range p.hpf {
			s.Coefficients = c
		}
		p.prevHPFHz = params.HPFHz
	}

	for i := range p.numSources {
		buf := p.scratch[i][:n]
		copied := 0
		if i < len(in) {
			copied = copy(buf, in[i])
		}
		clear(buf[copied:])

		sp := params.source(i)
		p.gains[i].setTarget(sp.gain())
		p.gains[i].apply(buf)
		p.hpf[i].ProcessBlock(buf)
		p.inView[i] = buf

		// Host and engine disagree on which side is positive.
		p.engine.SetBeamParameters(i, array.Params{X: -sp.SteerX, Y: sp.SteerY})
	}

	p.engine.ProcessBlock(p.inView)

	dst, err := p.outputView(out, n)
	if err != nil {
		// Keep the output window aligned even when the caller's buffer is bad.
		p.engine.Output(p.discardView(n))
		return err
	}
	p.engine.Output(dst)

	p.updateLoad(time.Since(start), n)
	return nil
}

func (p *Processor) newEngine(t array.Topology, sampleRate float64, blockSize int) (*engine.Engine, error) {
	e, err := engine.New(t, p.numSources, sampleRate, blockSize, engine.WithFIRUpdateTime(p.firUpdateTime))
	if err != nil {
		p.logger.Error("failed to build engine", "topology", t.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}
	return e, nil
}

func (p *Processor) resizeOutView() {
	p.outView = make([][]float64, p.engine.NumMic())
}

func (p *Processor) outputView(out [][]float64, n int) ([][]float64, error) {
	rows := min(len(out), len(p.outView))
	if rows == 0 {
		return p.discardView(n), nil
	}
	for ch := range rows {
		if len(out[ch]) < n {
			return nil, fmt.Errorf("%w: channel %d has %d samples, need %d", ErrShortBuffer, ch, len(out[ch]), n)
		}
		p.outView[ch] = out[ch][:n]
	}
	return p.outView[:rows], nil
}

func (p *Processor) discardView(n int) [][]float64 {
	p.discard[0] = p.discard[0][:n]
	return p.discard
}

func (p *Processor) updateLoad(elapsed time.Duration, n int) {
	if n == 0 {
		return
	}
	budget := float64(n) / p.sampleRate
	cur := elapsed.Seconds() / budget
	a := p.loadAlpha
	if n != p.blockSize {
		a = mathutil.SmoothingAlpha(n, p.sampleRate, loadTimeConstant)
	}
	prev := math.Float64frombits(p.load.Load())
	p.load.Store(math.Float64bits(prev*(1-a) + cur*a))
}

// clamp limits v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(hi, v))
}
