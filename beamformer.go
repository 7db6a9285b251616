package beamformer

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-beamformer/internal/array"
	"github.com/tphakala/go-beamformer/internal/engine"
)

// Topology identifies one of the supported eStick array layouts.
type Topology = array.Topology

// Supported topologies.
const (
	ULA1EStick   = array.ULA1EStick
	ULA2EStick   = array.ULA2EStick
	ULA3EStick   = array.ULA3EStick
	ULA4EStick   = array.ULA4EStick
	URA2EStick   = array.URA2EStick
	URA3EStick   = array.URA3EStick
	URA4EStick   = array.URA4EStick
	URA2x2EStick = array.URA2x2EStick
)

// Params is a look direction: horizontal and vertical direction cosines in
// [-1, 1] plus a reserved third coordinate.
type Params = array.Params

// Topologies returns every supported topology.
func Topologies() []Topology { return array.Topologies() }

// ParseTopology accepts a topology name ("ULA_1ESTICK") or label ("Single").
func ParseTopology(s string) (Topology, error) { return array.ParseTopology(s) }

// Config holds beamformer configuration.
type Config struct {
	// Topology selects the microphone array layout.
	Topology Topology

	// NumSources is the number of independently steered sources (beams).
	NumSources int

	// SampleRate of input and output audio in Hz.
	SampleRate float64

	// BlockSize is the largest number of samples per ProcessBlock call.
	BlockSize int

	// FIRUpdateTime is the time constant, in seconds, with which a beam
	// follows a steering change. Zero disables smoothing.
	FIRUpdateTime float64

	// EnableParallel lets Render process sources concurrently.
	// Has no effect with a single source.
	EnableParallel bool
}

// Common errors returned by the beamformer.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid beamformer configuration")

	// ErrInvalidInput indicates input that does not match the configuration.
	ErrInvalidInput = errors.New("invalid beamformer input")
)

// DefaultConfig returns a two-source single-eStick configuration at 48 kHz.
func DefaultConfig() *Config {
	return &Config{
		Topology:      ULA1EStick,
		NumSources:    DefaultNumSources,
		SampleRate:    RateDAT,
		BlockSize:     DefaultBlockSize,
		FIRUpdateTime: DefaultFIRUpdateTime,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.Topology.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, array.ErrUnsupportedTopology)
	}

	if c.NumSources < 1 || c.NumSources > maxSources {
		return fmt.Errorf("%w: source count must be 1-%d", ErrInvalidConfig, maxSources)
	}

	if !(c.SampleRate > 0) || c.SampleRate > maxRate {
		return fmt.Errorf("%w: sample rate must be in (0, %d]", ErrInvalidConfig, maxRate)
	}

	if c.BlockSize < 1 || c.BlockSize > maxBlockSize {
		return fmt.Errorf("%w: block size must be 1-%d", ErrInvalidConfig, maxBlockSize)
	}

	if !(c.FIRUpdateTime >= 0) {
		return fmt.Errorf("%w: FIR update time must be non-negative", ErrInvalidConfig)
	}

	return nil
}

// Beamformer renders source signals into the microphone signals of an
// eStick array. It is a thin wrapper around the real-time engine and, like
// it, is not safe for concurrent use.
type Beamformer struct {
	config Config
	engine *engine.Engine
}

// New creates a beamformer with the specified configuration.
// All beams start silent until steered.
func New(config *Config) (*Beamformer, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	e, err := engine.New(config.Topology, config.NumSources, config.SampleRate, config.BlockSize,
		engine.WithFIRUpdateTime(config.FIRUpdateTime))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &Beamformer{config: *config, engine: e}, nil
}

// Config returns a copy of the configuration.
func (b *Beamformer) Config() Config { return b.config }

// SetBeamParameters steers source i towards p with the configured smoothing.
func (b *Beamformer) SetBeamParameters(i int, p Params) {
	b.engine.SetBeamParameters(i, p)
}

// SetBeamParametersAlpha steers source i towards p with an explicit blend
// factor in [0, 1].
func (b *Beamformer) SetBeamParametersAlpha(i int, p Params, alpha float64) {
	b.engine.SetBeamParametersAlpha(i, p, alpha)
}

// ProcessBlock consumes one block of planar source audio: at least
// NumSources channels of at most BlockSize samples.
func (b *Beamformer) ProcessBlock(in [][]float64) {
	b.engine.ProcessBlock(in)
}

// Output fills dst with the next len(dst[0]) samples of up to NumMic
// microphone channels. Call it once after every ProcessBlock.
func (b *Beamformer) Output(dst [][]float64) {
	b.engine.Output(dst)
}

// FIR previews the filters for p without touching beamformer state.
func (b *Beamformer) FIR(dst [][]float64, p Params, alpha float64) {
	b.engine.FIR(dst, p, alpha)
}

// BeamFIR returns the current filters of source i. Do not modify.
func (b *Beamformer) BeamFIR(i int) [][]float64 { return b.engine.BeamFIR(i) }

// Reset silences every beam and drops pending output.
func (b *Beamformer) Reset() { b.engine.Reset() }

// NumMic returns the number of output channels.
func (b *Beamformer) NumMic() int { return b.engine.NumMic() }

// NumSources returns the number of input channels.
func (b *Beamformer) NumSources() int { return b.engine.NumSources() }

// FIRLen returns the impulse response length of every filter.
func (b *Beamformer) FIRLen() int { return b.engine.FIRLen() }

// Alpha returns the per-block smoothing factor.
func (b *Beamformer) Alpha() float64 { return b.engine.Alpha() }

// GetLatency returns the broadside delay in samples.
func (b *Beamformer) GetLatency() int {
	return (b.engine.FIRLen() - 1) / latencyDivisor
}

// Info describes a beamformer instance.
type Info struct {
	// Algorithm describes the processing algorithm in use.
	Algorithm string

	// Topology is the array layout name.
	Topology string

	// NumMic is the number of microphones.
	NumMic int

	// NumSources is the number of beams.
	NumSources int

	// FilterLength is the number of filter taps per microphone.
	FilterLength int

	// FFTSize is the convolution transform size.
	FFTSize int

	// Latency is the broadside delay in samples.
	Latency int

	// MemoryUsage is the approximate memory usage in bytes.
	MemoryUsage int64

	// SIMDEnabled indicates if SIMD optimizations are active.
	SIMDEnabled bool

	// SIMDType describes the SIMD instruction set in use.
	SIMDType string
}

// GetInfo returns information about the beamformer.
func (b *Beamformer) GetInfo() Info {
	info := Info{
		Algorithm:    "fft-overlap-add delay-and-sum",
		Topology:     b.config.Topology.String(),
		NumMic:       b.engine.NumMic(),
		NumSources:   b.engine.NumSources(),
		FilterLength: b.engine.FIRLen(),
		FFTSize:      b.engine.FFTSize(),
		Latency:      b.GetLatency(),
		MemoryUsage:  b.engine.MemoryUsage(),
	}

	if simd := b.engine.SIMDInfo(); simd != "" {
		info.SIMDEnabled = true
		info.SIMDType = simd
	}

	return info
}
