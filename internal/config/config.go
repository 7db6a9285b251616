// Package config loads the estick-sim YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	beamformer "github.com/tphakala/go-beamformer"
	"github.com/tphakala/go-beamformer/internal/array"
	"github.com/tphakala/go-beamformer/internal/host"
	"github.com/tphakala/go-beamformer/internal/log"
)

// Configuration defaults and limits.
const (
	DefaultLogLevel      = "info"
	DefaultSampleRate    = 48000
	DefaultBlockSize     = 512
	DefaultTopology      = array.ULA1EStick
	DefaultFIRUpdateTime = 0.2
	DefaultDeviceID      = MinDeviceID // system default device

	MinDeviceID   = -1
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinBlockSize  = 16
	MaxBlockSize  = 8192
	MaxSources    = 16
	MaxUpdateTime = 10.0 // seconds
	maxSteer      = 1.0
)

// ErrInvalidConfig indicates a configuration value out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration, loaded from YAML.
type Config struct {
	LogLevel string         `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Audio    AudioConfig    `yaml:"audio"`     // Stream format.
	Array    ArrayConfig    `yaml:"array"`     // Microphone array and filter settings.
	Sources  []SourceConfig `yaml:"sources"`   // One entry per simulated source.
	Live     LiveConfig     `yaml:"live"`      // PortAudio devices for the live command.
}

// AudioConfig holds the stream format.
type AudioConfig struct {
	SampleRate float64 `yaml:"sample_rate"` // Sample rate in Hz.
	BlockSize  int     `yaml:"block_size"`  // Samples per processing block.
}

// ArrayConfig selects the array and its processing.
type ArrayConfig struct {
	Topology      array.Topology `yaml:"topology"`        // Name ("ULA_1ESTICK") or label ("Single").
	HPFHz         float64        `yaml:"hpf_hz"`          // Input high-pass cutoff in Hz.
	FIRUpdateTime float64        `yaml:"fir_update_time"` // Steering time constant in seconds.
}

// SourceConfig holds the controls of one source.
type SourceConfig struct {
	SteerX  float64 `yaml:"steer_x"`  // Horizontal direction in [-1, 1].
	SteerY  float64 `yaml:"steer_y"`  // Vertical direction in [-1, 1].
	LevelDB float64 `yaml:"level_db"` // Input level in dB.
	Mute    bool    `yaml:"mute"`
}

// LiveConfig holds PortAudio device selection.
type LiveConfig struct {
	InputDevice  int `yaml:"input_device"`  // Device index for capture (-1 for default).
	OutputDevice int `yaml:"output_device"` // Device index for playback (-1 for default).
}

// Default returns the built-in configuration: a single eStick with two
// sources at -0.5 and +0.5.
func Default() *Config {
	defaults := host.DefaultParams(host.DefaultNumSources)
	sources := make([]SourceConfig, len(defaults.Sources))
	for i, s := range defaults.Sources {
		sources[i] = SourceConfig{SteerX: s.SteerX, SteerY: s.SteerY, LevelDB: s.LevelDB, Mute: s.Mute}
	}

	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			SampleRate: DefaultSampleRate,
			BlockSize:  DefaultBlockSize,
		},
		Array: ArrayConfig{
			Topology:      DefaultTopology,
			HPFHz:         host.DefaultHPFHz,
			FIRUpdateTime: DefaultFIRUpdateTime,
		},
		Sources: sources,
		Live: LiveConfig{
			InputDevice:  DefaultDeviceID,
			OutputDevice: DefaultDeviceID,
		},
	}
}

// Load reads configuration from the YAML file at path on top of the
// defaults. An empty path uses the defaults alone. Environment overrides are
// applied last, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every value against its range.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if !inRange(c.Audio.SampleRate, MinSampleRate, MaxSampleRate) {
		return fmt.Errorf("%w: audio.sample_rate must be %d-%d", ErrInvalidConfig, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.BlockSize < MinBlockSize || c.Audio.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: audio.block_size must be %d-%d", ErrInvalidConfig, MinBlockSize, MaxBlockSize)
	}
	if !c.Array.Topology.Valid() {
		return fmt.Errorf("%w: array.topology: %w", ErrInvalidConfig, array.ErrUnsupportedTopology)
	}
	if !inRange(c.Array.HPFHz, host.MinHPFHz, host.MaxHPFHz) {
		return fmt.Errorf("%w: array.hpf_hz must be %g-%g", ErrInvalidConfig, host.MinHPFHz, host.MaxHPFHz)
	}
	if !inRange(c.Array.FIRUpdateTime, 0, MaxUpdateTime) {
		return fmt.Errorf("%w: array.fir_update_time must be 0-%g", ErrInvalidConfig, MaxUpdateTime)
	}
	if len(c.Sources) < 1 || len(c.Sources) > MaxSources {
		return fmt.Errorf("%w: need 1-%d sources, got %d", ErrInvalidConfig, MaxSources, len(c.Sources))
	}
	for i, s := range c.Sources {
		if !inRange(s.SteerX, -maxSteer, maxSteer) || !inRange(s.SteerY, -maxSteer, maxSteer) {
			return fmt.Errorf("%w: sources[%d] steering must be in [-1, 1]", ErrInvalidConfig, i)
		}
		if !inRange(s.LevelDB, host.MinLevelDB, host.MaxLevelDB) {
			return fmt.Errorf("%w: sources[%d].level_db must be %g-%g", ErrInvalidConfig, i, host.MinLevelDB, host.MaxLevelDB)
		}
	}
	if c.Live.InputDevice < MinDeviceID || c.Live.OutputDevice < MinDeviceID {
		return fmt.Errorf("%w: live device index must be >= %d", ErrInvalidConfig, MinDeviceID)
	}
	return nil
}

// inRange reports whether v lies in [lo, hi]. NaN is never in range.
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// Beamformer returns the engine configuration.
func (c *Config) Beamformer() *beamformer.Config {
	return &beamformer.Config{
		Topology:      c.Array.Topology,
		NumSources:    len(c.Sources),
		SampleRate:    c.Audio.SampleRate,
		BlockSize:     c.Audio.BlockSize,
		FIRUpdateTime: c.Array.FIRUpdateTime,
	}
}

// Steering returns the look direction of every source in engine convention.
// steer_x follows the host processor, whose horizontal axis is mirrored
// relative to the engine, so X is negated here.
func (c *Config) Steering() []array.Params {
	out := make([]array.Params, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = array.Params{X: -s.SteerX, Y: s.SteerY}
	}
	return out
}

// HostParams returns the processor parameter set.
func (c *Config) HostParams() host.Params {
	p := host.Params{HPFHz: c.Array.HPFHz, Sources: make([]host.SourceParams, len(c.Sources))}
	for i, s := range c.Sources {
		p.Sources[i] = host.SourceParams{SteerX: s.SteerX, SteerY: s.SteerY, LevelDB: s.LevelDB, Mute: s.Mute}
	}
	return p
}

// applyEnvOverrides lets BEAMFORMER_* variables override file values.
func (c *Config) applyEnvOverrides() {
	// BEAMFORMER_LOG_LEVEL
	if val, ok := os.LookupEnv("BEAMFORMER_LOG_LEVEL"); ok {
		c.LogLevel = val
	}

	// BEAMFORMER_TOPOLOGY
	if val, ok := os.LookupEnv("BEAMFORMER_TOPOLOGY"); ok {
		if t, err := array.ParseTopology(val); err == nil {
			c.Array.Topology = t
		} else {
			log.Warn("ignoring BEAMFORMER_TOPOLOGY", "value", val, "error", err)
		}
	}

	// BEAMFORMER_SAMPLE_RATE
	if val, ok := os.LookupEnv("BEAMFORMER_SAMPLE_RATE"); ok {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = rate
		} else {
			log.Warn("ignoring BEAMFORMER_SAMPLE_RATE", "value", val, "error", err)
		}
	}

	// BEAMFORMER_BLOCK_SIZE
	if val, ok := os.LookupEnv("BEAMFORMER_BLOCK_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.BlockSize = n
		} else {
			log.Warn("ignoring BEAMFORMER_BLOCK_SIZE", "value", val, "error", err)
		}
	}
}
