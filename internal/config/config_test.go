package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-beamformer/internal/array"
	"github.com/tphakala/go-beamformer/internal/host"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 48000.0, cfg.Audio.SampleRate, 0)
	assert.Equal(t, 512, cfg.Audio.BlockSize)
	assert.Equal(t, array.ULA1EStick, cfg.Array.Topology)
	assert.InDelta(t, 250.0, cfg.Array.HPFHz, 0)
	assert.InDelta(t, 0.2, cfg.Array.FIRUpdateTime, 0)
	require.Len(t, cfg.Sources, 2)
	assert.InDelta(t, -0.5, cfg.Sources[0].SteerX, 1e-12)
	assert.InDelta(t, 0.5, cfg.Sources[1].SteerX, 1e-12)
	assert.Equal(t, -1, cfg.Live.InputDevice)
	assert.Equal(t, -1, cfg.Live.OutputDevice)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
	assert.Nil(t, cfg)
}

func TestLoad_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_UnknownTopology(t *testing.T) {
	path := writeTempConfig(t, "array: {topology: CIRCLE}\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_FullFile(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
audio: {sample_rate: 44100, block_size: 256}
array: {topology: URA_2x2ESTICK, hpf_hz: 120, fir_update_time: 0.05}
sources:
  - {steer_x: 0.25, steer_y: -0.5, level_db: 3, mute: true}
  - {steer_x: -1, steer_y: 1}
  - {steer_x: 0}
live: {input_device: 2, output_device: 3}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 44100.0, cfg.Audio.SampleRate, 0)
	assert.Equal(t, 256, cfg.Audio.BlockSize)
	assert.Equal(t, array.URA2x2EStick, cfg.Array.Topology)
	assert.InDelta(t, 120.0, cfg.Array.HPFHz, 0)
	assert.InDelta(t, 0.05, cfg.Array.FIRUpdateTime, 0)
	require.Len(t, cfg.Sources, 3, "file sources replace the defaults")
	assert.Equal(t, SourceConfig{SteerX: 0.25, SteerY: -0.5, LevelDB: 3, Mute: true}, cfg.Sources[0])
	assert.Equal(t, SourceConfig{SteerX: -1, SteerY: 1}, cfg.Sources[1])
	assert.Equal(t, LiveConfig{InputDevice: 2, OutputDevice: 3}, cfg.Live)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeTempConfig(t, "array: {topology: \"Horiz 2\"}\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, array.ULA2EStick, cfg.Array.Topology, "labels are accepted")
	assert.InDelta(t, 250.0, cfg.Array.HPFHz, 0)
	assert.Equal(t, 512, cfg.Audio.BlockSize)
	assert.Len(t, cfg.Sources, 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BEAMFORMER_LOG_LEVEL", "warn")
	t.Setenv("BEAMFORMER_TOPOLOGY", "ula_4estick")
	t.Setenv("BEAMFORMER_SAMPLE_RATE", "96000")
	t.Setenv("BEAMFORMER_BLOCK_SIZE", "1024")

	path := writeTempConfig(t, "log_level: debug\naudio: {sample_rate: 44100}\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, array.ULA4EStick, cfg.Array.Topology)
	assert.InDelta(t, 96000.0, cfg.Audio.SampleRate, 0)
	assert.Equal(t, 1024, cfg.Audio.BlockSize)
}

func TestLoad_BadEnvValuesIgnored(t *testing.T) {
	t.Setenv("BEAMFORMER_TOPOLOGY", "nope")
	t.Setenv("BEAMFORMER_SAMPLE_RATE", "fast")
	t.Setenv("BEAMFORMER_BLOCK_SIZE", "big")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTempConfig(t, "array: {hpf_hz: 5}\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_NaNSampleRate(t *testing.T) {
	path := writeTempConfig(t, "audio: {sample_rate: .nan}\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "audio.sample_rate")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }},
		{"rate too high", func(c *Config) { c.Audio.SampleRate = 384000 }},
		{"rate NaN", func(c *Config) { c.Audio.SampleRate = math.NaN() }},
		{"block too small", func(c *Config) { c.Audio.BlockSize = 8 }},
		{"block too large", func(c *Config) { c.Audio.BlockSize = 16384 }},
		{"bad topology", func(c *Config) { c.Array.Topology = array.Topology(99) }},
		{"hpf too low", func(c *Config) { c.Array.HPFHz = 10 }},
		{"hpf too high", func(c *Config) { c.Array.HPFHz = 1000 }},
		{"hpf NaN", func(c *Config) { c.Array.HPFHz = math.NaN() }},
		{"negative update time", func(c *Config) { c.Array.FIRUpdateTime = -1 }},
		{"update time too long", func(c *Config) { c.Array.FIRUpdateTime = 60 }},
		{"update time NaN", func(c *Config) { c.Array.FIRUpdateTime = math.NaN() }},
		{"no sources", func(c *Config) { c.Sources = nil }},
		{"too many sources", func(c *Config) { c.Sources = make([]SourceConfig, MaxSources+1) }},
		{"steer x", func(c *Config) { c.Sources[0].SteerX = 1.5 }},
		{"steer y", func(c *Config) { c.Sources[1].SteerY = -2 }},
		{"steer NaN", func(c *Config) { c.Sources[0].SteerX = math.NaN() }},
		{"level", func(c *Config) { c.Sources[0].LevelDB = 11 }},
		{"level NaN", func(c *Config) { c.Sources[1].LevelDB = math.NaN() }},
		{"input device", func(c *Config) { c.Live.InputDevice = -2 }},
		{"output device", func(c *Config) { c.Live.OutputDevice = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Array.Topology = array.URA2x2EStick
	cfg.Array.HPFHz = 80
	cfg.Sources = []SourceConfig{
		{SteerX: 0.1, SteerY: 0.2, LevelDB: -3},
		{SteerX: -0.4, SteerY: 0.5, Mute: true},
		{},
	}

	bf := cfg.Beamformer()
	require.NoError(t, bf.Validate())
	assert.Equal(t, array.URA2x2EStick, bf.Topology)
	assert.Equal(t, 3, bf.NumSources)
	assert.InDelta(t, cfg.Audio.SampleRate, bf.SampleRate, 0)
	assert.Equal(t, cfg.Audio.BlockSize, bf.BlockSize)
	assert.InDelta(t, cfg.Array.FIRUpdateTime, bf.FIRUpdateTime, 0)

	steering := cfg.Steering()
	assert.Equal(t, []array.Params{{X: -0.1, Y: 0.2}, {X: 0.4, Y: 0.5}, {}}, steering)
	for i, sp := range hostSteering(cfg.HostParams()) {
		assert.Equal(t, sp, steering[i], "source %d", i)
	}

	hp := cfg.HostParams()
	assert.InDelta(t, 80.0, hp.HPFHz, 0)
	require.Len(t, hp.Sources, 3)
	assert.InDelta(t, -3.0, hp.Sources[0].LevelDB, 0)
	assert.True(t, hp.Sources[1].Mute)
	assert.InDelta(t, -0.4, hp.Sources[1].SteerX, 0)
}

// hostSteering mirrors what the host processor hands the engine.
func hostSteering(p host.Params) []array.Params {
	out := make([]array.Params, len(p.Sources))
	for i, s := range p.Sources {
		out[i] = array.Params{X: -s.SteerX, Y: s.SteerY}
	}
	return out
}
