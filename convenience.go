package beamformer

import (
	"github.com/tphakala/simd/f64"
)

// stereoChannels is the channel count served by the SIMD interleave path.
const stereoChannels = 2

// NewEStick creates a beamformer for a single eStick at 48 kHz with the
// default block size and smoothing.
func NewEStick(numSources int) (*Beamformer, error) {
	config := DefaultConfig()
	config.NumSources = numSources
	return New(config)
}

// NewSimple creates a beamformer for the given topology and sample rate with
// sensible defaults.
func NewSimple(topology Topology, sampleRate float64) (*Beamformer, error) {
	return New(&Config{
		Topology:      topology,
		NumSources:    DefaultNumSources,
		SampleRate:    sampleRate,
		BlockSize:     DefaultBlockSize,
		FIRUpdateTime: DefaultFIRUpdateTime,
	})
}

// NewPlanar allocates channels zeroed buffers of samples each.
func NewPlanar(channels, samples int) [][]float64 {
	planar := make([][]float64, channels)
	for ch := range planar {
		planar[ch] = make([]float64, samples)
	}
	return planar
}

// Interleave converts planar channels to a single interleaved slice.
// Output format: [c0[0], c1[0], ..., c0[1], c1[1], ...]. Channels are
// truncated to the shortest one.
func Interleave(planar [][]float64) []float64 {
	if len(planar) == 0 {
		return nil
	}
	frames := len(planar[0])
	for _, ch := range planar[1:] {
		frames = min(frames, len(ch))
	}

	channels := len(planar)
	result := make([]float64, frames*channels)
	if channels == stereoChannels {
		f64.Interleave2(result, planar[0][:frames], planar[1][:frames])
		return result
	}

	for ch, data := range planar {
		for i := range frames {
			result[i*channels+ch] = data[i]
		}
	}
	return result
}

// Deinterleave splits an interleaved slice into planar channels. Trailing
// samples that do not fill a whole frame are dropped.
func Deinterleave(interleaved []float64, channels int) [][]float64 {
	if channels < 1 {
		return nil
	}
	frames := len(interleaved) / channels
	planar := make([][]float64, channels)
	for ch := range planar {
		planar[ch] = make([]float64, frames)
		for i := range frames {
			planar[ch][i] = interleaved[i*channels+ch]
		}
	}
	return planar
}

// ToFloat64 widens planar float32 audio into dst, channel by channel, for as
// many channels and samples as both hold.
func ToFloat64(dst [][]float64, src [][]float32) {
	for ch := range min(len(dst), len(src)) {
		d, s := dst[ch], src[ch]
		for i := range min(len(d), len(s)) {
			d[i] = float64(s[i])
		}
	}
}

// ToFloat32 narrows planar float64 audio into dst, channel by channel, for as
// many channels and samples as both hold.
func ToFloat32(dst [][]float32, src [][]float64) {
	for ch := range min(len(dst), len(src)) {
		d, s := dst[ch], src[ch]
		for i := range min(len(d), len(s)) {
			d[i] = float32(s[i])
		}
	}
}
