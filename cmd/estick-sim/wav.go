package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-beamformer/internal/log"
)

const (
	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// WAV format tag for integer PCM
	wavFormatPCM = 1
)

// wavInput holds an open, validated input file.
type wavInput struct {
	file        *os.File
	decoder     *wav.Decoder
	rate        int
	channels    int
	bitDepth    int
	totalFrames int64
	format      *audio.Format
}

// openWAVInput opens and validates a WAV file, returning format information.
func openWAVInput(path string) (*wavInput, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	if format.NumChannels < 1 {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s has no channels", path)
	}

	// Duration is only used for progress reporting.
	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}

	log.Debug("input opened",
		"path", path,
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bit_depth", bitDepth,
		"duration", duration)

	return &wavInput{
		file:        inputFile,
		decoder:     decoder,
		rate:        format.SampleRate,
		channels:    format.NumChannels,
		bitDepth:    bitDepth,
		totalFrames: int64(duration.Seconds() * float64(format.SampleRate)),
		format:      format,
	}, nil
}

// readPlanar reads up to len(dst[0]) frames into dst, scaled to [-1, 1].
// Only the first len(dst) file channels are kept; dst channels the file
// lacks are zeroed. It returns the number of frames read, 0 at end of file.
func (w *wavInput) readPlanar(buf *audio.IntBuffer, dst [][]float64) (int, error) {
	n, err := w.decoder.PCMBuffer(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read audio data: %w", err)
	}
	frames := n / w.channels
	deinterleaveInto(buf.Data[:frames*w.channels], dst, w.channels, frames, 1/getMaxValue(w.bitDepth))
	return frames, nil
}

// Close closes the input file.
func (w *wavInput) Close() error {
	return w.file.Close()
}

// wavOutput wraps the output file and its encoder.
type wavOutput struct {
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	channels int
	maxVal   float64
}

// createWAVOutput creates the output file and encoder.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutput, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutput{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		},
		channels: channels,
		maxVal:   getMaxValue(bitDepth),
	}, nil
}

// writePlanar interleaves n frames of planar audio and writes them.
func (w *wavOutput) writePlanar(src [][]float64, n int) error {
	if n == 0 {
		return nil
	}
	size := n * w.channels
	if cap(w.buf.Data) < size {
		w.buf.Data = make([]int, size)
	}
	w.buf.Data = w.buf.Data[:size]
	interleaveInto(src, n, w.buf.Data, w.maxVal)

	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// Close finalises the WAV header and closes the file.
func (w *wavOutput) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to finalise WAV file: %w", err)
	}
	return w.file.Close()
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// deinterleaveInto converts interleaved int samples into preallocated
// per-channel buffers. Channels beyond the file's are cleared.
func deinterleaveInto(data []int, dst [][]float64, channels, n int, invMaxVal float64) {
	for ch := range dst {
		buf := dst[ch][:n]
		if ch >= channels {
			clear(buf)
			continue
		}
		for i := range buf {
			buf[i] = float64(data[i*channels+ch]) * invMaxVal
		}
	}
}

// interleaveInto converts n frames of per-channel float buffers into
// interleaved int samples, clamping to [-1, 1]. Missing channels are
// written as silence.
func interleaveInto(src [][]float64, n int, dst []int, maxVal float64) {
	channels := len(dst) / max(n, 1)
	for ch := range channels {
		if ch >= len(src) {
			for i := range n {
				dst[i*channels+ch] = 0
			}
			continue
		}
		data := src[ch]
		for i := range n {
			sample := min(max(data[i], -1.0), 1.0)
			dst[i*channels+ch] = int(sample * maxVal)
		}
	}
}
