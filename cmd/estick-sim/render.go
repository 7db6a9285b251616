package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/spf13/cobra"

	beamformer "github.com/tphakala/go-beamformer"
	"github.com/tphakala/go-beamformer/internal/config"
	"github.com/tphakala/go-beamformer/internal/host"
	"github.com/tphakala/go-beamformer/internal/log"
)

const (
	progressInterval = 10 // Log progress every N%
	percentScale     = 100
)

func newRenderCmd(opts *options) *cobra.Command {
	var useHost bool

	cmd := &cobra.Command{
		Use:   "render [flags] input.wav output.wav",
		Short: "Render source channels into a microphone array WAV",
		Long: "render reads one source per input channel and writes one channel per microphone, " +
			"including the filter tail. The file's sample rate overrides audio.sample_rate.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			start := time.Now()
			stats, err := renderWAV(cfg, args[0], args[1], useHost)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Rendered %s -> %s\n", filepath.Base(args[0]), filepath.Base(args[1]))
			fmt.Fprintf(w, "  %s: %d sources -> %d microphones (%d Hz, %d-bit)\n",
				cfg.Array.Topology, stats.sources, stats.mics, stats.sampleRate, stats.bitDepth)
			fmt.Fprintf(w, "  %d frames -> %d frames\n", stats.inputFrames, stats.outputFrames)
			if secs := elapsed.Seconds(); secs > 0 {
				fmt.Fprintf(w, "  Duration: %.2fs, Speed: %.1fx realtime\n",
					secs, float64(stats.inputFrames)/float64(stats.sampleRate)/secs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useHost, "host", false,
		"Run the sources through the host chain (high-pass, level, mute, smoothed steering)")

	return cmd
}

// blockRenderer turns one block of planar sources into microphone signals.
type blockRenderer interface {
	process(in, out [][]float64) error
	numMic() int
	tailLength() int
}

// engineRenderer drives the beamformer directly with fixed steering.
type engineRenderer struct {
	bf *beamformer.Beamformer
}

func newEngineRenderer(cfg *config.Config) (*engineRenderer, error) {
	bf, err := beamformer.New(cfg.Beamformer())
	if err != nil {
		return nil, err
	}
	// Fully steered from the first sample.
	for i, p := range cfg.Steering() {
		bf.SetBeamParametersAlpha(i, p, 1)
	}
	return &engineRenderer{bf: bf}, nil
}

func (r *engineRenderer) process(in, out [][]float64) error {
	r.bf.ProcessBlock(in)
	r.bf.Output(out)
	return nil
}

func (r *engineRenderer) numMic() int     { return r.bf.NumMic() }
func (r *engineRenderer) tailLength() int { return r.bf.FIRLen() - 1 }

// hostRenderer runs the full host processor.
type hostRenderer struct {
	proc *host.Processor
}

func newHostRenderer(cfg *config.Config) (*hostRenderer, error) {
	proc, err := host.NewProcessor(cfg.Array.Topology, len(cfg.Sources),
		host.WithLogger(log.L()),
		host.WithFIRUpdateTime(cfg.Array.FIRUpdateTime))
	if err != nil {
		return nil, err
	}
	proc.SetParams(cfg.HostParams())
	if err := proc.Prepare(cfg.Audio.SampleRate, cfg.Audio.BlockSize); err != nil {
		return nil, err
	}
	return &hostRenderer{proc: proc}, nil
}

func (r *hostRenderer) process(in, out [][]float64) error { return r.proc.Process(in, out) }
func (r *hostRenderer) numMic() int                       { return r.proc.NumMic() }
func (r *hostRenderer) tailLength() int                   { return r.proc.TailLength() }

func newBlockRenderer(cfg *config.Config, useHost bool) (blockRenderer, error) {
	if useHost {
		return newHostRenderer(cfg)
	}
	return newEngineRenderer(cfg)
}

type renderStats struct {
	sampleRate   int
	bitDepth     int
	sources      int
	mics         int
	inputFrames  int64
	outputFrames int64
}

// renderWAV streams inputPath through the array block by block and writes
// every microphone to outputPath with the input's bit depth.
func renderWAV(cfg *config.Config, inputPath, outputPath string, useHost bool) (stats *renderStats, err error) {
	// 1. Open and validate input
	input, err := openWAVInput(inputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	if rate := float64(input.rate); rate != cfg.Audio.SampleRate {
		log.Info("using the input sample rate", "configured", cfg.Audio.SampleRate, "input", input.rate)
		cfg.Audio.SampleRate = rate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	numSources := len(cfg.Sources)
	if input.channels < numSources {
		log.Warn("input has fewer channels than sources, the rest are silent",
			"channels", input.channels, "sources", numSources)
	}

	// 2. Create the array
	renderer, err := newBlockRenderer(cfg, useHost)
	if err != nil {
		return nil, err
	}

	// 3. Create output writer
	output, err := createWAVOutput(outputPath, input.rate, input.bitDepth, renderer.numMic())
	if err != nil {
		return nil, err
	}
	// Close output, capturing close errors on success path (important for WAV header updates)
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
			if err != nil {
				stats = nil
			}
		}
	}()

	// 4. Initialize processing buffers
	blockSize := cfg.Audio.BlockSize
	intBuffer := &audio.IntBuffer{
		Data:   make([]int, blockSize*input.channels),
		Format: input.format,
	}
	in := beamformer.NewPlanar(numSources, blockSize)
	out := beamformer.NewPlanar(renderer.numMic(), blockSize)
	inView := make([][]float64, numSources)
	outView := make([][]float64, renderer.numMic())

	stats = &renderStats{
		sampleRate: input.rate,
		bitDepth:   input.bitDepth,
		sources:    numSources,
		mics:       renderer.numMic(),
	}
	progress := newProgressTracker(input.totalFrames)

	step := func(n int) error {
		if err := renderer.process(frames(inView, in, n), frames(outView, out, n)); err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		if err := output.writePlanar(outView, n); err != nil {
			return err
		}
		stats.outputFrames += int64(n)
		return nil
	}

	// 5. Main processing loop
	for {
		n, err := input.readPlanar(intBuffer, in)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		stats.inputFrames += int64(n)

		if err := step(n); err != nil {
			return nil, err
		}
		progress.reportIfNeeded(stats.inputFrames)
	}

	// 6. Flush the filter tail with silence
	for ch := range in {
		clear(in[ch])
	}
	for remaining := renderer.tailLength(); remaining > 0; {
		n := min(blockSize, remaining)
		if err := step(n); err != nil {
			return nil, err
		}
		remaining -= n
	}

	return stats, nil
}

// frames points view at the first n samples of every channel in bufs.
func frames(view, bufs [][]float64, n int) [][]float64 {
	for ch := range view {
		view[ch] = bufs[ch][:n]
	}
	return view
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
}

func newProgressTracker(totalFrames int64) *progressTracker {
	return &progressTracker{totalFrames: totalFrames}
}

// reportIfNeeded logs progress if a threshold was crossed.
func (p *progressTracker) reportIfNeeded(currentFrames int64) {
	if p.totalFrames == 0 {
		return
	}

	progress := int(float64(currentFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		log.Debug("render progress", "percent", progress)
		p.lastProgress = progress
	}
}
