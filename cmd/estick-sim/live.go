package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	beamformer "github.com/tphakala/go-beamformer"
	"github.com/tphakala/go-beamformer/internal/config"
	"github.com/tphakala/go-beamformer/internal/host"
	"github.com/tphakala/go-beamformer/internal/log"
)

const (
	statusInterval = time.Second
	msPerSecond    = 1000
)

var (
	errInvalidDevice = errors.New("invalid device ID")
	errNoChannels    = errors.New("device has no usable channels")
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := initPortAudio(); err != nil {
				return err
			}
			defer terminatePortAudio()

			devices, err := portaudio.Devices()
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			listDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
}

func newLiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Run the array simulation on a live duplex stream until interrupted",
		Long: "live captures one source per input channel, renders them through the host " +
			"processor and plays one microphone per output channel.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLive(ctx, cfg)
		},
	}
}

func initPortAudio() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

func terminatePortAudio() {
	if err := portaudio.Terminate(); err != nil {
		log.Warn("failed to terminate PortAudio", "error", err)
	}
}

// selectDevice returns devices[id], or the fallback device when id is
// config.MinDeviceID.
func selectDevice(id int, devices []*portaudio.DeviceInfo, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if id == config.MinDeviceID {
		return fallback()
	}
	if id < 0 || id >= len(devices) {
		return nil, fmt.Errorf("%w: %d", errInvalidDevice, id)
	}
	return devices[id], nil
}

// listDevices prints every device with its type, channel counts, default
// sample rate and latency range.
func listDevices(w io.Writer, devices []*portaudio.DeviceInfo) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		inputChannels := device.MaxInputChannels
		outputChannels := device.MaxOutputChannels

		deviceType := ""
		switch {
		case inputChannels > 0 && outputChannels > 0:
			deviceType = "Input/Output"
		case inputChannels > 0:
			deviceType = "Input"
		case outputChannels > 0:
			deviceType = "Output"
		}

		fmt.Fprintf(w, "[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", inputChannels, outputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*msPerSecond,
			device.DefaultHighInputLatency.Seconds()*msPerSecond)
		fmt.Fprintln(w)
	}
}

// liveProcessor adapts the host processor to PortAudio's non-interleaved
// float32 callback. Buffers are preallocated; the callback does not
// allocate.
type liveProcessor struct {
	proc    *host.Processor
	in      [][]float64
	out     [][]float64
	inView  [][]float64
	outView [][]float64
	errors  atomic.Uint64
}

func newLiveProcessor(proc *host.Processor, numOut, blockSize int) *liveProcessor {
	return &liveProcessor{
		proc:    proc,
		in:      beamformer.NewPlanar(proc.NumSources(), blockSize),
		out:     beamformer.NewPlanar(numOut, blockSize),
		inView:  make([][]float64, proc.NumSources()),
		outView: make([][]float64, numOut),
	}
}

// process is the stream callback. Sources without an input channel stay
// silent; failed blocks are played as silence.
func (l *liveProcessor) process(in, out [][]float32) {
	n := 0
	if len(out) > 0 {
		n = len(out[0])
	}
	n = min(n, len(l.in[0]))

	inView := frames(l.inView, l.in, n)
	outView := frames(l.outView, l.out, n)
	beamformer.ToFloat64(inView, in)

	if err := l.proc.Process(inView, outView); err != nil {
		l.errors.Add(1)
		for ch := range outView {
			clear(outView[ch])
		}
	}
	beamformer.ToFloat32(out, outView)
}

// runLive streams until ctx is cancelled.
func runLive(ctx context.Context, cfg *config.Config) error {
	if err := initPortAudio(); err != nil {
		return err
	}
	defer terminatePortAudio()

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	inDevice, err := selectDevice(cfg.Live.InputDevice, devices, portaudio.DefaultInputDevice)
	if err != nil {
		return fmt.Errorf("input device: %w", err)
	}
	outDevice, err := selectDevice(cfg.Live.OutputDevice, devices, portaudio.DefaultOutputDevice)
	if err != nil {
		return fmt.Errorf("output device: %w", err)
	}

	proc, err := host.NewProcessor(cfg.Array.Topology, len(cfg.Sources),
		host.WithLogger(log.L()),
		host.WithFIRUpdateTime(cfg.Array.FIRUpdateTime))
	if err != nil {
		return err
	}
	proc.SetParams(cfg.HostParams())
	if err := proc.Prepare(cfg.Audio.SampleRate, cfg.Audio.BlockSize); err != nil {
		return err
	}
	defer proc.Release()

	numIn := min(proc.NumSources(), inDevice.MaxInputChannels)
	numOut := min(proc.NumMic(), outDevice.MaxOutputChannels)
	if numIn < 1 || numOut < 1 {
		return fmt.Errorf("%w: %d in, %d out", errNoChannels, numIn, numOut)
	}
	if numOut < proc.NumMic() {
		log.Warn("output device has fewer channels than microphones",
			"device", outDevice.Name, "channels", numOut, "mics", proc.NumMic())
	}

	live := newLiveProcessor(proc, numOut, cfg.Audio.BlockSize)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDevice,
			Channels: numIn,
			Latency:  inDevice.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outDevice,
			Channels: numOut,
			Latency:  outDevice.DefaultLowOutputLatency,
		},
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.BlockSize,
	}

	stream, err := portaudio.OpenStream(params, func(in, out [][]float32) {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		live.process(in, out)
	})
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	log.Info("live stream started",
		"input", inDevice.Name,
		"output", outDevice.Name,
		"sources", numIn,
		"mics", numOut,
		"sample_rate", cfg.Audio.SampleRate,
		"block_size", cfg.Audio.BlockSize)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := stream.Stop(); err != nil {
				return fmt.Errorf("failed to stop stream: %w", err)
			}
			log.Info("live stream stopped", "errors", live.errors.Load())
			return nil
		case <-ticker.C:
			log.Debug("live status", "load", proc.Load(), "errors", live.errors.Load())
		}
	}
}
