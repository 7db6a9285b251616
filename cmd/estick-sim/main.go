// Command estick-sim renders source signals through a simulated eStick
// microphone array.
//
// Usage:
//
//	estick-sim render voice.wav array.wav                  # Sources steered per config
//	estick-sim render --host -c sim.yaml in.wav out.wav    # With high-pass, level and mute
//	estick-sim fir --topology URA_2x2ESTICK --x 0.3 --y -0.2
//	estick-sim fir --x 0.5 --response 32                   # Magnitude response per mic
//	estick-sim topologies --sample-rate 44100
//	estick-sim devices
//	estick-sim live -c sim.yaml                            # Real-time until Ctrl-C
//
// The configuration file is YAML; see internal/config for the schema. All
// values can be left out to use the built-in defaults.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-beamformer/internal/config"
	"github.com/tphakala/go-beamformer/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the flags shared by every command.
type options struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "estick-sim",
		Short:         "Simulate eStick microphone arrays",
		Long:          "estick-sim convolves source signals with per-microphone delay filters to simulate what an eStick array would record.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"YAML configuration file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRenderCmd(opts),
		newFIRCmd(),
		newTopologiesCmd(),
		newDevicesCmd(),
		newLiveCmd(opts),
	)

	return rootCmd
}

// loadConfig reads the configuration file and sets up logging from it.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		if _, ok := log.ParseLevel(o.logLevel); !ok {
			return nil, fmt.Errorf("unknown log level %q", o.logLevel)
		}
		cfg.LogLevel = o.logLevel
	}
	log.Init(cfg.LogLevel)

	log.Debug("configuration loaded",
		"path", o.configPath,
		"topology", cfg.Array.Topology.String(),
		"sources", len(cfg.Sources),
		"sample_rate", cfg.Audio.SampleRate,
		"block_size", cfg.Audio.BlockSize)

	return cfg, nil
}
