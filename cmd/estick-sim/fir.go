package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	beamformer "github.com/tphakala/go-beamformer"
	"github.com/tphakala/go-beamformer/internal/filter"
)

const defaultFIRRate = beamformer.RateDAT

func newFIRCmd() *cobra.Command {
	var (
		topologyName string
		x, y         float64
		sampleRate   float64
		response     int
	)

	cmd := &cobra.Command{
		Use:   "fir",
		Short: "Print the steady-state microphone filters for a look direction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topology, err := beamformer.ParseTopology(topologyName)
			if err != nil {
				return err
			}
			firs, err := steadyStateFIR(topology, sampleRate, beamformer.Params{X: x, Y: y})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if response > 0 {
				printResponse(w, firs, response, sampleRate)
				return nil
			}
			printTaps(w, firs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topologyName, "topology", "t", beamformer.ULA1EStick.String(),
		"Array topology name or label")
	cmd.Flags().Float64Var(&x, "x", 0, "Horizontal look direction in [-1, 1]")
	cmd.Flags().Float64Var(&y, "y", 0, "Vertical look direction in [-1, 1]")
	cmd.Flags().Float64VarP(&sampleRate, "sample-rate", "s", defaultFIRRate, "Sample rate in Hz")
	cmd.Flags().IntVarP(&response, "response", "r", 0,
		"Print the magnitude response at N frequencies instead of the taps")

	return cmd
}

// steadyStateFIR returns the filters every microphone converges to when
// steered at p.
func steadyStateFIR(topology beamformer.Topology, sampleRate float64, p beamformer.Params) ([][]float64, error) {
	b, err := beamformer.NewSimple(topology, sampleRate)
	if err != nil {
		return nil, err
	}
	firs := beamformer.NewPlanar(b.NumMic(), b.FIRLen())
	b.FIR(firs, p, 1)
	return firs, nil
}

// printTaps writes one line of taps per microphone.
func printTaps(w io.Writer, firs [][]float64) {
	for m, taps := range firs {
		var sb strings.Builder
		for i, v := range taps {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.6f", v)
		}
		fmt.Fprintf(w, "mic %2d: %s\n", m, sb.String())
	}
}

// printResponse writes the magnitude response of every microphone in dB,
// one row per frequency.
func printResponse(w io.Writer, firs [][]float64, points int, sampleRate float64) {
	responses := make([]filter.FilterResponse, len(firs))
	for m, taps := range firs {
		responses[m] = filter.ComputeFrequencyResponse(taps, points)
	}

	fmt.Fprint(w, "freq_hz")
	for m := range firs {
		fmt.Fprintf(w, "\tmic%d", m)
	}
	fmt.Fprintln(w)

	for k := range points {
		fmt.Fprintf(w, "%.1f", responses[0].Frequencies[k]*sampleRate)
		for m := range firs {
			fmt.Fprintf(w, "\t%.2f", filter.MagnitudeDB(responses[m].Magnitude[k]))
		}
		fmt.Fprintln(w)
	}
}
