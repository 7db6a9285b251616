package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	beamformer "github.com/tphakala/go-beamformer"
)

const (
	tabMinWidth = 0
	tabWidth    = 8
	tabPadding  = 2
)

func newTopologiesCmd() *cobra.Command {
	var sampleRate float64

	cmd := &cobra.Command{
		Use:   "topologies",
		Short: "List the supported array topologies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printTopologies(cmd.OutOrStdout(), sampleRate)
		},
	}
	cmd.Flags().Float64VarP(&sampleRate, "sample-rate", "s", beamformer.RateDAT,
		"Sample rate in Hz used for the filter sizes")

	return cmd
}

// printTopologies writes a table of every topology and its dimensions at
// sampleRate.
func printTopologies(w io.Writer, sampleRate float64) error {
	tw := tabwriter.NewWriter(w, tabMinWidth, tabWidth, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLABEL\tMICS\tROWS\tFIR\tFFT\tLATENCY")

	for _, t := range beamformer.Topologies() {
		b, err := beamformer.NewSimple(t, sampleRate)
		if err != nil {
			return err
		}
		info := b.GetInfo()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			info.Topology, t.Label(), info.NumMic, t.NumRows(),
			info.FilterLength, info.FFTSize, info.Latency)
	}

	return tw.Flush()
}
