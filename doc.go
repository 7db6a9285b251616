// Package beamformer simulates the microphone signals of an eStick array in
// real time, in pure Go.
//
// Each source signal is given a direction of arrival. The beamformer derives
// one fractional-delay FIR filter per microphone for that direction, convolves
// the source with every filter using FFT overlap-add, and sums all sources
// into the microphone channels. Directions can change on every block; filters
// follow a change with exponential smoothing so re-steering does not click.
//
// # Topologies
//
// Eight eStick layouts are supported, from a single 16-microphone stick
// ([ULA1EStick]) to four sticks side by side ([ULA4EStick]) or stacked in
// rows ([URA2EStick], [URA3EStick], [URA4EStick], [URA2x2EStick]).
// Microphones are spaced 3 cm apart in both directions.
//
// # Quick Start
//
// For streaming use with a reusable beamformer:
//
//	b, err := beamformer.New(&beamformer.Config{
//	    Topology:      beamformer.ULA1EStick,
//	    NumSources:    2,
//	    SampleRate:    48000,
//	    BlockSize:     512,
//	    FIRUpdateTime: 0.2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out := beamformer.NewPlanar(b.NumMic(), 512)
//	for block := range sourceBlocks {
//	    b.SetBeamParameters(0, beamformer.Params{X: -0.5})
//	    b.SetBeamParameters(1, beamformer.Params{X: 0.5})
//	    b.ProcessBlock(block)
//	    b.Output(out)
//	    writeOutput(out)
//	}
//
// For one-shot offline rendering use [Render], which also flushes the filter
// tail.
//
// Beams are silent until steered for the first time.
//
// # Thread Safety
//
// A [Beamformer] performs no locking and must not be used from more than one
// goroutine at a time. [Render] with [Config.EnableParallel] creates one
// beamformer per source and is safe to call concurrently.
package beamformer
