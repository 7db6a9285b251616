package beamformer

import (
	"fmt"
	"sync"
)

// Render is a one-shot offline render: every source is steered to its
// direction with no smoothing, the sources are run through the array block
// by block, and the filter tail is flushed. The result has NumMic channels of
// len(longest source) + FIRLen - 1 samples.
//
// When config.EnableParallel is set, each source is rendered by its own
// beamformer in a separate goroutine and the results are summed.
func Render(config *Config, sources [][]float64, steering []Params) ([][]float64, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if len(sources) != config.NumSources {
		return nil, fmt.Errorf("%w: expected %d sources, got %d", ErrInvalidInput, config.NumSources, len(sources))
	}
	if len(steering) != config.NumSources {
		return nil, fmt.Errorf("%w: expected %d directions, got %d", ErrInvalidInput, config.NumSources, len(steering))
	}

	// Sequential processing (default or when parallel disabled)
	if !config.EnableParallel || len(sources) <= 1 {
		return renderSources(config, sources, steering)
	}

	// Parallel processing: one single-source beamformer per source
	partials := make([][][]float64, len(sources))
	var wg sync.WaitGroup
	errChan := make(chan error, len(sources))

	single := *config
	single.NumSources = 1
	for src := range sources {
		wg.Add(1)
		go func(source int) {
			defer wg.Done()

			out, err := renderSources(&single, sources[source:source+1], steering[source:source+1])
			if err != nil {
				errChan <- fmt.Errorf("source %d: %w", source, err)
				return
			}
			partials[source] = out
		}(src)
	}

	wg.Wait()
	close(errChan)

	// Check for errors
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	// Shorter sources produce shorter partials; sum into the longest.
	longest := 0
	for i, p := range partials {
		if len(p[0]) > len(partials[longest][0]) {
			longest = i
		}
	}
	output := partials[longest]
	for i, p := range partials {
		if i == longest {
			continue
		}
		for m := range output {
			for n, v := range p[m] {
				output[m][n] += v
			}
		}
	}

	return output, nil
}

func renderSources(config *Config, sources [][]float64, steering []Params) ([][]float64, error) {
	b, err := New(config)
	if err != nil {
		return nil, err
	}
	for i, p := range steering {
		b.SetBeamParametersAlpha(i, p, 1)
	}

	length := 0
	for _, s := range sources {
		length = max(length, len(s))
	}
	total := length + b.FIRLen() - 1

	output := NewPlanar(b.NumMic(), total)

	blockSize := config.BlockSize
	in := NewPlanar(len(sources), blockSize)
	out := NewPlanar(b.NumMic(), blockSize)

	for pos := 0; pos < total; pos += blockSize {
		for i, s := range sources {
			n := 0
			if pos < len(s) {
				n = copy(in[i], s[pos:])
			}
			clear(in[i][n:])
		}

		b.ProcessBlock(in)
		b.Output(out)

		for m := range output {
			copy(output[m][pos:], out[m])
		}
	}

	return output, nil
}
