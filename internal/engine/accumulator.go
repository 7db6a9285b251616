package engine

import "github.com/tphakala/go-beamformer/internal/mathutil"

// Accumulator is the overlap-add output window: one ring of samples per
// channel, all sharing a single read cursor.
//
// Add sums a block into the window starting at the cursor. Read hands out
// the oldest samples, moves the cursor past them and zeroes the vacated
// slots on every channel, which is equivalent to shifting the window left
// and zero-filling its tail without moving any memory.
type Accumulator struct {
	data    [][]float64
	mask    int // Capacity - 1 (for bitwise AND instead of modulo)
	readPos int
}

// NewAccumulator creates an accumulator of numChannels channels.
// Capacity is rounded up to the nearest power of 2.
func NewAccumulator(numChannels, capacity int) *Accumulator {
	size := max(capacity, 1)
	if !mathutil.IsPowerOfTwo(size) {
		size = mathutil.NextPowerOfTwo(size)
	}
	a := &Accumulator{
		data: make([][]float64, numChannels),
		mask: size - 1,
	}
	for ch := range a.data {
		a.data[ch] = make([]float64, size)
	}
	return a
}

// Channels returns the channel count.
func (a *Accumulator) Channels() int { return len(a.data) }

// Capacity returns the window length per channel.
func (a *Accumulator) Capacity() int { return a.mask + 1 }

// Add sums src into channel ch starting at the read cursor. Samples beyond
// the capacity are dropped.
func (a *Accumulator) Add(ch int, src []float64) {
	data := a.data[ch]
	n := min(len(src), len(data))

	// Two contiguous runs: cursor to end, then start of ring.
	first := min(n, len(data)-a.readPos)
	head := data[a.readPos : a.readPos+first]
	for i, v := range src[:first] {
		head[i] += v
	}
	for i, v := range src[first:n] {
		data[i] += v
	}
}

// Read copies the n oldest samples of the first min(len(dst), Channels())
// channels into dst, then advances the cursor by n and zeroes the freed
// samples on every channel. n is clamped to the capacity.
func (a *Accumulator) Read(dst [][]float64, n int) {
	n = max(0, min(n, a.Capacity()))
	rows := min(len(dst), len(a.data))

	for ch, data := range a.data {
		first := min(n, len(data)-a.readPos)
		head := data[a.readPos : a.readPos+first]
		tail := data[:n-first]
		if ch < rows {
			copy(dst[ch][copy(dst[ch], head):], tail)
		}
		clear(head)
		clear(tail)
	}

	a.readPos = (a.readPos + n) & a.mask
}

// Clear zeroes the window and rewinds the cursor.
func (a *Accumulator) Clear() {
	for _, data := range a.data {
		clear(data)
	}
	a.readPos = 0
}
