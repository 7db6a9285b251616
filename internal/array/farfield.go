package array

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-beamformer/internal/filter"
	"github.com/tphakala/simd/f64"
)

// Fractional-delay interpolator used for every steering filter.
const (
	delayHalfWidth = 16
	delayBeta      = 8.6
	delayGain      = 1.0

	centreDivisor = 2.0
)

var steeringDelay = filter.DelayParams{HalfWidth: delayHalfWidth, Beta: delayBeta, Gain: delayGain}

// ErrInvalidSampleRate is returned when a strategy is built for a
// non-positive sample rate.
var ErrInvalidSampleRate = errors.New("invalid sample rate")

// Params is a look direction. X and Y are horizontal and vertical direction
// cosines in [-1, 1]; Z is reserved and ignored by the far-field strategies.
type Params struct {
	X float64
	Y float64
	Z float64
}

// Strategy designs per-microphone FIR filters for a look direction.
//
// FIR blends the filter for p into dst: dst = alpha*candidate + (1-alpha)*dst.
// dst must hold at least NumMic rows of at least FIRLen taps; extra rows and
// taps are left untouched. Implementations must not allocate in FIR.
type Strategy interface {
	FIR(dst [][]float64, p Params, alpha float64)
	FIRLen() int
	NumMic() int
}

// Geometry describes a rectangular microphone grid. Microphones are indexed
// row-major: mic m sits in row m/perRow, column m%perRow.
type Geometry struct {
	NumMic     int
	NumRows    int
	MicDistX   float64
	MicDistY   float64
	SoundSpeed float64
}

// Validate checks the grid is non-empty and evenly divided into rows.
func (g Geometry) Validate() error {
	if g.NumMic < 1 || g.NumRows < 1 || g.NumMic%g.NumRows != 0 {
		return fmt.Errorf("%w: %d mics in %d rows", ErrUnsupportedTopology, g.NumMic, g.NumRows)
	}
	if g.SoundSpeed <= 0 {
		return fmt.Errorf("%w: sound speed %f", ErrUnsupportedTopology, g.SoundSpeed)
	}
	return nil
}

// PerRow returns the microphone count of one row.
func (g Geometry) PerRow() int {
	return g.NumMic / g.NumRows
}

// Position returns the coordinates of mic m in metres, relative to the array
// centre. x grows along a row, y grows with the row index.
func (g Geometry) Position(m int) (x, y float64) {
	perRow := g.PerRow()
	row, col := m/perRow, m%perRow
	x = (float64(col) - float64(perRow-1)/centreDivisor) * g.MicDistX
	y = (float64(row) - float64(g.NumRows-1)/centreDivisor) * g.MicDistY
	return x, y
}

// farfield is the delay-and-sum core shared by the linear and planar
// variants. Each microphone gets the fractional delay with which a plane wave
// from the look direction reaches it; a common bulk delay keeps every tap
// causal.
type farfield struct {
	geom       Geometry
	sampleRate float64
	delay      filter.DelayParams

	// posX/posY hold mic positions pre-divided by the speed of sound.
	posX []float64
	posY []float64

	bulkDelay float64 // samples
	firLen    int
	scratch   []float64
}

func newFarfield(geom Geometry, sampleRate float64, delay filter.DelayParams) (*farfield, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}
	if err := delay.Validate(); err != nil {
		return nil, err
	}

	ff := &farfield{
		geom:       geom,
		sampleRate: sampleRate,
		delay:      delay,
		posX:       make([]float64, geom.NumMic),
		posY:       make([]float64, geom.NumMic),
	}

	maxReach := 0.0
	for m := range geom.NumMic {
		x, y := geom.Position(m)
		ff.posX[m] = x / geom.SoundSpeed
		ff.posY[m] = y / geom.SoundSpeed
		maxReach = max(maxReach, math.Abs(ff.posX[m])+math.Abs(ff.posY[m]))
	}

	ff.bulkDelay = maxReach * sampleRate
	ff.firLen = ff.delay.Span(centreDivisor * ff.bulkDelay)
	ff.scratch = make([]float64, ff.firLen)
	return ff, nil
}

func (ff *farfield) FIRLen() int { return ff.firLen }

func (ff *farfield) NumMic() int { return ff.geom.NumMic }

// design blends the steering filters for direction cosines (x, y) into dst.
func (ff *farfield) design(dst [][]float64, x, y, alpha float64) {
	x = clampUnit(x)
	y = clampUnit(y)

	rows := min(len(dst), ff.geom.NumMic)
	for m := range rows {
		// A wave from +x reaches mics at positive x first.
		tau := -(ff.posX[m]*x + ff.posY[m]*y) * ff.sampleRate
		centre := float64(ff.delay.HalfWidth) + ff.bulkDelay + tau
		filter.FractionalDelay(ff.scratch, centre, ff.delay)
		blend(dst[m][:ff.firLen], ff.scratch, alpha)
	}
}

// blend computes dst = alpha*cand + (1-alpha)*dst in place. alpha 1 is an
// exact copy, alpha 0 leaves dst untouched.
func blend(dst, cand []float64, alpha float64) {
	switch {
	case alpha >= 1:
		copy(dst, cand)
	case alpha <= 0:
	default:
		f64.Scale(dst, dst, 1-alpha)
		for i, c := range cand {
			dst[i] += alpha * c
		}
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(-1, min(1, v))
}

// FarfieldULA steers a single-row array. Only the horizontal component of
// the look direction has any effect.
type FarfieldULA struct {
	*farfield
}

// NewFarfieldULA builds a linear-array strategy. geom must have one row.
func NewFarfieldULA(geom Geometry, sampleRate float64) (*FarfieldULA, error) {
	if geom.NumRows != 1 {
		return nil, fmt.Errorf("%w: linear strategy needs 1 row, got %d", ErrUnsupportedTopology, geom.NumRows)
	}
	ff, err := newFarfield(geom, sampleRate, steeringDelay)
	if err != nil {
		return nil, err
	}
	return &FarfieldULA{farfield: ff}, nil
}

// FIR implements Strategy.
func (s *FarfieldULA) FIR(dst [][]float64, p Params, alpha float64) {
	s.design(dst, p.X, 0, alpha)
}

// FarfieldURA steers a stacked array in both azimuth and elevation.
type FarfieldURA struct {
	*farfield
}

// NewFarfieldURA builds a planar-array strategy.
func NewFarfieldURA(geom Geometry, sampleRate float64) (*FarfieldURA, error) {
	ff, err := newFarfield(geom, sampleRate, steeringDelay)
	if err != nil {
		return nil, err
	}
	return &FarfieldURA{farfield: ff}, nil
}

// FIR implements Strategy.
func (s *FarfieldURA) FIR(dst [][]float64, p Params, alpha float64) {
	s.design(dst, p.X, p.Y, alpha)
}
