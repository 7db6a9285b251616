// Package array maps microphone-array topologies and look directions to
// per-microphone FIR filters.
//
// Every topology selects exactly one [Strategy] at construction time; the
// engine only talks to the Strategy and never branches on topology again.
package array

import (
	"errors"
	"fmt"
	"strings"
)

// Topology enumerates the supported eStick array layouts.
type Topology int

const (
	// ULA1EStick is a single horizontal eStick: 16 microphones in one row.
	ULA1EStick Topology = iota
	// ULA2EStick is two eSticks side by side: 32 microphones in one row.
	ULA2EStick
	// ULA3EStick is three eSticks side by side: 48 microphones in one row.
	ULA3EStick
	// ULA4EStick is four eSticks side by side: 64 microphones in one row.
	ULA4EStick
	// URA2EStick stacks two eSticks: 2 rows of 16.
	URA2EStick
	// URA3EStick stacks three eSticks: 3 rows of 16.
	URA3EStick
	// URA4EStick stacks four eSticks: 4 rows of 16.
	URA4EStick
	// URA2x2EStick stacks two pairs of eSticks: 2 rows of 32.
	URA2x2EStick

	numTopologies = iota
)

// Physical constants shared by every eStick layout.
const (
	// MicDistX is the horizontal microphone pitch in metres.
	MicDistX = 0.03
	// MicDistY is the vertical row pitch in metres.
	MicDistY = 0.03
	// SoundSpeed is the speed of sound in m/s.
	SoundSpeed = 343.0
)

// ErrUnsupportedTopology is returned for values outside the enumeration.
var ErrUnsupportedTopology = errors.New("unsupported array topology")

type topologyInfo struct {
	name   string
	label  string
	numMic int
	rows   int
}

var topologies = [numTopologies]topologyInfo{
	ULA1EStick:   {"ULA_1ESTICK", "Single", 16, 1},
	ULA2EStick:   {"ULA_2ESTICK", "Horiz 2", 32, 1},
	ULA3EStick:   {"ULA_3ESTICK", "Horiz 3", 48, 1},
	ULA4EStick:   {"ULA_4ESTICK", "Horiz 4", 64, 1},
	URA2EStick:   {"URA_2ESTICK", "Stack 2", 32, 2},
	URA3EStick:   {"URA_3ESTICK", "Stack 3", 48, 3},
	URA4EStick:   {"URA_4ESTICK", "Stack 4", 64, 4},
	URA2x2EStick: {"URA_2x2ESTICK", "Stack 2x2", 64, 2},
}

// Topologies returns every supported topology in enumeration order.
func Topologies() []Topology {
	out := make([]Topology, numTopologies)
	for i := range out {
		out[i] = Topology(i)
	}
	return out
}

// Valid reports whether t is one of the enumerated layouts.
func (t Topology) Valid() bool {
	return t >= 0 && int(t) < numTopologies
}

// String returns the canonical name, e.g. "ULA_1ESTICK".
func (t Topology) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Topology(%d)", int(t))
	}
	return topologies[t].name
}

// Label returns the short human label, e.g. "Stack 2x2".
func (t Topology) Label() string {
	if !t.Valid() {
		return ""
	}
	return topologies[t].label
}

// NumMic returns the microphone count, or 0 for an invalid topology.
func (t Topology) NumMic() int {
	if !t.Valid() {
		return 0
	}
	return topologies[t].numMic
}

// NumRows returns the row count, or 0 for an invalid topology.
func (t Topology) NumRows() int {
	if !t.Valid() {
		return 0
	}
	return topologies[t].rows
}

// IsLinear reports whether all microphones sit in a single row.
func (t Topology) IsLinear() bool {
	return t.NumRows() == 1
}

// Geometry returns the physical layout of t.
func (t Topology) Geometry() (Geometry, error) {
	if !t.Valid() {
		return Geometry{}, fmt.Errorf("%w: %d", ErrUnsupportedTopology, int(t))
	}
	return Geometry{
		NumMic:     t.NumMic(),
		NumRows:    t.NumRows(),
		MicDistX:   MicDistX,
		MicDistY:   MicDistY,
		SoundSpeed: SoundSpeed,
	}, nil
}

// NewStrategy builds the filter-design strategy for t at the given sample rate.
// Linear layouts get a [FarfieldULA], stacked layouts a [FarfieldURA].
func (t Topology) NewStrategy(sampleRate float64) (Strategy, error) {
	geom, err := t.Geometry()
	if err != nil {
		return nil, err
	}
	if t.IsLinear() {
		return NewFarfieldULA(geom, sampleRate)
	}
	return NewFarfieldURA(geom, sampleRate)
}

// MarshalText implements encoding.TextMarshaler.
func (t Topology) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTopology, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Topology) UnmarshalText(text []byte) error {
	parsed, err := ParseTopology(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTopology accepts a canonical name ("URA_2x2ESTICK") or a label
// ("Stack 2x2"), case-insensitively.
func ParseTopology(s string) (Topology, error) {
	s = strings.TrimSpace(s)
	for i, info := range topologies {
		if strings.EqualFold(s, info.name) || strings.EqualFold(s, info.label) {
			return Topology(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedTopology, s)
}
