package array

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopology_Table(t *testing.T) {
	tests := []struct {
		topology Topology
		name     string
		label    string
		mics     int
		rows     int
		linear   bool
	}{
		{ULA1EStick, "ULA_1ESTICK", "Single", 16, 1, true},
		{ULA2EStick, "ULA_2ESTICK", "Horiz 2", 32, 1, true},
		{ULA3EStick, "ULA_3ESTICK", "Horiz 3", 48, 1, true},
		{ULA4EStick, "ULA_4ESTICK", "Horiz 4", 64, 1, true},
		{URA2EStick, "URA_2ESTICK", "Stack 2", 32, 2, false},
		{URA3EStick, "URA_3ESTICK", "Stack 3", 48, 3, false},
		{URA4EStick, "URA_4ESTICK", "Stack 4", 64, 4, false},
		{URA2x2EStick, "URA_2x2ESTICK", "Stack 2x2", 64, 2, false},
	}

	require.Len(t, Topologies(), len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.topology, Topologies()[i])
			assert.True(t, tt.topology.Valid())
			assert.Equal(t, tt.name, tt.topology.String())
			assert.Equal(t, tt.label, tt.topology.Label())
			assert.Equal(t, tt.mics, tt.topology.NumMic())
			assert.Equal(t, tt.rows, tt.topology.NumRows())
			assert.Equal(t, tt.linear, tt.topology.IsLinear())
		})
	}
}

func TestTopology_Invalid(t *testing.T) {
	for _, top := range []Topology{-1, 8, 100} {
		assert.False(t, top.Valid())
		assert.Equal(t, 0, top.NumMic())
		assert.Empty(t, top.Label())
		assert.Contains(t, top.String(), "Topology(")

		_, err := top.Geometry()
		assert.ErrorIs(t, err, ErrUnsupportedTopology)

		_, err = top.NewStrategy(48000)
		assert.ErrorIs(t, err, ErrUnsupportedTopology)

		_, err = top.MarshalText()
		assert.ErrorIs(t, err, ErrUnsupportedTopology)
	}
}

func TestParseTopology(t *testing.T) {
	for _, top := range Topologies() {
		byName, err := ParseTopology(top.String())
		require.NoError(t, err)
		assert.Equal(t, top, byName)

		byLabel, err := ParseTopology(top.Label())
		require.NoError(t, err)
		assert.Equal(t, top, byLabel)
	}

	got, err := ParseTopology("  ura_2x2estick ")
	require.NoError(t, err)
	assert.Equal(t, URA2x2EStick, got)

	got, err = ParseTopology("stack 3")
	require.NoError(t, err)
	assert.Equal(t, URA3EStick, got)

	_, err = ParseTopology("ULA_5ESTICK")
	assert.True(t, errors.Is(err, ErrUnsupportedTopology))
}

func TestTopology_TextRoundTrip(t *testing.T) {
	text, err := URA4EStick.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "URA_4ESTICK", string(text))

	var top Topology
	require.NoError(t, top.UnmarshalText(text))
	assert.Equal(t, URA4EStick, top)

	assert.Error(t, top.UnmarshalText([]byte("nope")))
	assert.Equal(t, URA4EStick, top, "failed unmarshal must not modify the value")
}

func TestTopology_NewStrategy(t *testing.T) {
	for _, top := range Topologies() {
		s, err := top.NewStrategy(48000)
		require.NoError(t, err, top.String())
		assert.Equal(t, top.NumMic(), s.NumMic())
		assert.Positive(t, s.FIRLen())

		if top.IsLinear() {
			assert.IsType(t, &FarfieldULA{}, s)
		} else {
			assert.IsType(t, &FarfieldURA{}, s)
		}
	}
}
