package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoothingAlpha(t *testing.T) {
	// 512 samples at 48 kHz with a 0.2 s time constant.
	alpha := SmoothingAlpha(512, 48000, 0.2)
	assert.InDelta(t, 1-math.Exp(-(512.0/48000.0)/0.2), alpha, 1e-15)
	assert.InDelta(t, 0.052, alpha, 1e-3)

	assert.Equal(t, 1.0, SmoothingAlpha(512, 48000, 0))
	assert.Equal(t, 1.0, SmoothingAlpha(512, 48000, -1))
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{-3, 1}, {0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8},
		{512, 512}, {513, 1024}, {97 + 512 - 1, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPowerOfTwo(tt.in), "NextPowerOfTwo(%d)", tt.in)
		assert.True(t, IsPowerOfTwo(NextPowerOfTwo(tt.in)))
	}
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(6))
}
