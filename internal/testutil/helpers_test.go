package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectConvolve_Impulse(t *testing.T) {
	kernel := []float64{1, 2, 3}
	out := DirectConvolve(Impulse(4, 1), kernel)
	assert.Equal(t, []float64{0, 1, 2, 3, 0, 0}, out)
}

func TestDirectConvolve_Empty(t *testing.T) {
	assert.Nil(t, DirectConvolve(nil, []float64{1}))
	assert.Nil(t, DirectConvolve([]float64{1}, nil))
}

func TestNoise_Deterministic(t *testing.T) {
	a := Noise(64, 7)
	b := Noise(64, 7)
	assert.Equal(t, a, b)
	for _, v := range a {
		AssertInRange(t, v, -1, 1)
	}
}

func TestPlanar(t *testing.T) {
	buf := Planar(3, 5)
	assert.Len(t, buf, 3)
	for _, ch := range buf {
		assert.Len(t, ch, 5)
	}
	AssertAllZero(t, buf)
}
