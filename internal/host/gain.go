package host

import "math"

// gainRamp moves a linear gain towards its target in equal steps over a
// fixed number of samples.
type gainRamp struct {
	current   float64
	target    float64
	step      float64
	countdown int
	rampLen   int
}

func newGainRamp(sampleRate, seconds, initial float64) gainRamp {
	return gainRamp{
		current: initial,
		target:  initial,
		rampLen: max(int(math.Floor(sampleRate*seconds)), 1),
	}
}

// setTarget starts a new ramp unless target is already the goal.
func (g *gainRamp) setTarget(target float64) {
	if target == g.target {
		return
	}
	g.target = target
	g.countdown = g.rampLen
	g.step = (target - g.current) / float64(g.rampLen)
}

// apply scales buf by the ramped gain.
func (g *gainRamp) apply(buf []float64) {
	i := 0
	for ; i < len(buf) && g.countdown > 0; i++ {
		g.countdown--
		if g.countdown == 0 {
			g.current = g.target
		} else {
			g.current += g.step
		}
		buf[i] *= g.current
	}

	if g.current == 1 {
		return
	}
	for ; i < len(buf); i++ {
		buf[i] *= g.current
	}
}

// dbToGain converts decibels to a linear amplitude factor.
func dbToGain(db float64) float64 {
	return math.Pow(10, db/amplitudeDBFactor)
}
