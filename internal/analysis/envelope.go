package analysis

import (
	"math"

	"github.com/san-kum/commlab/internal/synth"
)

// Efficiency is the share of transmitted power carried by the sidebands.
func Efficiency(modIndex float64) float64 {
	k2 := modIndex * modIndex
	return k2 / (2 + k2)
}

// Envelope returns the upper and lower envelopes 1 ± k·cos(2π fm t) on the
// sampling grid of cfg.
func Envelope(p synth.Params, cfg synth.Config) (upper, lower synth.Series, err error) {
	if err := cfg.Validate(); err != nil {
		return synth.Series{}, synth.Series{}, err
	}
	if err := p.Validate(); err != nil {
		return synth.Series{}, synth.Series{}, err
	}

	n := cfg.Samples + 1
	up := make([]synth.Point, n)
	lo := make([]synth.Point, n)
	dt := cfg.Dt()
	for i := 0; i < n; i++ {
		t := float64(i) * dt
		a := 1 + p.ModIndex*math.Cos(2*math.Pi*p.ModFreq*t)
		up[i] = synth.Point{T: t, V: a}
		lo[i] = synth.Point{T: t, V: -a}
	}
	return synth.Series{Name: "upper", Points: up}, synth.Series{Name: "lower", Points: lo}, nil
}

// Overmodulated reports whether the envelope crosses zero, which distorts
// envelope detection.
func Overmodulated(modIndex float64) bool {
	return math.Abs(modIndex) > 1
}

// Bandwidth of tone-modulated DSB AM.
func Bandwidth(modFreq float64) float64 {
	return 2 * math.Abs(modFreq)
}
