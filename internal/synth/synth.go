// Package synth samples amplitude-modulated waveforms.
//
// For a carrier frequency fc, modulating frequency fm and modulation index k,
// sample i of a frame with spacing dt = duration/samples is
//
//	t  = i*dt
//	m  = cos(2π fm t)
//	s  = (1 + k m) cos(2π fc t)     // Signal
//	r  = k m + offset               // Reference
//
// for i in [0, samples], so both series hold samples+1 points.
package synth

import "math"

const (
	SignalName    = "signal"
	ReferenceName = "reference"
)

// Synthesize is pure: equal inputs give equal frames.
func Synthesize(p Params, cfg Config) (Frame, error) {
	if err := cfg.Validate(); err != nil {
		return Frame{}, err
	}
	if err := p.Validate(); err != nil {
		return Frame{}, err
	}

	n := cfg.Samples + 1
	signal := make([]Point, n)
	reference := make([]Point, n)
	dt := cfg.Dt()
	wc := 2 * math.Pi * p.CarrierFreq
	wm := 2 * math.Pi * p.ModFreq

	for i := 0; i < n; i++ {
		t := float64(i) * dt
		m := math.Cos(wm * t)
		signal[i] = Point{T: t, V: (1 + p.ModIndex*m) * math.Cos(wc*t)}
		reference[i] = Point{T: t, V: p.ModIndex*m + cfg.Offset}
	}

	return Frame{
		Signal:    Series{Name: SignalName, Points: signal},
		Reference: Series{Name: ReferenceName, Points: reference},
		Params:    p,
		Config:    cfg,
	}, nil
}

// Func matches Synthesize so callers can substitute the engine.
type Func func(Params, Config) (Frame, error)
