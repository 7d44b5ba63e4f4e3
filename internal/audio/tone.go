// Package audio plays the AM signal so the envelope can be heard as well as
// seen. The carrier is shifted into the audible range; the envelope keeps its
// real rate, so the modulating tone is heard as tremolo.
package audio

import (
	"math"
	"sync"

	"github.com/san-kum/commlab/internal/synth"
)

const (
	SampleRate = 44100
	BufferSize = 1024

	// CarrierScale maps a 10..100 Hz carrier to 100..1000 Hz.
	CarrierScale = 10.0
	// glide is the cutoff of the parameter smoothing filter, in Hz.
	glide = 20.0
)

// Tone renders the AM waveform sample by sample. Parameters set with Set are
// glided toward, and phases are continuous across changes.
type Tone struct {
	mu     sync.Mutex
	target synth.Params

	carrier, mod, index float64
	carrierPhase        float64
	modPhase            float64
	Volume              float64
}

func NewTone(p synth.Params) *Tone {
	return &Tone{
		target:  p,
		carrier: p.CarrierFreq * CarrierScale,
		mod:     p.ModFreq,
		index:   p.ModIndex,
		Volume:  0.25,
	}
}

func (t *Tone) Set(p synth.Params) {
	t.mu.Lock()
	t.target = p
	t.mu.Unlock()
}

// Fill writes the next len(out[0]) samples into every channel of out.
func (t *Tone) Fill(out [][]float32) {
	if len(out) == 0 {
		return
	}
	t.mu.Lock()
	target := t.target
	t.mu.Unlock()

	dt := 1.0 / float64(SampleRate)
	for i := range out[0] {
		t.carrier = lpf(target.CarrierFreq*CarrierScale, glide, dt, t.carrier)
		t.mod = lpf(target.ModFreq, glide, dt, t.mod)
		t.index = lpf(target.ModIndex, glide, dt, t.index)

		// Normalized so the envelope peak stays at Volume for any index.
		env := (1 + t.index*math.Cos(t.modPhase)) / (1 + math.Abs(t.index))
		v := float32(t.Volume * env * math.Cos(t.carrierPhase))
		for ch := range out {
			out[ch][i] = v
		}

		t.carrierPhase = math.Mod(t.carrierPhase+2*math.Pi*t.carrier*dt, 2*math.Pi)
		t.modPhase = math.Mod(t.modPhase+2*math.Pi*t.mod*dt, 2*math.Pi)
	}
}

// lpf is a one pole low pass step.
func lpf(sample, cutoff, dt, state float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	return state + alpha*(sample-state)
}
