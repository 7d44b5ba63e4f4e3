package synth

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig indicates a sampling configuration outside the engine's domain.
	ErrInvalidConfig = errors.New("synth: invalid config")

	// ErrInvalidParams indicates a non-finite modulation parameter.
	ErrInvalidParams = errors.New("synth: invalid params")
)

const (
	DefaultDuration = 2.0
	DefaultSamples  = 500
	DefaultOffset   = 2.5
)

// Params is the AM parameter vector. The engine does not clamp it.
type Params struct {
	CarrierFreq float64 `json:"carrierFreq" yaml:"carrier_freq"`
	ModFreq     float64 `json:"modFreq" yaml:"mod_freq"`
	ModIndex    float64 `json:"modIndex" yaml:"mod_index"`
}

func DefaultParams() Params {
	return Params{CarrierFreq: 50, ModFreq: 5, ModIndex: 0.5}
}

func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"carrier frequency", p.CarrierFreq},
		{"modulating frequency", p.ModFreq},
		{"modulation index", p.ModIndex},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidParams, f.name, f.v)
		}
	}
	return nil
}

type Config struct {
	Duration float64 `json:"duration" yaml:"duration"`
	Samples  int     `json:"samples" yaml:"samples"`
	Offset   float64 `json:"offset" yaml:"offset"`
}

func DefaultConfig() Config {
	return Config{Duration: DefaultDuration, Samples: DefaultSamples, Offset: DefaultOffset}
}

func (c Config) Validate() error {
	if c.Samples < 1 {
		return fmt.Errorf("%w: samples must be at least 1, got %d", ErrInvalidConfig, c.Samples)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidConfig, c.Duration)
	}
	if math.IsNaN(c.Offset) || math.IsInf(c.Offset, 0) {
		return fmt.Errorf("%w: offset must be finite, got %v", ErrInvalidConfig, c.Offset)
	}
	return nil
}

// Dt is the uniform sample spacing.
func (c Config) Dt() float64 { return c.Duration / float64(c.Samples) }

type Point struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

func (s Series) Len() int { return len(s.Points) }

func (s Series) Times() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.T
	}
	return out
}

func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.V
	}
	return out
}

// MinMax returns the value range, or zeros for an empty series.
func (s Series) MinMax() (lo, hi float64) {
	if len(s.Points) == 0 {
		return 0, 0
	}
	lo, hi = s.Points[0].V, s.Points[0].V
	for _, p := range s.Points[1:] {
		lo = math.Min(lo, p.V)
		hi = math.Max(hi, p.V)
	}
	return lo, hi
}

// Frame is one synthesis result: the modulated signal and the offset
// modulating waveform, sampled on the same grid.
type Frame struct {
	Signal    Series `json:"signal"`
	Reference Series `json:"reference"`
	Params    Params `json:"params"`
	Config    Config `json:"config"`
}
