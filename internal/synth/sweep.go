package synth

import (
	"context"
	"fmt"
	"sync"
)

// Setter writes one swept value into a parameter vector.
type Setter func(p *Params, v float64)

func SetCarrierFreq(p *Params, v float64) { p.CarrierFreq = v }
func SetModFreq(p *Params, v float64)     { p.ModFreq = v }
func SetModIndex(p *Params, v float64)    { p.ModIndex = v }

// Sweep synthesizes one frame per value, each on its own goroutine. Frames
// come back in the order of values.
func Sweep(ctx context.Context, base Params, cfg Config, values []float64, set Setter) ([]Frame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frames := make([]Frame, len(values))
	errs := make([]error, len(values))

	var wg sync.WaitGroup
	for i, v := range values {
		wg.Add(1)
		go func(idx int, v float64) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return
			}
			p := base
			set(&p, v)
			frames[idx], errs[idx] = Synthesize(p, cfg)
		}(i, v)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sweep value %g: %w", values[i], err)
		}
	}
	return frames, nil
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
