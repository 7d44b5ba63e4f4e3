package analysis

import (
	"fmt"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/commlab/internal/synth"
)

type Bin struct {
	Freq      float64 `json:"freq"`
	Magnitude float64 `json:"magnitude"`
}

// Spectrum returns the one-sided amplitude spectrum of s. The closing sample
// at t = duration repeats the period start and is dropped, so a frame of
// samples+1 points yields bins spaced 1/duration apart. Magnitudes are scaled
// so a unit cosine on a bin reads 1.
func Spectrum(s synth.Series, duration float64) ([]Bin, error) {
	if s.Len() < 3 {
		return nil, fmt.Errorf("spectrum needs at least 3 samples, got %d", s.Len())
	}
	if !(duration > 0) {
		return nil, fmt.Errorf("duration must be positive, got %v", duration)
	}

	values := s.Values()
	values = values[:len(values)-1]
	n := len(values)
	fs := float64(n) / duration

	coeffs := fft.FFTReal(values)
	bins := make([]Bin, n/2+1)
	for k := range bins {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		if k != 0 && !(n%2 == 0 && k == n/2) {
			mag *= 2
		}
		bins[k] = Bin{Freq: float64(k) * fs / float64(n), Magnitude: mag}
	}
	return bins, nil
}

// PeakFrequencies returns the n largest bins ordered by frequency.
func PeakFrequencies(bins []Bin, n int) []Bin {
	if n <= 0 || len(bins) == 0 {
		return nil
	}
	sorted := append([]Bin(nil), bins...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Magnitude > sorted[j].Magnitude })
	if n > len(sorted) {
		n = len(sorted)
	}
	peaks := sorted[:n]
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Freq < peaks[j].Freq })
	return peaks
}

// Magnitudes flattens bins up to maxFreq for plotting.
func Magnitudes(bins []Bin, maxFreq float64) []float64 {
	out := make([]float64, 0, len(bins))
	for _, b := range bins {
		if maxFreq > 0 && b.Freq > maxFreq {
			break
		}
		out = append(out, b.Magnitude)
	}
	return out
}
