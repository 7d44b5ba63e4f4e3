// Package analysis derives readouts from synthesized AM frames.
//
//   - [Spectrum]: one-sided magnitude spectrum via FFT
//   - [PeakFrequencies]: the strongest spectral lines, e.g. fc and fc ± fm
//   - [Envelope]: the theoretical envelope 1 ± k·m(t)
//   - [Efficiency]: power efficiency k²/(2+k²) of tone-modulated AM
//
// # Sidebands
//
// A tone-modulated carrier has three lines:
//
//	spec, _ := analysis.Spectrum(frame.Signal, frame.Config.Duration)
//	peaks := analysis.PeakFrequencies(spec, 3)
//	// fc with amplitude 1, fc-fm and fc+fm with amplitude k/2
package analysis
