// Package export writes a synthesized frame as CSV, JSON or SVG.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/commlab/internal/analysis"
	"github.com/san-kum/commlab/internal/synth"
)

type FrameData struct {
	Scheme    string             `json:"scheme"`
	Params    synth.Params       `json:"params"`
	Config    synth.Config       `json:"config"`
	Samples   int                `json:"samples"`
	Times     []float64          `json:"times"`
	Signal    []float64          `json:"signal"`
	Reference []float64          `json:"reference"`
	Metrics   map[string]float64 `json:"metrics"`
}

func NewFrameData(f synth.Frame) FrameData {
	return FrameData{
		Scheme:    "AM",
		Params:    f.Params,
		Config:    f.Config,
		Samples:   f.Signal.Len(),
		Times:     f.Signal.Times(),
		Signal:    f.Signal.Values(),
		Reference: f.Reference.Values(),
		Metrics:   Metrics(f.Params),
	}
}

// Metrics are the derived figures exported alongside a frame.
func Metrics(p synth.Params) map[string]float64 {
	overmod := 0.0
	if analysis.Overmodulated(p.ModIndex) {
		overmod = 1
	}
	return map[string]float64{
		"efficiency":    analysis.Efficiency(p.ModIndex),
		"bandwidth":     analysis.Bandwidth(p.ModFreq),
		"overmodulated": overmod,
	}
}

func WriteJSON(w io.Writer, f synth.Frame) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(NewFrameData(f)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

// WriteCSV writes one row per sample: time, signal, reference.
func WriteCSV(w io.Writer, f synth.Frame) error {
	if f.Signal.Len() != f.Reference.Len() {
		return fmt.Errorf("frame series lengths differ: %d vs %d", f.Signal.Len(), f.Reference.Len())
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", f.Signal.Name, f.Reference.Name}); err != nil {
		return err
	}
	for i, p := range f.Signal.Points {
		row := []string{
			strconv.FormatFloat(p.T, 'f', 6, 64),
			strconv.FormatFloat(p.V, 'f', 6, 64),
			strconv.FormatFloat(f.Reference.Points[i].V, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
