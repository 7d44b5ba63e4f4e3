package viz

import (
	"strings"
	"sync"

	"github.com/guptarohit/asciigraph"
)

const (
	DefaultChartHeight = 12
	DefaultChartWidth  = 72
)

// AsciiSink renders the chart as a two-series asciigraph plot.
type AsciiSink struct {
	mu     sync.Mutex
	theme  Theme
	width  int
	height int
	view   string
}

func NewAsciiSink(theme Theme, width, height int) *AsciiSink {
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}
	return &AsciiSink{theme: theme, width: width, height: height}
}

func (s *AsciiSink) Draw(chart *Chart, readouts []Readout) {
	w, h := s.size()
	view := PlotChart(chart, readouts, s.Theme(), w, h)
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
}

// View returns the last drawn plot.
func (s *AsciiSink) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *AsciiSink) SetTheme(t Theme) {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
}

func (s *AsciiSink) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *AsciiSink) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 {
		s.width = width
	}
	if height > 0 {
		s.height = height
	}
}

func (s *AsciiSink) size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// PlotChart renders the modulated signal and its offset reference on one axis.
func PlotChart(chart *Chart, readouts []Readout, theme Theme, size ...int) string {
	if chart == nil || len(chart.Signal) == 0 {
		return ""
	}
	width, height := DefaultChartWidth, DefaultChartHeight
	if len(size) == 2 {
		width, height = size[0], size[1]
	}

	labels := make([]string, len(readouts))
	for i, r := range readouts {
		labels[i] = r.String()
	}

	return asciigraph.PlotMany(
		[][]float64{chart.Signal, chart.Reference},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(theme.SignalColor, theme.ReferenceColor),
		asciigraph.SeriesLegends("signal", "reference"),
		asciigraph.AxisColor(theme.AxisColor),
		asciigraph.LabelColor(theme.AxisColor),
		asciigraph.Caption(strings.Join(labels, "  ")),
		asciigraph.CaptionColor(theme.CaptionColor),
	)
}

// PlotSpectrum renders spectrum magnitudes as a single series.
func PlotSpectrum(magnitudes []float64, caption string, theme Theme, width, height int) string {
	if len(magnitudes) == 0 {
		return ""
	}
	return asciigraph.Plot(
		magnitudes,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(theme.SignalColor),
		asciigraph.AxisColor(theme.AxisColor),
		asciigraph.Caption(caption),
		asciigraph.CaptionColor(theme.CaptionColor),
	)
}

// RecordingSink keeps a copy of every draw. It is meant for tests and for
// callers that poll the last frame.
type RecordingSink struct {
	mu    sync.Mutex
	Draws []Draw
}

type Draw struct {
	Chart    *Chart
	Snapshot Chart
	Readouts []Readout
}

func (r *RecordingSink) Draw(chart *Chart, readouts []Readout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Draws = append(r.Draws, Draw{
		Chart: chart,
		Snapshot: Chart{
			Times:     append([]float64(nil), chart.Times...),
			Signal:    append([]float64(nil), chart.Signal...),
			Reference: append([]float64(nil), chart.Reference...),
			Revision:  chart.Revision,
		},
		Readouts: append([]Readout(nil), readouts...),
	})
}

func (r *RecordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Draws)
}

func (r *RecordingSink) Last() (Draw, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Draws) == 0 {
		return Draw{}, false
	}
	return r.Draws[len(r.Draws)-1], true
}
