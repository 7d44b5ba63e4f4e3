package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/commlab/internal/protocol"
	"github.com/san-kum/commlab/internal/viz"
)

// simPanel is the parameter list and chart shared by the sim and chat views.
// All calls happen on the bubbletea goroutine.
type simPanel struct {
	ctrl   *viz.Controller
	sink   *viz.AsciiSink
	styles viz.Styles
	cursor int
	err    error
}

func newSimPanel(ctrl *viz.Controller, sink *viz.AsciiSink) *simPanel {
	return &simPanel{
		ctrl:   ctrl,
		sink:   sink,
		styles: viz.NewStyles(sink.Theme()),
	}
}

func (p *simPanel) activate() error {
	p.err = p.ctrl.Activate()
	return p.err
}

func (p *simPanel) active() bool {
	return p.ctrl.State() != viz.Uninitialized
}

// handleKey applies a parameter key. It reports whether the key was used.
func (p *simPanel) handleKey(msg tea.KeyMsg) bool {
	params := p.ctrl.Params()
	if len(params) == 0 {
		return false
	}
	if p.cursor >= len(params) {
		p.cursor = 0
	}
	name := params[p.cursor].Name

	switch msg.String() {
	case "tab", "down", "j":
		p.cursor = (p.cursor + 1) % len(params)
	case "shift+tab", "up", "k":
		p.cursor = (p.cursor + len(params) - 1) % len(params)
	case "right", "l":
		p.err = p.ctrl.Step(name, 1)
	case "left", "h":
		p.err = p.ctrl.Step(name, -1)
	case "L", "shift+right":
		p.err = p.ctrl.Step(name, 10)
	case "H", "shift+left":
		p.err = p.ctrl.Step(name, -10)
	case "r":
		p.err = p.ctrl.Reset()
	case "t":
		p.cycleTheme()
	default:
		return false
	}
	return true
}

func (p *simPanel) cycleTheme() {
	theme := viz.NextTheme(p.sink.Theme().Name)
	p.sink.SetTheme(theme)
	p.styles = viz.NewStyles(theme)
	if p.active() {
		p.err = p.ctrl.Activate()
	}
}

func (p *simPanel) resize(width, height int) {
	p.sink.Resize(width, height)
	if p.active() {
		p.err = p.ctrl.Activate()
	}
}

func (p *simPanel) view() string {
	s := p.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("AM modulation") + "  " + s.Subtle.Render(p.ctrl.State().String()) + "\n\n")

	params := p.ctrl.Params()
	for i, param := range params {
		val := param.Format(param.Current)
		if i == p.cursor {
			b.WriteString(s.Selected.Render("▸ "+fmt.Sprintf("%-22s", param.DisplayName())) + s.Value.Render(val))
		} else {
			b.WriteString("  " + s.Label.Render(fmt.Sprintf("%-22s", param.DisplayName())) + s.Subtle.Render(val))
		}
		if param.Name == protocol.ParamModIndex {
			b.WriteString("  " + s.DepthBar(clampUnit(param.Current, param.Min, param.Max), 16))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if chart := p.sink.View(); chart != "" {
		b.WriteString(chart + "\n")
	}
	if p.err != nil {
		b.WriteString(s.ErrorText.Render(p.err.Error()) + "\n")
	}
	return b.String()
}

func clampUnit(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return min(max((v-lo)/(hi-lo), 0), 1)
}
