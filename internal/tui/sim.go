// Package tui holds the bubbletea front ends: the chat view with its
// simulation side panel, and the standalone simulation view.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/commlab/internal/synth"
	"github.com/san-kum/commlab/internal/viz"
)

// SimModel is the standalone live AM view.
type SimModel struct {
	panel    *simPanel
	onChange func(synth.Params)
	width    int
	height   int
}

// NewSimModel activates ctrl, which must draw into sink.
func NewSimModel(ctrl *viz.Controller, sink *viz.AsciiSink) (*SimModel, error) {
	m := &SimModel{panel: newSimPanel(ctrl, sink)}
	if err := m.panel.activate(); err != nil {
		return nil, err
	}
	return m, nil
}

// OnChange registers fn to receive the parameters after every key that
// changes them, starting with the current ones.
func (m *SimModel) OnChange(fn func(synth.Params)) {
	m.onChange = fn
	if fn != nil {
		fn(m.panel.ctrl.SynthParams())
	}
}

func (m *SimModel) Init() tea.Cmd { return nil }

func (m *SimModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		if m.panel.handleKey(msg) && m.onChange != nil {
			m.onChange(m.panel.ctrl.SynthParams())
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.panel.resize(max(40, m.width-14), max(8, m.height-14))
	}
	return m, nil
}

func (m *SimModel) View() string {
	s := m.panel.styles
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(viz.GradientText("c o m m l a b", s.Theme().Primary, s.Theme().Secondary) + "\n")
	b.WriteString(s.Separator(max(30, min(m.width-2, 72))) + "\n\n")
	b.WriteString(m.panel.view())
	b.WriteString("\n" + s.KeyHint.Render("tab select  ←→ adjust  HL coarse  r reset  t theme  q quit") + "\n")
	return b.String()
}
