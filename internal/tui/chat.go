package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/commlab/internal/chat"
	"github.com/san-kum/commlab/internal/mathrender"
	"github.com/san-kum/commlab/internal/viz"
)

const (
	noticeArmed   = "simulation ready: ctrl+s to open"
	noticeNoSim   = "no simulation yet: ask about AM first"
	minPanelWidth = 100
)

type focus int

const (
	focusInput focus = iota
	focusSim
)

// answerMsg carries a finished remote call back to Update.
type answerMsg struct {
	ticket chat.Ticket
	raw    string
	err    error
}

// ChatModel is the conversation view. Questions are recorded in Update, the
// model call runs in a command, and the reply is applied in Update again.
type ChatModel struct {
	ctx    context.Context
	orch   *chat.Orchestrator
	panel  *simPanel
	input  textinput.Model
	view   viewport.Model
	spin   spinner.Model
	focus  focus
	armed  bool
	shown  bool
	notice string
	width  int
	height int
}

func NewChatModel(ctx context.Context, orch *chat.Orchestrator, ctrl *viz.Controller, sink *viz.AsciiSink) *ChatModel {
	panel := newSimPanel(ctrl, sink)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = panel.styles.Pending

	in := textinput.New()
	in.Placeholder = "Ask about modulation, then press Enter"
	in.CharLimit = 2000
	in.Focus()

	vp := viewport.New(80, 16)

	m := &ChatModel{
		ctx:    ctx,
		orch:   orch,
		panel:  panel,
		input:  in,
		view:   vp,
		spin:   sp,
		width:  80,
		height: 24,
	}
	m.rebuild()
	return m
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m *ChatModel) ask(t chat.Ticket) tea.Cmd {
	return func() tea.Msg {
		raw, err := m.orch.Call(m.ctx, t)
		return answerMsg{ticket: t, raw: raw, err: err}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.rebuild()
		return m, nil

	case answerMsg:
		out, ok := m.orch.Finish(msg.ticket, msg.raw, msg.err)
		if ok && out.Armed {
			m.armed = true
			if !m.shown {
				m.notice = noticeArmed
			}
		}
		m.rebuild()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.orch.Pending() > 0 {
			m.rebuild()
		}
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true
	case "ctrl+s":
		return nil, m.toggleSim()
	case "ctrl+t":
		m.panel.cycleTheme()
		m.spin.Style = m.panel.styles.Pending
		m.rebuild()
		return nil, true
	}

	if m.focus == focusSim {
		switch msg.String() {
		case "esc", "s", "i":
			m.focus = focusInput
			m.input.Focus()
			return nil, true
		case "q":
			return tea.Quit, true
		}
		if m.panel.handleKey(msg) {
			if msg.String() == "t" {
				m.spin.Style = m.panel.styles.Pending
				m.rebuild()
			}
			return nil, true
		}
		return nil, false
	}

	switch msg.String() {
	case "esc":
		if m.shown {
			m.focus = focusSim
			m.input.Blur()
			return nil, true
		}
		return tea.Quit, true
	case "enter":
		t, err := m.orch.Begin(m.input.Value())
		if err != nil {
			return nil, true
		}
		m.input.Reset()
		m.notice = ""
		m.rebuild()
		return m.ask(t), true
	}
	return nil, false
}

// toggleSim opens the side panel once a simulatable answer has armed the
// controller, or closes it.
func (m *ChatModel) toggleSim() bool {
	if m.shown {
		m.shown = false
		m.focus = focusInput
		m.input.Focus()
		m.layout()
		m.rebuild()
		return true
	}
	if !m.armed {
		m.notice = noticeNoSim
		return true
	}
	if err := m.panel.activate(); err != nil {
		m.notice = err.Error()
		return true
	}
	m.shown = true
	m.notice = ""
	m.focus = focusSim
	m.input.Blur()
	m.layout()
	m.rebuild()
	return true
}

func (m *ChatModel) chatWidth() int {
	if m.shown && m.width >= minPanelWidth {
		return max(30, m.width/2-2)
	}
	return max(30, m.width-2)
}

func (m *ChatModel) layout() {
	m.view.Width = m.chatWidth()
	m.view.Height = max(6, m.height-6)
	m.input.Width = max(20, m.chatWidth()-4)
	if m.shown {
		pw := m.width - m.chatWidth() - 16
		if m.width < minPanelWidth {
			pw = m.width - 14
		}
		m.panel.resize(max(30, pw), max(6, m.height/2-6))
	}
}

// rebuild re-renders the transcript into the viewport.
func (m *ChatModel) rebuild() {
	s := m.panel.styles
	renderer := mathrender.New(nil, s.FormulaDecorator)
	wrap := lipgloss.NewStyle().Width(m.chatWidth() - 2)

	var b strings.Builder
	for _, turn := range m.orch.Transcript() {
		switch {
		case turn.Role == chat.RoleUser:
			b.WriteString(s.UserTurn.Render("› ") + wrap.Render(turn.Raw))
		case turn.Pending:
			b.WriteString(m.spin.View() + " " + s.Pending.Render(turn.Rendered))
		case turn.Failed:
			b.WriteString(s.ErrorText.Render(wrap.Render(turn.Rendered)))
		default:
			b.WriteString(s.Assistant.Render(wrap.Render(renderer.Render(turn.Raw))))
			if turn.Descriptor != nil {
				b.WriteString("\n" + s.KeyHint.Render("  ◆ interactive "+turn.Descriptor.Scheme+" simulation available"))
			}
		}
		b.WriteString("\n\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m *ChatModel) View() string {
	s := m.panel.styles

	left := m.view.View() + "\n" + s.Panel.Width(m.chatWidth()-2).Render(m.input.View())

	var status []string
	if n := m.orch.Pending(); n > 0 {
		status = append(status, m.spin.View()+" "+s.Pending.Render(chat.PendingText))
	}
	if m.notice != "" {
		status = append(status, s.Value.Render(m.notice))
	}
	hint := "enter send  ctrl+s simulation  ctrl+t theme  ctrl+c quit"
	if m.focus == focusSim {
		hint = "tab select  ←→ adjust  r reset  t theme  esc chat  ctrl+s close"
	}
	status = append(status, s.KeyHint.Render(hint))
	footer := strings.Join(status, "  ")

	if !m.shown {
		return left + "\n" + footer
	}

	right := s.Panel.Render(m.panel.view())
	if m.width < minPanelWidth {
		return right + "\n" + left + "\n" + footer
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right) + "\n" + footer
}
