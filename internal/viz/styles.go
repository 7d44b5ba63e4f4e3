package viz

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Panel     lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Selected  lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Subtle    lipgloss.Style
	KeyHint   lipgloss.Style
	UserTurn  lipgloss.Style
	Assistant lipgloss.Style
	Pending   lipgloss.Style
	ErrorText lipgloss.Style
	Formula   lipgloss.Style
	Display   lipgloss.Style
	BarHigh   lipgloss.Style
	BarMid    lipgloss.Style
	BarLow    lipgloss.Style
	theme     Theme
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary),
		Label:     lipgloss.NewStyle().Foreground(t.Muted),
		Value:     lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Subtle:    lipgloss.NewStyle().Foreground(t.Muted),
		KeyHint:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		UserTurn:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(t.Text),
		Pending:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		ErrorText: lipgloss.NewStyle().Foreground(t.Error),
		Formula:   lipgloss.NewStyle().Foreground(t.Secondary),
		Display:   lipgloss.NewStyle().Foreground(t.Primary),
		BarHigh:   lipgloss.NewStyle().Foreground(t.Error),
		BarMid:    lipgloss.NewStyle().Foreground(t.Warning),
		BarLow:    lipgloss.NewStyle().Foreground(t.Success),
		theme:     t,
	}
}

func (s Styles) Theme() Theme { return s.theme }

// FormulaDecorator colors typeset formulas. lipgloss output never
// contains '$'.
func (s Styles) FormulaDecorator(text string, display bool) string {
	if display {
		return s.Display.Render(text)
	}
	return s.Formula.Render(text)
}

// GradientText creates a gradient effect on text using color interpolation
func GradientText(text string, startColor, endColor lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}

	sr, sg, sb := parseHex(string(startColor))
	er, eg, eb := parseHex(string(endColor))

	var result strings.Builder
	n := len(runes)
	for i, c := range runes {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		r := int(float64(sr) + t*float64(er-sr))
		g := int(float64(sg) + t*float64(eg-sg))
		b := int(float64(sb) + t*float64(eb-sb))

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(r, g, b)))
		result.WriteString(style.Render(string(c)))
	}
	return result.String()
}

// DepthBar renders the modulation depth as a bar; full depth is highlighted
// because it is the edge of overmodulation.
func (s Styles) DepthBar(depth float64, width int) string {
	filled := int(depth*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case depth >= 1:
		return s.BarHigh.Render(bar)
	case depth > 0.8:
		return s.BarMid.Render(bar)
	}
	return s.BarLow.Render(bar)
}

// Separator draws a decorative rule
func (s Styles) Separator(width int) string {
	if width < 8 {
		return s.Subtle.Render(strings.Repeat("─", width))
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return s.Subtle.Render(left + " ◆ " + right)
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

func hexColor(r, g, b int) string {
	return "#" + hexByte(r) + hexByte(g) + hexByte(b)
}

func hexByte(v int) string {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	const hex = "0123456789abcdef"
	return string(hex[v/16]) + string(hex[v%16])
}
