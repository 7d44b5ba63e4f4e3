package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Theme defines the color scheme for panels and charts
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	SignalColor    asciigraph.AnsiColor
	ReferenceColor asciigraph.AnsiColor
	AxisColor      asciigraph.AnsiColor
	CaptionColor   asciigraph.AnsiColor
}

// Available themes
var (
	ThemeCyberpunk = Theme{
		Name:           "cyberpunk",
		Primary:        lipgloss.Color("#ff00ff"), // Magenta
		Secondary:      lipgloss.Color("#00ffff"), // Cyan
		Accent:         lipgloss.Color("#ffff00"), // Yellow
		Text:           lipgloss.Color("#ffffff"),
		Muted:          lipgloss.Color("#666666"),
		Success:        lipgloss.Color("#00ff00"),
		Warning:        lipgloss.Color("#ff8800"),
		Error:          lipgloss.Color("#ff0000"),
		SignalColor:    asciigraph.Cyan,
		ReferenceColor: asciigraph.Magenta,
		AxisColor:      asciigraph.DarkGray,
		CaptionColor:   asciigraph.Yellow,
	}

	ThemeRetroGreen = Theme{
		Name:           "retro",
		Primary:        lipgloss.Color("#00ff00"), // Green phosphor
		Secondary:      lipgloss.Color("#00cc00"),
		Accent:         lipgloss.Color("#88ff88"),
		Text:           lipgloss.Color("#00ff00"),
		Muted:          lipgloss.Color("#005500"),
		Success:        lipgloss.Color("#88ff88"),
		Warning:        lipgloss.Color("#ffff00"),
		Error:          lipgloss.Color("#ff0000"),
		SignalColor:    asciigraph.Green,
		ReferenceColor: asciigraph.Yellow,
		AxisColor:      asciigraph.DarkGreen,
		CaptionColor:   asciigraph.Green,
	}

	ThemeMinimal = Theme{
		Name:           "minimal",
		Primary:        lipgloss.Color("#ffffff"),
		Secondary:      lipgloss.Color("#cccccc"),
		Accent:         lipgloss.Color("#0088ff"),
		Text:           lipgloss.Color("#ffffff"),
		Muted:          lipgloss.Color("#888888"),
		Success:        lipgloss.Color("#00ff00"),
		Warning:        lipgloss.Color("#ffaa00"),
		Error:          lipgloss.Color("#ff0000"),
		SignalColor:    asciigraph.White,
		ReferenceColor: asciigraph.Blue,
		AxisColor:      asciigraph.DarkGray,
		CaptionColor:   asciigraph.LightGray,
	}

	ThemeOcean = Theme{
		Name:           "ocean",
		Primary:        lipgloss.Color("#0077be"), // Ocean blue
		Secondary:      lipgloss.Color("#00a8cc"),
		Accent:         lipgloss.Color("#ffd700"),
		Text:           lipgloss.Color("#e0f0ff"),
		Muted:          lipgloss.Color("#4488aa"),
		Success:        lipgloss.Color("#00ff88"),
		Warning:        lipgloss.Color("#ffcc00"),
		Error:          lipgloss.Color("#ff4444"),
		SignalColor:    asciigraph.DeepSkyBlue,
		ReferenceColor: asciigraph.Gold,
		AxisColor:      asciigraph.SteelBlue,
		CaptionColor:   asciigraph.LightCyan,
	}

	ThemeSunset = Theme{
		Name:           "sunset",
		Primary:        lipgloss.Color("#ff6b6b"), // Coral
		Secondary:      lipgloss.Color("#feca57"),
		Accent:         lipgloss.Color("#ff9ff3"),
		Text:           lipgloss.Color("#fff5f5"),
		Muted:          lipgloss.Color("#8b6b8c"),
		Success:        lipgloss.Color("#5fd068"),
		Warning:        lipgloss.Color("#ffc048"),
		Error:          lipgloss.Color("#ff4757"),
		SignalColor:    asciigraph.Coral,
		ReferenceColor: asciigraph.Orange,
		AxisColor:      asciigraph.Plum,
		CaptionColor:   asciigraph.Pink,
	}

	// All available themes
	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to cyberpunk
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

// NextTheme returns the theme after name, wrapping around
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
