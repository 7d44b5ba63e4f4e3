package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/commlab/internal/synth"
)

type SVGOptions struct {
	Width  int
	Height int
	// Colors are applied to series in order and cycle when exhausted.
	Colors     []string
	Background string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:      800,
		Height:     400,
		Colors:     []string{"#00ffff", "#ff00ff"},
		Background: "#0a0a0a",
	}
}

// SeriesToSVG draws every series as a polyline on shared axes.
func SeriesToSVG(series []synth.Series, opts SVGOptions) string {
	var points int
	for _, s := range series {
		points += s.Len()
	}
	if points < 2 {
		return ""
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultSVGOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if len(opts.Colors) == 0 {
		opts.Colors = DefaultSVGOptions().Colors
	}

	// Find bounds
	first := true
	var minX, maxX, minY, maxY float64
	for _, s := range series {
		for _, p := range s.Points {
			if first {
				minX, maxX, minY, maxY = p.T, p.T, p.V, p.V
				first = false
				continue
			}
			minX, maxX = min(minX, p.T), max(maxX, p.T)
			minY, maxY = min(minY, p.V), max(maxY, p.V)
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	width, height := float64(opts.Width), float64(opts.Height)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
`, opts.Width, opts.Height, opts.Width, opts.Height)
	if opts.Background != "" {
		fmt.Fprintf(&sb, "<rect width=\"100%%\" height=\"100%%\" fill=\"%s\"/>\n", opts.Background)
	}

	for i, s := range series {
		if s.Len() < 2 {
			continue
		}
		color := opts.Colors[i%len(opts.Colors)]
		fmt.Fprintf(&sb, `<path data-series="%s" fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Name, color)
		for j, p := range s.Points {
			x := (p.T - minX) / rangeX * width
			y := height - (p.V-minY)/rangeY*height
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteSVG draws the frame's signal and reference.
func WriteSVG(w io.Writer, f synth.Frame, opts SVGOptions) error {
	svg := SeriesToSVG([]synth.Series{f.Signal, f.Reference}, opts)
	if svg == "" {
		return fmt.Errorf("frame has too few points to draw")
	}
	_, err := io.WriteString(w, svg)
	return err
}
