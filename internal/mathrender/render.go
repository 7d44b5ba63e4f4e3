// Package mathrender typesets $…$ and $$…$$ formulas embedded in text.
package mathrender

import "strings"

const (
	blockDelim  = "$$"
	inlineDelim = "$"
)

// Typesetter turns one LaTeX expression into display text.
type Typesetter interface {
	Typeset(expr string, display bool) (string, error)
}

// Decorator styles a successfully typeset formula, e.g. with lipgloss.
// Its output must not contain '$'.
type Decorator func(s string, display bool) string

type Renderer struct {
	typesetter Typesetter
	decorate   Decorator
}

func New(ts Typesetter, decorate Decorator) *Renderer {
	if ts == nil {
		ts = UnicodeTypesetter{}
	}
	return &Renderer{typesetter: ts, decorate: decorate}
}

var defaultRenderer = New(nil, nil)

// Render typesets text with the Unicode typesetter and no decoration.
func Render(text string) string { return defaultRenderer.Render(text) }

// Render scans text once, left to right. At every '$' the block delimiter is
// tried before the inline one, so an inline span never consumes part of a
// block span. A formula that fails to typeset is kept verbatim.
func (r *Renderer) Render(text string) string {
	if !strings.Contains(text, inlineDelim) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(text) {
		j := strings.IndexByte(text[i:], '$')
		if j < 0 {
			b.WriteString(text[i:])
			break
		}
		b.WriteString(text[i : i+j])
		i += j

		if strings.HasPrefix(text[i:], blockDelim) {
			end := strings.Index(text[i+2:], blockDelim)
			if end < 0 {
				b.WriteString(blockDelim)
				i += 2
				continue
			}
			span := text[i : i+2+end+2]
			r.emit(&b, span, text[i+2:i+2+end], true, i+len(span) < len(text) && text[i+len(span)] != '\n')
			i += len(span)
			continue
		}

		end := inlineEnd(text[i+1:])
		if end < 0 {
			b.WriteString(inlineDelim)
			i++
			continue
		}
		span := text[i : i+1+end+1]
		r.emit(&b, span, text[i+1:i+1+end], false, false)
		i += len(span)
	}
	return b.String()
}

// inlineEnd finds the closing '$' of an inline span. A newline, or a closing
// candidate that opens a block delimiter, leaves the span unmatched.
func inlineEnd(s string) int {
	for k := 0; k < len(s); k++ {
		switch s[k] {
		case '\n':
			return -1
		case '$':
			if k+1 < len(s) && s[k+1] == '$' {
				return -1
			}
			return k
		}
	}
	return -1
}

func (r *Renderer) emit(b *strings.Builder, span, expr string, display, breakAfter bool) {
	out, err := r.typeset(expr, display)
	if err != nil {
		b.WriteString(span)
		return
	}
	if display {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(out)
		if breakAfter {
			b.WriteByte('\n')
		}
		return
	}
	b.WriteString(out)
}

func (r *Renderer) typeset(expr string, display bool) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", &Error{Expr: expr, Msg: "typesetter panicked"}
		}
	}()
	out, err = r.typesetter.Typeset(expr, display)
	if err != nil {
		return "", err
	}
	if display {
		out = indent(out)
	}
	if r.decorate != nil {
		out = r.decorate(out, display)
	}
	if strings.Contains(out, inlineDelim) {
		return "", &Error{Expr: expr, Msg: "output reintroduces a delimiter"}
	}
	return out, nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
