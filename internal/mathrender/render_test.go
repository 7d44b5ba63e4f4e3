package mathrender

import (
	"errors"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no delimiters", "plain text, no math", "plain text, no math"},
		{"inline", "面积 $x^2$ 单位", "面积 x² 单位"},
		{"block mid line", "Shannon:$$C = B \\log_2(1 + S/N)$$done", "Shannon:\n    C = B log₂(1 + S/N)\ndone"},
		{"block own line", "a\n$$x$$\nb", "a\n    x\nb"},
		{"block only", "$$x$$", "    x"},
		{"inline then block", "$a$ and $$b$$", "a and \n    b"},
		{"malformed kept", "good $x^2$ bad $\\frac{1}{2$ end", "good x² bad $\\frac{1}{2$ end"},
		{"invalid utf8 kept", "a $\xff$ b", "a $\xff$ b"},
		{"unmatched inline", "costs $5", "costs $5"},
		{"unmatched block", "$$x", "$$x"},
		{"inline stops at newline", "$a\nb$", "$a\nb$"},
		{"inline never opens into block", "$a$$b$$", "$a\n    b"},
		{"empty block", "$$$$", "$$$$"},
		{"blank inline", "x $ $ y", "x $ $ y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderIdempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"inline $\\alpha + \\beta$ and block $$\\frac{a+b}{2}$$ tail",
		"$$s(t) = [1 + m\\cos(2\\pi f_m t)]\\cos(2\\pi f_c t)$$",
		"bad $\\nosuchcommand$ good $x_1$",
		"AM 的调制指数 $m = A_m / A_c$，效率 $\\eta = \\frac{m^2}{2 + m^2}$。",
	}

	for _, in := range inputs {
		once := Render(in)
		twice := Render(once)
		if once != twice {
			t.Errorf("render not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

type failingTypesetter struct{ bad string }

func (f failingTypesetter) Typeset(expr string, display bool) (string, error) {
	if expr == f.bad {
		return "", errors.New("boom")
	}
	return strings.ToUpper(expr), nil
}

type panickingTypesetter struct{}

func (panickingTypesetter) Typeset(string, bool) (string, error) { panic("typesetter bug") }

type dollarTypesetter struct{}

func (dollarTypesetter) Typeset(expr string, _ bool) (string, error) { return "$" + expr, nil }

func TestRenderFailuresArePerExpression(t *testing.T) {
	r := New(failingTypesetter{bad: "b"}, nil)
	got := r.Render("$a$ $b$ $c$")
	if got != "A $b$ C" {
		t.Errorf("expected only the failing span kept, got %q", got)
	}

	r = New(panickingTypesetter{}, nil)
	if got := r.Render("x $a$ y"); got != "x $a$ y" {
		t.Errorf("expected panic to keep literal, got %q", got)
	}

	r = New(dollarTypesetter{}, nil)
	if got := r.Render("x $a$ y"); got != "x $a$ y" {
		t.Errorf("expected delimiter-producing output to be rejected, got %q", got)
	}
}

func TestRenderDecorator(t *testing.T) {
	var modes []bool
	r := New(nil, func(s string, display bool) string {
		modes = append(modes, display)
		return "[" + s + "]"
	})

	got := r.Render("$x$\n$$y$$")
	if got != "[x]\n[    y]" {
		t.Errorf("unexpected decorated output %q", got)
	}
	if len(modes) != 2 || modes[0] || !modes[1] {
		t.Errorf("unexpected display modes %v", modes)
	}
}
