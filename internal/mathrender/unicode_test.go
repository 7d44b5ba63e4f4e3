package mathrender

import (
	"errors"
	"testing"
)

func TestUnicodeTypesetter(t *testing.T) {
	tests := []struct {
		expr    string
		display bool
		want    string
	}{
		{"x^2", false, "x²"},
		{"x_1", false, "x₁"},
		{"f_c", false, "f_c"},
		{"x^{n+1}", false, "xⁿ⁺¹"},
		{"e^{j\\omega t}", false, "e^(jω t)"},
		{"\\frac{1}{2}", false, "1/2"},
		{"\\frac{a+b}{2}", false, "(a+b)/2"},
		{"\\sqrt{x^2+1}", false, "√(x²+1)"},
		{"\\sqrt[3]{8}", false, "³√8"},
		{"\\alpha + \\beta", false, "α + β"},
		{"\\hat{x}", false, "x\u0302"},
		{"m\\cos t", false, "m cos t"},
		{"\\text{SNR} = 10\\log_{10}(S/N)", false, "SNR = 10 log₁₀(S/N)"},
		{"90^\\circ", false, "90°"},
		{"\\left( x \\right)", false, "( x )"},
		{"a \\\\ b", true, "a\nb"},
		{"a \\\\ b", false, "a ; b"},
		{"\\begin{cases} 1 & x > 0 \\\\ 0 & x \\le 0 \\end{cases}", true, "1 x > 0\n0 x ≤ 0"},
		{"100\\%", false, "100%"},
	}

	ts := UnicodeTypesetter{}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ts.Typeset(tt.expr, tt.display)
			if err != nil {
				t.Fatalf("Typeset(%q) failed: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Typeset(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestUnicodeTypesetterErrors(t *testing.T) {
	exprs := []string{
		"",
		"   ",
		"\\frac{1}{2",
		"x}",
		"\\nosuchcommand",
		"x^",
		"\\",
		"\\sqrt[3{8}",
		"\\text x",
		"\xff",
		"x^\xfe",
	}

	ts := UnicodeTypesetter{}
	for _, expr := range exprs {
		_, err := ts.Typeset(expr, false)
		var terr *Error
		if !errors.As(err, &terr) {
			t.Errorf("Typeset(%q): expected *Error, got %v", expr, err)
		}
	}
}
