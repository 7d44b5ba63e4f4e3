package mathrender

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error reports an expression the typesetter could not handle.
type Error struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("typeset %q at %d: %s", e.Expr, e.Pos, e.Msg)
}

// UnicodeTypesetter renders a LaTeX subset as plain Unicode for terminals.
type UnicodeTypesetter struct{}

func (UnicodeTypesetter) Typeset(expr string, display bool) (string, error) {
	if !utf8.ValidString(expr) {
		return "", &Error{Expr: expr, Msg: "invalid UTF-8"}
	}
	p := &parser{src: []rune(expr), expr: expr, display: display}
	out, err := p.sequence(false)
	if err != nil {
		return "", err
	}
	out = collapseSpaces(out)
	if out == "" {
		return "", &Error{Expr: expr, Msg: "empty expression"}
	}
	return out, nil
}

var symbols = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ϵ", "varepsilon": "ε",
	"zeta": "ζ", "eta": "η", "theta": "θ", "vartheta": "ϑ", "iota": "ι", "kappa": "κ",
	"lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ", "pi": "π", "rho": "ρ", "sigma": "σ",
	"tau": "τ", "upsilon": "υ", "phi": "ϕ", "varphi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Xi": "Ξ", "Pi": "Π",
	"Sigma": "Σ", "Upsilon": "Υ", "Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",

	"cdot": "·", "times": "×", "div": "÷", "pm": "±", "mp": "∓", "ast": "∗", "star": "⋆",
	"circ": "∘", "bullet": "•", "oplus": "⊕", "otimes": "⊗",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠", "ll": "≪", "gg": "≫",
	"approx": "≈", "equiv": "≡", "sim": "∼", "simeq": "≃", "propto": "∝", "triangleq": "≜",
	"infty": "∞", "partial": "∂", "nabla": "∇", "sum": "∑", "prod": "∏", "int": "∫",
	"iint": "∬", "oint": "∮", "angle": "∠", "perp": "⊥", "parallel": "∥",
	"to": "→", "rightarrow": "→", "leftarrow": "←", "Rightarrow": "⇒", "Leftarrow": "⇐",
	"leftrightarrow": "↔", "Leftrightarrow": "⇔", "iff": "⇔", "implies": "⇒", "mapsto": "↦",
	"in": "∈", "notin": "∉", "subset": "⊂", "supset": "⊃", "cup": "∪", "cap": "∩",
	"forall": "∀", "exists": "∃", "emptyset": "∅", "neg": "¬", "land": "∧", "lor": "∨",
	"cdots": "⋯", "ldots": "…", "dots": "…", "vdots": "⋮", "ddots": "⋱",
	"hbar": "ℏ", "ell": "ℓ", "Re": "ℜ", "Im": "ℑ", "prime": "′", "degree": "°",
	"langle": "⟨", "rangle": "⟩", "lfloor": "⌊", "rfloor": "⌋", "lceil": "⌈", "rceil": "⌉",
	"quad": "  ", "qquad": "    ", "displaystyle": "", "textstyle": "", "limits": "", "nolimits": "",
}

var functions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"arcsin": true, "arccos": true, "arctan": true, "sinh": true, "cosh": true, "tanh": true,
	"log": true, "ln": true, "lg": true, "exp": true, "lim": true, "max": true, "min": true,
	"sup": true, "inf": true, "arg": true, "det": true, "deg": true, "dim": true, "sgn": true,
}

// textCommands take one argument that is rendered as it stands.
var textCommands = map[string]bool{
	"text": true, "textrm": true, "textit": true, "textbf": true, "mbox": true,
}

// styleCommands take one argument that is typeset normally.
var styleCommands = map[string]bool{
	"mathrm": true, "mathit": true, "mathbf": true, "mathsf": true, "mathtt": true,
	"mathcal": true, "mathbb": true, "boldsymbol": true, "operatorname": true, "bm": true,
}

var accents = map[string]string{
	"hat": "̂", "widehat": "̂", "bar": "̄", "overline": "̅",
	"tilde": "̃", "widetilde": "̃", "dot": "̇", "ddot": "̈", "vec": "⃗",
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '−': '⁻', '=': '⁼', '(': '⁽', ')': '⁾',
	'a': 'ᵃ', 'b': 'ᵇ', 'c': 'ᶜ', 'd': 'ᵈ', 'e': 'ᵉ', 'f': 'ᶠ', 'g': 'ᵍ', 'h': 'ʰ', 'i': 'ⁱ',
	'j': 'ʲ', 'k': 'ᵏ', 'l': 'ˡ', 'm': 'ᵐ', 'n': 'ⁿ', 'o': 'ᵒ', 'p': 'ᵖ', 'r': 'ʳ', 's': 'ˢ',
	't': 'ᵗ', 'u': 'ᵘ', 'v': 'ᵛ', 'w': 'ʷ', 'x': 'ˣ', 'y': 'ʸ', 'z': 'ᶻ', '′': '′',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '−': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'h': 'ₕ', 'i': 'ᵢ', 'j': 'ⱼ', 'k': 'ₖ', 'l': 'ₗ', 'm': 'ₘ', 'n': 'ₙ',
	'o': 'ₒ', 'p': 'ₚ', 'r': 'ᵣ', 's': 'ₛ', 't': 'ₜ', 'u': 'ᵤ', 'v': 'ᵥ', 'x': 'ₓ',
}

type parser struct {
	src     []rune
	pos     int
	expr    string
	display bool
}

func (p *parser) errorf(format string, args ...any) error {
	return &Error{Expr: p.expr, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() rune { return p.src[p.pos] }

// sequence parses until end of input, or until the closing brace of a group.
func (p *parser) sequence(group bool) (string, error) {
	var b strings.Builder
	for {
		if p.eof() {
			if group {
				return "", p.errorf("unbalanced {")
			}
			return b.String(), nil
		}
		r := p.peek()
		switch {
		case r == '}':
			if !group {
				return "", p.errorf("unexpected }")
			}
			p.pos++
			return b.String(), nil
		case r == '{':
			p.pos++
			s, err := p.sequence(true)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case r == '^' || r == '_':
			p.pos++
			arg, err := p.argument()
			if err != nil {
				return "", err
			}
			b.WriteString(script(arg, r == '^'))
		case r == '\\':
			s, err := p.command()
			if err != nil {
				return "", err
			}
			if needsSpace(b.String(), s) {
				b.WriteByte(' ')
			}
			b.WriteString(s)
		case r == '~' || r == '&' || unicode.IsSpace(r):
			p.pos++
			b.WriteByte(' ')
		default:
			p.pos++
			b.WriteRune(r)
		}
	}
}

// argument reads one command or script argument: a group, a command or a rune.
func (p *parser) argument() (string, error) {
	p.skipSpace()
	if p.eof() {
		return "", p.errorf("missing argument")
	}
	switch r := p.peek(); r {
	case '{':
		p.pos++
		return p.sequence(true)
	case '}':
		return "", p.errorf("missing argument")
	case '\\':
		return p.command()
	default:
		p.pos++
		return string(r), nil
	}
}

// rawGroup returns the text of a brace group without interpreting it.
func (p *parser) rawGroup() (string, error) {
	p.skipSpace()
	if p.eof() || p.peek() != '{' {
		return "", p.errorf("expected {")
	}
	p.pos++
	start, depth := p.pos, 1
	for ; !p.eof(); p.pos++ {
		switch p.peek() {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				s := string(p.src[start:p.pos])
				p.pos++
				return s, nil
			}
		}
	}
	return "", p.errorf("unbalanced {")
}

func (p *parser) optional() (string, bool, error) {
	p.skipSpace()
	if p.eof() || p.peek() != '[' {
		return "", false, nil
	}
	p.pos++
	start := p.pos
	for ; !p.eof(); p.pos++ {
		if p.peek() == ']' {
			inner := &parser{src: p.src[start:p.pos], expr: p.expr, display: p.display}
			p.pos++
			s, err := inner.sequence(false)
			return s, true, err
		}
	}
	return "", false, p.errorf("unbalanced [")
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) command() (string, error) {
	p.pos++ // backslash
	if p.eof() {
		return "", p.errorf("dangling backslash")
	}
	r := p.peek()
	if !unicode.IsLetter(r) {
		p.pos++
		switch r {
		case '\\':
			if p.display {
				return "\n", nil
			}
			return "; ", nil
		case ',', ':', ';', ' ':
			return " ", nil
		case '!':
			return "", nil
		case '$':
			return "＄", nil
		case '{', '}', '%', '&', '#', '_', '|':
			return string(r), nil
		}
		return "", p.errorf("unknown symbol \\%c", r)
	}

	start := p.pos
	for !p.eof() && unicode.IsLetter(p.peek()) {
		p.pos++
	}
	name := string(p.src[start:p.pos])

	if s, ok := symbols[name]; ok {
		return s, nil
	}
	if functions[name] {
		return name, nil
	}
	if textCommands[name] {
		return p.rawGroup()
	}
	if styleCommands[name] {
		return p.argument()
	}
	if mark, ok := accents[name]; ok {
		arg, err := p.argument()
		if err != nil {
			return "", err
		}
		return accent(arg, mark), nil
	}

	switch name {
	case "frac", "dfrac", "tfrac", "cfrac":
		num, err := p.argument()
		if err != nil {
			return "", err
		}
		den, err := p.argument()
		if err != nil {
			return "", err
		}
		return wrap(num) + "/" + wrap(den), nil
	case "sqrt":
		index, ok, err := p.optional()
		if err != nil {
			return "", err
		}
		arg, err := p.argument()
		if err != nil {
			return "", err
		}
		root := "√"
		if ok {
			root = script(index, true) + root
		}
		return root + wrap(arg), nil
	case "left", "right", "big", "Big", "bigg", "Bigg", "bigl", "bigr", "Bigl", "Bigr":
		p.skipSpace()
		if p.eof() {
			return "", p.errorf("missing delimiter after \\%s", name)
		}
		if p.peek() == '.' {
			p.pos++
			return "", nil
		}
		return p.argument()
	case "begin", "end":
		env, err := p.rawGroup()
		if err != nil {
			return "", err
		}
		if env == "array" && name == "begin" {
			if _, err := p.rawGroup(); err != nil {
				return "", err
			}
		}
		return " ", nil
	}
	return "", p.errorf("unknown command \\%s", name)
}

func script(s string, super bool) string {
	s = strings.TrimSpace(s)
	if super && s == "∘" {
		return "°"
	}
	table := subscripts
	if super {
		table = superscripts
	}
	var b strings.Builder
	for _, r := range s {
		m, ok := table[r]
		if !ok {
			return fallbackScript(s, super)
		}
		b.WriteRune(m)
	}
	return b.String()
}

// needsSpace keeps m\cos t from rendering as "mcos t".
func needsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	if first > unicode.MaxASCII || !unicode.IsLetter(first) {
		return false
	}
	return unicode.IsLetter(last) || unicode.IsDigit(last) || last == ')' || last == ']'
}

func fallbackScript(s string, super bool) string {
	mark := "_"
	if super {
		mark = "^"
	}
	if len([]rune(s)) == 1 {
		return mark + s
	}
	return mark + "(" + s + ")"
}

func accent(s, mark string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if !unicode.IsSpace(r) {
			b.WriteString(mark)
		}
	}
	return b.String()
}

// wrap parenthesizes compound operands of / and √.
func wrap(s string) string {
	s = strings.TrimSpace(s)
	atomic := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && !unicode.Is(unicode.Mn, r) {
			atomic = false
			break
		}
	}
	if atomic || (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) {
		return s
	}
	return "(" + s + ")"
}

func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
