// Package protocol splits model answers into readable text and a trailing
// simulation descriptor, and builds the prompts that ask for that shape.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel separates the answer text from the descriptor JSON.
const Sentinel = "|||SIM_JSON|||"

const DefaultLanguage = "Simplified Chinese"

var (
	ErrNoSentinel          = errors.New("response has no descriptor sentinel")
	ErrMalformedDescriptor = errors.New("malformed descriptor")
)

// SplitMode picks which sentinel occurrence is authoritative.
type SplitMode int

const (
	// SplitFirst splits on the first sentinel. Answer text that itself
	// contains the sentinel gets truncated there.
	SplitFirst SplitMode = iota
	// SplitLast splits on the last sentinel.
	SplitLast
)

func (m SplitMode) String() string {
	if m == SplitLast {
		return "last"
	}
	return "first"
}

func ParseSplitMode(s string) (SplitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return SplitFirst, nil
	case "last":
		return SplitLast, nil
	}
	return SplitFirst, fmt.Errorf("unknown split mode: %s (available: first, last)", s)
}

// Response is a decoded model answer.
type Response struct {
	Text       string
	Descriptor *Descriptor
}

type Codec struct {
	Language string
	Mode     SplitMode
}

var DefaultCodec = Codec{Language: DefaultLanguage, Mode: SplitFirst}

func EncodePrompt(question string) string { return DefaultCodec.EncodePrompt(question) }

// DecodeResponse decodes raw with DefaultCodec, dropping the diagnostic error.
func DecodeResponse(raw string) Response {
	resp, _ := DefaultCodec.Decode(raw)
	return resp
}

func (c Codec) EncodePrompt(question string) string {
	lang := c.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	example, _ := json.Marshal(AMDescriptor())

	var b strings.Builder
	b.WriteString("You are a first-class teaching assistant for the principles of communication. Follow these rules strictly:\n")
	fmt.Fprintf(&b, "1. Answer the user's question clearly and accessibly, in %s.\n", lang)
	b.WriteString("2. Write every mathematical formula in standard LaTeX.\n")
	b.WriteString("3. Delimit block formulas, the ones on a line of their own, with `$$`, for example `$$C = B \\log_2(1 + S/N)$$`.\n")
	b.WriteString("4. Delimit inline formulas, the ones inside running text, with `$`, for example `$f_c$`.\n")
	b.WriteString("5. Decide whether the core of the question is a concept that can be simulated interactively (for example AM, FM, FSK).\n")
	fmt.Fprintf(&b, "6. If it can, start a new line after the answer and append %s immediately followed by a single JSON object, for example: %s%s\n", Sentinel, Sentinel, example)
	fmt.Fprintf(&b, "7. If it cannot, append %s{\"isSimulatable\": false} with no other fields.\n", Sentinel)
	b.WriteString("\nUser question: ")
	b.WriteString(strconv.Quote(question))
	b.WriteString("\n")
	return b.String()
}

// Decode splits raw into answer text and descriptor. The returned Response is
// always usable; the error only says why the descriptor is missing.
func (c Codec) Decode(raw string) (Response, error) {
	var i int
	if c.Mode == SplitLast {
		i = strings.LastIndex(raw, Sentinel)
	} else {
		i = strings.Index(raw, Sentinel)
	}
	if i < 0 {
		return Response{Text: strings.TrimSpace(raw)}, ErrNoSentinel
	}

	resp := Response{Text: strings.TrimSpace(raw[:i])}
	rest := strings.TrimSpace(raw[i+len(Sentinel):])

	var d *Descriptor
	if err := json.Unmarshal([]byte(rest), &d); err != nil {
		return resp, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	if d == nil {
		return resp, fmt.Errorf("%w: null object", ErrMalformedDescriptor)
	}
	resp.Descriptor = d
	return resp, nil
}
