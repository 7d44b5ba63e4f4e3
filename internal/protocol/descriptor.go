package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ParamCarrierFreq = "carrierFreq"
	ParamModFreq     = "modFreq"
	ParamModIndex    = "modIndex"

	SchemeAM = "AM"
)

var ErrInvalidParameter = errors.New("invalid simulation parameter")

// Parameter is one tunable axis of a simulation.
type Parameter struct {
	Name    string  `json:"name"`
	Label   string  `json:"label,omitempty"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Current float64 `json:"current"`
}

func (p Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidParameter)
	}
	for _, v := range []float64{p.Min, p.Max, p.Step, p.Current} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has non-finite bounds", ErrInvalidParameter, p.Name)
		}
	}
	if p.Step <= 0 {
		return fmt.Errorf("%w: %s step must be positive, got %g", ErrInvalidParameter, p.Name, p.Step)
	}
	if p.Min > p.Max {
		return fmt.Errorf("%w: %s min %g exceeds max %g", ErrInvalidParameter, p.Name, p.Min, p.Max)
	}
	return nil
}

// Clamp limits v to [Min, Max]. NaN maps to Min.
func (p Parameter) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// Format renders v with as many decimals as Step carries, followed by Unit.
func (p Parameter) Format(v float64) string {
	s := strconv.FormatFloat(v, 'f', p.decimals(), 64)
	if p.Unit == "" {
		return s
	}
	return s + " " + p.Unit
}

func (p Parameter) decimals() int {
	if p.Step >= 1 || p.Step <= 0 {
		return 0
	}
	s := strconv.FormatFloat(p.Step, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// DisplayName prefers the label and falls back to the name.
func (p Parameter) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// Descriptor is the structured half of an assistant response.
type Descriptor struct {
	IsSimulatable bool        `json:"isSimulatable"`
	Scheme        string      `json:"scheme,omitempty"`
	Parameters    []Parameter `json:"parameters,omitempty"`
}

func (d *Descriptor) Validate() error {
	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate parameter %s", ErrInvalidParameter, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Normalize clamps every current value into its range.
func (d *Descriptor) Normalize() {
	for i := range d.Parameters {
		d.Parameters[i].Current = d.Parameters[i].Clamp(d.Parameters[i].Current)
	}
}

// IsAM reports whether the descriptor targets amplitude modulation. An empty
// scheme counts, AM being the only simulation available.
func (d *Descriptor) IsAM() bool {
	switch strings.ToLower(strings.TrimSpace(d.Scheme)) {
	case "", "am", "amplitude modulation", "dsb-am", "dsb_am":
		return true
	}
	return false
}

// Lookup returns the parameter with the given name.
func (d *Descriptor) Lookup(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// AMParameters returns the default amplitude modulation schema.
func AMParameters() []Parameter {
	return []Parameter{
		{Name: ParamCarrierFreq, Label: "Carrier", Unit: "Hz", Min: 10, Max: 100, Step: 1, Current: 50},
		{Name: ParamModFreq, Label: "Modulating", Unit: "Hz", Min: 1, Max: 10, Step: 1, Current: 5},
		{Name: ParamModIndex, Label: "Index", Min: 0, Max: 1, Step: 0.05, Current: 0.5},
	}
}

// AMDescriptor returns a simulatable descriptor carrying AMParameters.
func AMDescriptor() *Descriptor {
	return &Descriptor{IsSimulatable: true, Scheme: SchemeAM, Parameters: AMParameters()}
}
