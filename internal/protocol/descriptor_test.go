package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestParameterValidate(t *testing.T) {
	tests := []struct {
		name  string
		param Parameter
		valid bool
	}{
		{"default carrier", AMParameters()[0], true},
		{"zero step", Parameter{Name: "x", Min: 0, Max: 1, Step: 0}, false},
		{"negative step", Parameter{Name: "x", Min: 0, Max: 1, Step: -1}, false},
		{"inverted range", Parameter{Name: "x", Min: 2, Max: 1, Step: 1}, false},
		{"empty name", Parameter{Min: 0, Max: 1, Step: 1}, false},
		{"nan max", Parameter{Name: "x", Min: 0, Max: math.NaN(), Step: 1}, false},
		{"point range", Parameter{Name: "x", Min: 1, Max: 1, Step: 1, Current: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.param.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestParameterClamp(t *testing.T) {
	p := Parameter{Name: "x", Min: 10, Max: 100, Step: 1}

	tests := []struct {
		in, want float64
	}{
		{50, 50},
		{5, 10},
		{500, 100},
		{math.Inf(1), 100},
		{math.NaN(), 10},
	}
	for _, tt := range tests {
		if got := p.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParameterFormat(t *testing.T) {
	params := AMParameters()
	if got := params[0].Format(50); got != "50 Hz" {
		t.Errorf("expected 50 Hz, got %q", got)
	}
	if got := params[1].Format(5); got != "5 Hz" {
		t.Errorf("expected 5 Hz, got %q", got)
	}
	if got := params[2].Format(0.5); got != "0.50" {
		t.Errorf("expected 0.50, got %q", got)
	}
}

func TestDescriptorValidateAndNormalize(t *testing.T) {
	d := AMDescriptor()
	if err := d.Validate(); err != nil {
		t.Fatalf("default descriptor invalid: %v", err)
	}

	d.Parameters[0].Current = 1000
	d.Parameters[2].Current = -1
	d.Normalize()
	if d.Parameters[0].Current != 100 {
		t.Errorf("expected carrier clamped to 100, got %v", d.Parameters[0].Current)
	}
	if d.Parameters[2].Current != 0 {
		t.Errorf("expected index clamped to 0, got %v", d.Parameters[2].Current)
	}

	d.Parameters = append(d.Parameters, d.Parameters[0])
	if err := d.Validate(); err == nil {
		t.Error("expected duplicate parameter error")
	}
}

func TestDescriptorIsAM(t *testing.T) {
	for scheme, want := range map[string]bool{"": true, "AM": true, "amplitude modulation": true, "FM": false, "FSK": false} {
		d := &Descriptor{IsSimulatable: true, Scheme: scheme}
		if got := d.IsAM(); got != want {
			t.Errorf("IsAM(%q) = %v, want %v", scheme, got, want)
		}
	}
}
