package config

import (
	"sort"

	"github.com/san-kum/commlab/internal/synth"
)

type Preset struct {
	Description string
	Params      synth.Params
}

var Presets = map[string]map[string]*Preset{
	"am": {
		"standard": {
			Description: "50 Hz carrier, 5 Hz tone, half modulation",
			Params:      synth.Params{CarrierFreq: 50, ModFreq: 5, ModIndex: 0.5},
		},
		"overmod": {
			Description: "full modulation, envelope touches zero",
			Params:      synth.Params{CarrierFreq: 50, ModFreq: 5, ModIndex: 1.0},
		},
		"slow": {
			Description: "low carrier, slow tone, cycles easy to count",
			Params:      synth.Params{CarrierFreq: 20, ModFreq: 2, ModIndex: 0.5},
		},
		"dense": {
			Description: "fastest carrier and tone the sliders allow",
			Params:      synth.Params{CarrierFreq: 100, ModFreq: 10, ModIndex: 0.5},
		},
	},
}

func GetPreset(scheme, preset string) *Preset {
	schemePresets, ok := Presets[scheme]
	if !ok {
		return nil
	}
	p, ok := schemePresets[preset]
	if !ok {
		return nil
	}
	return p
}

func ListPresets(scheme string) []string {
	schemePresets, ok := Presets[scheme]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(schemePresets))
	for name := range schemePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
