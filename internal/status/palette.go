package status

import (
	"maps"

	"github.com/rs/zerolog/log"
)

// Encoding is the Hue v1 light state a LightState is rendered as. A non-zero
// Ct selects white light at that color temperature and Hue and Sat are unused.
type Encoding struct {
	On  bool   `json:"on"`
	Hue uint16 `json:"hue,omitempty"` // 0-65535, 0 and 65535 are both red
	Bri uint8  `json:"bri,omitempty"` // 1-254
	Sat uint8  `json:"sat,omitempty"` // 0-254
	Ct  uint16 `json:"ct,omitempty"`  // mired, 153-500
}

// White reports whether the encoding uses color temperature.
func (e Encoding) White() bool {
	return e.Ct != 0
}

// Palette maps each light state to its device encoding.
type Palette map[LightState]Encoding

// DefaultPalette returns the built-in encodings.
func DefaultPalette() Palette {
	return Palette{
		Passed:   {On: true, Hue: 25500, Bri: 254, Sat: 254},
		Failed:   {On: true, Hue: 65535, Bri: 254, Sat: 254},
		Instable: {On: true, Hue: 12750, Bri: 254, Sat: 254},
		Disabled: {On: true, Bri: 100, Ct: 233},
		Off:      {On: false},
	}
}

// WithOverrides returns a copy of the palette with the encodings of the named
// states replaced. Names that are not light states are ignored.
func (p Palette) WithOverrides(overrides map[string]Encoding) Palette {
	out := maps.Clone(p)
	if out == nil {
		out = make(Palette)
	}
	for name, enc := range overrides {
		state, ok := ParseLightState(name)
		if !ok {
			log.Debug().Str("state", name).Msg("Ignoring override for unknown light state")
			continue
		}
		if _, known := out[state]; !known {
			continue
		}
		out[state] = enc
	}
	return out
}

// Encode returns the encoding for a state.
func (p Palette) Encode(state LightState) (Encoding, bool) {
	enc, ok := p[state]
	return enc, ok
}
