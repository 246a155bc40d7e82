package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPalette_CoversAllStates(t *testing.T) {
	p := DefaultPalette()
	for _, s := range States() {
		_, ok := p.Encode(s)
		assert.True(t, ok, "missing encoding for %s", s)
	}

	off, _ := p.Encode(Off)
	assert.False(t, off.On)
	passed, _ := p.Encode(Passed)
	assert.True(t, passed.On)
}

func TestDefaultPalette_NoZeroColorFields(t *testing.T) {
	for state, enc := range DefaultPalette() {
		if !enc.On {
			continue
		}
		assert.NotZero(t, enc.Bri, "%s brightness", state)
		if enc.White() {
			continue
		}
		assert.NotZero(t, enc.Hue, "%s hue", state)
		assert.NotZero(t, enc.Sat, "%s saturation", state)
	}
	assert.True(t, DefaultPalette()[Disabled].White())
}

func TestPalette_WithOverrides(t *testing.T) {
	base := DefaultPalette()
	custom := Encoding{On: true, Hue: 46920, Bri: 200, Sat: 254}

	p := base.WithOverrides(map[string]Encoding{
		"PASSED":  custom,
		"UNKNOWN": {On: true, Hue: 1},
		"failed":  {On: true, Hue: 2},
	})

	got, ok := p.Encode(Passed)
	require.True(t, ok)
	assert.Equal(t, custom, got)

	assert.Len(t, p, len(States()), "unknown keys must not add entries")
	assert.Equal(t, base[Failed], p[Failed], "lower-case names are not light states")

	// The base palette is left untouched.
	assert.Equal(t, DefaultPalette()[Passed], base[Passed])
}

func TestPalette_WithOverrides_Empty(t *testing.T) {
	p := DefaultPalette().WithOverrides(nil)
	assert.Equal(t, DefaultPalette(), p)
}

func TestClassify_IgnoresOverrides(t *testing.T) {
	_ = DefaultPalette().WithOverrides(map[string]Encoding{"PASSED": {On: true, Hue: 0}})
	assert.Equal(t, Passed, Classify(ColorGreen))
}
