package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		color    BuildColor
		expected LightState
	}{
		{ColorGreen, Passed},
		{ColorGreenAnime, Passed},
		{ColorBlue, Passed},
		{ColorBlueAnime, Passed},
		{ColorRed, Failed},
		{ColorRedAnime, Failed},
		{ColorYellow, Instable},
		{ColorYellowAnime, Instable},
		{ColorGrey, Disabled},
		{ColorGreyAnime, Disabled},
		{ColorDisabled, Disabled},
		{ColorDisabledAnime, Disabled},
		{ColorAborted, Disabled},
		{ColorAbortedAnime, Disabled},
		{ColorNotBuilt, Disabled},
		{ColorNotBuiltAnime, Disabled},
		{"totally_unknown", Disabled},
		{"", Disabled},
		{"GREEN", Disabled},
	}

	for _, tt := range tests {
		t.Run(string(tt.color), func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.color))
		})
	}
}

func TestClassify_AlwaysReturnsKnownState(t *testing.T) {
	inputs := []BuildColor{"green", "red_anime", "purple", "blue_anime_anime", " red", "\x00"}
	for _, in := range inputs {
		_, ok := ParseLightState(string(Classify(in)))
		assert.True(t, ok, "Classify(%q) returned an unknown state", in)
	}
}

func TestParseLightState(t *testing.T) {
	for _, s := range States() {
		got, ok := ParseLightState(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}

	_, ok := ParseLightState("passed")
	assert.False(t, ok, "names are case sensitive")
	_, ok = ParseLightState("BROKEN")
	assert.False(t, ok)
}

func TestBuildColor_Animation(t *testing.T) {
	assert.True(t, ColorRedAnime.Animated())
	assert.False(t, ColorRed.Animated())
	assert.Equal(t, ColorRed, ColorRedAnime.Base())
	assert.Equal(t, ColorBlue, ColorBlue.Base())
	assert.Equal(t, ColorBlueAnime, ColorBlue.WithAnimation())
	assert.Equal(t, ColorBlueAnime, ColorBlueAnime.WithAnimation())
}
