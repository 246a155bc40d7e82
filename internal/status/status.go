// Package status maps Jenkins build colors onto the small set of light states
// shown by a build indicator.
package status

import "strings"

// BuildColor is a raw color token reported by Jenkins for a job or view.
type BuildColor string

// Jenkins color tokens. The _anime variants are reported while a build runs.
const (
	ColorBlue          BuildColor = "blue"
	ColorBlueAnime     BuildColor = "blue_anime"
	ColorGreen         BuildColor = "green"
	ColorGreenAnime    BuildColor = "green_anime"
	ColorRed           BuildColor = "red"
	ColorRedAnime      BuildColor = "red_anime"
	ColorYellow        BuildColor = "yellow"
	ColorYellowAnime   BuildColor = "yellow_anime"
	ColorGrey          BuildColor = "grey"
	ColorGreyAnime     BuildColor = "grey_anime"
	ColorDisabled      BuildColor = "disabled"
	ColorDisabledAnime BuildColor = "disabled_anime"
	ColorAborted       BuildColor = "aborted"
	ColorAbortedAnime  BuildColor = "aborted_anime"
	ColorNotBuilt      BuildColor = "notbuilt"
	ColorNotBuiltAnime BuildColor = "notbuilt_anime"
)

const animeSuffix = "_anime"

// Animated reports whether the color marks a build in progress.
func (c BuildColor) Animated() bool {
	return strings.HasSuffix(string(c), animeSuffix)
}

// Base returns the color without its building suffix.
func (c BuildColor) Base() BuildColor {
	return BuildColor(strings.TrimSuffix(string(c), animeSuffix))
}

// WithAnimation returns the building variant of the color.
func (c BuildColor) WithAnimation() BuildColor {
	if c.Animated() {
		return c
	}
	return c + animeSuffix
}

// LightState is the symbolic state of a build light.
type LightState string

// Light states. Off means the light was explicitly deactivated and is not the
// same as a light nobody has set yet.
const (
	Passed   LightState = "PASSED"
	Failed   LightState = "FAILED"
	Instable LightState = "INSTABLE"
	Disabled LightState = "DISABLED"
	Off      LightState = "OFF"
)

// States returns every light state in a stable order.
func States() []LightState {
	return []LightState{Passed, Failed, Instable, Disabled, Off}
}

// ParseLightState resolves a light state by its exact name.
func ParseLightState(name string) (LightState, bool) {
	for _, s := range States() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

func (s LightState) String() string {
	return string(s)
}

// Classify maps a build color to a light state. It never fails: anything that
// is not a passing, failing or unstable color is shown as Disabled.
func Classify(color BuildColor) LightState {
	switch color {
	case ColorGreen, ColorGreenAnime, ColorBlue, ColorBlueAnime:
		return Passed
	case ColorRed, ColorRedAnime:
		return Failed
	case ColorYellow, ColorYellowAnime:
		return Instable
	default:
		// disabled, aborted, grey, notbuilt (and their _anime variants) or unknown
		return Disabled
	}
}
