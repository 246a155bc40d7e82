// Package hue drives Philips Hue lights through the bridge v1 API.
package hue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/buildlight/internal/coordinator"
	"github.com/dokzlo13/buildlight/internal/status"
)

const (
	// alertSelect makes the bridge flash the light once.
	alertSelect = "select"
	// neutralCt is the color temperature used for unsaturated encodings.
	neutralCt uint16 = 233
	hueRed    uint16 = 65535
)

// Device implements coordinator.LightDevice using the Hue bridge.
type Device struct {
	bridge  *huego.Bridge
	palette status.Palette
	limiter *rate.Limiter
}

// NewDevice creates a device for the bridge at host. Bridge calls are limited
// to rateLimitRPS requests per second.
func NewDevice(host, username string, palette status.Palette, rateLimitRPS float64) *Device {
	if rateLimitRPS <= 0 {
		rateLimitRPS = 10.0
	}
	if palette == nil {
		palette = status.DefaultPalette()
	}

	burst := int(rateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	return &Device{
		bridge:  huego.New(host, username),
		palette: palette,
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), burst),
	}
}

// Palette returns the encodings used for light states.
func (d *Device) Palette() status.Palette {
	return d.palette
}

// SetLight renders a light state on a light.
func (d *Device) SetLight(ctx context.Context, lightID string, state status.LightState) error {
	id, err := parseID(lightID)
	if err != nil {
		return err
	}

	enc, ok := d.palette.Encode(state)
	if !ok {
		return fmt.Errorf("no encoding for light state %s", state)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	hs := wireState(enc)

	log.Debug().
		Str("light", lightID).
		Str("state", state.String()).
		Interface("encoding", enc).
		Msg("Setting light state")

	if _, err := d.bridge.SetLightStateContext(ctx, id, hs); err != nil {
		return fmt.Errorf("failed to set light %s: %w", lightID, err)
	}
	return nil
}

// LightStatus fetches the live status of a light.
func (d *Device) LightStatus(ctx context.Context, lightID string) (*coordinator.LightStatus, error) {
	light, err := d.getLight(ctx, lightID)
	if err != nil {
		return nil, err
	}

	st := &coordinator.LightStatus{ID: lightID, Name: light.Name}
	if light.State != nil {
		on := light.State.On
		st.On = &on
		st.Reachable = light.State.Reachable
	}
	return st, nil
}

// Blink flashes a light once without changing its power state.
func (d *Device) Blink(ctx context.Context, lightID string) error {
	light, err := d.getLight(ctx, lightID)
	if err != nil {
		return err
	}

	on := true
	if light.State != nil {
		on = light.State.On
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	log.Debug().Str("light", lightID).Msg("Blinking light")
	if _, err := d.bridge.SetLightStateContext(ctx, light.ID, huego.State{On: on, Alert: alertSelect}); err != nil {
		return fmt.Errorf("failed to blink light %s: %w", lightID, err)
	}
	return nil
}

func (d *Device) getLight(ctx context.Context, lightID string) (*huego.Light, error) {
	id, err := parseID(lightID)
	if err != nil {
		return nil, err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	light, err := d.bridge.GetLightContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get light %s: %w", lightID, err)
	}
	light.ID = id
	return light, nil
}

// wireState converts an encoding to a bridge request. huego drops zero hue,
// sat and bri from the request body, so a zero hue is sent as the other end
// of the color wheel, zero saturation as neutral white and zero brightness
// as the minimum.
func wireState(enc status.Encoding) huego.State {
	hs := huego.State{On: enc.On}
	if !enc.On {
		return hs
	}

	hs.Bri = max(enc.Bri, 1)
	switch {
	case enc.White():
		hs.Ct = enc.Ct
	case enc.Sat == 0:
		hs.Ct = neutralCt
	default:
		hs.Hue = enc.Hue
		if hs.Hue == 0 {
			hs.Hue = hueRed
		}
		hs.Sat = enc.Sat
	}
	return hs
}

func parseID(lightID string) (int, error) {
	id, err := strconv.Atoi(lightID)
	if err != nil {
		return 0, fmt.Errorf("invalid light id %q: %w", lightID, err)
	}
	return id, nil
}
