package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/coordinator"
	"github.com/dokzlo13/buildlight/internal/hue"
	"github.com/dokzlo13/buildlight/internal/jenkins"
)

// LightService wraps the Jenkins client, the Hue device and the coordinator driving them.
type LightService struct {
	Jenkins     *jenkins.Client
	Device      *hue.Device
	Coordinator *coordinator.Coordinator
}

// NewLightService creates the collaborators and the coordinator.
func NewLightService(cfg *config.Config, recorder coordinator.Recorder) (*LightService, error) {
	jc := jenkins.NewClient(jenkins.Options{
		Host:      cfg.Jenkins.Host,
		View:      cfg.Jenkins.View,
		User:      cfg.Jenkins.User,
		Token:     cfg.Jenkins.Token,
		StrictSSL: cfg.Jenkins.IsStrictSSL(),
		Timeout:   cfg.Jenkins.Timeout.Duration(),
	})
	if !cfg.Jenkins.IsStrictSSL() {
		log.Warn().Str("host", cfg.Jenkins.Host).Msg("TLS verification disabled for Jenkins")
	}

	device := hue.NewDevice(cfg.Hue.Host, cfg.Hue.Username, cfg.Palette(), cfg.Hue.RateLimitRPS)

	c, err := coordinator.New(jc, device, coordinator.WithRecorder(recorder))
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("jenkins", jc.Host()).
		Str("bridge", cfg.Hue.Host).
		Msg("Light coordinator ready")

	return &LightService{
		Jenkins:     jc,
		Device:      device,
		Coordinator: c,
	}, nil
}

// Drain waits up to timeout for in-flight light pushes.
func (s *LightService) Drain(timeout time.Duration) {
	if !drainWait(s.Coordinator.Wait, timeout) {
		log.Warn().Dur("timeout", timeout).Msg("Timed out waiting for light pushes")
	}
}

// Close releases all resources.
func (s *LightService) Close() {
	if s.Jenkins != nil {
		s.Jenkins.Close()
	}
}
