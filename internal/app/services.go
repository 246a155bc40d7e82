package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/coordinator"
	"github.com/dokzlo13/buildlight/internal/db"
	"github.com/dokzlo13/buildlight/internal/eventbus"
	"github.com/dokzlo13/buildlight/internal/ledger"
	"github.com/dokzlo13/buildlight/internal/metrics"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB      *db.DB
	Ledger  *ledger.Ledger
	Metrics *metrics.Metrics
	Bus     *eventbus.Bus

	// High-level services
	Lights  *LightService
	Watch   *WatchService
	Health  *HealthService
	Webhook *WebhookService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Services{cfg: cfg}
	s.Metrics = metrics.New()
	recorders := coordinator.Recorders{s.Metrics}

	// The ledger is optional; the database only exists to hold it
	if cfg.Ledger.IsEnabled() {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
		recorders = append(recorders, s.Ledger)
	}

	lights, err := NewLightService(cfg, recorders)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Lights = lights

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Watch = NewWatchService(cfg, lights.Coordinator, s.Metrics, s.Ledger)
	s.Webhook = NewWebhookService(cfg, s.Bus, s.Watch)
	s.Health = NewHealthService(cfg, lights.Coordinator, s.Metrics, s.Ledger)

	return s, nil
}

// Start starts all background services. onFatal is called when a server
// cannot keep running.
func (s *Services) Start(ctx context.Context, onFatal func(error)) error {
	s.Webhook.Start(ctx, onFatal)
	s.Watch.Start(ctx)
	s.Health.Start(ctx, onFatal)
	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	timeout := s.cfg.GetShutdownTimeout()

	if s.Webhook != nil {
		s.Webhook.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Lights != nil {
		s.Lights.Drain(timeout)
	}

	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Lights != nil {
		s.Lights.Close()
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// drainWait runs wait and returns false if it does not finish within timeout.
func drainWait(wait func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
