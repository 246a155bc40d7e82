package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/eventbus"
	"github.com/dokzlo13/buildlight/internal/middleware"
	"github.com/dokzlo13/buildlight/internal/webhook"
)

// WebhookService wraps the webhook HTTP server and routes notifications to the watcher.
type WebhookService struct {
	cfg       *config.Config
	server    *webhook.Server
	collector *middleware.IntervalCollector
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(cfg *config.Config, bus *eventbus.Bus, watchSvc *WatchService) *WebhookService {
	collector := middleware.NewIntervalCollector(cfg.Webhook.Debounce.Duration(), func(jobs []string) {
		log.Debug().Strs("jobs", jobs).Msg("Refreshing lights for notified jobs")
		watchSvc.Watcher.TriggerJobs(jobs)
	})

	bus.Subscribe(eventbus.EventTypeJobNotification, func(e eventbus.Event) {
		collector.Add(e.Job)
	})

	return &WebhookService{
		cfg:       cfg,
		server:    webhook.NewServer(cfg.Webhook.Host, cfg.Webhook.Port, bus),
		collector: collector,
	}
}

// Start begins the webhook server if enabled.
func (s *WebhookService) Start(ctx context.Context, onFatal func(error)) {
	if !s.cfg.Webhook.Enabled {
		log.Debug().Msg("Webhook server disabled")
		return
	}

	go func() {
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			onFatal(fmt.Errorf("webhook server: %w", err))
		}
	}()
}

// Close stops the notification collector.
func (s *WebhookService) Close() {
	s.collector.Close()
}
