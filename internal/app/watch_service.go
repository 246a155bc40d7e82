package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/ledger"
	"github.com/dokzlo13/buildlight/internal/watch"
)

// WatchService wraps the binding watcher and ledger housekeeping.
type WatchService struct {
	cfg     *config.Config
	Watcher *watch.Watcher
	ledger  *ledger.Ledger
}

// NewWatchService creates a new WatchService.
func NewWatchService(cfg *config.Config, updater watch.Updater, observer watch.Observer, l *ledger.Ledger) *WatchService {
	bindings := make([]watch.Binding, 0, len(cfg.Watch.Bindings))
	for _, b := range cfg.Watch.Bindings {
		bindings = append(bindings, watch.Binding{Light: b.Light, Job: b.Job})
	}

	return &WatchService{
		cfg:     cfg,
		Watcher: watch.New(updater, bindings, cfg.Watch.Interval.Duration(), observer),
		ledger:  l,
	}
}

// Start begins the watcher and related periodic tasks.
func (s *WatchService) Start(ctx context.Context) {
	if len(s.Watcher.Bindings()) == 0 {
		log.Info().Msg("No light bindings configured, watcher is idle")
	} else {
		go func() {
			if err := s.Watcher.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Watcher error")
			}
		}()
	}

	if s.ledger != nil {
		go s.runLedgerCleanup(ctx)
	}
}

// runLedgerCleanup periodically cleans up old ledger entries.
func (s *WatchService) runLedgerCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.RetentionPeriod.Duration()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}
