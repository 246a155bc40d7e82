// Package watch keeps bound lights in sync with Jenkins by polling and on notifications.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/coordinator"
)

// Binding ties a light to a job, or to the configured view when Job is empty.
type Binding struct {
	Light string
	Job   string
}

// IsView reports whether the binding follows the view.
func (b Binding) IsView() bool {
	return b.Job == ""
}

// Updater applies build states to lights.
type Updater interface {
	UpdateForJob(ctx context.Context, lightID, jobName string) (coordinator.Decision, error)
	UpdateForView(ctx context.Context, lightID string) (coordinator.Decision, error)
}

// Observer is told about each update attempt.
type Observer interface {
	ObserveUpdate(source string, err error)
}

// Watcher refreshes its bindings periodically and on demand.
type Watcher struct {
	updater  Updater
	observer Observer
	bindings []Binding
	interval time.Duration

	mu      sync.Mutex
	pending map[string]bool // job -> needs refresh
	trigger chan struct{}
}

// New creates a new Watcher
func New(updater Updater, bindings []Binding, interval time.Duration, observer Observer) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		updater:  updater,
		observer: observer,
		bindings: bindings,
		interval: interval,
		pending:  make(map[string]bool),
		trigger:  make(chan struct{}, 1),
	}
}

// Bindings returns the configured bindings
func (w *Watcher) Bindings() []Binding {
	return w.bindings
}

// TriggerJobs schedules a refresh of the bindings for the given jobs and of
// every view binding.
func (w *Watcher) TriggerJobs(jobs []string) {
	w.mu.Lock()
	for _, job := range jobs {
		w.pending[job] = true
	}
	w.mu.Unlock()

	select {
	case w.trigger <- struct{}{}:
	default:
		// Already triggered
	}
}

// Run refreshes all bindings, then keeps refreshing until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().Dur("interval", w.interval).Int("bindings", len(w.bindings)).Msg("Watcher started")

	w.RefreshAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Watcher stopping")
			return nil

		case <-w.trigger:
			w.refreshPending(ctx)

		case <-ticker.C:
			w.RefreshAll(ctx)
		}
	}
}

// RefreshAll updates every binding once.
func (w *Watcher) RefreshAll(ctx context.Context) {
	for _, b := range w.bindings {
		if ctx.Err() != nil {
			return
		}
		w.refresh(ctx, b)
	}
}

func (w *Watcher) refreshPending(ctx context.Context) {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	for _, b := range w.bindings {
		if b.IsView() || pending[b.Job] {
			w.refresh(ctx, b)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, b Binding) {
	var (
		d      coordinator.Decision
		err    error
		source = "job"
	)
	if b.IsView() {
		source = "view"
		d, err = w.updater.UpdateForView(ctx, b.Light)
	} else {
		d, err = w.updater.UpdateForJob(ctx, b.Light, b.Job)
	}

	if w.observer != nil {
		w.observer.ObserveUpdate(source, err)
	}

	if err != nil {
		log.Error().Err(err).Str("light", b.Light).Str("job", b.Job).Msg("Failed to update light")
		return
	}

	log.Debug().
		Str("light", b.Light).
		Str("job", b.Job).
		Str("state", d.State.String()).
		Bool("pushed", d.Pushed).
		Msg("Light updated")
}
