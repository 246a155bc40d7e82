package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/coordinator"
)

// App owns the services of a running buildlight process.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelCauseFunc
}

// New builds every service without starting any of them.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Coordinator returns the light coordinator.
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.services.Lights.Coordinator
}

// Run starts the services, blocks until ctx is done or a server fails, then
// stops everything. A server failure is returned.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.Stop()
		return err
	}
	a.Wait()

	stopErr := a.Stop()
	if err := a.Err(); err != nil {
		return err
	}
	return stopErr
}

// Start launches the watcher, webhook and health servers.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancelCause(ctx)

	if err := a.services.Start(a.ctx, a.fail); err != nil {
		return err
	}

	log.Info().
		Int("bindings", len(a.cfg.Watch.Bindings)).
		Bool("webhook", a.cfg.Webhook.Enabled).
		Msg("buildlight started")
	return nil
}

// fail stops the app because a service cannot continue.
func (a *App) fail(err error) {
	log.Error().Err(err).Msg("Service failed, shutting down")
	a.cancel(err)
}

// Err returns the service failure that stopped the app, if any.
func (a *App) Err() error {
	if a.ctx == nil {
		return nil
	}
	if err := context.Cause(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop shuts the services down and drains in-flight light pushes.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel(nil)
	}
	if a.services == nil {
		return nil
	}
	return a.services.Stop()
}

// Wait blocks until the app is stopped or a service fails.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
