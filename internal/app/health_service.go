package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/coordinator"
	"github.com/dokzlo13/buildlight/internal/ledger"
	"github.com/dokzlo13/buildlight/internal/metrics"
)

// HealthService provides HTTP health, metrics and light state endpoints.
type HealthService struct {
	cfg         *config.Config
	coordinator *coordinator.Coordinator
	metrics     *metrics.Metrics
	ledger      *ledger.Ledger // nil when the ledger is disabled
	server      *http.Server
}

// defaultHistoryLimit bounds /lights/{id}/history without a limit parameter
const defaultHistoryLimit = 50

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, c *coordinator.Coordinator, m *metrics.Metrics, l *ledger.Ledger) *HealthService {
	return &HealthService{
		cfg:         cfg,
		coordinator: c,
		metrics:     m,
		ledger:      l,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context, onFatal func(error)) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go func() {
		if err := s.run(ctx); err != nil {
			onFatal(fmt.Errorf("health check server: %w", err))
		}
	}()
}

// Handler returns the HTTP handler serving the health routes.
func (s *HealthService) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.Handle("GET /metrics", s.metrics.Handler())

	// Desired state of a light as recorded by the coordinator
	mux.HandleFunc("GET /lights/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		state, ok := s.coordinator.CurrentLightState(id)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"light": id, "state": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"light": id, "state": state.String()})
	})

	mux.HandleFunc("GET /lights/{id}/history", s.handleHistory)

	return mux
}

func (s *HealthService) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "ledger disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	id := r.PathValue("id")
	entries, err := s.ledger.GetByLight(id, limit)
	if err != nil {
		log.Error().Err(err).Str("light", id).Msg("Failed to read light history")
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	history := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"event":     string(e.EventType),
			"timestamp": e.Timestamp.Format(time.RFC3339),
			"state":     e.State.String(),
			"cycle":     e.CycleID,
		}
		if e.Error != "" {
			item["error"] = e.Error
		}
		history = append(history, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"light": id, "history": history})
}

func (s *HealthService) run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.GetHost(), s.cfg.Healthcheck.GetPort())

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
