// Package webhook receives Jenkins build notifications over HTTP.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/dokzlo13/buildlight/internal/eventbus"
)

// maxBodySize bounds notification payloads
const maxBodySize = 1 << 20

// Server is an HTTP server that receives Jenkins Notification plugin calls
// and publishes them to the bus.
type Server struct {
	addr       string
	bus        *eventbus.Bus
	httpServer *http.Server
}

// NewServer creates a new webhook server.
func NewServer(host string, port int, bus *eventbus.Bus) *Server {
	return &Server{
		addr: fmt.Sprintf("%s:%d", host, port),
		bus:  bus,
	}
}

// Handler returns the HTTP handler serving the webhook routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notify", s.handleNotify)
	return mux
}

// Run starts the webhook server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", s.addr).Msg("Starting webhook server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Webhook server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// handleNotify parses a notification of the form
// {"name":"job","build":{"phase":"COMPLETED","status":"SUCCESS"}}.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read webhook request body")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if !gjson.ValidBytes(body) {
		http.Error(w, "Body is not valid JSON", http.StatusBadRequest)
		return
	}

	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		http.Error(w, "Missing job name", http.StatusBadRequest)
		return
	}

	event := eventbus.Event{
		Type:   eventbus.EventTypeJobNotification,
		Job:    name,
		Phase:  gjson.GetBytes(body, "build.phase").String(),
		Status: gjson.GetBytes(body, "build.status").String(),
	}

	log.Debug().
		Str("job", event.Job).
		Str("phase", event.Phase).
		Str("status", event.Status).
		Msg("Received job notification")

	s.bus.Publish(event)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"accepted"}`))
}
