package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/buildlight/internal/eventbus"
)

func TestServer_Notify(t *testing.T) {
	bus := eventbus.NewWithConfig(1, 10)
	defer bus.Close(context.Background())

	got := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.EventTypeJobNotification, func(e eventbus.Event) { got <- e })

	srv := NewServer("127.0.0.1", 0, bus)
	body := `{"name":"jruby-dist-1_7","url":"job/jruby-dist-1_7/","build":{"number":42,"phase":"COMPLETED","status":"FAILURE"}}`

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case e := <-got:
		assert.Equal(t, "jruby-dist-1_7", e.Job)
		assert.Equal(t, "COMPLETED", e.Phase)
		assert.Equal(t, "FAILURE", e.Status)
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}
}

func TestServer_NotifyRejectsBadBodies(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close(context.Background())
	srv := NewServer("127.0.0.1", 0, bus)

	tests := []struct {
		name string
		body string
	}{
		{"not_json", "job=foo"},
		{"no_name", `{"build":{"phase":"STARTED"}}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_OnlyPost(t *testing.T) {
	srv := NewServer("127.0.0.1", 0, eventbus.New())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
