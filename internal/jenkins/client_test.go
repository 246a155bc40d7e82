package jenkins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/buildlight/internal/status"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/job/jruby-dist-1_7/api/json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "color", r.URL.Query().Get("tree"))
		w.Write([]byte(`{"_class":"hudson.model.FreeStyleProject","color":"blue_anime"}`))
	})
	mux.HandleFunc("/job/folder/job/nested/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"color":"red"}`))
	})
	mux.HandleFunc("/job/broken/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops`))
	})
	mux.HandleFunc("/job/secured/api/json", func(w http.ResponseWriter, r *http.Request) {
		user, token, ok := r.BasicAuth()
		if !ok || user != "ci" || token != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"color":"yellow"}`))
	})
	mux.HandleFunc("/view/Nightly/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs":[{"name":"a","color":"blue"},{"name":"b","color":"red"},{"name":"c","color":"yellow_anime"}]}`))
	})
	mux.HandleFunc("/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs":[{"name":"a","color":"blue"},{"name":"b","color":"disabled"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_JobColor(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(Options{Host: srv.URL + "/", StrictSSL: true})
	ctx := context.Background()

	color, err := c.JobColor(ctx, "jruby-dist-1_7")
	require.NoError(t, err)
	assert.Equal(t, status.ColorBlueAnime, color)

	color, err = c.JobColor(ctx, "folder/nested")
	require.NoError(t, err)
	assert.Equal(t, status.ColorRed, color)
}

func TestClient_JobColor_NotFound(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(Options{Host: srv.URL})

	_, err := c.JobColor(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestClient_JobColor_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(Options{Host: srv.URL})

	_, err := c.JobColor(context.Background(), "broken")
	assert.Error(t, err)
}

func TestClient_JobColor_BasicAuth(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := NewClient(Options{Host: srv.URL}).JobColor(ctx, "secured")
	assert.ErrorContains(t, err, "403")

	color, err := NewClient(Options{Host: srv.URL, User: "ci", Token: "secret"}).JobColor(ctx, "secured")
	require.NoError(t, err)
	assert.Equal(t, status.ColorYellow, color)
}

func TestClient_ViewColor(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	color, err := NewClient(Options{Host: srv.URL, View: "Nightly"}).ViewColor(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.ColorRedAnime, color)

	color, err = NewClient(Options{Host: srv.URL}).ViewColor(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.ColorBlue, color)
}

func TestAggregateColors(t *testing.T) {
	tests := []struct {
		name     string
		colors   []status.BuildColor
		expected status.BuildColor
	}{
		{"empty", nil, status.ColorNotBuilt},
		{"all_green", []status.BuildColor{"blue", "green"}, status.ColorBlue},
		{"any_red", []status.BuildColor{"blue", "red", "yellow"}, status.ColorRed},
		{"yellow_wins_over_blue", []status.BuildColor{"blue", "yellow"}, status.ColorYellow},
		{"only_disabled", []status.BuildColor{"disabled", "aborted"}, status.ColorNotBuilt},
		{"building", []status.BuildColor{"blue_anime", "blue"}, status.ColorBlueAnime},
		{"red_while_other_builds", []status.BuildColor{"red", "blue_anime"}, status.ColorRedAnime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateColors(tt.colors))
		})
	}
}
