package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/buildlight/internal/config"
	"github.com/dokzlo13/buildlight/internal/status"
)

func testConfig(t *testing.T, ledger bool) *config.Config {
	t.Helper()
	yaml := `
jenkins:
  host: http://127.0.0.1:1
hue:
  host: 127.0.0.1:1
  username: test
watch:
  bindings:
    - light: "3"
      job: jruby-dist-1_7
    - light: "4"
      view: true
database:
  path: ` + filepath.Join(t.TempDir(), "test.sqlite") + `
`
	if ledger {
		yaml += "ledger:\n  enabled: true\n"
	}
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestNewServices_Wiring(t *testing.T) {
	cfg := testConfig(t, true)
	s, err := NewServices(cfg)
	require.NoError(t, err)
	defer s.Stop()

	require.NotNil(t, s.Lights)
	require.NotNil(t, s.Lights.Coordinator)
	require.NotNil(t, s.Ledger)
	assert.Len(t, s.Watch.Watcher.Bindings(), 2)
	assert.True(t, s.Watch.Watcher.Bindings()[1].IsView())
	assert.Equal(t, status.DefaultPalette(), s.Lights.Device.Palette())
}

func TestNewServices_WithoutLedger(t *testing.T) {
	s, err := NewServices(testConfig(t, false))
	require.NoError(t, err)
	defer s.Stop()

	assert.Nil(t, s.DB)
	assert.Nil(t, s.Ledger)
}

func TestNewServices_RequiresCollaborators(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.Hue.Host = ""
	_, err := NewServices(cfg)
	assert.ErrorIs(t, err, config.ErrMissingHue)
}

func TestHealthService_Routes(t *testing.T) {
	s, err := NewServices(testConfig(t, false))
	require.NoError(t, err)
	defer s.Stop()

	h := s.Health.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lights/3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "3", body["light"])
	assert.Nil(t, body["state"])

	// The push itself fails against the unreachable bridge; the desired state is kept.
	_, err = s.Lights.Coordinator.SwitchOff(context.Background(), "3")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lights/3", nil))
	assert.JSONEq(t, `{"light":"3","state":"OFF"}`, rec.Body.String())

	s.Metrics.ObserveUpdate("job", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "buildlight_updates_total"))
}

func TestHealthService_LightHistory(t *testing.T) {
	s, err := NewServices(testConfig(t, true))
	require.NoError(t, err)
	defer s.Stop()

	h := s.Health.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lights/3/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"light":"3","history":[]}`, rec.Body.String())

	// The bridge is unreachable, so the push fails and is recorded.
	_, err = s.Lights.Coordinator.SwitchOff(context.Background(), "3")
	require.NoError(t, err)
	s.Lights.Coordinator.Wait()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lights/3/history?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Light   string           `json:"light"`
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "3", body.Light)
	require.Len(t, body.History, 1)
	assert.Equal(t, "push_failed", body.History[0]["event"])
	assert.Equal(t, "OFF", body.History[0]["state"])
	assert.NotEmpty(t, body.History[0]["error"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lights/3/history?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthService_LightHistory_LedgerDisabled(t *testing.T) {
	s, err := NewServices(testConfig(t, false))
	require.NoError(t, err)
	defer s.Stop()

	rec := httptest.NewRecorder()
	s.Health.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lights/3/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_RunStopsOnServerFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t, false)
	cfg.Healthcheck.Enabled = true
	cfg.Healthcheck.Host = "127.0.0.1"
	cfg.Healthcheck.Port = busy.Addr().(*net.TCPAddr).Port

	a, err := New(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "health check server")
	case <-time.After(5 * time.Second):
		t.Fatal("app kept running after its server failed")
	}
}

func TestApp_RunReturnsNilOnCancel(t *testing.T) {
	a, err := New(testConfig(t, false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
	assert.NoError(t, a.Err())
}

func TestDrainWait(t *testing.T) {
	assert.True(t, drainWait(func() {}, time.Second))
	assert.False(t, drainWait(func() { time.Sleep(200 * time.Millisecond) }, 10*time.Millisecond))
}
