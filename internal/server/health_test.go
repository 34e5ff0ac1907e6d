package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthChecker, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterHealthEndpoints(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "test")
	rec, body := serveHealth(t, h, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, healthStatusOK, body["status"])
}

func TestHealthChecker_Readiness(t *testing.T) {
	srv, _ := newFakeBotAPI(t)

	t.Run("ready without client", func(t *testing.T) {
		sc := newTestServerContext(t, NewClientFactory(testTelegramConfig(t, srv)))
		rec, body := serveHealth(t, NewHealthChecker(sc, "test"), "/readyz")

		assert.Equal(t, http.StatusOK, rec.Code)
		checks := body["checks"].(map[string]any)
		assert.Equal(t, ClientStatusNotInitialized, checks["telegram"])
	})

	t.Run("ready with client", func(t *testing.T) {
		sc := newTestServerContext(t, NewClientFactory(testTelegramConfig(t, srv)))
		_, err := sc.Acquire(context.Background())
		require.NoError(t, err)

		rec, body := serveHealth(t, NewHealthChecker(sc, "test"), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ClientStatusReady, body["checks"].(map[string]any)["telegram"])
	})

	t.Run("closed client", func(t *testing.T) {
		sc := newTestServerContext(t, NewClientFactory(testTelegramConfig(t, srv)))
		client, err := sc.Acquire(context.Background())
		require.NoError(t, err)
		require.NoError(t, client.Close())

		rec, body := serveHealth(t, NewHealthChecker(sc, "test"), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, healthStatusNotReady, body["status"])
		assert.Equal(t, ClientStatusUnavailable, body["checks"].(map[string]any)["telegram"])
	})

	t.Run("marked not ready", func(t *testing.T) {
		h := NewHealthChecker(nil, "test")
		h.SetReady(false)
		assert.False(t, h.IsReady())

		rec, body := serveHealth(t, h, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, healthStatusNotReady, body["checks"].(map[string]any)["ready"])
	})

	t.Run("shutting down", func(t *testing.T) {
		sc := newTestServerContext(t, NewClientFactory(testTelegramConfig(t, srv)))
		require.NoError(t, sc.Shutdown())

		rec, body := serveHealth(t, NewHealthChecker(sc, "test"), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, healthStatusShuttingDown, body["checks"].(map[string]any)["shutdown"])
	})
}

func TestHealthChecker_Detailed(t *testing.T) {
	h := NewHealthChecker(nil, "v1.2.3")
	rec, body := serveHealth(t, h, "/healthz/detailed")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1.2.3", body["version"])
	assert.Equal(t, ClientStatusNotInitialized, body["telegram"])
	assert.NotEmpty(t, body["uptime"])

	h.SetReady(false)
	rec, body = serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusNotReady, body["status"])
}
