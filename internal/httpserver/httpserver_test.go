package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmstand-realtime/internal/middleware"
	"farmstand-realtime/internal/realtime/broadcast"
	"farmstand-realtime/internal/realtime/channelname"
	realtimeHTTP "farmstand-realtime/internal/realtime/delivery/http"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/internal/realtime/transport/memory"
	userUsecase "farmstand-realtime/internal/user/usecase"
	"farmstand-realtime/pkg/jwt"
	"farmstand-realtime/pkg/log"
)

func newServer(t *testing.T, checks ...HealthCheck) *HTTPServer {
	t.Helper()
	logger := log.NewNop()

	mgr, err := jwt.New(jwt.Config{SecretKey: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)

	transport := memory.New(logger, 0)
	t.Cleanup(func() { _ = transport.Close() })
	reg := registry.New(transport, logger)
	gen := channelname.New(channelname.Config{Secret: "s"})

	rt := realtimeHTTP.New(logger, realtimeHTTP.Deps{
		Generator: gen,
		Registry:  reg,
		Broadcast: broadcast.New(gen, reg, logger, broadcast.Options{}),
		UserUC:    userUsecase.New(logger, nil),
	}, realtimeHTTP.WSConfig{}, realtimeHTTP.SessionConfig{})

	srv, err := New(logger, Config{
		Port:       8080,
		Mode:       gin.TestMode,
		Realtime:   rt,
		Middleware: middleware.New(logger, mgr, "auth"),
		Checks:     checks,
	})
	require.NoError(t, err)
	return srv
}

func get(srv *HTTPServer, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewValidates(t *testing.T) {
	_, err := New(log.NewNop(), Config{Port: 8080, Mode: gin.TestMode})
	assert.Error(t, err)

	_, err = New(log.NewNop(), Config{Mode: gin.TestMode})
	assert.Error(t, err)
}

func TestLive(t *testing.T) {
	w := get(newServer(t), "/live")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	ok := HealthCheck{Name: "transport", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("refused") }}

	t.Run("all healthy", func(t *testing.T) {
		srv := newServer(t, ok)
		assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
		assert.Equal(t, http.StatusOK, get(srv, "/ready").Code)
	})

	t.Run("dependency down", func(t *testing.T) {
		srv := newServer(t, ok, down)

		w := get(srv, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body struct {
			Data struct {
				Status       string            `json:"status"`
				Dependencies map[string]string `json:"dependencies"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Data.Status)
		assert.Equal(t, "refused", body.Data.Dependencies["postgres"])
		assert.Equal(t, "ok", body.Data.Dependencies["transport"])

		assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/ready").Code)
	})
}

func TestRealtimeRoutesMounted(t *testing.T) {
	w := get(newServer(t), "/api/v1/realtime/channels")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
