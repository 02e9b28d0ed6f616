package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmstand-realtime/internal/alert"
	"farmstand-realtime/internal/auth"
	"farmstand-realtime/internal/middleware"
	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/broadcast"
	"farmstand-realtime/internal/realtime/channelname"
	realtimeHTTP "farmstand-realtime/internal/realtime/delivery/http"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/internal/realtime/transport/memory"
	userUsecase "farmstand-realtime/internal/user/usecase"
	"farmstand-realtime/pkg/jwt"
	"farmstand-realtime/pkg/log"
)

const (
	jwtSecret     = "0123456789abcdef0123456789abcdef"
	channelSecret = "channel-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	srv *httptest.Server
	h   *realtimeHTTP.Handler
	mgr jwt.Manager
}

type fixtureOptions struct {
	secret string
	limits auth.RateLimitConfig
	// wrap, when set, decorates the in-memory transport.
	wrap    func(realtime.Transport) realtime.Transport
	alertUC alert.UseCase
}

func newFixture(t *testing.T, secret string, limits auth.RateLimitConfig) *fixture {
	t.Helper()
	return newFixtureWith(t, fixtureOptions{secret: secret, limits: limits})
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	logger := log.NewNop()
	secret, limits := opts.secret, opts.limits

	mgr, err := jwt.New(jwt.Config{SecretKey: jwtSecret, Issuer: "test"})
	require.NoError(t, err)

	bus := memory.New(logger, 0)
	var transport realtime.Transport = bus
	if opts.wrap != nil {
		transport = opts.wrap(bus)
	}
	reg := registry.New(transport, logger)
	gen := channelname.New(channelname.Config{Secret: secret})
	tracker := auth.NewSessionTracker(limits, logger)

	h := realtimeHTTP.New(logger, realtimeHTTP.Deps{
		Generator: gen,
		Registry:  reg,
		Broadcast: broadcast.New(gen, reg, logger, broadcast.Options{SourceRole: "server"}),
		UserUC:    userUsecase.New(logger, nil),
		Tracker:   tracker,
		AlertUC:   opts.alertUC,
	}, realtimeHTTP.WSConfig{}, realtimeHTTP.SessionConfig{StatusInterval: 50 * time.Millisecond})

	r := gin.New()
	h.RegisterRoutes(r, middleware.New(logger, mgr, "auth"))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		h.Close()
		srv.Close()
		tracker.Close()
		_ = bus.Close()
	})
	return &fixture{srv: srv, h: h, mgr: mgr}
}

func (f *fixture) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := f.mgr.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (f *fixture) dial(t *testing.T, token, role string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?token=" + token
	if role != "" {
		url += "&role=" + role
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

type apiResp struct {
	ErrorCode int             `json:"error_code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, apiResp) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out apiResp
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

type frame struct {
	Type      string          `json:"type"`
	Resource  string          `json:"resource"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Label     string          `json:"label"`
	Connected bool            `json:"connected"`
	Message   string          `json:"message"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestCustomerSessionReceivesCartRefetch(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
	tok := f.token(t, "u1", "customer")

	conn, _, err := f.dial(t, tok, "customer")
	require.NoError(t, err)

	status := readFrame(t, conn)
	assert.Equal(t, "status", status.Type)
	assert.Equal(t, "Live", status.Label)
	assert.True(t, status.Connected)

	code, _ := f.do(t, http.MethodPost, "/api/v1/realtime/broadcast/cart", tok, map[string]any{
		"event":   "item-added",
		"payload": map[string]any{"productId": "p1", "quantity": 2},
	})
	require.Equal(t, http.StatusOK, code)

	ev := readFrame(t, conn)
	assert.Equal(t, "refetch", ev.Type)
	assert.Equal(t, "cart", ev.Resource)
	assert.Equal(t, "item-added", ev.Event)

	var p map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, "u1", p["userId"])
	assert.Equal(t, "p1", p["productId"])
}

func TestOrderUpdateReachesStaffAndOwner(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
	staffTok := f.token(t, "s1", "staff")

	staff, _, err := f.dial(t, staffTok, "")
	require.NoError(t, err)
	require.Equal(t, "Live", readFrame(t, staff).Label)

	owner, _, err := f.dial(t, f.token(t, "u1", "customer"), "customer")
	require.NoError(t, err)
	require.Equal(t, "Live", readFrame(t, owner).Label)

	code, _ := f.do(t, http.MethodPost, "/api/v1/realtime/broadcast/order", staffTok, map[string]any{
		"event":   "order-status-changed",
		"payload": map[string]any{"orderId": "o1", "userId": "u1", "status": "shipped"},
	})
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "order-status-changed", readFrame(t, staff).Event)
	assert.Equal(t, "order-status-changed", readFrame(t, owner).Event)
}

func TestHandshakeRejections(t *testing.T) {
	t.Run("role not granted", func(t *testing.T) {
		f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
		_, resp, err := f.dial(t, f.token(t, "u1", "customer"), "staff")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
		_, resp, err := f.dial(t, f.token(t, "u1", "admin"), "wizard")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad token", func(t *testing.T) {
		f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
		_, resp, err := f.dial(t, "garbage", "")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("channel secret missing", func(t *testing.T) {
		f := newFixture(t, "", auth.DefaultRateLimitConfig())
		_, resp, err := f.dial(t, f.token(t, "u1", "customer"), "")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestSessionLimitPerUser(t *testing.T) {
	f := newFixture(t, channelSecret, auth.RateLimitConfig{MaxSessionsPerUser: 1})
	tok := f.token(t, "u1", "customer")

	first, _, err := f.dial(t, tok, "")
	require.NoError(t, err)
	readFrame(t, first)

	_, resp, err := f.dial(t, tok, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool {
		conn, _, err := f.dial(t, tok, "")
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 3*time.Second, 50*time.Millisecond)
}

func TestListChannels(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())

	code, resp := f.do(t, http.MethodGet, "/api/v1/realtime/channels", f.token(t, "u1", "customer"), nil)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Role     string `json:"role"`
		Channels []struct {
			Kind  string `json:"kind"`
			Scope string `json:"scope"`
			Name  string `json:"name"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "customer", data.Role)
	require.Len(t, data.Channels, 3)
	assert.True(t, strings.HasPrefix(data.Channels[0].Name, "sec-cart-user-"))
	assert.True(t, strings.HasPrefix(data.Channels[2].Name, "sec-product-global-"))

	code, _ = f.do(t, http.MethodGet, "/api/v1/realtime/channels?role=admin", f.token(t, "u1", "customer"), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/realtime/channels", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestValidateChannel(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
	adminTok := f.token(t, "a1", "admin")

	_, list := f.do(t, http.MethodGet, "/api/v1/realtime/channels?role=staff", adminTok, nil)
	var data struct {
		Channels []struct {
			Name string `json:"name"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &data))
	require.NotEmpty(t, data.Channels)
	orderName := data.Channels[0].Name

	check := func(body map[string]any) (int, bool) {
		code, resp := f.do(t, http.MethodPost, "/api/v1/realtime/channels/validate", adminTok, body)
		var v struct {
			Valid bool `json:"valid"`
		}
		_ = json.Unmarshal(resp.Data, &v)
		return code, v.Valid
	}

	code, valid := check(map[string]any{"name": orderName, "kind": "order", "scope": "admin-only"})
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, valid)

	code, valid = check(map[string]any{"name": orderName, "kind": "inventory", "scope": "admin-only"})
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, valid)

	code, _ = check(map[string]any{"name": orderName, "kind": "coupon", "scope": "admin-only"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/v1/realtime/channels/validate", f.token(t, "u1", "customer"),
		map[string]any{"name": orderName, "kind": "order", "scope": "admin-only"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestBroadcastRejections(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())
	customer := f.token(t, "u1", "customer")
	staff := f.token(t, "s1", "staff")

	cases := []struct {
		name     string
		token    string
		resource string
		body     map[string]any
		want     int
	}{
		{"customer cannot send orders", customer, "order", map[string]any{"event": "order-created"}, http.StatusForbidden},
		{"customer cannot target another cart", customer, "cart", map[string]any{"event": "item-added", "user_id": "u2"}, http.StatusForbidden},
		{"unknown resource", staff, "widgets", map[string]any{"event": "x"}, http.StatusNotFound},
		{"empty event", staff, "product", map[string]any{"event": ""}, http.StatusBadRequest},
		{"bad payload", customer, "cart", map[string]any{"event": "item-added", "payload": "nope"}, http.StatusBadRequest},
		{"non dashboard kind", staff, "dashboard", map[string]any{"event": "metrics-updated", "kind": "cart"}, http.StatusBadRequest},
		{"staff dashboard", staff, "dashboard", map[string]any{"event": "metrics-updated", "kind": "executive"}, http.StatusOK},
		{"staff targets a cart", staff, "cart", map[string]any{"event": "cart-cleared", "user_id": "u2"}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := f.do(t, http.MethodPost, "/api/v1/realtime/broadcast/"+tc.resource, tc.token, tc.body)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())

	conn, _, err := f.dial(t, f.token(t, "u1", "customer"), "")
	require.NoError(t, err)
	readFrame(t, conn)

	code, resp := f.do(t, http.MethodGet, "/api/v1/realtime/stats", f.token(t, "a1", "admin"), nil)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Registry struct {
			Channels int `json:"channels"`
		} `json:"registry"`
		Sessions struct {
			TotalSessions int `json:"total_sessions"`
		} `json:"sessions"`
		Active []struct {
			UserID string `json:"user_id"`
			Label  string `json:"label"`
		} `json:"active"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 3, data.Registry.Channels)
	assert.Equal(t, 1, data.Sessions.TotalSessions)
	require.Len(t, data.Active, 1)
	assert.Equal(t, "u1", data.Active[0].UserID)
	assert.Equal(t, "Live", data.Active[0].Label)

	code, _ = f.do(t, http.MethodGet, "/api/v1/realtime/stats", f.token(t, "u1", "customer"), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCloseEndsSessions(t *testing.T) {
	f := newFixture(t, channelSecret, auth.DefaultRateLimitConfig())

	conn, _, err := f.dial(t, f.token(t, "u1", "customer"), "")
	require.NoError(t, err)
	readFrame(t, conn)

	f.h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	_, resp, err := f.dial(t, f.token(t, "u2", "customer"), "")
	require.Error(t, err)
	if resp != nil {
		assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)
	}
}

// flakyTransport hands out subscriptions that report errored while down is
// set, as a broker transport does after losing its connection.
type flakyTransport struct {
	realtime.Transport
	down *atomic.Bool
}

type flakySub struct {
	realtime.Subscription
	down *atomic.Bool
}

func (s flakySub) Status() realtime.Status {
	if s.down.Load() {
		return realtime.StatusErrored
	}
	return s.Subscription.Status()
}

func (t flakyTransport) Subscribe(ctx context.Context, channel string, deliver func(realtime.Envelope)) (realtime.Subscription, error) {
	sub, err := t.Transport.Subscribe(ctx, channel, deliver)
	if err != nil {
		return nil, err
	}
	return flakySub{Subscription: sub, down: t.down}, nil
}

type alertRecorder struct {
	mu      sync.Mutex
	offline []alert.RealtimeOfflineInput
}

func (r *alertRecorder) DispatchRealtimeOffline(_ context.Context, in alert.RealtimeOfflineInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = append(r.offline, in)
	return nil
}

func (r *alertRecorder) DispatchConfigIssue(context.Context, alert.ConfigIssueInput) error {
	return nil
}

func (r *alertRecorder) offlineAlerts() []alert.RealtimeOfflineInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alert.RealtimeOfflineInput(nil), r.offline...)
}

func TestSessionGoesOfflineWhenTransportDrops(t *testing.T) {
	down := &atomic.Bool{}
	alerts := &alertRecorder{}
	f := newFixtureWith(t, fixtureOptions{
		secret:  channelSecret,
		limits:  auth.DefaultRateLimitConfig(),
		wrap:    func(tr realtime.Transport) realtime.Transport { return flakyTransport{Transport: tr, down: down} },
		alertUC: alerts,
	})
	tok := f.token(t, "u1", "customer")

	conn, _, err := f.dial(t, tok, "customer")
	require.NoError(t, err)

	live := readFrame(t, conn)
	assert.Equal(t, "status", live.Type)
	assert.Equal(t, "Live", live.Label)
	assert.True(t, live.Connected)

	down.Store(true)
	offline := readFrame(t, conn)
	assert.Equal(t, "status", offline.Type)
	assert.Equal(t, "Offline", offline.Label)
	assert.False(t, offline.Connected)

	require.Eventually(t, func() bool { return len(alerts.offlineAlerts()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := alerts.offlineAlerts()[0]
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "customer", got.Role)
	require.NotEmpty(t, got.Channels)
	for _, ch := range got.Channels {
		assert.Equal(t, string(realtime.StatusErrored), ch.Status)
	}

	down.Store(false)
	back := readFrame(t, conn)
	assert.Equal(t, "Live", back.Label)
	assert.True(t, back.Connected)
}
