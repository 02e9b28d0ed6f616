package http

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"farmstand-realtime/internal/alert"
	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/coordinator"
)

// session bridges one WebSocket connection to its own coordinator.
type session struct {
	id        string
	userID    string
	role      realtime.Role
	startedAt time.Time

	h     *Handler
	conn  *websocket.Conn
	coord *coordinator.Coordinator

	send        chan []byte
	done        chan struct{}
	writerDone  chan struct{}
	closeOnce   sync.Once
	closeCode   int
	closeReason string

	mu        sync.Mutex
	lastLabel string
	dropped   atomic.Int64
}

func (h *Handler) newSession(userID string, role realtime.Role, conn *websocket.Conn) *session {
	s := &session{
		id:         uuid.NewString(),
		userID:     userID,
		role:       role,
		startedAt:  time.Now().UTC(),
		h:          h,
		conn:       conn,
		send:       make(chan []byte, h.wsCfg.SendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		closeCode:  websocket.CloseNormalClosure,
	}
	s.coord = coordinator.New(
		coordinator.Deps{Generator: h.gen, Registry: h.reg, Logger: h.l},
		coordinator.Options{
			UserID:         userID,
			ErrorLogSize:   h.sessionCfg.ErrorLogSize,
			QueueSize:      h.sessionCfg.QueueSize,
			StatusInterval: h.sessionCfg.StatusInterval,
			OnStatusChange: s.onStatusChange,
		},
	)
	return s
}

// start subscribes the forwarding handler and starts the coordinator.
func (s *session) start(ctx context.Context) error {
	if _, err := s.coord.Subscribe(ctx, s.role, s.forward); err != nil {
		return err
	}
	if err := s.coord.Start(ctx); err != nil {
		return err
	}
	s.pushStatus(s.coord.Status())
	return nil
}

// forward is the coordinator handler: every event becomes a refetch frame.
func (s *session) forward(ctx context.Context, ev realtime.Event) error {
	data, err := json.Marshal(newRefetchFrame(ev))
	if err != nil {
		return err
	}
	if !s.enqueue(data) {
		s.dropped.Add(1)
		return errSlowConsumer
	}
	return nil
}

func (s *session) onStatusChange(st coordinator.Status) {
	s.pushStatus(st)
	if !st.Connected && st.State == coordinator.StateRunning {
		go s.h.reportOffline(s, st)
	}
}

// pushStatus sends a status frame when the label differs from the last one sent.
func (s *session) pushStatus(st coordinator.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Label == s.lastLabel {
		return
	}
	data, err := json.Marshal(newStatusFrame(st))
	if err != nil {
		return
	}
	if s.enqueue(data) {
		s.lastLabel = st.Label
	}
}

func (s *session) pushError(err error) {
	data, mErr := json.Marshal(errorFrame{Type: frameError, Message: err.Error()})
	if mErr == nil {
		s.enqueue(data)
	}
}

func (s *session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// readPump keeps the read side alive for pongs and close frames. Clients do
// not send commands; anything they send is discarded.
func (s *session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(s.h.wsCfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.h.wsCfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.h.wsCfg.PongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.h.l.Warnf(ctx, "realtime.delivery.http.readPump: session %s: %v", s.id, err)
			}
			return
		}
	}
}

// writePump is the only writer of data frames on the connection.
func (s *session) writePump() {
	ticker := time.NewTicker(s.h.wsCfg.PingInterval)
	defer func() {
		ticker.Stop()
		close(s.writerDone)
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.h.wsCfg.WriteWait)); err != nil {
				return
			}

		case <-s.done:
			s.flush()
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(s.closeCode, s.closeReason),
				time.Now().Add(s.h.wsCfg.WriteWait))
			return
		}
	}
}

func (s *session) write(msg []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.wsCfg.WriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// flush writes whatever is already queued.
func (s *session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// close stops the coordinator, lets the writer flush and forgets the session.
// It must not be called from a coordinator handler.
func (s *session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closeCode = code
		s.closeReason = reason
		close(s.done)
		s.coord.Stop()
		<-s.writerDone
		s.h.removeSession(s)
	})
}

func (s *session) info() sessionResp {
	st := s.coord.Status()
	return sessionResp{
		ID:            s.id,
		UserID:        s.userID,
		Role:          s.role,
		Label:         st.Label,
		StartedAt:     s.startedAt,
		HandlerErrors: st.HandlerErrors,
		Dropped:       s.dropped.Load(),
	}
}

func (h *Handler) addSession(s *session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errShuttingDown
	}
	h.sessions[s.id] = s
	return nil
}

func (h *Handler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handler) removeSession(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()

	if ok && h.tracker != nil {
		h.tracker.Untrack(s.userID)
	}
}

func (h *Handler) activeSessions() []*session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// Close ends every session and refuses new ones.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range h.activeSessions() {
		wg.Add(1)
		go func(s *session) {
			defer wg.Done()
			s.close(websocket.CloseGoingAway, "server shutting down")
		}(s)
	}
	wg.Wait()
}

func (h *Handler) reportOffline(s *session, st coordinator.Status) {
	if h.alertUC == nil {
		return
	}
	channels := make([]alert.ChannelState, 0, len(st.Channels))
	for _, ch := range st.Channels {
		channels = append(channels, alert.ChannelState{
			Name:   ch.Name,
			Kind:   string(ch.Kind),
			Scope:  string(ch.Scope),
			Status: string(ch.Status),
		})
	}
	err := h.alertUC.DispatchRealtimeOffline(context.Background(), alert.RealtimeOfflineInput{
		SessionID:  s.id,
		UserID:     s.userID,
		Role:       string(s.role),
		Channels:   channels,
		OccurredAt: time.Now(),
	})
	if err != nil {
		h.l.Warnf(context.Background(), "realtime.delivery.http.reportOffline: %v", err)
	}
}
