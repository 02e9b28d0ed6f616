package http

import (
	"encoding/json"
	"time"

	"farmstand-realtime/internal/auth"
	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/coordinator"
	"farmstand-realtime/internal/realtime/registry"
)

// --- Configuration DTOs ---

type WSConfig struct {
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	AllowedOrigins  []string
}

func (c WSConfig) withDefaults() WSConfig {
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

// SessionConfig is passed to the coordinator of every session.
type SessionConfig struct {
	QueueSize      int
	ErrorLogSize   int
	StatusInterval time.Duration
}

// --- Request DTOs ---

type sessionReq struct {
	Role string `form:"role"`
}

type validateReq struct {
	Name      string `json:"name" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	Scope     string `json:"scope" binding:"required"`
	SubjectID string `json:"subject_id"`
}

type broadcastReq struct {
	Event string `json:"event"`
	// UserID targets another user's cart. Staff only.
	UserID string `json:"user_id"`
	// Kind selects the dashboard for the dashboard resource.
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// --- Response DTOs ---

type channelResp struct {
	Kind      realtime.Kind  `json:"kind"`
	Scope     realtime.Scope `json:"scope"`
	SubjectID string         `json:"subject_id,omitempty"`
	Name      string         `json:"name"`
}

type channelsResp struct {
	Role     realtime.Role `json:"role"`
	Channels []channelResp `json:"channels"`
}

type validateResp struct {
	Valid bool `json:"valid"`
}

type broadcastResp struct {
	Resource string `json:"resource"`
	Event    string `json:"event"`
}

type sessionResp struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Role          realtime.Role `json:"role"`
	Label         string        `json:"label"`
	StartedAt     time.Time     `json:"started_at"`
	HandlerErrors int           `json:"handler_errors"`
	Dropped       int64         `json:"dropped"`
}

type statsResp struct {
	Registry registry.Stats           `json:"registry"`
	Sessions auth.SessionTrackerStats `json:"sessions"`
	Active   []sessionResp            `json:"active"`
}

// --- WebSocket frames ---

const (
	frameRefetch = "refetch"
	frameStatus  = "status"
	frameError   = "error"
)

type refetchFrame struct {
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Resource realtime.Kind   `json:"resource"`
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	SentAt   time.Time       `json:"sent_at"`
}

type frameChannel struct {
	Kind   realtime.Kind   `json:"kind"`
	Scope  realtime.Scope  `json:"scope"`
	Status realtime.Status `json:"status"`
}

type statusFrame struct {
	Type      string         `json:"type"`
	Label     string         `json:"label"`
	Connected bool           `json:"connected"`
	Channels  []frameChannel `json:"channels"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newStatusFrame(st coordinator.Status) statusFrame {
	f := statusFrame{
		Type:      frameStatus,
		Label:     st.Label,
		Connected: st.Connected,
		Channels:  make([]frameChannel, 0, len(st.Channels)),
	}
	for _, ch := range st.Channels {
		f.Channels = append(f.Channels, frameChannel{Kind: ch.Kind, Scope: ch.Scope, Status: ch.Status})
	}
	return f
}

func newRefetchFrame(ev realtime.Event) refetchFrame {
	meta := ev.Meta()
	return refetchFrame{
		Type:     frameRefetch,
		ID:       meta.ID,
		Resource: meta.Resource,
		Event:    meta.Name,
		Payload:  ev.RawPayload(),
		SentAt:   meta.SentAt,
	}
}
