package coordinator

import (
	"time"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/channelname"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/pkg/log"
)

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
)

const (
	LabelLive    = "Live"
	LabelOffline = "Offline"
)

const (
	defaultErrorLogSize   = 50
	defaultQueueSize      = 256
	defaultStatusInterval = 5 * time.Second
)

type Deps struct {
	Generator channelname.Generator
	Registry  *registry.Registry
	Logger    log.Logger
}

type Options struct {
	// UserID scopes the customer channels. Required for the customer role.
	UserID string
	// ErrorLogSize bounds the handler error log.
	ErrorLogSize int
	// QueueSize bounds events waiting for dispatch. Events beyond it are dropped.
	QueueSize int
	// StatusInterval is how often transport status is re-checked while running.
	StatusInterval time.Duration
	// OnStatusChange is called when Connected flips. It runs outside any lock.
	OnStatusChange func(Status)
}

// ChannelStatus describes one attached channel.
type ChannelStatus struct {
	Role   realtime.Role   `json:"role"`
	Name   string          `json:"name"`
	Kind   realtime.Kind   `json:"kind"`
	Scope  realtime.Scope  `json:"scope"`
	Status realtime.Status `json:"status"`
}

// Status is a snapshot of a coordinator.
type Status struct {
	State         State           `json:"state"`
	Connected     bool            `json:"connected"`
	Label         string          `json:"label"`
	Channels      []ChannelStatus `json:"channels"`
	HandlerErrors int             `json:"handler_errors"`
	Dropped       int64           `json:"dropped"`
}

type handlerEntry struct {
	id uint64
	fn realtime.Handler
}

type target struct {
	desc realtime.ChannelDescriptor
	name string
}

type attachment struct {
	role   realtime.Role
	target target
	ch     *registry.Channel
	cancel func()
	err    error
}

type dispatchItem struct {
	role    realtime.Role
	channel string
	event   realtime.Event
}
