package alert

import "time"

// ChannelState is one channel as seen by the session that lost it.
type ChannelState struct {
	Name   string
	Kind   string
	Scope  string
	Status string
}

// RealtimeOfflineInput describes a session that went Offline.
type RealtimeOfflineInput struct {
	SessionID  string
	UserID     string
	Role       string
	Channels   []ChannelState
	OccurredAt time.Time
}

// ConfigIssueInput describes a configuration problem found at startup.
type ConfigIssueInput struct {
	Component string
	Problem   string
	// Err is the underlying error, if any.
	Err error
}
