package registry

import "farmstand-realtime/internal/realtime"

// Stats is a point-in-time view of a Registry.
type Stats struct {
	Channels  int            `json:"channels"`
	Listeners int            `json:"listeners"`
	Entries   []ChannelStats `json:"entries"`
}

type ChannelStats struct {
	Name      string          `json:"name"`
	Refs      int             `json:"refs"`
	Listeners int             `json:"listeners"`
	Status    realtime.Status `json:"status"`
}
