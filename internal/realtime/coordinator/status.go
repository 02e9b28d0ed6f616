package coordinator

import (
	"context"

	"farmstand-realtime/internal/realtime"
)

// Status reports lifecycle state and the live status of every attached channel.
func (c *Coordinator) Status() Status {
	return c.snapshot()
}

func (c *Coordinator) snapshot() Status {
	c.mu.Lock()
	state := c.state
	var atts []*attachment
	for _, role := range c.roles {
		atts = append(atts, c.attached[role]...)
	}
	c.mu.Unlock()

	st := Status{
		State:         state,
		Channels:      make([]ChannelStatus, 0, len(atts)),
		HandlerErrors: c.errs.recorded(),
		Dropped:       c.dropped.Load(),
	}

	allUp := true
	for _, a := range atts {
		s := realtime.StatusErrored
		if a.err == nil {
			s = a.ch.Status()
		}
		if s != realtime.StatusSubscribed {
			allUp = false
		}
		st.Channels = append(st.Channels, ChannelStatus{
			Role:   a.role,
			Name:   a.target.name,
			Kind:   a.target.desc.Kind,
			Scope:  a.target.desc.Scope,
			Status: s,
		})
	}

	st.Connected = state == StateRunning && allUp
	st.Label = LabelOffline
	if st.Connected {
		st.Label = LabelLive
	}
	return st
}

// notifyIfChanged records Connected and fires OnStatusChange when it flipped.
func (c *Coordinator) notifyIfChanged() {
	st := c.snapshot()

	c.mu.Lock()
	changed := st.Connected != c.connected
	c.connected = st.Connected
	c.mu.Unlock()

	if changed {
		c.deps.Logger.Infof(context.Background(), "coordinator: now %s", st.Label)
		if c.opts.OnStatusChange != nil {
			c.opts.OnStatusChange(st)
		}
	}
}
