package registry

import (
	"context"
	"sort"
	"sync"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/pkg/log"
)

// Registry owns at most one Channel handle per channel name. It is created
// explicitly and passed to whoever needs it, so tests get isolated registries.
type Registry struct {
	transport realtime.Transport
	logger    log.Logger

	mu       sync.Mutex
	channels map[string]*Channel
}

// New creates an empty registry on top of transport.
func New(transport realtime.Transport, logger log.Logger) *Registry {
	return &Registry{
		transport: transport,
		logger:    logger,
		channels:  make(map[string]*Channel),
	}
}

// Acquire returns the handle for name, creating it on first use. Every
// Acquire must be paired with a Release.
func (r *Registry) Acquire(name string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[name]
	if !ok {
		ch = newChannel(name, r.transport, r.logger)
		r.channels[name] = ch
		r.logger.Debugf(context.Background(), "registry: channel %s created", name)
	}
	ch.refs++
	return ch
}

// Release drops one reference. The last release closes the subscription and
// forgets the handle.
func (r *Registry) Release(ch *Channel) {
	if ch == nil {
		return
	}

	r.mu.Lock()
	cur, ok := r.channels[ch.name]
	if !ok || cur != ch {
		r.mu.Unlock()
		return
	}
	ch.refs--
	if ch.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.channels, ch.name)
	r.mu.Unlock()

	ch.shutdown()
	r.logger.Debugf(context.Background(), "registry: channel %s released", ch.name)
}

// Lookup returns the live handle for name without taking a reference.
func (r *Registry) Lookup(name string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Stats returns a snapshot of every live handle.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	channels := make([]*Channel, 0, len(r.channels))
	refs := make(map[*Channel]int, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
		refs[ch] = ch.refs
	}
	r.mu.Unlock()

	stats := Stats{Channels: len(channels)}
	for _, ch := range channels {
		n := ch.ListenerCount()
		stats.Listeners += n
		stats.Entries = append(stats.Entries, ChannelStats{
			Name:      ch.name,
			Refs:      refs[ch],
			Listeners: n,
			Status:    ch.Status(),
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].Name < stats.Entries[j].Name
	})
	return stats
}

// Close shuts every handle down. Used on process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]*Channel)
	r.mu.Unlock()

	for _, ch := range channels {
		ch.shutdown()
	}
}
