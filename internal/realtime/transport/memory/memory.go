// Package memory is an in-process Transport. Single-node deployments and tests
// use it directly; the kafka transport uses it for local fan-out.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/pkg/log"
)

const defaultBuffer = 64

// Transport is an in-process pub/sub bus.
type Transport struct {
	logger log.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

// New returns an empty bus. buffer is the per-subscriber queue length.
func New(logger log.Logger, buffer int) *Transport {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Transport{
		logger: logger,
		buffer: buffer,
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

type subscription struct {
	bus     *Transport
	channel string
	queue   chan realtime.Envelope
	done    chan struct{}
	once    sync.Once
	status  atomic.Value
}

func (s *subscription) Status() realtime.Status {
	return s.status.Load().(realtime.Status)
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.status.Store(realtime.StatusClosed)
		close(s.done)
		s.bus.remove(s)
	})
	return nil
}

func (s *subscription) run(deliver func(realtime.Envelope)) {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.queue:
			// drop anything that raced with Close
			select {
			case <-s.done:
				return
			default:
			}
			deliver(env)
		}
	}
}

// Subscribe registers deliver for channel. Delivery to each subscription runs
// on its own goroutine, so a slow subscriber never reorders another's events.
func (t *Transport) Subscribe(ctx context.Context, channel string, deliver func(realtime.Envelope)) (realtime.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, realtime.NewTransportError(channel, "subscribe", err)
	}

	sub := &subscription{
		bus:     t,
		channel: channel,
		queue:   make(chan realtime.Envelope, t.buffer),
		done:    make(chan struct{}),
	}
	sub.status.Store(realtime.StatusSubscribed)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, realtime.ErrTransportClosed
	}
	if t.subs[channel] == nil {
		t.subs[channel] = make(map[*subscription]struct{})
	}
	t.subs[channel][sub] = struct{}{}
	t.mu.Unlock()

	go sub.run(deliver)
	return sub, nil
}

// Publish round-trips env through its wire encoding, the same way a network
// transport would, then hands it to every subscriber of channel.
func (t *Transport) Publish(ctx context.Context, channel string, env realtime.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return realtime.NewTransportError(channel, "publish", err)
	}
	decoded, err := realtime.UnmarshalEnvelope(data)
	if err != nil {
		return realtime.NewTransportError(channel, "publish", err)
	}
	return t.Deliver(ctx, channel, decoded)
}

// Deliver enqueues an already decoded envelope for every subscriber of
// channel. It blocks while a subscriber queue is full, until ctx is done.
func (t *Transport) Deliver(ctx context.Context, channel string, env realtime.Envelope) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return realtime.ErrTransportClosed
	}
	targets := make([]*subscription, 0, len(t.subs[channel]))
	for s := range t.subs[channel] {
		targets = append(targets, s)
	}
	t.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.queue <- env:
		case <-s.done:
		case <-ctx.Done():
			return realtime.NewTransportError(channel, "publish", ctx.Err())
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions on channel.
func (t *Transport) Subscribers(channel string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs[channel])
}

// Close closes every subscription. Later calls fail with ErrTransportClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var all []*subscription
	for _, set := range t.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	t.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	t.logger.Debugf(context.Background(), "memory transport: closed %d subscriptions", len(all))
	return nil
}

func (t *Transport) remove(s *subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.subs[s.channel]
	delete(set, s)
	if len(set) == 0 {
		delete(t.subs, s.channel)
	}
}
