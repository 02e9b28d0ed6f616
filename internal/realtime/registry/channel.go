package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/pkg/log"
)

// ErrChannelReleased is returned when a handle is used after its last Release.
var ErrChannelReleased = errors.New("registry: channel released")

// Listener receives every envelope delivered on a channel.
type Listener func(env realtime.Envelope)

type listener struct {
	id uint64
	fn Listener
}

// Channel is the shared handle for one channel name. It owns at most one
// transport subscription, opened by the first listener and closed by the last.
type Channel struct {
	name      string
	transport realtime.Transport
	logger    log.Logger

	// refs is guarded by Registry.mu.
	refs int

	// openMu serialises Listen and unlisten so only one subscription is
	// opened per name. subMu guards the fields below and is never held
	// across a transport call that can block on the network.
	openMu   sync.Mutex
	subMu    sync.Mutex
	sub      realtime.Subscription
	lastErr  error
	released bool

	lMu       sync.RWMutex
	listeners []listener
	nextID    uint64
}

func newChannel(name string, transport realtime.Transport, logger log.Logger) *Channel {
	return &Channel{
		name:      name,
		transport: transport,
		logger:    logger,
	}
}

func (c *Channel) Name() string { return c.name }

// Listen adds fn and opens the transport subscription if this is the first
// listener. The returned cancel func is safe to call more than once.
func (c *Channel) Listen(ctx context.Context, fn Listener) (func(), error) {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	c.subMu.Lock()
	released := c.released
	needSub := c.sub == nil
	c.subMu.Unlock()
	if released {
		return nil, ErrChannelReleased
	}

	id := c.addListener(fn)

	if needSub {
		// subMu is not held here so Status stays readable while the
		// transport is slow to confirm.
		sub, err := c.transport.Subscribe(ctx, c.name, c.deliver)

		c.subMu.Lock()
		switch {
		case err != nil:
			c.lastErr = realtime.NewTransportError(c.name, "subscribe", err)
			lastErr := c.lastErr
			c.subMu.Unlock()
			c.removeListener(id)
			c.logger.Warnf(ctx, "registry: subscribe %s failed: %v", c.name, err)
			return nil, lastErr
		case c.released:
			c.subMu.Unlock()
			if cErr := sub.Close(); cErr != nil {
				c.logger.Warnf(ctx, "registry: close subscription %s: %v", c.name, cErr)
			}
			return nil, ErrChannelReleased
		}
		c.sub = sub
		c.lastErr = nil
		c.subMu.Unlock()
		c.logger.Debugf(ctx, "registry: channel %s subscribed", c.name)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unlisten(id) })
	}, nil
}

// Publish sends env on this channel.
func (c *Channel) Publish(ctx context.Context, env realtime.Envelope) error {
	c.subMu.Lock()
	released := c.released
	c.subMu.Unlock()
	if released {
		return ErrChannelReleased
	}

	if err := c.transport.Publish(ctx, c.name, env); err != nil {
		return realtime.NewTransportError(c.name, "publish", err)
	}
	return nil
}

// Status reports the subscription status of the handle.
func (c *Channel) Status() realtime.Status {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	switch {
	case c.sub != nil:
		return c.sub.Status()
	case c.lastErr != nil:
		return realtime.StatusErrored
	case c.released:
		return realtime.StatusClosed
	default:
		return realtime.StatusConnecting
	}
}

// LastError returns the last subscribe failure, if any.
func (c *Channel) LastError() error {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.lastErr
}

func (c *Channel) ListenerCount() int {
	c.lMu.RLock()
	defer c.lMu.RUnlock()
	return len(c.listeners)
}

func (c *Channel) addListener(fn Listener) uint64 {
	c.lMu.Lock()
	defer c.lMu.Unlock()
	c.nextID++
	c.listeners = append(c.listeners, listener{id: c.nextID, fn: fn})
	return c.nextID
}

// removeListener reports how many listeners remain.
func (c *Channel) removeListener(id uint64) int {
	c.lMu.Lock()
	defer c.lMu.Unlock()
	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			break
		}
	}
	return len(c.listeners)
}

func (c *Channel) unlisten(id uint64) {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.removeListener(id) > 0 || c.sub == nil {
		return
	}
	c.closeSubLocked()
}

func (c *Channel) shutdown() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.released = true
	c.lMu.Lock()
	c.listeners = nil
	c.lMu.Unlock()
	if c.sub != nil {
		c.closeSubLocked()
	}
}

func (c *Channel) closeSubLocked() {
	if err := c.sub.Close(); err != nil {
		c.logger.Warnf(context.Background(), "registry: close subscription %s: %v", c.name, err)
	}
	c.sub = nil
	c.logger.Debugf(context.Background(), "registry: channel %s unsubscribed", c.name)
}

// deliver fans env out to a snapshot of the listeners, in registration order.
func (c *Channel) deliver(env realtime.Envelope) {
	c.lMu.RLock()
	snapshot := make([]listener, len(c.listeners))
	copy(snapshot, c.listeners)
	c.lMu.RUnlock()

	for _, l := range snapshot {
		c.invoke(l, env)
	}
}

func (c *Channel) invoke(l listener, env realtime.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf(context.Background(), "registry: listener on %s panicked: %v", c.name, fmt.Sprint(r))
		}
	}()
	l.fn(env)
}
