// Package coordinator runs the realtime session of one client: it attaches
// the channels of each subscribed role and dispatches decoded events to the
// role's handlers, one at a time, in registration order.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"

	"farmstand-realtime/internal/realtime"
)

// Coordinator is safe for concurrent use. Handlers must not call Stop
// synchronously; run it on another goroutine instead.
type Coordinator struct {
	deps Deps
	opts Options

	// lifecycle serialises Start, Stop and channel attachment.
	lifecycle sync.Mutex

	mu        sync.Mutex
	state     State
	handlers  map[realtime.Role][]handlerEntry
	roles     []realtime.Role
	attached  map[realtime.Role][]*attachment
	nextID    uint64
	connected bool

	queue chan dispatchItem
	stop  chan struct{}
	done  chan struct{}

	errs    *errorLog
	dropped atomic.Int64
}

func New(deps Deps, opts Options) *Coordinator {
	if opts.ErrorLogSize <= 0 {
		opts.ErrorLogSize = defaultErrorLogSize
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaultStatusInterval
	}
	return &Coordinator{
		deps:     deps,
		opts:     opts,
		state:    StateStopped,
		handlers: make(map[realtime.Role][]handlerEntry),
		attached: make(map[realtime.Role][]*attachment),
		errs:     newErrorLog(opts.ErrorLogSize),
	}
}

// Subscribe registers h for role. While running, the role's channels are
// attached right away if they are not already.
func (c *Coordinator) Subscribe(ctx context.Context, role realtime.Role, h realtime.Handler) (func(), error) {
	if !role.IsValid() {
		return nil, &realtime.ValidationError{Field: "role", Message: "unknown role \"" + string(role) + "\""}
	}
	if h == nil {
		return nil, &realtime.ValidationError{Field: "handler", Message: "must not be nil"}
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if _, ok := c.handlers[role]; !ok {
		c.roles = append(c.roles, role)
	}
	c.handlers[role] = append(c.handlers[role], handlerEntry{id: id, fn: h})
	needsAttach := c.state == StateRunning && len(c.attached[role]) == 0
	c.mu.Unlock()

	if needsAttach {
		targets, err := c.resolve(role)
		if err != nil {
			c.removeHandler(role, id)
			return nil, err
		}
		c.attach(ctx, role, targets)
		c.notifyIfChanged()
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(role, id) })
	}, nil
}

// Start attaches every subscribed role. A missing secret or an invalid
// descriptor fails before anything is subscribed. Subscribe failures are
// reported through Status, not returned. Starting a running coordinator is a
// no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state != StateStopped {
		c.mu.Unlock()
		return nil
	}
	roles := append([]realtime.Role(nil), c.roles...)
	c.mu.Unlock()

	if err := c.deps.Generator.Ready(); err != nil {
		c.deps.Logger.Errorf(ctx, "coordinator: cannot start: %v", err)
		return err
	}

	resolved := make(map[realtime.Role][]target, len(roles))
	for _, role := range roles {
		targets, err := c.resolve(role)
		if err != nil {
			return err
		}
		resolved[role] = targets
	}

	c.mu.Lock()
	c.state = StateStarting
	c.queue = make(chan dispatchItem, c.opts.QueueSize)
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	queue, stop, done := c.queue, c.stop, c.done
	c.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go c.run(runCtx, queue, stop, done)

	for _, role := range roles {
		c.attach(ctx, role, resolved[role])
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	c.deps.Logger.Infof(ctx, "coordinator: started with %d role(s)", len(roles))
	c.notifyIfChanged()
	return nil
}

// Stop detaches every channel and drops all handlers. Queued events are
// discarded; it returns once the handler in flight, if any, has returned.
// Calling Stop more than once is a no-op.
func (c *Coordinator) Stop() {
	c.lifecycle.Lock()

	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		c.lifecycle.Unlock()
		return
	}
	c.state = StateStopped
	close(c.stop)
	done := c.done
	attached := c.attached
	c.attached = make(map[realtime.Role][]*attachment)
	c.handlers = make(map[realtime.Role][]handlerEntry)
	c.roles = nil
	c.mu.Unlock()

	for _, atts := range attached {
		c.detach(atts)
	}
	c.lifecycle.Unlock()

	<-done
	c.deps.Logger.Debugf(context.Background(), "coordinator: stopped")
	c.notifyIfChanged()
}

// Errors returns the retained handler errors, oldest first.
func (c *Coordinator) Errors() []realtime.HandlerError {
	return c.errs.snapshot()
}

func (c *Coordinator) resolve(role realtime.Role) ([]target, error) {
	descs, err := realtime.DescriptorsForRole(role, c.opts.UserID)
	if err != nil {
		return nil, err
	}
	targets := make([]target, 0, len(descs))
	for _, d := range descs {
		name, err := c.deps.Generator.GenerateFor(d)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target{desc: d, name: name})
	}
	return targets, nil
}

// attach must be called with lifecycle held.
func (c *Coordinator) attach(ctx context.Context, role realtime.Role, targets []target) {
	atts := make([]*attachment, 0, len(targets))
	for _, t := range targets {
		ch := c.deps.Registry.Acquire(t.name)
		cancel, err := ch.Listen(ctx, c.listener(role, t.name))
		if err != nil {
			c.deps.Logger.Errorf(ctx, "coordinator: %s channel %s for role %s: %v", t.desc.Kind, t.desc.Scope, role, err)
		}
		atts = append(atts, &attachment{role: role, target: t, ch: ch, cancel: cancel, err: err})
	}

	c.mu.Lock()
	c.attached[role] = append(c.attached[role], atts...)
	c.mu.Unlock()
}

func (c *Coordinator) detach(atts []*attachment) {
	for _, a := range atts {
		if a.cancel != nil {
			a.cancel()
		}
		c.deps.Registry.Release(a.ch)
	}
}

func (c *Coordinator) unsubscribe(role realtime.Role, id uint64) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.removeHandler(role, id) > 0 {
		return
	}

	c.mu.Lock()
	atts := c.attached[role]
	delete(c.attached, role)
	c.mu.Unlock()

	if len(atts) > 0 {
		c.detach(atts)
		c.notifyIfChanged()
	}
}

// removeHandler reports how many handlers the role has left.
func (c *Coordinator) removeHandler(role realtime.Role, id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	hs := c.handlers[role]
	for i, h := range hs {
		if h.id == id {
			hs = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) > 0 {
		c.handlers[role] = hs
		return len(hs)
	}
	delete(c.handlers, role)
	for i, r := range c.roles {
		if r == role {
			c.roles = append(c.roles[:i:i], c.roles[i+1:]...)
			break
		}
	}
	return 0
}
