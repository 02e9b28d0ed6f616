package coordinator

import (
	"context"
	"fmt"
	"time"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/registry"
)

// listener decodes envelopes for one (role, channel) pair and queues them.
func (c *Coordinator) listener(role realtime.Role, channel string) registry.Listener {
	return func(env realtime.Envelope) {
		ev, err := realtime.DecodeEvent(env)
		if err != nil {
			c.deps.Logger.Warnf(context.Background(), "coordinator: undecodable event on %s: %v", channel, err)
			return
		}

		c.mu.Lock()
		queue, stop := c.queue, c.stop
		running := c.state != StateStopped
		c.mu.Unlock()
		if !running {
			return
		}

		select {
		case queue <- dispatchItem{role: role, channel: channel, event: ev}:
		case <-stop:
		default:
			c.dropped.Add(1)
			c.deps.Logger.Warnf(context.Background(), "coordinator: queue full, dropped %s on %s", env.Event, channel)
		}
	}
}

func (c *Coordinator) run(ctx context.Context, queue <-chan dispatchItem, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.opts.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.notifyIfChanged()
		case it := <-queue:
			select {
			case <-stop:
				return
			default:
			}
			c.dispatch(ctx, it, stop)
		}
	}
}

// dispatch runs every handler of the role in order, each to completion.
func (c *Coordinator) dispatch(ctx context.Context, it dispatchItem, stop <-chan struct{}) {
	c.mu.Lock()
	hs := append([]handlerEntry(nil), c.handlers[it.role]...)
	c.mu.Unlock()

	for _, h := range hs {
		select {
		case <-stop:
			return
		default:
		}
		if err := c.invoke(ctx, h.fn, it.event); err != nil {
			herr := realtime.HandlerError{
				Role:    it.role,
				Channel: it.channel,
				Event:   it.event.Meta().Name,
				Err:     err,
				At:      time.Now(),
			}
			if p, ok := err.(panicError); ok {
				herr.Panic = true
				herr.Err = p
			}
			c.errs.add(herr)
			c.deps.Logger.Warnf(ctx, "coordinator: %v", &herr)
		}
	}
}

type panicError struct{ value any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func (c *Coordinator) invoke(ctx context.Context, h realtime.Handler, ev realtime.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return h(ctx, ev)
}
