// Package broadcast publishes typed change notifications onto the derived
// channel names.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/channelname"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/pkg/log"
)

type Options struct {
	// SourceRole is stamped on every envelope, e.g. "server" or "staff".
	SourceRole string
}

// Helper sends broadcast events. It is safe for concurrent use.
type Helper struct {
	gen    channelname.Generator
	reg    *registry.Registry
	logger log.Logger
	opts   Options
	now    func() time.Time
}

func New(gen channelname.Generator, reg *registry.Registry, logger log.Logger, opts Options) *Helper {
	return &Helper{
		gen:    gen,
		reg:    reg,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// SendCartUpdate notifies the owner of a cart.
func (h *Helper) SendCartUpdate(ctx context.Context, userID, event string, p realtime.CartPayload) error {
	if p.UserID == "" {
		p.UserID = userID
	}
	d := realtime.ChannelDescriptor{Kind: realtime.KindCart, Scope: realtime.ScopeUser, SubjectID: userID}
	return h.send(ctx, d, event, p)
}

// SendOrderUpdate notifies staff, and the customer when p.UserID is set.
// Both channels are attempted even if the first fails.
func (h *Helper) SendOrderUpdate(ctx context.Context, event string, p realtime.OrderPayload) error {
	targets := []realtime.ChannelDescriptor{
		{Kind: realtime.KindOrder, Scope: realtime.ScopeAdmin},
	}
	if p.UserID != "" {
		targets = append(targets, realtime.ChannelDescriptor{Kind: realtime.KindOrder, Scope: realtime.ScopeUser, SubjectID: p.UserID})
	}

	var errs []error
	for _, d := range targets {
		if err := h.send(ctx, d, event, p); err != nil {
			if !errors.Is(err, realtime.ErrTransport) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Helper) SendProductUpdate(ctx context.Context, event string, p realtime.ProductPayload) error {
	d := realtime.ChannelDescriptor{Kind: realtime.KindProduct, Scope: realtime.ScopeGlobal}
	return h.send(ctx, d, event, p)
}

// SendDashboardUpdate targets one of the admin dashboards.
func (h *Helper) SendDashboardUpdate(ctx context.Context, kind realtime.Kind, event string, p realtime.DashboardPayload) error {
	if !kind.IsDashboard() {
		return &realtime.ValidationError{Field: "kind", Message: string(kind) + " is not a dashboard kind"}
	}
	d := realtime.ChannelDescriptor{Kind: kind, Scope: realtime.ScopeAdmin}
	return h.send(ctx, d, event, p)
}

func (h *Helper) send(ctx context.Context, d realtime.ChannelDescriptor, event string, payload any) error {
	if event == "" {
		return &realtime.ValidationError{Field: "event", Message: "must not be empty"}
	}

	name, err := h.gen.GenerateFor(d)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return &realtime.ValidationError{Field: "payload", Message: err.Error()}
	}

	env := realtime.Envelope{
		ID:         uuid.NewString(),
		Type:       realtime.EnvelopeTypeBroadcast,
		Event:      event,
		Resource:   d.Kind,
		Payload:    raw,
		SourceRole: h.opts.SourceRole,
		SentAt:     h.now().UTC(),
	}

	ch := h.reg.Acquire(name)
	defer h.reg.Release(ch)

	if err := ch.Publish(ctx, env); err != nil {
		h.logger.Warnf(ctx, "broadcast: %s %s on %s failed: %v", d.Kind, event, d.Scope, err)
		return err
	}
	h.logger.Debugf(ctx, "broadcast: sent %s %s to %s", d.Kind, event, d.Scope)
	return nil
}
