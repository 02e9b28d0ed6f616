package realtime

import "context"

// Transport is the pub/sub capability supplied by the realtime backend.
type Transport interface {
	// Subscribe opens one subscription for channel and returns once the backend
	// has confirmed it. deliver is called sequentially, in transport order.
	Subscribe(ctx context.Context, channel string, deliver func(Envelope)) (Subscription, error)
	// Publish sends env to every subscriber of channel.
	Publish(ctx context.Context, channel string, env Envelope) error
	Close() error
}

// Subscription is a live transport subscription.
type Subscription interface {
	Status() Status
	Close() error
}

// Handler reacts to a dispatched event, typically by triggering a refetch.
type Handler func(ctx context.Context, ev Event) error
