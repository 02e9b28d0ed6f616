// Package redis carries realtime envelopes over Redis pub/sub, one SUBSCRIBE
// per channel name.
package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/pkg/log"
)

const (
	defaultHealthCheckInterval = 5 * time.Second
	defaultHealthCheckTimeout  = 2 * time.Second
)

// Transport implements realtime.Transport on top of a go-redis client.
type Transport struct {
	client      goredis.UniversalClient
	logger      log.Logger
	checkEvery  time.Duration
	checkWithin time.Duration

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

// Option tunes a Transport.
type Option func(*Transport)

// WithHealthCheckInterval sets how often each subscription pings its
// connection. A failed ping marks the subscription errored until a later
// ping succeeds.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.checkEvery = d
		}
	}
}

// WithHealthCheckTimeout bounds a single ping.
func WithHealthCheckTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.checkWithin = d
		}
	}
}

func New(client goredis.UniversalClient, logger log.Logger, opts ...Option) *Transport {
	t := &Transport{
		client:      client,
		logger:      logger,
		checkEvery:  defaultHealthCheckInterval,
		checkWithin: defaultHealthCheckTimeout,
		subs:        make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe issues SUBSCRIBE and waits for the confirmation before starting
// the reader goroutine.
func (t *Transport) Subscribe(ctx context.Context, channel string, deliver func(realtime.Envelope)) (realtime.Subscription, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, realtime.ErrTransportClosed
	}

	pubsub := t.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, realtime.NewTransportError(channel, "subscribe", err)
	}

	sub := &subscription{
		transport: t,
		channel:   channel,
		pubsub:    pubsub,
		done:      make(chan struct{}),
	}
	sub.status.Store(realtime.StatusSubscribed)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		pubsub.Close()
		return nil, realtime.ErrTransportClosed
	}
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	go sub.listen(deliver)
	go sub.watch(t.checkEvery, t.checkWithin)

	t.logger.Debugf(ctx, "redis transport: subscribed to %s", channel)
	return sub, nil
}

// Publish sends the JSON-encoded envelope with PUBLISH.
func (t *Transport) Publish(ctx context.Context, channel string, env realtime.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return realtime.NewTransportError(channel, "publish", err)
	}
	if err := t.client.Publish(ctx, channel, data).Err(); err != nil {
		return realtime.NewTransportError(channel, "publish", err)
	}
	return nil
}

// Close closes every open subscription. The client itself is owned by the caller.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	subs := make([]*subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}

func (t *Transport) forget(s *subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, s)
}

type subscription struct {
	transport *Transport
	channel   string
	pubsub    *goredis.PubSub

	status atomic.Value
	once   sync.Once
	done   chan struct{}
}

func (s *subscription) Status() realtime.Status {
	return s.status.Load().(realtime.Status)
}

// Close unsubscribes. A delivery already in flight may still complete.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.status.Store(realtime.StatusClosed)
		close(s.done)
		err = s.pubsub.Close()
		s.transport.forget(s)
	})
	return err
}

// watch pings the subscription connection on every tick. go-redis drops a
// broken connection and redials on the next command, resubscribing as it
// does, so a ping error means the channel is offline and the first good
// ping after it means it is back.
func (s *subscription) watch(every, within time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), within)
		err := s.pubsub.Ping(ctx)
		cancel()

		if err != nil {
			if s.status.CompareAndSwap(realtime.StatusSubscribed, realtime.StatusErrored) {
				s.transport.logger.Errorf(ctx, "redis transport: %s lost its connection: %v", s.channel, err)
			}
			continue
		}
		if s.status.CompareAndSwap(realtime.StatusErrored, realtime.StatusSubscribed) {
			s.transport.logger.Infof(ctx, "redis transport: %s resubscribed", s.channel)
		}
	}
}

func (s *subscription) listen(deliver func(realtime.Envelope)) {
	ctx := context.Background()
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				select {
				case <-s.done:
				default:
					s.status.Store(realtime.StatusErrored)
					s.transport.logger.Errorf(ctx, "redis transport: pub/sub channel for %s closed unexpectedly", s.channel)
				}
				return
			}

			env, err := realtime.UnmarshalEnvelope([]byte(msg.Payload))
			if err != nil {
				s.transport.logger.Warnf(ctx, "redis transport: dropping message on %s: %v", s.channel, err)
				continue
			}
			deliver(env)
		}
	}
}
