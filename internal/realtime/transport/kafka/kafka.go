// Package kafka carries realtime envelopes over a single Kafka topic. The
// channel name is the message key; every process reads the whole topic with
// its own consumer group and fans out locally.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/transport/memory"
	"farmstand-realtime/pkg/log"
)

const (
	defaultMaxWait    = 500 * time.Millisecond
	defaultRetryDelay = 500 * time.Millisecond
)

var (
	ErrNoBrokers = errors.New("kafka transport: brokers list is empty")
	ErrNoTopic   = errors.New("kafka transport: topic is required")
)

type Config struct {
	Brokers     []string
	Topic       string
	GroupPrefix string
	MaxWait     time.Duration
	Buffer      int
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Transport implements realtime.Transport on Kafka.
type Transport struct {
	cfg     Config
	groupID string
	logger  log.Logger

	writer    messageWriter
	newReader func() messageReader
	local     *memory.Transport

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	healthy   atomic.Bool
	closed    atomic.Bool
}

// New validates cfg and prepares the writer. The reader is created on the
// first Subscribe.
func New(cfg Config, logger log.Logger) (*Transport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "farmstand-realtime"
	}

	t := &Transport{
		cfg:     cfg,
		groupID: fmt.Sprintf("%s-%s", cfg.GroupPrefix, uuid.NewString()),
		logger:  logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		local: memory.New(logger, cfg.Buffer),
		done:  make(chan struct{}),
	}
	t.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     t.cfg.Brokers,
			Topic:       t.cfg.Topic,
			GroupID:     t.groupID,
			StartOffset: kafka.LastOffset,
			MaxWait:     t.cfg.MaxWait,
		})
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t, nil
}

// GroupID is the consumer group this process reads with.
func (t *Transport) GroupID() string { return t.groupID }

// Ping dials the brokers until one answers.
func (t *Transport) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range t.cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return realtime.NewTransportError(t.cfg.Topic, "ping", lastErr)
}

func (t *Transport) Subscribe(ctx context.Context, channel string, deliver func(realtime.Envelope)) (realtime.Subscription, error) {
	if t.closed.Load() {
		return nil, realtime.ErrTransportClosed
	}
	t.startOnce.Do(t.start)

	inner, err := t.local.Subscribe(ctx, channel, deliver)
	if err != nil {
		return nil, realtime.NewTransportError(channel, "subscribe", err)
	}
	return &subscription{Subscription: inner, transport: t}, nil
}

func (t *Transport) Publish(ctx context.Context, channel string, env realtime.Envelope) error {
	if t.closed.Load() {
		return realtime.ErrTransportClosed
	}
	data, err := env.Marshal()
	if err != nil {
		return realtime.NewTransportError(channel, "publish", err)
	}
	msg := kafka.Message{Key: []byte(channel), Value: data, Time: env.SentAt}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return realtime.NewTransportError(channel, "publish", err)
	}
	return nil
}

func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()
	// never started: nothing will close done for us
	t.startOnce.Do(func() { close(t.done) })
	<-t.done

	var errs []error
	if err := t.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.local.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t *Transport) start() {
	t.healthy.Store(true)
	go t.consume(t.newReader())
}

func (t *Transport) consume(reader messageReader) {
	defer close(t.done)
	defer reader.Close()

	t.logger.Infof(t.ctx, "kafka transport: consuming %s as group %s", t.cfg.Topic, t.groupID)
	for {
		msg, err := reader.ReadMessage(t.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || t.ctx.Err() != nil {
				return
			}
			if t.healthy.Swap(false) {
				t.logger.Warnf(t.ctx, "kafka transport: read failed: %v", err)
			}
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(defaultRetryDelay):
			}
			continue
		}
		if !t.healthy.Swap(true) {
			t.logger.Infof(t.ctx, "kafka transport: reader recovered")
		}
		t.handleMessage(msg)
	}
}

func (t *Transport) handleMessage(msg kafka.Message) {
	channel := string(msg.Key)
	if channel == "" {
		return
	}
	env, err := realtime.UnmarshalEnvelope(msg.Value)
	if err != nil {
		t.logger.Warnf(t.ctx, "kafka transport: dropping message on %s: %v", channel, err)
		return
	}
	if err := t.local.Deliver(t.ctx, channel, env); err != nil && t.ctx.Err() == nil {
		t.logger.Warnf(t.ctx, "kafka transport: local delivery on %s: %v", channel, err)
	}
}

// subscription reports errored while the shared reader is failing.
type subscription struct {
	realtime.Subscription
	transport *Transport
}

func (s *subscription) Status() realtime.Status {
	st := s.Subscription.Status()
	if st == realtime.StatusSubscribed && !s.transport.healthy.Load() {
		return realtime.StatusErrored
	}
	return st
}
