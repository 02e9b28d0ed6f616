package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/pkg/log"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader replays whatever is pushed into msgs, or errs while failing is set.
type fakeReader struct {
	msgs    chan kafka.Message
	failing chan error
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan kafka.Message, 16), failing: make(chan error, 1)}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case err := <-r.failing:
		return kafka.Message{}, err
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) Close() error { return nil }

func newTestTransport(t *testing.T) (*Transport, *fakeWriter, *fakeReader) {
	t.Helper()
	tr, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "realtime"}, log.NewNop())
	require.NoError(t, err)
	w := &fakeWriter{}
	r := newFakeReader()
	tr.writer = w
	tr.newReader = func() messageReader { return r }
	t.Cleanup(func() { tr.Close() })
	return tr, w, r
}

func envelope(event string) realtime.Envelope {
	return realtime.Envelope{
		ID:       "e-" + event,
		Type:     realtime.EnvelopeTypeBroadcast,
		Event:    event,
		Resource: realtime.KindProduct,
		Payload:  json.RawMessage(`{"productId":"p1"}`),
		SentAt:   time.Now().UTC(),
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Topic: "t"}, log.NewNop())
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = New(Config{Brokers: []string{"b:9092"}}, log.NewNop())
	assert.ErrorIs(t, err, ErrNoTopic)
}

func TestGroupIDIsPerProcess(t *testing.T) {
	a, err := New(Config{Brokers: []string{"b:9092"}, Topic: "t", GroupPrefix: "rt"}, log.NewNop())
	require.NoError(t, err)
	b, err := New(Config{Brokers: []string{"b:9092"}, Topic: "t", GroupPrefix: "rt"}, log.NewNop())
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	assert.Contains(t, a.GroupID(), "rt-")
	assert.NotEqual(t, a.GroupID(), b.GroupID())
}

func TestPublishKeysByChannel(t *testing.T) {
	tr, w, _ := newTestTransport(t)

	require.NoError(t, tr.Publish(context.Background(), "sec-product-global-x", envelope("stock-changed")))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "sec-product-global-x", string(w.msgs[0].Key))

	env, err := realtime.UnmarshalEnvelope(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "stock-changed", env.Event)

	w.err = errors.New("leader not available")
	err = tr.Publish(context.Background(), "sec-product-global-x", envelope("stock-changed"))
	assert.ErrorIs(t, err, realtime.ErrTransport)
}

func TestConsumedMessagesFanOutByKey(t *testing.T) {
	tr, _, r := newTestTransport(t)
	ctx := context.Background()

	recv := make(chan realtime.Envelope, 4)
	sub, err := tr.Subscribe(ctx, "a", func(env realtime.Envelope) { recv <- env })
	require.NoError(t, err)
	assert.Equal(t, realtime.StatusSubscribed, sub.Status())

	good, _ := envelope("product-updated").Marshal()
	r.msgs <- kafka.Message{Key: []byte("b"), Value: good}
	r.msgs <- kafka.Message{Key: []byte("a"), Value: []byte("garbage")}
	r.msgs <- kafka.Message{Key: []byte("a"), Value: good}

	select {
	case env := <-recv:
		assert.Equal(t, "product-updated", env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	assert.Len(t, recv, 0)
}

func TestReaderFailureMarksSubscriptionsErrored(t *testing.T) {
	tr, _, r := newTestTransport(t)

	sub, err := tr.Subscribe(context.Background(), "a", func(realtime.Envelope) {})
	require.NoError(t, err)

	r.failing <- errors.New("broker gone")
	assert.Eventually(t, func() bool { return sub.Status() == realtime.StatusErrored }, time.Second, 5*time.Millisecond)

	good, _ := envelope("product-updated").Marshal()
	r.msgs <- kafka.Message{Key: []byte("a"), Value: good}
	assert.Eventually(t, func() bool { return sub.Status() == realtime.StatusSubscribed }, 2*time.Second, 5*time.Millisecond)
}

func TestCloseWithoutSubscribe(t *testing.T) {
	tr, err := New(Config{Brokers: []string{"b:9092"}, Topic: "t"}, log.NewNop())
	require.NoError(t, err)
	tr.writer = &fakeWriter{}

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.Subscribe(context.Background(), "a", func(realtime.Envelope) {})
	assert.ErrorIs(t, err, realtime.ErrTransportClosed)
}

func TestPingUnreachableBroker(t *testing.T) {
	tr, err := New(Config{Brokers: []string{"127.0.0.1:1"}, Topic: "realtime"}, log.NewNop())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = tr.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, realtime.ErrTransport)
}
