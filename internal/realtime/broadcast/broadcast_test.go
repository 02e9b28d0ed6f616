package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/channelname"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/internal/realtime/transport/memory"
	"farmstand-realtime/pkg/log"
)

type fixture struct {
	bus    *memory.Transport
	gen    channelname.Generator
	reg    *registry.Registry
	helper *Helper
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	bus := memory.New(log.NewNop(), 16)
	t.Cleanup(func() { bus.Close() })
	gen := channelname.New(channelname.Config{Secret: "test-secret"})
	reg := registry.New(bus, log.NewNop())
	return fixture{
		bus:    bus,
		gen:    gen,
		reg:    reg,
		helper: New(gen, reg, log.NewNop(), Options{SourceRole: "server"}),
	}
}

func (f fixture) listen(t *testing.T, d realtime.ChannelDescriptor) <-chan realtime.Envelope {
	t.Helper()
	name, err := f.gen.GenerateFor(d)
	require.NoError(t, err)
	out := make(chan realtime.Envelope, 8)
	_, err = f.bus.Subscribe(context.Background(), name, func(env realtime.Envelope) { out <- env })
	require.NoError(t, err)
	return out
}

func receive(t *testing.T, ch <-chan realtime.Envelope) realtime.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope received")
		return realtime.Envelope{}
	}
}

func TestSendCartUpdate(t *testing.T) {
	f := newFixture(t)
	recv := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindCart, Scope: realtime.ScopeUser, SubjectID: "user-42"})

	err := f.helper.SendCartUpdate(context.Background(), "user-42", realtime.EventCartItemAdded, realtime.CartPayload{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	env := receive(t, recv)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, realtime.EnvelopeTypeBroadcast, env.Type)
	assert.Equal(t, "item-added", env.Event)
	assert.Equal(t, realtime.KindCart, env.Resource)
	assert.Equal(t, "server", env.SourceRole)
	assert.False(t, env.SentAt.IsZero())

	var p realtime.CartPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "p1", p.ProductID)
	assert.Equal(t, "user-42", p.UserID)

	// handle is released once the publish is done
	assert.Equal(t, 0, f.reg.Len())
}

func TestSendCartUpdateRequiresUser(t *testing.T) {
	f := newFixture(t)
	err := f.helper.SendCartUpdate(context.Background(), "", realtime.EventCartItemAdded, realtime.CartPayload{})
	assert.ErrorIs(t, err, realtime.ErrValidation)
}

func TestSendOrderUpdateReachesStaffAndCustomer(t *testing.T) {
	f := newFixture(t)
	staff := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindOrder, Scope: realtime.ScopeAdmin})
	customer := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindOrder, Scope: realtime.ScopeUser, SubjectID: "u1"})
	other := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindOrder, Scope: realtime.ScopeUser, SubjectID: "u2"})

	err := f.helper.SendOrderUpdate(context.Background(), realtime.EventOrderStatusChanged, realtime.OrderPayload{
		OrderID: "o1", UserID: "u1", Status: "ready", PreviousStatus: "preparing",
	})
	require.NoError(t, err)

	assert.Equal(t, "order-status-changed", receive(t, staff).Event)
	assert.Equal(t, "order-status-changed", receive(t, customer).Event)
	assert.Len(t, other, 0)
}

func TestSendOrderUpdateWithoutCustomer(t *testing.T) {
	f := newFixture(t)
	staff := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindOrder, Scope: realtime.ScopeAdmin})

	require.NoError(t, f.helper.SendOrderUpdate(context.Background(), realtime.EventOrderCreated, realtime.OrderPayload{OrderID: "o2"}))
	assert.Equal(t, "order-created", receive(t, staff).Event)
}

func TestSendProductUpdate(t *testing.T) {
	f := newFixture(t)
	recv := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindProduct, Scope: realtime.ScopeGlobal})

	require.NoError(t, f.helper.SendProductUpdate(context.Background(), realtime.EventStockChanged, realtime.ProductPayload{ProductID: "p1", Stock: 3, Available: true}))
	env := receive(t, recv)
	assert.Equal(t, realtime.KindProduct, env.Resource)
	assert.JSONEq(t, `{"productId":"p1","stock":3,"available":true}`, string(env.Payload))
}

func TestSendDashboardUpdate(t *testing.T) {
	f := newFixture(t)
	recv := f.listen(t, realtime.ChannelDescriptor{Kind: realtime.KindInventory, Scope: realtime.ScopeAdmin})

	require.NoError(t, f.helper.SendDashboardUpdate(context.Background(), realtime.KindInventory, realtime.EventMetricsUpdated, realtime.DashboardPayload{Metric: "low_stock", Value: 4}))
	assert.Equal(t, realtime.KindInventory, receive(t, recv).Resource)

	err := f.helper.SendDashboardUpdate(context.Background(), realtime.KindCart, realtime.EventMetricsUpdated, realtime.DashboardPayload{})
	assert.ErrorIs(t, err, realtime.ErrValidation)
}

func TestEmptyEventName(t *testing.T) {
	f := newFixture(t)
	err := f.helper.SendProductUpdate(context.Background(), "", realtime.ProductPayload{ProductID: "p1"})
	var verr *realtime.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "event", verr.Field)
}

func TestUnconfiguredSecret(t *testing.T) {
	bus := memory.New(log.NewNop(), 0)
	defer bus.Close()
	h := New(channelname.New(channelname.Config{}), registry.New(bus, log.NewNop()), log.NewNop(), Options{})

	err := h.SendProductUpdate(context.Background(), realtime.EventProductCreated, realtime.ProductPayload{ProductID: "p1"})
	assert.ErrorIs(t, err, realtime.ErrConfiguration)
}

func TestTransportFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bus.Close())

	err := f.helper.SendOrderUpdate(context.Background(), realtime.EventOrderCreated, realtime.OrderPayload{OrderID: "o1", UserID: "u1"})
	assert.ErrorIs(t, err, realtime.ErrTransport)
	assert.Equal(t, 0, f.reg.Len())
}
