package realtime

import (
	"encoding/json"
	"time"
)

// Well-known event names. Any non-empty name is accepted on the wire.
const (
	EventCartItemAdded      = "item-added"
	EventCartItemRemoved    = "item-removed"
	EventCartItemUpdated    = "item-updated"
	EventCartCleared        = "cart-cleared"
	EventOrderCreated       = "order-created"
	EventOrderStatusChanged = "order-status-changed"
	EventOrderCancelled     = "order-cancelled"
	EventProductCreated     = "product-created"
	EventProductUpdated     = "product-updated"
	EventProductDeleted     = "product-deleted"
	EventStockChanged       = "stock-changed"
	EventMetricsUpdated     = "metrics-updated"
)

// --- Payload shapes ---

type CartPayload struct {
	UserID    string `json:"userId,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	ItemCount int    `json:"itemCount,omitempty"`
}

type OrderPayload struct {
	OrderID        string  `json:"orderId"`
	UserID         string  `json:"userId,omitempty"`
	Status         string  `json:"status,omitempty"`
	PreviousStatus string  `json:"previousStatus,omitempty"`
	Total          float64 `json:"total,omitempty"`
}

type ProductPayload struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Stock     int     `json:"stock"`
	Price     float64 `json:"price,omitempty"`
	Available bool    `json:"available"`
}

type DashboardPayload struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Window string  `json:"window,omitempty"`
}

// EventMeta is the envelope data shared by every event variant.
type EventMeta struct {
	ID         string
	Name       string
	Resource   Kind
	SourceRole string
	SentAt     time.Time
}

// Event is the closed set of decoded broadcast events.
type Event interface {
	Meta() EventMeta
	// RawPayload returns the payload as it was received.
	RawPayload() json.RawMessage
	sealed()
}

type baseEvent struct {
	meta EventMeta
	raw  json.RawMessage
}

func (b baseEvent) Meta() EventMeta             { return b.meta }
func (b baseEvent) RawPayload() json.RawMessage { return b.raw }
func (baseEvent) sealed()                       {}

type CartEvent struct {
	baseEvent
	Payload CartPayload
}

type OrderEvent struct {
	baseEvent
	Payload OrderPayload
}

type ProductEvent struct {
	baseEvent
	Payload ProductPayload
}

// DashboardEvent is delivered on the executive, inventory and marketing channels.
type DashboardEvent struct {
	baseEvent
	Payload DashboardPayload
}

// DecodeEvent turns an envelope into its typed variant.
func DecodeEvent(env Envelope) (Event, error) {
	base := baseEvent{
		meta: EventMeta{
			ID:         env.ID,
			Name:       env.Event,
			Resource:   env.Resource,
			SourceRole: env.SourceRole,
			SentAt:     env.SentAt,
		},
		raw: env.Payload,
	}

	switch {
	case env.Resource == KindCart:
		ev := CartEvent{baseEvent: base}
		if err := decodePayload(env.Payload, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case env.Resource == KindOrder:
		ev := OrderEvent{baseEvent: base}
		if err := decodePayload(env.Payload, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case env.Resource == KindProduct:
		ev := ProductEvent{baseEvent: base}
		if err := decodePayload(env.Payload, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case env.Resource.IsDashboard():
		ev := DashboardEvent{baseEvent: base}
		if err := decodePayload(env.Payload, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, newValidationError("resource", "unknown resource "+quote(string(env.Resource)))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newValidationError("payload", err.Error())
	}
	return nil
}
