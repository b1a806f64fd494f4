package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// Event is a lifecycle event. The set of implementations is closed:
// OrderCreated and OrderStatusChanged.
type Event interface {
	Type() EventType
	OrderSnapshot() *Order
	OccurredAt() time.Time
	isEvent()
}

type OrderCreated struct {
	Order *Order
	At    time.Time
}

func (e OrderCreated) Type() EventType       { return EventOrderCreated }
func (e OrderCreated) OrderSnapshot() *Order { return e.Order }
func (e OrderCreated) OccurredAt() time.Time { return e.At }
func (OrderCreated) isEvent()                {}

type OrderStatusChanged struct {
	Order    *Order
	Previous OrderStatus
	At       time.Time
}

func (e OrderStatusChanged) Type() EventType       { return EventOrderStatusChanged }
func (e OrderStatusChanged) OrderSnapshot() *Order { return e.Order }
func (e OrderStatusChanged) OccurredAt() time.Time { return e.At }
func (OrderStatusChanged) isEvent()                {}

// Envelope is the wire form of an Event, shared by SSE, websocket and Kafka.
type Envelope struct {
	Type           EventType   `json:"type"`
	OrderID        string      `json:"order_id"`
	Order          *Order      `json:"order"`
	PreviousStatus OrderStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

func EnvelopeOf(evt Event) Envelope {
	env := Envelope{
		Type:       evt.Type(),
		Order:      evt.OrderSnapshot(),
		OccurredAt: evt.OccurredAt(),
	}
	if env.Order != nil {
		env.OrderID = env.Order.ID
	}
	if changed, ok := evt.(OrderStatusChanged); ok {
		env.PreviousStatus = changed.Previous
	}
	return env
}

// Event converts an envelope back into its typed variant.
func (e Envelope) Event() (Event, error) {
	switch e.Type {
	case EventOrderCreated:
		return OrderCreated{Order: e.Order, At: e.OccurredAt}, nil
	case EventOrderStatusChanged:
		return OrderStatusChanged{Order: e.Order, Previous: e.PreviousStatus, At: e.OccurredAt}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

func DecodeEvent(payload []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if env.Order == nil {
		return nil, fmt.Errorf("event %q carries no order", env.Type)
	}
	return env.Event()
}
