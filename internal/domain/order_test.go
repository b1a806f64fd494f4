package domain

import (
	"errors"
	"testing"
	"time"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusReceived, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusOutForDelivery, true},
		{OrderStatusOutForDelivery, OrderStatusDelivered, true},
		{OrderStatusReceived, OrderStatusReceived, false},
		{OrderStatusReceived, OrderStatusOutForDelivery, false},
		{OrderStatusReceived, OrderStatusDelivered, false},
		{OrderStatusPreparing, OrderStatusReceived, false},
		{OrderStatusDelivered, OrderStatusDelivered, false},
		{OrderStatusDelivered, OrderStatusReceived, false},
		{OrderStatus("cancelled"), OrderStatusReceived, false},
		{OrderStatusReceived, OrderStatus("cancelled"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestOrderStatus_Next(t *testing.T) {
	next, ok := OrderStatusReceived.Next()
	if !ok || next != OrderStatusPreparing {
		t.Errorf("expected PREPARING, got %q (ok=%v)", next, ok)
	}

	if _, ok := OrderStatusDelivered.Next(); ok {
		t.Error("expected DELIVERED to have no next status")
	}
	if !OrderStatusDelivered.Terminal() {
		t.Error("expected DELIVERED to be terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("preparing"); err == nil {
		t.Error("expected lowercase label to be rejected")
	}
	s, err := ParseOrderStatus("OUT_FOR_DELIVERY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != OrderStatusOutForDelivery {
		t.Errorf("expected OUT_FOR_DELIVERY, got %s", s)
	}
}

func TestNonTerminalStatuses(t *testing.T) {
	got := NonTerminalStatuses()
	if len(got) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(got))
	}
	for _, s := range got {
		if s.Terminal() {
			t.Errorf("unexpected terminal status %s", s)
		}
	}
}

func TestOrder_Clone(t *testing.T) {
	o := &Order{ID: "o-1", Items: []OrderLine{{MenuItemID: "m-1", Quantity: 1, UnitPrice: 100}}}
	c := o.Clone()
	c.Items[0].Quantity = 5

	if o.Items[0].Quantity != 1 {
		t.Error("expected clone to not alias items")
	}
}

func TestSumLines(t *testing.T) {
	lines := []OrderLine{
		{Quantity: 2, UnitPrice: 1299},
		{Quantity: 3, UnitPrice: 499},
	}
	if got := SumLines(lines); got != 2*1299+3*499 {
		t.Errorf("unexpected total %d", got)
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	order := &Order{ID: "o-1", Status: OrderStatusPreparing}
	env := EnvelopeOf(OrderStatusChanged{Order: order, Previous: OrderStatusReceived, At: at})

	if env.OrderID != "o-1" || env.PreviousStatus != OrderStatusReceived {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	evt, err := env.Event()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changed, ok := evt.(OrderStatusChanged)
	if !ok {
		t.Fatalf("expected OrderStatusChanged, got %T", evt)
	}
	if changed.Previous != OrderStatusReceived || !changed.At.Equal(at) {
		t.Errorf("unexpected event: %+v", changed)
	}
}

func TestDecodeEvent_Rejects(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":"order_created"}`)); err == nil {
		t.Error("expected error for envelope without order")
	}
	if _, err := DecodeEvent([]byte(`{"type":"order_deleted","order":{"id":"x"}}`)); err == nil {
		t.Error("expected error for unknown event type")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestErrors_Is(t *testing.T) {
	var err error = &NotFoundError{Resource: "order", ID: "x"}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected NotFoundError to match ErrNotFound")
	}
	err = &InvalidTransitionError{From: OrderStatusReceived, To: OrderStatusDelivered}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("expected InvalidTransitionError to match ErrInvalidTransition")
	}
	if err.Error() != "invalid status transition from RECEIVED to DELIVERED" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	err = NewValidationError("items", "at least one item is required")
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ValidationError to match ErrValidation")
	}
}
