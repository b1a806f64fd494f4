package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

func TestTransition(t *testing.T) {
	ctx := context.Background()

	newOrder := func(t *testing.T, store *MemoryStore) *domain.Order {
		t.Helper()
		order := &domain.Order{Status: domain.OrderStatusReceived}
		if err := store.Create(ctx, order); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return order
	}

	t.Run("forward one stage succeeds", func(t *testing.T) {
		store := NewMemoryStore()
		order := newOrder(t, store)

		updated, err := Transition(ctx, store, order, domain.OrderStatusPreparing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != domain.OrderStatusPreparing {
			t.Errorf("expected PREPARING, got %s", updated.Status)
		}
		if !updated.UpdatedAt.After(order.UpdatedAt) {
			t.Error("expected updated_at to move forward")
		}
	})

	t.Run("skips and repeats are rejected without writing", func(t *testing.T) {
		store := NewMemoryStore()
		order := newOrder(t, store)

		for _, to := range []domain.OrderStatus{
			domain.OrderStatusReceived,
			domain.OrderStatusOutForDelivery,
			domain.OrderStatusDelivered,
		} {
			_, err := Transition(ctx, store, order, to)
			var invalid *domain.InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("%s: expected InvalidTransitionError, got %v", to, err)
			}
			if invalid.From != domain.OrderStatusReceived || invalid.To != to {
				t.Errorf("unexpected error detail: %+v", invalid)
			}
		}

		stored, _ := store.GetByID(ctx, order.ID)
		if stored.Status != domain.OrderStatusReceived || !stored.UpdatedAt.Equal(order.UpdatedAt) {
			t.Errorf("expected untouched order, got %+v", stored)
		}
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		store := NewMemoryStore()
		order := newOrder(t, store)
		for _, to := range []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered} {
			var err error
			if order, err = Transition(ctx, store, order, to); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		for _, to := range []domain.OrderStatus{domain.OrderStatusReceived, domain.OrderStatusDelivered} {
			if _, err := Transition(ctx, store, order, to); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("%s: expected ErrInvalidTransition, got %v", to, err)
			}
		}
	})

	t.Run("stale snapshot surfaces a conflict", func(t *testing.T) {
		store := NewMemoryStore()
		order := newOrder(t, store)
		if _, err := Transition(ctx, store, order, domain.OrderStatusPreparing); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := Transition(ctx, store, order, domain.OrderStatusPreparing); !errors.Is(err, ErrStatusConflict) {
			t.Errorf("expected ErrStatusConflict, got %v", err)
		}
	})

	t.Run("missing order is not found", func(t *testing.T) {
		store := NewMemoryStore()
		ghost := &domain.Order{ID: "ghost", Status: domain.OrderStatusReceived}

		if _, err := Transition(ctx, store, ghost, domain.OrderStatusPreparing); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
