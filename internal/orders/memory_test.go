package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotency key is unique but empty keys never collide", func(t *testing.T) {
		store := NewMemoryStore()

		if err := store.Create(ctx, &domain.Order{IdempotencyKey: "k"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Create(ctx, &domain.Order{IdempotencyKey: "k"}); !errors.Is(err, ErrDuplicateIdempotencyKey) {
			t.Errorf("expected ErrDuplicateIdempotencyKey, got %v", err)
		}
		for range 2 {
			if err := store.Create(ctx, &domain.Order{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		all, _ := store.List(ctx, "")
		if len(all) != 3 {
			t.Errorf("expected 3 orders, got %d", len(all))
		}
	})

	t.Run("timestamps are strictly increasing with a frozen clock", func(t *testing.T) {
		frozen := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		store := NewMemoryStore(WithStoreClock(func() time.Time { return frozen }))

		a := &domain.Order{Status: domain.OrderStatusReceived}
		b := &domain.Order{Status: domain.OrderStatusReceived}
		_ = store.Create(ctx, a)
		_ = store.Create(ctx, b)

		if !b.CreatedAt.After(a.CreatedAt) {
			t.Errorf("expected %s after %s", b.CreatedAt, a.CreatedAt)
		}

		updated, err := store.UpdateStatus(ctx, a.ID, domain.OrderStatusReceived, domain.OrderStatusPreparing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated.UpdatedAt.After(b.UpdatedAt) {
			t.Error("expected update to be the most recent change")
		}
	})

	t.Run("reads are copies", func(t *testing.T) {
		store := NewMemoryStore()
		order := &domain.Order{Items: []domain.OrderLine{{Quantity: 1}}}
		_ = store.Create(ctx, order)

		order.Items[0].Quantity = 50
		got, _ := store.GetByID(ctx, order.ID)
		got.Items[0].Quantity = 60

		again, _ := store.GetByID(ctx, order.ID)
		if again.Items[0].Quantity != 1 {
			t.Errorf("expected stored quantity 1, got %d", again.Items[0].Quantity)
		}
	})

	t.Run("missing order reads as nil", func(t *testing.T) {
		store := NewMemoryStore()

		got, err := store.GetByID(ctx, "nope")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
		updated, err := store.UpdateStatus(ctx, "nope", domain.OrderStatusReceived, domain.OrderStatusPreparing)
		if err != nil || updated != nil {
			t.Errorf("expected nil, nil; got %v, %v", updated, err)
		}
	})

	t.Run("list active is oldest first and skips delivered", func(t *testing.T) {
		store := NewMemoryStore()
		first := &domain.Order{Status: domain.OrderStatusPreparing}
		done := &domain.Order{Status: domain.OrderStatusDelivered}
		last := &domain.Order{Status: domain.OrderStatusReceived}
		for _, o := range []*domain.Order{first, done, last} {
			_ = store.Create(ctx, o)
		}

		active, _ := store.ListActive(ctx, 10)
		if len(active) != 2 || active[0].ID != first.ID || active[1].ID != last.ID {
			t.Errorf("unexpected active orders: %+v", active)
		}

		limited, _ := store.ListActive(ctx, 1)
		if len(limited) != 1 || limited[0].ID != first.ID {
			t.Errorf("expected only the oldest order, got %+v", limited)
		}
	})
}
