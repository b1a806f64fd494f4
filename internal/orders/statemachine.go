package orders

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// StatusWriter is the store capability the state machine needs.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
}

// Transition moves order to requested if requested is exactly the next
// lifecycle stage, and persists it. It does not publish anything.
//
// A concurrent change of the stored status surfaces as ErrStatusConflict.
func Transition(ctx context.Context, store StatusWriter, order *domain.Order, requested domain.OrderStatus) (*domain.Order, error) {
	if !order.Status.CanTransitionTo(requested) {
		return nil, &domain.InvalidTransitionError{From: order.Status, To: requested}
	}

	updated, err := store.UpdateStatus(ctx, order.ID, order.Status, requested)
	if err != nil {
		return nil, fmt.Errorf("update status of order %s: %w", order.ID, err)
	}
	if updated == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: order.ID}
	}

	return updated, nil
}
