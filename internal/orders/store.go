package orders

import (
	"context"
	"errors"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

var (
	// ErrDuplicateIdempotencyKey is returned by Store.Create when another
	// order already holds the idempotency key.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	// ErrStatusConflict is returned by Store.UpdateStatus when the stored
	// status no longer matches the expected one.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Store is the durable order store. Reads return nil, nil when the order does
// not exist. Every write is a single atomic document-level change.
type Store interface {
	// Create persists order with its lines, assigning ids where empty and the
	// created/updated timestamps.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	// List returns orders newest first, restricted to email when not empty.
	List(ctx context.Context, email string) ([]domain.Order, error)
	// ListPage returns up to limit orders sorted by (updated_at DESC, id DESC)
	// strictly after the cursor, or from the start when after is nil.
	ListPage(ctx context.Context, after *Cursor, limit int) ([]domain.Order, error)
	// ListActive returns up to limit non-terminal orders, oldest first.
	ListActive(ctx context.Context, limit int) ([]domain.Order, error)
	// UpdateStatus sets the status to `to` only if it is currently `from`.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
}
