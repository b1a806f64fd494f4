package orders

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
	"github.com/joao-fontenele/orderflow-realtime/internal/telemetry"
)

var tracer = otel.Tracer("orders/service")

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 20

	SourceAPI       = "api"
	SourceSimulator = "simulator"
)

// Publisher receives lifecycle events once they are durable. Publish must not
// block on slow consumers.
type Publisher interface {
	Publish(evt domain.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}

type CreateOrderInput struct {
	Customer domain.Customer
	Items    []LineRequest
}

type Page struct {
	Items      []domain.Order `json:"items"`
	NextCursor *string        `json:"nextCursor"`
	Limit      int            `json:"limit"`
}

type Service struct {
	store     Store
	prices    *PriceResolver
	coord     *Coordinator
	publisher Publisher
	locks     stripedLock
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

type ServiceOption func(*Service)

func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, catalog Catalog, publisher Publisher, logger *slog.Logger, opts ...ServiceOption) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	s := &Service{
		store:     store,
		prices:    NewPriceResolver(catalog),
		coord:     NewCoordinator(store.FindByIdempotencyKey),
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create materializes an order at most once per idempotency key. replayed is
// true when the answer is an order created by an earlier request.
func (s *Service) Create(ctx context.Context, key string, in CreateOrderInput) (*domain.Order, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	ctx, span := tracer.Start(ctx, "orders.Create",
		trace.WithAttributes(attribute.Bool("order.idempotent", key != "")))
	defer span.End()

	order, replayed, err := s.coord.Submit(ctx, key, func(ctx context.Context) (*domain.Order, bool, error) {
		return s.materialize(ctx, key, in)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Bool("order.replayed", replayed))
	if replayed {
		s.metrics.IdempotentReplay(ctx)
		s.logger.InfoContext(ctx, "order creation replayed", "order_id", order.ID)
	}
	return order, replayed, nil
}

func (s *Service) materialize(ctx context.Context, key string, in CreateOrderInput) (*domain.Order, bool, error) {
	lines, total, err := s.prices.Price(ctx, in.Items)
	if err != nil {
		return nil, false, err
	}

	order := &domain.Order{
		ID:             uuid.New().String(),
		IdempotencyKey: key,
		Customer:       in.Customer,
		Status:         domain.OrderStatusReceived,
		TotalAmount:    total,
		Items:          lines,
	}

	unlock := s.locks.lock(order.ID)
	defer unlock()

	if err := s.store.Create(ctx, order); err != nil {
		if !errors.Is(err, ErrDuplicateIdempotencyKey) {
			return nil, false, fmt.Errorf("create order: %w", err)
		}

		existing, err := s.store.FindByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("load order for idempotency key: %w", err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("idempotency key %q is taken but no order holds it", key)
		}
		return existing, true, nil
	}

	s.metrics.OrderCreated(ctx)
	s.publisher.Publish(domain.OrderCreated{Order: order.Clone(), At: order.CreatedAt})
	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"total_amount", order.TotalAmount,
		"items", len(order.Items),
	)

	return order, false, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}
	return order, nil
}

// List returns orders newest first, only those of email when it is not empty.
func (s *Service) List(ctx context.Context, email string) ([]domain.Order, error) {
	orders, err := s.store.List(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListAdmin returns one page of the admin listing. An empty cursor starts from
// the most recently updated order.
func (s *Service) ListAdmin(ctx context.Context, limit int, cursor string) (Page, error) {
	if limit < 1 || limit > MaxPageLimit {
		return Page{}, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxPageLimit))
	}

	var after *Cursor
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		after = &c
	}

	orders, err := s.store.ListPage(ctx, after, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("list orders page: %w", err)
	}

	page := Page{Items: orders, Limit: limit}
	if len(orders) > limit {
		page.Items = orders[:limit]
		next := EncodeCursor(CursorOf(page.Items[limit-1]))
		page.NextCursor = &next
	}
	return page, nil
}

// ListActive returns up to limit non-terminal orders, oldest first.
func (s *Service) ListActive(ctx context.Context, limit int) ([]domain.Order, error) {
	orders, err := s.store.ListActive(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	return orders, nil
}

// AdvanceStatus moves the order to requested and publishes the change. Events
// of one order are published in the order their writes were applied.
func (s *Service) AdvanceStatus(ctx context.Context, id string, requested domain.OrderStatus, source string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.AdvanceStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", string(requested)),
		attribute.String("order.transition_source", source),
	))
	defer span.End()

	unlock := s.locks.lock(id)
	defer unlock()

	updated, previous, err := s.transition(ctx, id, requested)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.Transition(ctx, string(updated.Status), source)
	s.publisher.Publish(domain.OrderStatusChanged{Order: updated.Clone(), Previous: previous, At: updated.UpdatedAt})
	s.logger.InfoContext(ctx, "order status updated",
		"order_id", id,
		"from", previous,
		"to", updated.Status,
		"source", source,
	)

	return updated, nil
}

func (s *Service) transition(ctx context.Context, id string, requested domain.OrderStatus) (*domain.Order, domain.OrderStatus, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	updated, err := Transition(ctx, s.store, current, requested)
	if err == nil {
		return updated, current.Status, nil
	}
	if !errors.Is(err, ErrStatusConflict) {
		return nil, "", err
	}

	// Another writer moved the order first; judge the request against it.
	latest, lerr := s.Get(ctx, id)
	if lerr != nil {
		return nil, "", lerr
	}
	return nil, "", &domain.InvalidTransitionError{From: latest.Status, To: requested}
}

// stripedLock serializes work per order id over a fixed set of mutexes.
type stripedLock struct {
	stripes [64]sync.Mutex
}

func (l *stripedLock) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
