package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// MemoryStore is a Store kept in process memory. Orders are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	byKey  map[string]string
	now    func() time.Time
	last   time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithStoreClock overrides the timestamp source.
func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		orders: make(map[string]*domain.Order),
		byKey:  make(map[string]string),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tick returns a timestamp strictly after every one handed out before, at the
// same microsecond precision Postgres keeps. Must be called with mu held.
func (s *MemoryStore) tick() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *MemoryStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey != "" {
		if _, ok := s.byKey[order.IdempotencyKey]; ok {
			return ErrDuplicateIdempotencyKey
		}
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
	}
	if order.Items == nil {
		order.Items = []domain.OrderLine{}
	}

	now := s.tick()
	order.CreatedAt, order.UpdatedAt = now, now

	s.orders[order.ID] = order.Clone()
	if order.IdempotencyKey != "" {
		s.byKey[order.IdempotencyKey] = order.ID
	}
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orders[id].Clone(), nil
}

func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	if key == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	return s.orders[id].Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, email string) ([]domain.Order, error) {
	out := s.snapshot(func(o *domain.Order) bool {
		return email == "" || o.Email == email
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListPage(_ context.Context, after *Cursor, limit int) ([]domain.Order, error) {
	out := s.snapshot(func(o *domain.Order) bool {
		return after == nil || after.Before(*o)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListActive(_ context.Context, limit int) ([]domain.Order, error) {
	out := s.snapshot(func(o *domain.Order) bool {
		return !o.Status.Terminal()
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	if order.Status != from {
		return nil, ErrStatusConflict
	}

	order.Status = to
	order.UpdatedAt = s.tick()
	return order.Clone(), nil
}

func (s *MemoryStore) snapshot(keep func(*domain.Order) bool) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *o.Clone())
		}
	}
	return out
}
