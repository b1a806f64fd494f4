package broadcast

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
	"github.com/joao-fontenele/orderflow-realtime/internal/telemetry"
)

// Scope names a delivery audience: the admin scope sees every order, an order
// scope sees a single order.
type Scope string

const AdminScope Scope = "admin"

const orderScopePrefix = "order:"

func OrderScope(orderID string) Scope {
	return Scope(orderScopePrefix + orderID)
}

// OrderID returns the order an order scope is bound to.
func (s Scope) OrderID() (string, bool) {
	return strings.CutPrefix(string(s), orderScopePrefix)
}

// Kind is the scope label without the order id.
func (s Scope) Kind() string {
	if strings.HasPrefix(string(s), orderScopePrefix) {
		return "order"
	}
	return string(s)
}

// Sink relays events outside the process. It is called from a single
// goroutine, in publish order.
type Sink interface {
	Publish(ctx context.Context, env domain.Envelope) error
}

const (
	DefaultBuffer    = 32
	defaultRelaySize = 1024
)

// Hub fans lifecycle events out to in-process subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu   sync.RWMutex
	subs map[Scope]map[*Subscription]struct{}

	sink    Sink
	relay   chan domain.Event
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

type HubOption func(*Hub)

// WithSink relays every published event to sink once Run is started.
func WithSink(sink Sink) HubOption {
	return func(h *Hub) {
		h.sink = sink
		h.relay = make(chan domain.Event, defaultRelaySize)
	}
}

func WithHubMetrics(m *telemetry.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[Scope]map[*Subscription]struct{}),
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type Subscription struct {
	hub    *Hub
	scope  Scope
	events chan domain.Event
	once   sync.Once
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan domain.Event {
	return s.events
}

func (s *Subscription) Scope() Scope {
	return s.scope
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe registers a subscriber for scope. Only events published after
// Subscribe returns are delivered.
func (h *Hub) Subscribe(scope Scope, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &Subscription{
		hub:    h,
		scope:  scope,
		events: make(chan domain.Event, buffer),
	}

	h.mu.Lock()
	set, ok := h.subs[scope]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[scope] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.SubscriberAdded(context.Background(), scope.Kind())
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.scope]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.scope)
		}
	}
	close(sub.events)
	h.mu.Unlock()

	h.metrics.SubscriberRemoved(context.Background(), sub.scope.Kind())
}

// Publish delivers evt once to the order's scope and once to the admin scope.
func (h *Hub) Publish(evt domain.Event) {
	order := evt.OrderSnapshot()
	if order == nil {
		return
	}

	h.deliver(OrderScope(order.ID), evt)
	h.deliver(AdminScope, evt)

	if h.relay != nil {
		select {
		case h.relay <- evt:
		default:
			h.logger.Warn("event relay full, dropping event", "order_id", order.ID, "type", evt.Type())
		}
	}
}

func (h *Hub) deliver(scope Scope, evt domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[scope] {
		select {
		case sub.events <- evt:
		default:
			h.metrics.DeliveryDropped(context.Background(), scope.Kind())
			h.logger.Debug("subscriber buffer full, dropping event", "scope", string(scope), "type", evt.Type())
		}
	}
}

// Count returns the number of live subscribers of scope.
func (h *Hub) Count(scope Scope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scope])
}

// Run drains the relay into the sink until ctx is done. Without a sink it
// just waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	if h.sink == nil {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-h.relay:
			env := domain.EnvelopeOf(evt)
			if err := h.sink.Publish(ctx, env); err != nil {
				h.logger.Error("failed to relay event", "error", err, "order_id", env.OrderID, "type", env.Type)
			}
		}
	}
}
