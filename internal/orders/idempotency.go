package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// LookupFunc finds a previously persisted order carrying key.
type LookupFunc func(ctx context.Context, key string) (*domain.Order, error)

// BuildFunc materializes a new order. replayed reports that it resolved to an
// order that already existed instead of creating one.
type BuildFunc func(ctx context.Context) (order *domain.Order, replayed bool, err error)

type outcome struct {
	done     chan struct{}
	order    *domain.Order
	replayed bool
	err      error
}

func (o *outcome) wait(ctx context.Context) (*domain.Order, bool, error) {
	select {
	case <-o.done:
		if o.err != nil {
			return nil, false, o.err
		}
		return o.order.Clone(), o.replayed, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Coordinator coalesces creation requests sharing an idempotency key. The
// first caller for a key registers an outcome and runs the build exactly once;
// every other caller waits on that same outcome. Successful outcomes are kept
// for the life of the process, failed ones are dropped so the key can be
// retried.
//
// The table is process-local. The store's unique constraint on the key is
// the backstop across restarts and processes.
type Coordinator struct {
	mu       sync.Mutex
	outcomes map[string]*outcome
	lookup   LookupFunc
}

func NewCoordinator(lookup LookupFunc) *Coordinator {
	return &Coordinator{
		outcomes: make(map[string]*outcome),
		lookup:   lookup,
	}
}

// Submit returns the outcome for key, running build at most once per key.
// An empty key disables deduplication.
//
// The computation runs detached from ctx: when ctx ends first the caller gets
// ctx.Err() while the shared computation continues for the other waiters.
func (c *Coordinator) Submit(ctx context.Context, key string, build BuildFunc) (*domain.Order, bool, error) {
	if key == "" {
		return build(ctx)
	}

	c.mu.Lock()
	if o, ok := c.outcomes[key]; ok {
		c.mu.Unlock()
		order, _, err := o.wait(ctx)
		return order, err == nil, err
	}
	o := &outcome{done: make(chan struct{})}
	c.outcomes[key] = o
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), key, o, build)

	return o.wait(ctx)
}

func (c *Coordinator) run(ctx context.Context, key string, o *outcome, build BuildFunc) {
	defer close(o.done)
	defer func() {
		if r := recover(); r != nil {
			o.order, o.err = nil, fmt.Errorf("order build panicked: %v", r)
			c.forget(key, o)
		}
	}()

	existing, err := c.lookup(ctx, key)
	if err != nil {
		o.err = fmt.Errorf("idempotency lookup: %w", err)
		c.forget(key, o)
		return
	}
	if existing != nil {
		o.order, o.replayed = existing, true
		return
	}

	order, replayed, err := build(ctx)
	if err == nil && order == nil {
		err = fmt.Errorf("order build returned no order")
	}
	if err != nil {
		o.err = err
		c.forget(key, o)
		return
	}
	o.order, o.replayed = order, replayed
}

// forget drops the registration for key if it still belongs to o.
func (c *Coordinator) forget(key string, o *outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes[key] == o {
		delete(c.outcomes, key)
	}
}

// Tracked returns the number of keys with an in-flight or completed outcome.
func (c *Coordinator) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}
