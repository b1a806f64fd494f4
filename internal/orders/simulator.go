package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// Advancer is the part of Service the simulator drives.
type Advancer interface {
	ListActive(ctx context.Context, limit int) ([]domain.Order, error)
	AdvanceStatus(ctx context.Context, id string, requested domain.OrderStatus, source string) (*domain.Order, error)
}

// StatusSimulator periodically pushes the oldest open orders one stage
// forward through the same path as admin requests.
type StatusSimulator struct {
	advancer  Advancer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewStatusSimulator(advancer Advancer, interval time.Duration, batchSize int, logger *slog.Logger) *StatusSimulator {
	return &StatusSimulator{
		advancer:  advancer,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start runs ticks until ctx is done.
func (s *StatusSimulator) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("status simulator started", "interval", s.interval, "batch_size", s.batchSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("status simulator stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Error("simulator tick failed", "error", err)
			}
		}
	}
}

// Tick advances one batch and returns how many orders moved. Only a failure
// to select the batch is returned; per-order failures are logged and skipped.
func (s *StatusSimulator) Tick(ctx context.Context) (int, error) {
	batch, err := s.advancer.ListActive(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for _, order := range batch {
		next, ok := order.Status.Next()
		if !ok {
			continue
		}

		if _, err := s.advancer.AdvanceStatus(ctx, order.ID, next, SourceSimulator); err != nil {
			s.logger.Warn("failed to advance order",
				"error", err,
				"order_id", order.ID,
				"from", order.Status,
				"to", next,
			)
			continue
		}
		advanced++
	}

	if advanced > 0 {
		s.logger.Debug("simulator tick", "advanced", advanced, "selected", len(batch))
	}
	return advanced, nil
}
