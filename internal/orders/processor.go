package orders

import (
	"context"
	"time"

	"github.com/boursa/brokerage-api/internal/types"
	"github.com/rs/zerolog/log"
)

// Processor expires orders whose signed bulletin never arrived. An order left
// PENDING_DOCUMENT past the deadline is marked EXPIRED; its workflow stays
// where it is and any late bulletin upload is refused.
type Processor struct {
	db           *Database
	deadline     time.Duration // how long an order may wait for its bulletin
	processDelay time.Duration // time between expiry sweeps
}

func NewProcessor(db *Database, deadline time.Duration) *Processor {
	return &Processor{
		db:           db,
		deadline:     deadline,
		processDelay: 5 * time.Minute,
	}
}

// Start begins the expiry processing loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "order_expiry_processor").Logger()
	logger.Info().Dur("deadline", p.deadline).Msg("starting order expiry processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down order expiry processor")
			return
		case <-ticker.C:
			if err := p.expireStaleOrders(); err != nil {
				logger.Error().Err(err).Msg("failed to expire stale orders")
			}
		}
	}
}

func (p *Processor) expireStaleOrders() error {
	logger := log.With().Str("component", "order_expiry_processor").Logger()

	cutoff := time.Now().Add(-p.deadline)
	stale, err := p.db.GetOrdersAwaitingDocumentBefore(cutoff)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}
	logger.Info().Int("stale_count", len(stale)).Msg("expiring orders without signed bulletin")

	for i := range stale {
		order := &stale[i]
		order.Status = types.OrderStatusExpired
		order.UpdatedAt = time.Now()
		if err := p.db.UpdateOrder(order); err != nil {
			logger.Error().
				Err(err).
				Str("order_id", order.OrderID).
				Msg("failed to expire order")
			continue
		}
		logger.Info().
			Str("order_id", order.OrderID).
			Time("created_at", order.CreatedAt).
			Msg("order expired")
	}

	return nil
}
