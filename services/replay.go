package services

import (
	"context"
	"time"

	"topup-service/models"
	"topup-service/repository"

	"go.uber.org/zap"
)

const (
	defaultReplayBatch    = 100
	defaultReplayAttempts = 5
)

// Replayer re-dispatches lifecycle events whose notifications were never
// recorded as sent.
type Replayer interface {
	ReplayPending(ctx context.Context) (int, error)
}

type replayer struct {
	orders      repository.OrderRepository
	dispatcher  Dispatcher
	grace       time.Duration
	batch       int
	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time
}

// NewReplayer only picks up orders last written more than grace ago, so a
// request still dispatching is not raced. An order whose owner row keeps
// failing is given up after defaultReplayAttempts runs.
func NewReplayer(orders repository.OrderRepository, dispatcher Dispatcher, grace time.Duration, logger *zap.Logger) Replayer {
	return &replayer{
		orders:      orders,
		dispatcher:  dispatcher,
		grace:       grace,
		batch:       defaultReplayBatch,
		maxAttempts: defaultReplayAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *replayer) ReplayPending(ctx context.Context) (int, error) {
	pending, err := r.orders.FindUnnotified(ctx, r.now().Add(-r.grace), r.maxAttempts, r.batch)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for i := range pending {
		if ctx.Err() != nil {
			return replayed, ctx.Err()
		}
		o := &pending[i]
		res := r.dispatcher.Redispatch(ctx, o)
		if res.UserNotified {
			replayed++
		} else {
			r.recordFailure(ctx, o)
		}
		r.logger.Info("Replayed order notification",
			zap.String("order_id", o.ID.String()),
			zap.String("event", string(o.LastEvent)),
			zap.Bool("user_notified", res.UserNotified),
			zap.Int("admins_skipped", res.AdminsSkipped),
		)
	}
	return replayed, nil
}

func (r *replayer) recordFailure(ctx context.Context, o *models.Order) {
	if err := r.orders.RecordNotifyAttempt(ctx, o.ID); err != nil {
		r.logger.Warn("Failed to record notification attempt", zap.String("order_id", o.ID.String()), zap.Error(err))
		return
	}
	if o.NotifyAttempts+1 >= r.maxAttempts {
		r.logger.Error("Giving up on order notification",
			zap.String("order_id", o.ID.String()),
			zap.String("event", string(o.LastEvent)),
			zap.Int("attempts", o.NotifyAttempts+1),
		)
	}
}
