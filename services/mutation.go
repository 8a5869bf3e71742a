package services

import (
	"context"
	"errors"
	"time"

	"topup-service/models"
	"topup-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type step func(o *models.Order) (transition, *ServiceError)

// orderMutator applies lifecycle steps with a compare-and-set write and
// dispatches the resulting event after the write succeeds.
type orderMutator struct {
	orders     repository.OrderRepository
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func (m *orderMutator) load(ctx context.Context, id uuid.UUID) (*models.Order, *ServiceError) {
	order, err := m.orders.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, NotFoundError("Order not found")
		}
		m.logger.Error("Failed to load order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, UpstreamError("Failed to load order", err)
	}
	return order, nil
}

// apply runs fn against a copy of order and stores the copy only if the row
// still holds the status pair order was read with. After a lost race fn is
// evaluated once more against the stored row: a step that has nothing left
// to do there is a no-op, anything else is a conflict. actorID is recorded
// as the author of the write.
func (m *orderMutator) apply(ctx context.Context, order *models.Order, actorID string, fn step) (*models.Order, transition, *ServiceError) {
	guard := guardOf(order)
	working := *order

	tr, serr := fn(&working)
	if serr != nil {
		return nil, tr, serr
	}
	if !tr.Changed {
		return order, tr, nil
	}
	working.LastActorID = actorID
	working.NotifyAttempts = 0

	err := m.orders.SaveIf(ctx, &working, guard)
	if errors.Is(err, repository.ErrStaleOrder) {
		fresh, serr := m.load(ctx, order.ID)
		if serr != nil {
			return nil, transition{}, serr
		}
		retry := *fresh
		again, serr := fn(&retry)
		if serr != nil {
			return nil, again, serr
		}
		if !again.Changed {
			return fresh, again, nil
		}
		m.logger.Warn("Order changed concurrently", zap.String("order_id", order.ID.String()))
		return nil, transition{}, StateConflictError("Order was modified concurrently, please retry")
	}
	if err != nil {
		m.logger.Error("Failed to update order", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, transition{}, UpstreamError("Failed to update order", err)
	}

	if tr.Event != "" {
		m.dispatcher.Dispatch(ctx, tr.Event, &working)
	}
	return &working, tr, nil
}
