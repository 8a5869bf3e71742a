package services

import (
	"context"
	"time"

	"topup-service/auth"
	"topup-service/metrics"
	"topup-service/models"
	"topup-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VerifyPaymentRequest struct {
	Verify *bool  `json:"verify" binding:"required"`
	Notes  string `json:"notes"`
}

// VerificationService holds the admin-only lifecycle operations.
type VerificationService interface {
	VerifyPayment(ctx context.Context, admin *auth.Principal, id uuid.UUID, req *VerifyPaymentRequest) (*models.Order, *ServiceError)
	AdminUpdateStatus(ctx context.Context, admin *auth.Principal, id uuid.UUID, status models.OrderStatus, notes string) (*models.Order, *ServiceError)
}

type verificationService struct {
	orderMutator
	metrics *metrics.Metrics
}

func NewVerificationService(orders repository.OrderRepository, dispatcher Dispatcher, m *metrics.Metrics, logger *zap.Logger) VerificationService {
	return &verificationService{
		orderMutator: orderMutator{
			orders:     orders,
			dispatcher: dispatcher,
			logger:     logger,
			now:        time.Now,
		},
		metrics: m,
	}
}

func (s *verificationService) VerifyPayment(ctx context.Context, admin *auth.Principal, id uuid.UUID, req *VerifyPaymentRequest) (*models.Order, *ServiceError) {
	if !admin.IsAdmin {
		return nil, UnauthorizedError("Admin access required")
	}
	if req.Verify == nil {
		return nil, ValidationError("verify is required")
	}
	accept := *req.Verify

	order, serr := s.load(ctx, id)
	if serr != nil {
		return nil, serr
	}

	now := s.now()
	updated, tr, serr := s.apply(ctx, order, admin.ID, func(o *models.Order) (transition, *ServiceError) {
		return applyVerification(o, accept, req.Notes, admin.ID, now)
	})
	if serr != nil {
		return nil, serr
	}

	if tr.Event != "" {
		s.metrics.Verified(accept)
		s.logger.Info("Payment verification recorded",
			zap.String("order_id", id.String()),
			zap.String("admin_id", admin.ID),
			zap.Bool("accepted", accept),
		)
	}
	return updated, nil
}

func (s *verificationService) AdminUpdateStatus(ctx context.Context, admin *auth.Principal, id uuid.UUID, status models.OrderStatus, notes string) (*models.Order, *ServiceError) {
	if !admin.IsAdmin {
		return nil, UnauthorizedError("Admin access required")
	}
	if !status.Valid() {
		return nil, ValidationError("Invalid status: " + string(status))
	}

	order, serr := s.load(ctx, id)
	if serr != nil {
		return nil, serr
	}
	from := order.Status

	now := s.now()
	updated, _, serr := s.apply(ctx, order, admin.ID, func(o *models.Order) (transition, *ServiceError) {
		return applyAdminStatus(o, status, notes, now)
	})
	if serr != nil {
		return nil, serr
	}

	if updated.Status != from {
		s.metrics.StatusChanged(string(updated.Status))
		s.logger.Info("Order status updated",
			zap.String("order_id", id.String()),
			zap.String("admin_id", admin.ID),
			zap.String("from", string(from)),
			zap.String("to", string(updated.Status)),
		)
	}
	return updated, nil
}
