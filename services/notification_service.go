package services

import (
	"context"

	"topup-service/auth"
	"topup-service/models"
	"topup-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationQuery struct {
	UnreadOnly    bool
	ImportantOnly bool
	Limit         int
}

type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// NotificationService is the inbox of one recipient. Every call is scoped
// to the caller's id and the given recipient type.
type NotificationService interface {
	List(ctx context.Context, p *auth.Principal, rt models.RecipientType, q NotificationQuery) (*NotificationList, *ServiceError)
	MarkRead(ctx context.Context, p *auth.Principal, rt models.RecipientType, id uuid.UUID) (*models.Notification, *ServiceError)
	MarkAllRead(ctx context.Context, p *auth.Principal, rt models.RecipientType) (int64, *ServiceError)
	Delete(ctx context.Context, p *auth.Principal, rt models.RecipientType, id uuid.UUID) *ServiceError
	ClearAll(ctx context.Context, p *auth.Principal, rt models.RecipientType) (int64, *ServiceError)
	Stats(ctx context.Context, p *auth.Principal, rt models.RecipientType) (*models.NotificationStats, *ServiceError)
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func checkRecipient(p *auth.Principal, rt models.RecipientType) *ServiceError {
	switch rt {
	case models.RecipientUser:
		return nil
	case models.RecipientAdmin:
		if !p.IsAdmin {
			return UnauthorizedError("Admin access required")
		}
		return nil
	}
	return ValidationError("Invalid recipient type")
}

func (s *notificationService) List(ctx context.Context, p *auth.Principal, rt models.RecipientType, q NotificationQuery) (*NotificationList, *ServiceError) {
	if serr := checkRecipient(p, rt); serr != nil {
		return nil, serr
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	rows, err := s.repo.List(ctx, models.NotificationFilter{
		UserID:        p.ID,
		RecipientType: rt,
		UnreadOnly:    q.UnreadOnly,
		ImportantOnly: q.ImportantOnly,
		Limit:         limit,
	})
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.String("user_id", p.ID), zap.Error(err))
		return nil, UpstreamError("Failed to fetch notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, p.ID, rt)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.String("user_id", p.ID), zap.Error(err))
		return nil, UpstreamError("Failed to fetch notifications", err)
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return &NotificationList{Notifications: rows, UnreadCount: unread}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, p *auth.Principal, rt models.RecipientType, id uuid.UUID) (*models.Notification, *ServiceError) {
	if serr := checkRecipient(p, rt); serr != nil {
		return nil, serr
	}
	n, err := s.repo.MarkRead(ctx, id, p.ID, rt)
	if err != nil {
		if isNotFound(err) {
			return nil, NotFoundError("Notification not found")
		}
		s.logger.Error("Failed to mark notification read", zap.String("notification_id", id.String()), zap.Error(err))
		return nil, UpstreamError("Failed to update notification", err)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, p *auth.Principal, rt models.RecipientType) (int64, *ServiceError) {
	if serr := checkRecipient(p, rt); serr != nil {
		return 0, serr
	}
	n, err := s.repo.MarkAllRead(ctx, p.ID, rt)
	if err != nil {
		s.logger.Error("Failed to mark notifications read", zap.String("user_id", p.ID), zap.Error(err))
		return 0, UpstreamError("Failed to update notifications", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, p *auth.Principal, rt models.RecipientType, id uuid.UUID) *ServiceError {
	if serr := checkRecipient(p, rt); serr != nil {
		return serr
	}
	if err := s.repo.Delete(ctx, id, p.ID, rt); err != nil {
		if isNotFound(err) {
			return NotFoundError("Notification not found")
		}
		s.logger.Error("Failed to delete notification", zap.String("notification_id", id.String()), zap.Error(err))
		return UpstreamError("Failed to delete notification", err)
	}
	return nil
}

func (s *notificationService) ClearAll(ctx context.Context, p *auth.Principal, rt models.RecipientType) (int64, *ServiceError) {
	if serr := checkRecipient(p, rt); serr != nil {
		return 0, serr
	}
	n, err := s.repo.DeleteAll(ctx, p.ID, rt)
	if err != nil {
		s.logger.Error("Failed to clear notifications", zap.String("user_id", p.ID), zap.Error(err))
		return 0, UpstreamError("Failed to delete notifications", err)
	}
	return n, nil
}

func (s *notificationService) Stats(ctx context.Context, p *auth.Principal, rt models.RecipientType) (*models.NotificationStats, *ServiceError) {
	if serr := checkRecipient(p, rt); serr != nil {
		return nil, serr
	}
	stats, err := s.repo.Stats(ctx, p.ID, rt)
	if err != nil {
		s.logger.Error("Failed to load notification stats", zap.String("user_id", p.ID), zap.Error(err))
		return nil, UpstreamError("Failed to fetch notification stats", err)
	}
	return stats, nil
}
