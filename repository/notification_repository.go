package repository

import (
	"context"
	"time"

	"topup-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository scopes every read and mutation to one recipient
// (user_id plus recipient_type).
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string, rt models.RecipientType) (int64, error)
	Stats(ctx context.Context, userID string, rt models.RecipientType) (*models.NotificationStats, error)
	MarkRead(ctx context.Context, id uuid.UUID, userID string, rt models.RecipientType) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string, rt models.RecipientType) (int64, error)
	Delete(ctx context.Context, id uuid.UUID, userID string, rt models.RecipientType) error
	DeleteAll(ctx context.Context, userID string, rt models.RecipientType) (int64, error)
	AdminRecipients(ctx context.Context, orderID uuid.UUID, action string, since time.Time) ([]string, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// AdminRecipients lists the admins already holding a row for action on
// orderID written at or after since.
func (r *notificationRepository) AdminRecipients(ctx context.Context, orderID uuid.UUID, action string, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_type = ? AND related_order_id = ? AND metadata->>'action' = ? AND created_at >= ?",
			models.RecipientAdmin, orderID, action, since).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *notificationRepository) scoped(ctx context.Context, userID string, rt models.RecipientType) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND recipient_type = ?", userID, rt)
}

func (r *notificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	var out []models.Notification

	query := r.scoped(ctx, filter.UserID, filter.RecipientType)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.ImportantOnly {
		query = query.Where("is_important = ?", true)
	}

	err := query.Order("created_at DESC").Limit(filter.Limit).Find(&out).Error
	return out, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string, rt models.RecipientType) (int64, error) {
	var n int64
	err := r.scoped(ctx, userID, rt).Where("is_read = ?", false).Count(&n).Error
	return n, err
}

func (r *notificationRepository) Stats(ctx context.Context, userID string, rt models.RecipientType) (*models.NotificationStats, error) {
	var stats models.NotificationStats
	err := r.scoped(ctx, userID, rt).
		Select(
			"COUNT(*) AS total, " +
				"COUNT(*) FILTER (WHERE NOT is_read) AS unread, " +
				"COUNT(*) FILTER (WHERE is_important) AS important, " +
				"COUNT(*) FILTER (WHERE is_important AND NOT is_read) AS important_unread",
		).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, userID string, rt models.RecipientType) (*models.Notification, error) {
	result := r.scoped(ctx, userID, rt).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, rt models.RecipientType) (int64, error) {
	result := r.scoped(ctx, userID, rt).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID, userID string, rt models.RecipientType) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND recipient_type = ?", id, userID, rt).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, userID string, rt models.RecipientType) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND recipient_type = ?", userID, rt).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
