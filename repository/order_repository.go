package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"topup-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ErrStaleOrder is returned by SaveIf when the row no longer holds the
// status pair the caller read.
var ErrStaleOrder = errors.New("order was modified concurrently")

// OrderGuard is the state an order must still be in for a conditional save.
type OrderGuard struct {
	Status             models.OrderStatus
	VerificationStatus models.VerificationStatus
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	SaveIf(ctx context.Context, order *models.Order, guard OrderGuard) error
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordNotifyAttempt(ctx context.Context, id uuid.UUID) error
	FindUnnotified(ctx context.Context, updatedBefore time.Time, maxAttempts, limit int) ([]models.Order, error)
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns one page of orders newest first. The id tiebreak keeps page
// boundaries stable when rows share a created_at.
func (r *GormOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VerificationStatus != "" {
		query = query.Where("verification_status = ?", filter.VerificationStatus)
	}
	if filter.Search != "" {
		like := "%" + likeEscaper.Replace(filter.Search) + "%"
		query = query.Where(`(player_id ILIKE ? ESCAPE '\' OR transaction_id ILIKE ? ESCAPE '\')`, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SaveIf writes every mutable column of order, but only while the stored row
// still matches guard. Ownership, catalog link and notification bookkeeping
// columns are never written here.
func (r *GormOrderRepository) SaveIf(ctx context.Context, order *models.Order, guard OrderGuard) error {
	result := r.db.WithContext(ctx).
		Model(order).
		Where("status = ? AND verification_status = ?", guard.Status, guard.VerificationStatus).
		Select("*").
		Omit("id", "user_id", "product_id", "created_at", "notified_at").
		Updates(order)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleOrder
	}
	return nil
}

// MarkNotified records dispatch completion without bumping updated_at.
func (r *GormOrderRepository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("notified_at", at).Error
}

// RecordNotifyAttempt counts a failed replay without bumping updated_at.
func (r *GormOrderRepository) RecordNotifyAttempt(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("notify_attempts", gorm.Expr("notify_attempts + 1")).Error
}

// FindUnnotified returns orders whose latest lifecycle write has no matching
// dispatch and fewer than maxAttempts failed replays. Least retried come
// first, then oldest.
func (r *GormOrderRepository) FindUnnotified(ctx context.Context, updatedBefore time.Time, maxAttempts, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("last_event <> '' AND (notified_at IS NULL OR notified_at < updated_at) AND updated_at < ? AND notify_attempts < ?",
			updatedBefore, maxAttempts).
		Order("notify_attempts ASC, updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
