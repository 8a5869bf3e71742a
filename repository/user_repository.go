package repository

import (
	"context"
	"strings"

	"topup-service/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindAdmins(ctx context.Context) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Find(&users).Error
	return users, err
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type GormSettingsRepository struct {
	db *gorm.DB
}

func NewGormSettingsRepository(db *gorm.DB) SettingsRepository {
	return &GormSettingsRepository{db: db}
}

func (r *GormSettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := r.db.WithContext(ctx).Where("id = ?", models.SettingsRowID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
