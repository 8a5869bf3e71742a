package repository

import (
	"context"

	"topup-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository is read-only access to products and games.
type CatalogRepository interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.TopupPackage, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.TopupPackage, error)
	FindGames(ctx context.Context, ids []uuid.UUID) ([]models.Game, error)
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) FindProduct(ctx context.Context, id uuid.UUID) (*models.TopupPackage, error) {
	var p models.TopupPackage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormCatalogRepository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.TopupPackage, error) {
	var products []models.TopupPackage
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *GormCatalogRepository) FindGames(ctx context.Context, ids []uuid.UUID) ([]models.Game, error) {
	var games []models.Game
	if len(ids) == 0 {
		return games, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&games).Error
	return games, err
}
