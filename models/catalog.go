package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopupPackage is a purchasable bundle of in-game currency.
type TopupPackage struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GameID    uuid.UUID       `gorm:"type:uuid;index" json:"game_id"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	NameBn    string          `gorm:"type:text" json:"name_bn,omitempty"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency  string          `gorm:"type:varchar(8)" json:"currency"`
	Diamonds  int             `gorm:"default:0" json:"diamonds"`
	ImageURL  string          `gorm:"type:text" json:"image_url,omitempty"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	Stock     int             `gorm:"default:0" json:"stock"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TopupPackage) TableName() string {
	return "topup_packages"
}

type Game struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	NameBn    string    `gorm:"type:text" json:"name_bn,omitempty"`
	Slug      string    `gorm:"type:text;uniqueIndex" json:"slug"`
	ImageURL  string    `gorm:"type:text" json:"image_url,omitempty"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
