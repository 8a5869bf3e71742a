package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusRefunded
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
)

const DefaultCurrency = "BDT"

// Order is a single top-up purchase. UnitPrice is a snapshot of the product
// price at creation and is never re-read from the catalog.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;index" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`

	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency    string          `gorm:"type:varchar(8);not null;default:'BDT'" json:"currency"`

	PlayerID   string `gorm:"type:text;not null;index" json:"player_id"`
	PlayerName string `gorm:"type:text" json:"player_name,omitempty"`
	ServerID   string `gorm:"type:text" json:"server_id,omitempty"`

	ContactEmail string `gorm:"type:text" json:"contact_email,omitempty"`
	ContactPhone string `gorm:"type:text" json:"contact_phone,omitempty"`
	Notes        string `gorm:"type:text" json:"notes,omitempty"`

	PaymentMethod   string        `gorm:"type:text" json:"payment_method,omitempty"`
	TransactionID   string        `gorm:"type:text;index" json:"transaction_id,omitempty"`
	PaymentProofURL string        `gorm:"type:text" json:"payment_proof_url,omitempty"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`

	Status             OrderStatus        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"verification_status"`
	DeliveryStatus     DeliveryStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"delivery_status"`

	AdminNotes        string     `gorm:"type:text" json:"admin_notes,omitempty"`
	VerificationNotes string     `gorm:"type:text" json:"verification_notes,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	VerifiedBy        string     `gorm:"type:text" json:"verified_by,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`

	// LastEvent, LastActorID, NotifiedAt and NotifyAttempts drive the
	// notification replay job.
	LastEvent      EventKind  `gorm:"type:varchar(32)" json:"-"`
	LastActorID    string     `gorm:"type:text" json:"-"`
	NotifiedAt     *time.Time `json:"-"`
	NotifyAttempts int        `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ShortID is the display form of the order id: first 8 hex characters, upper case.
func (o *Order) ShortID() string {
	s := strings.ReplaceAll(o.ID.String(), "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return strings.ToUpper(s)
}

// OrderFilter narrows order listings. Zero values mean "no filter".
type OrderFilter struct {
	UserID             string
	Status             OrderStatus
	VerificationStatus VerificationStatus
	Search             string
	Page               int
	PageSize           int
}

// EnrichedOrder is the list/detail view of an order with catalog and
// customer summary fields resolved.
type EnrichedOrder struct {
	Order
	ShortCode     string `json:"short_id"`
	ProductName   string `json:"product_name"`
	ProductNameBn string `json:"product_name_bn,omitempty"`
	Diamonds      int    `json:"diamonds"`
	ProductImage  string `json:"product_image,omitempty"`
	GameID        string `json:"game_id,omitempty"`
	GameName      string `json:"game_name"`
	GameNameBn    string `json:"game_name_bn,omitempty"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email,omitempty"`
}
