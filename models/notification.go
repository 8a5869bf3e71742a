package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RecipientType string

const (
	RecipientUser  RecipientType = "user"
	RecipientAdmin RecipientType = "admin"
)

type NotificationType string

const (
	NotificationInfo      NotificationType = "info"
	NotificationSuccess   NotificationType = "success"
	NotificationWarning   NotificationType = "warning"
	NotificationError     NotificationType = "error"
	NotificationOrder     NotificationType = "order"
	NotificationSystem    NotificationType = "system"
	NotificationPromotion NotificationType = "promotion"
	NotificationSupport   NotificationType = "support"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is one inbox row for one recipient.
type Notification struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           string            `gorm:"type:text;not null;index:idx_notifications_recipient" json:"user_id"`
	RecipientType    RecipientType     `gorm:"type:varchar(10);not null;default:'user';index:idx_notifications_recipient" json:"recipient_type"`
	Type             NotificationType  `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	Title            string            `gorm:"type:text;not null" json:"title"`
	Message          string            `gorm:"type:text;not null" json:"message"`
	Priority         Priority          `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	IsImportant      bool              `gorm:"default:false" json:"is_important"`
	IsRead           bool              `gorm:"default:false;index" json:"is_read"`
	ReadAt           *time.Time        `json:"read_at,omitempty"`
	RelatedOrderID   *uuid.UUID        `gorm:"type:uuid;index" json:"related_order_id,omitempty"`
	RelatedSupportID *uuid.UUID        `gorm:"type:uuid" json:"related_support_id,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

// NotificationFilter selects rows from one recipient's inbox.
type NotificationFilter struct {
	UserID        string
	RecipientType RecipientType
	UnreadOnly    bool
	ImportantOnly bool
	Limit         int
}

type NotificationStats struct {
	Total           int64 `json:"total"`
	Unread          int64 `json:"unread"`
	Important       int64 `json:"important"`
	ImportantUnread int64 `json:"important_unread"`
}
