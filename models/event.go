package models

import "time"

// EventKind names an order lifecycle event that produces notifications.
type EventKind string

const (
	EventCreated         EventKind = "created"
	EventPaymentUploaded EventKind = "payment_uploaded"
	EventPaymentVerified EventKind = "payment_verified"
	EventPaymentRejected EventKind = "payment_rejected"
	EventProcessing      EventKind = "processing"
	EventCompleted       EventKind = "completed"
	EventCancelled       EventKind = "cancelled"
	EventFailed          EventKind = "failed"
)

// FansOutToAdmins reports whether admins receive a copy of the event.
func (e EventKind) FansOutToAdmins() bool {
	return e == EventCreated || e == EventPaymentUploaded || e == EventCancelled
}

// OrderEvent is the payload published to the external event topic.
type OrderEvent struct {
	Event      EventKind   `json:"event"`
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Status     OrderStatus `json:"status"`
	ActorID    string      `json:"actor_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
