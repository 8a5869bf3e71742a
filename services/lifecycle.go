package services

import (
	"fmt"
	"time"

	"topup-service/models"
	"topup-service/repository"
)

// transition is the result of applying a lifecycle action to an order held
// in memory. Event is empty when nothing observable happened; Changed is
// false when nothing needs to be written.
type transition struct {
	Event   models.EventKind
	Changed bool
}

func guardOf(o *models.Order) repository.OrderGuard {
	return repository.OrderGuard{Status: o.Status, VerificationStatus: o.VerificationStatus}
}

func fire(o *models.Order, event models.EventKind) transition {
	o.LastEvent = event
	return transition{Event: event, Changed: true}
}

// quiet marks a write that produces no notification, so the replay job
// does not re-send the previous event for it.
func quiet(o *models.Order) transition {
	o.LastEvent = ""
	return transition{Changed: true}
}

// canCancel holds for pending orders and for processing orders whose
// payment has not been verified yet.
func canCancel(o *models.Order) *ServiceError {
	switch {
	case o.Status == models.OrderStatusPending:
		return nil
	case o.Status == models.OrderStatusProcessing && o.VerificationStatus == models.VerificationPending:
		return nil
	case o.Status == models.OrderStatusProcessing:
		return StateConflictError("Cannot cancel an order whose payment is already verified")
	}
	return StateConflictError(fmt.Sprintf("Cannot cancel order with status: %s", o.Status))
}

func applyCancel(o *models.Order) (transition, *ServiceError) {
	if err := canCancel(o); err != nil {
		return transition{}, err
	}
	o.Status = models.OrderStatusCancelled
	return fire(o, models.EventCancelled), nil
}

// canUploadProof holds until the payment has been decided.
func canUploadProof(o *models.Order) *ServiceError {
	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusProcessing {
		return StateConflictError(fmt.Sprintf("Cannot upload payment proof for order with status: %s", o.Status))
	}
	if o.VerificationStatus != models.VerificationPending {
		return StateConflictError(fmt.Sprintf("Payment already %s", o.VerificationStatus))
	}
	return nil
}

func applyProofUpload(o *models.Order, proofURL, method, txID string) (transition, *ServiceError) {
	if err := canUploadProof(o); err != nil {
		return transition{}, err
	}

	o.PaymentProofURL = proofURL
	if method != "" {
		o.PaymentMethod = method
	}
	if txID != "" {
		o.TransactionID = txID
	}
	o.PaymentStatus = models.PaymentStatusPaid
	o.Status = models.OrderStatusProcessing
	return fire(o, models.EventPaymentUploaded), nil
}

func verificationTarget(accept bool) models.VerificationStatus {
	if accept {
		return models.VerificationVerified
	}
	return models.VerificationRejected
}

// applyVerification decides a pending payment on a processing order that
// carries a proof. Repeating the decision an order already holds is a no-op;
// reversing it is a conflict.
func applyVerification(o *models.Order, accept bool, notes, adminID string, now time.Time) (transition, *ServiceError) {
	target := verificationTarget(accept)
	if o.VerificationStatus == target {
		return transition{}, nil
	}
	if o.VerificationStatus != models.VerificationPending {
		return transition{}, StateConflictError(fmt.Sprintf("Payment already %s", o.VerificationStatus))
	}
	if o.Status.Terminal() {
		return transition{}, StateConflictError(fmt.Sprintf("Cannot verify order with status: %s", o.Status))
	}
	if o.Status != models.OrderStatusProcessing || o.PaymentProofURL == "" {
		return transition{}, StateConflictError("Cannot verify payment before a payment proof is uploaded")
	}

	o.VerificationStatus = target
	o.VerificationNotes = notes
	o.VerifiedAt = &now
	o.VerifiedBy = adminID

	if accept {
		o.PaymentStatus = models.PaymentStatusPaid
		o.Status = models.OrderStatusProcessing
		return fire(o, models.EventPaymentVerified), nil
	}
	o.PaymentStatus = models.PaymentStatusFailed
	o.Status = models.OrderStatusCancelled
	return fire(o, models.EventPaymentRejected), nil
}

// applyAdminStatus moves an order to target on an admin's request.
//
//	pending    -> processing | cancelled | refunded
//	processing -> completed  | cancelled | refunded
//
// Cancelling or refunding a verified order is refused. Refunded is a manual
// bookkeeping state and fires no event.
func applyAdminStatus(o *models.Order, target models.OrderStatus, notes string, now time.Time) (transition, *ServiceError) {
	if !target.Valid() {
		return transition{}, ValidationError(fmt.Sprintf("Invalid status: %s", target))
	}

	notesChanged := notes != "" && notes != o.AdminNotes
	if notesChanged {
		o.AdminNotes = notes
	}

	if o.Status == target {
		if notesChanged {
			return quiet(o), nil
		}
		return transition{}, nil
	}
	if o.Status.Terminal() {
		return transition{}, StateConflictError(fmt.Sprintf("Cannot change status of a %s order", o.Status))
	}

	switch target {
	case models.OrderStatusPending:
		return transition{}, StateConflictError("Cannot move an order back to pending")

	case models.OrderStatusProcessing:
		o.Status = models.OrderStatusProcessing
		return fire(o, models.EventProcessing), nil

	case models.OrderStatusCompleted:
		if o.Status != models.OrderStatusProcessing {
			return transition{}, StateConflictError(fmt.Sprintf("Cannot complete order with status: %s", o.Status))
		}
		o.Status = models.OrderStatusCompleted
		o.DeliveryStatus = models.DeliveryDelivered
		o.CompletedAt = &now
		o.DeliveredAt = &now
		return fire(o, models.EventCompleted), nil

	case models.OrderStatusCancelled:
		if o.VerificationStatus == models.VerificationVerified {
			return transition{}, StateConflictError("Cannot cancel an order whose payment is already verified")
		}
		o.Status = models.OrderStatusCancelled
		return fire(o, models.EventCancelled), nil

	case models.OrderStatusRefunded:
		if o.VerificationStatus == models.VerificationVerified {
			return transition{}, StateConflictError("Cannot refund an order whose payment is already verified")
		}
		o.Status = models.OrderStatusRefunded
		return quiet(o), nil
	}
	return transition{}, ValidationError(fmt.Sprintf("Invalid status: %s", target))
}
