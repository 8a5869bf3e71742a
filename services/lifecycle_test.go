package services

import (
	"testing"
	"time"

	"topup-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderIn(status models.OrderStatus, vs models.VerificationStatus) *models.Order {
	return &models.Order{
		Status:             status,
		VerificationStatus: vs,
		PaymentStatus:      models.PaymentStatusPending,
		DeliveryStatus:     models.DeliveryPending,
	}
}

func TestApplyAdminStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	P, V := models.VerificationPending, models.VerificationVerified

	cases := []struct {
		name     string
		from     models.OrderStatus
		vs       models.VerificationStatus
		to       models.OrderStatus
		event    models.EventKind
		conflict bool
	}{
		{"pending to processing", models.OrderStatusPending, P, models.OrderStatusProcessing, models.EventProcessing, false},
		{"pending to completed", models.OrderStatusPending, P, models.OrderStatusCompleted, "", true},
		{"pending to cancelled", models.OrderStatusPending, P, models.OrderStatusCancelled, models.EventCancelled, false},
		{"pending to refunded", models.OrderStatusPending, P, models.OrderStatusRefunded, "", false},
		{"processing to completed", models.OrderStatusProcessing, V, models.OrderStatusCompleted, models.EventCompleted, false},
		{"processing to pending", models.OrderStatusProcessing, P, models.OrderStatusPending, "", true},
		{"verified to cancelled", models.OrderStatusProcessing, V, models.OrderStatusCancelled, "", true},
		{"verified to refunded", models.OrderStatusProcessing, V, models.OrderStatusRefunded, "", true},
		{"cancelled is terminal", models.OrderStatusCancelled, P, models.OrderStatusProcessing, "", true},
		{"completed is terminal", models.OrderStatusCompleted, V, models.OrderStatusCancelled, "", true},
		{"refunded is terminal", models.OrderStatusRefunded, P, models.OrderStatusPending, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := orderIn(tc.from, tc.vs)
			o.LastEvent = models.EventCreated
			tr, serr := applyAdminStatus(o, tc.to, "", now)
			if tc.conflict {
				require.NotNil(t, serr)
				assert.Equal(t, KindStateConflict, serr.Kind)
				return
			}
			require.Nil(t, serr)
			assert.True(t, tr.Changed)
			assert.Equal(t, tc.event, tr.Event)
			assert.Equal(t, tc.event, o.LastEvent)
			assert.Equal(t, tc.to, o.Status)
		})
	}
}

func TestApplyAdminStatus_CompletedSetsDelivery(t *testing.T) {
	now := time.Now()
	o := orderIn(models.OrderStatusProcessing, models.VerificationVerified)

	_, serr := applyAdminStatus(o, models.OrderStatusCompleted, "delivered by hand", now)
	require.Nil(t, serr)
	assert.Equal(t, models.DeliveryDelivered, o.DeliveryStatus)
	assert.Equal(t, &now, o.CompletedAt)
	assert.Equal(t, &now, o.DeliveredAt)
	assert.Equal(t, "delivered by hand", o.AdminNotes)
}

func TestApplyAdminStatus_SameStatus(t *testing.T) {
	o := orderIn(models.OrderStatusCompleted, models.VerificationVerified)
	o.LastEvent = models.EventCompleted

	tr, serr := applyAdminStatus(o, models.OrderStatusCompleted, "", time.Now())
	require.Nil(t, serr)
	assert.False(t, tr.Changed)
	assert.Equal(t, models.EventCompleted, o.LastEvent)

	tr, serr = applyAdminStatus(o, models.OrderStatusCompleted, "late note", time.Now())
	require.Nil(t, serr)
	assert.True(t, tr.Changed)
	assert.Empty(t, tr.Event)
	assert.Empty(t, o.LastEvent)
	assert.Equal(t, "late note", o.AdminNotes)
}

func TestApplyAdminStatus_Invalid(t *testing.T) {
	_, serr := applyAdminStatus(orderIn(models.OrderStatusPending, models.VerificationPending), "shipped", "", time.Now())
	require.NotNil(t, serr)
	assert.Equal(t, KindValidation, serr.Kind)
}

func TestApplyVerification(t *testing.T) {
	now := time.Now()

	o := orderIn(models.OrderStatusProcessing, models.VerificationPending)
	o.PaymentProofURL = "u://p"
	tr, serr := applyVerification(o, true, "ok", "admin-a", now)
	require.Nil(t, serr)
	assert.Equal(t, models.EventPaymentVerified, tr.Event)
	assert.Equal(t, models.OrderStatusProcessing, o.Status)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)

	tr, serr = applyVerification(o, true, "", "admin-b", now)
	require.Nil(t, serr)
	assert.False(t, tr.Changed)
	assert.Equal(t, "admin-a", o.VerifiedBy)

	_, serr = applyVerification(o, false, "", "admin-b", now)
	require.NotNil(t, serr)
	assert.Equal(t, KindStateConflict, serr.Kind)

	_, serr = applyVerification(orderIn(models.OrderStatusCancelled, models.VerificationPending), true, "", "admin-a", now)
	require.NotNil(t, serr)
	assert.Equal(t, KindStateConflict, serr.Kind)
}

func TestApplyVerification_RequiresProof(t *testing.T) {
	cases := []struct {
		name   string
		status models.OrderStatus
		proof  string
	}{
		{"pending without proof", models.OrderStatusPending, ""},
		{"pending with proof", models.OrderStatusPending, "u://p"},
		{"processing without proof", models.OrderStatusProcessing, ""},
	}
	for _, tc := range cases {
		for _, accept := range []bool{true, false} {
			o := orderIn(tc.status, models.VerificationPending)
			o.PaymentProofURL = tc.proof

			tr, serr := applyVerification(o, accept, "", "admin-a", time.Now())
			require.NotNil(t, serr, tc.name)
			assert.Equal(t, KindStateConflict, serr.Kind, tc.name)
			assert.False(t, tr.Changed, tc.name)
			assert.Equal(t, models.VerificationPending, o.VerificationStatus, tc.name)
			assert.Equal(t, models.PaymentStatusPending, o.PaymentStatus, tc.name)
			assert.Empty(t, o.VerifiedBy, tc.name)
		}
	}
}

func TestApplyProofUpload(t *testing.T) {
	o := orderIn(models.OrderStatusPending, models.VerificationPending)
	o.PaymentMethod = "nagad"

	tr, serr := applyProofUpload(o, "u://p", "", "TX5")
	require.Nil(t, serr)
	assert.Equal(t, models.EventPaymentUploaded, tr.Event)
	assert.Equal(t, "nagad", o.PaymentMethod)
	assert.Equal(t, "TX5", o.TransactionID)
	assert.Equal(t, models.OrderStatusProcessing, o.Status)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)

	_, serr = applyProofUpload(orderIn(models.OrderStatusProcessing, models.VerificationVerified), "u://p", "", "")
	require.NotNil(t, serr)
	_, serr = applyProofUpload(orderIn(models.OrderStatusCompleted, models.VerificationVerified), "u://p", "", "")
	require.NotNil(t, serr)
}

func TestApplyCancel(t *testing.T) {
	for _, tc := range []struct {
		status models.OrderStatus
		vs     models.VerificationStatus
		ok     bool
	}{
		{models.OrderStatusPending, models.VerificationPending, true},
		{models.OrderStatusProcessing, models.VerificationPending, true},
		{models.OrderStatusProcessing, models.VerificationVerified, false},
		{models.OrderStatusCompleted, models.VerificationVerified, false},
		{models.OrderStatusCancelled, models.VerificationRejected, false},
		{models.OrderStatusRefunded, models.VerificationPending, false},
	} {
		o := orderIn(tc.status, tc.vs)
		tr, serr := applyCancel(o)
		if tc.ok {
			require.Nil(t, serr, tc.status)
			assert.Equal(t, models.EventCancelled, tr.Event)
			assert.Equal(t, models.OrderStatusCancelled, o.Status)
		} else {
			require.NotNil(t, serr, tc.status)
			assert.Equal(t, KindStateConflict, serr.Kind)
		}
	}
}
