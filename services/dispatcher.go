package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"topup-service/messages"
	"topup-service/metrics"
	"topup-service/models"
	awspkg "topup-service/pkg/aws"
	"topup-service/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type eventConfig struct {
	notifType models.NotificationType
	priority  models.Priority
	important bool
}

var userEventConfigs = map[models.EventKind]eventConfig{
	models.EventCreated:         {models.NotificationSuccess, models.PriorityHigh, false},
	models.EventPaymentUploaded: {models.NotificationInfo, models.PriorityNormal, false},
	models.EventPaymentVerified: {models.NotificationSuccess, models.PriorityHigh, true},
	models.EventPaymentRejected: {models.NotificationError, models.PriorityUrgent, true},
	models.EventProcessing:      {models.NotificationInfo, models.PriorityHigh, false},
	models.EventCompleted:       {models.NotificationSuccess, models.PriorityUrgent, true},
	models.EventCancelled:       {models.NotificationWarning, models.PriorityNormal, false},
	models.EventFailed:          {models.NotificationError, models.PriorityUrgent, true},
}

var adminEventConfigs = map[models.EventKind]eventConfig{
	models.EventCreated:         {models.NotificationOrder, models.PriorityHigh, true},
	models.EventPaymentUploaded: {models.NotificationOrder, models.PriorityUrgent, true},
	models.EventCancelled:       {models.NotificationOrder, models.PriorityNormal, false},
}

const (
	userDashboardLink  = "/dashboard"
	adminDashboardLink = "/admin-dashboard"
	unknownProduct     = "Unknown Product"
	unknownGame        = "Unknown Game"
	unknownUser        = "Unknown User"
)

// DispatchResult reports what a dispatch managed to write.
type DispatchResult struct {
	UserNotified   bool
	AdminsNotified int
	AdminsFailed   int
	AdminsSkipped  int
}

// Dispatcher turns lifecycle events into inbox rows. It never returns an
// error: failures are logged and reflected in the result only.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.EventKind, order *models.Order) DispatchResult
	// Redispatch repeats order.LastEvent for the replay job. Admins already
	// holding a row for that write are skipped and nothing is published.
	Redispatch(ctx context.Context, order *models.Order) DispatchResult
}

type DispatcherConfig struct {
	SupportContact string
	EventsTopicArn string
}

type dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	catalog       repository.CatalogRepository
	orders        repository.OrderRepository
	messages      *messages.Catalog
	publisher     awspkg.EventPublisher
	metrics       *metrics.Metrics
	cfg           DispatcherConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewDispatcher wires the notification fan-out. publisher and m may be nil.
func NewDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	catalog repository.CatalogRepository,
	orders repository.OrderRepository,
	msgs *messages.Catalog,
	publisher awspkg.EventPublisher,
	m *metrics.Metrics,
	cfg DispatcherConfig,
	logger *zap.Logger,
) Dispatcher {
	return &dispatcher{
		notifications: notifications,
		users:         users,
		catalog:       catalog,
		orders:        orders,
		messages:      msgs,
		publisher:     publisher,
		metrics:       m,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, event models.EventKind, order *models.Order) DispatchResult {
	log := d.logger.With(zap.String("event", string(event)), zap.String("order_id", order.ID.String()))
	return d.dispatch(ctx, event, order, nil, true, log)
}

func (d *dispatcher) Redispatch(ctx context.Context, order *models.Order) DispatchResult {
	event := order.LastEvent
	log := d.logger.With(zap.String("event", string(event)), zap.String("order_id", order.ID.String()), zap.Bool("replay", true))

	var done map[string]bool
	if event.FansOutToAdmins() {
		// Rows for this write are never older than the write itself.
		ids, err := d.notifications.AdminRecipients(ctx, order.ID, string(event), order.UpdatedAt)
		if err != nil {
			log.Error("Failed to load earlier admin notifications", zap.Error(err))
			return DispatchResult{}
		}
		done = make(map[string]bool, len(ids))
		for _, id := range ids {
			done[id] = true
		}
	}
	return d.dispatch(ctx, event, order, done, false, log)
}

func (d *dispatcher) dispatch(ctx context.Context, event models.EventKind, order *models.Order, skipAdmins map[string]bool, announce bool, log *zap.Logger) DispatchResult {
	var res DispatchResult

	cfg, ok := userEventConfigs[event]
	if !ok {
		log.Warn("No notification configured for event")
		return res
	}

	data := d.templateData(ctx, event, order)

	if err := d.notifyUser(ctx, event, cfg, order, data); err != nil {
		log.Error("Failed to write user notification", zap.Error(err))
	} else {
		res.UserNotified = true
	}

	if event.FansOutToAdmins() {
		res.AdminsNotified, res.AdminsFailed, res.AdminsSkipped = d.notifyAdmins(ctx, event, order, data, skipAdmins, log)
	}

	if announce {
		d.publish(ctx, event, order, log)
	}

	// Replay picks the order up again if the owner's row was not written.
	if res.UserNotified {
		if err := d.orders.MarkNotified(ctx, order.ID, d.now()); err != nil {
			log.Warn("Failed to mark order notified", zap.Error(err))
		}
	}

	log.Info("Notifications dispatched",
		zap.Bool("user", res.UserNotified),
		zap.Int("admins", res.AdminsNotified),
		zap.Int("admins_failed", res.AdminsFailed),
		zap.Int("admins_skipped", res.AdminsSkipped),
	)
	return res
}

func (d *dispatcher) notifyUser(ctx context.Context, event models.EventKind, cfg eventConfig, order *models.Order, data map[string]interface{}) error {
	title, message, err := d.render("user."+string(event), data)
	if err != nil {
		return err
	}
	orderID := order.ID
	n := &models.Notification{
		UserID:         order.UserID,
		RecipientType:  models.RecipientUser,
		Type:           cfg.notifType,
		Title:          title,
		Message:        message,
		Priority:       cfg.priority,
		IsImportant:    cfg.important,
		RelatedOrderID: &orderID,
		Metadata:       datatypes.JSONMap{"link": userDashboardLink},
	}
	err = d.notifications.Create(ctx, n)
	d.metrics.NotificationWritten(string(models.RecipientUser), err)
	return err
}

func (d *dispatcher) notifyAdmins(ctx context.Context, event models.EventKind, order *models.Order, data map[string]interface{}, skip map[string]bool, log *zap.Logger) (ok, failed, skipped int) {
	cfg := adminEventConfigs[event]
	title, message, err := d.render("admin."+string(event), data)
	if err != nil {
		log.Error("Failed to render admin notification", zap.Error(err))
		return 0, 0, 0
	}

	admins, err := d.users.FindAdmins(ctx)
	if err != nil {
		log.Error("Failed to load admins", zap.Error(err))
		return 0, 0, 0
	}

	for _, admin := range admins {
		if skip[admin.ID] {
			skipped++
			continue
		}
		orderID := order.ID
		n := &models.Notification{
			UserID:         admin.ID,
			RecipientType:  models.RecipientAdmin,
			Type:           cfg.notifType,
			Title:          title,
			Message:        message,
			Priority:       cfg.priority,
			IsImportant:    cfg.important,
			RelatedOrderID: &orderID,
			Metadata: datatypes.JSONMap{
				"action":       string(event),
				"order_number": data["OrderNumber"],
				"link":         adminDashboardLink,
			},
		}
		err := d.notifications.Create(ctx, n)
		d.metrics.NotificationWritten(string(models.RecipientAdmin), err)
		if err != nil {
			failed++
			log.Warn("Failed to notify admin", zap.String("admin_id", admin.ID), zap.Error(err))
			continue
		}
		ok++
	}
	return ok, failed, skipped
}

func (d *dispatcher) publish(ctx context.Context, event models.EventKind, order *models.Order, log *zap.Logger) {
	if d.publisher == nil || d.cfg.EventsTopicArn == "" {
		return
	}
	payload, err := json.Marshal(models.OrderEvent{
		Event:      event,
		OrderID:    order.ID.String(),
		UserID:     order.UserID,
		Status:     order.Status,
		ActorID:    order.LastActorID,
		OccurredAt: d.now().UTC(),
	})
	if err != nil {
		log.Warn("Failed to marshal order event", zap.Error(err))
		return
	}
	err = d.publisher.Publish(ctx, awspkg.EventMessage{
		TopicArn: d.cfg.EventsTopicArn,
		Body:     payload,
		Attributes: map[string]string{
			"event":  string(event),
			"status": string(order.Status),
		},
		GroupID: order.ID.String(),
		DedupID: fmt.Sprintf("%s:%s:%d", order.ID, event, order.UpdatedAt.UnixMilli()),
	})
	if err != nil {
		log.Warn("SNS publish failed", zap.Error(err))
	}
}

func (d *dispatcher) render(prefix string, data map[string]interface{}) (string, string, error) {
	title, err := d.messages.Render(prefix+".title", data)
	if err != nil {
		return "", "", err
	}
	message, err := d.messages.Render(prefix+".message", data)
	if err != nil {
		return "", "", err
	}
	return title, message, nil
}

func (d *dispatcher) templateData(ctx context.Context, event models.EventKind, order *models.Order) map[string]interface{} {
	productName := unknownProduct
	diamonds := 0
	if product, err := d.catalog.FindProduct(ctx, order.ProductID); err == nil {
		productName = product.Name
		diamonds = product.Diamonds * order.Quantity
	} else if !isNotFound(err) {
		d.logger.Warn("Failed to load product for notification", zap.String("product_id", order.ProductID.String()), zap.Error(err))
	}

	notes := notesFor(event, order)
	if event == models.EventPaymentRejected && notes == "" {
		notes, _ = d.messages.Render("support.contact", map[string]interface{}{"SupportContact": d.cfg.SupportContact})
	}

	return map[string]interface{}{
		"OrderNumber":      order.ShortID(),
		"ProductName":      productName,
		"Amount":           order.TotalAmount.StringFixed(2),
		"Diamonds":         diamonds,
		"PlayerID":         order.PlayerID,
		"Notes":            notes,
		"UserName":         userNameFromEmail(order.ContactEmail),
		"CancelledByAdmin": event == models.EventCancelled && actedByAdmin(order),
	}
}

// actedByAdmin reports whether the last write came from someone other than
// the owner. Only admins can act on another user's order.
func actedByAdmin(order *models.Order) bool {
	return order.LastActorID != "" && order.LastActorID != order.UserID
}

// notesFor picks the staff note shown with an event. An owner's cancel shows
// none.
func notesFor(event models.EventKind, order *models.Order) string {
	switch event {
	case models.EventPaymentRejected:
		return order.VerificationNotes
	case models.EventCancelled:
		if actedByAdmin(order) {
			return order.AdminNotes
		}
	case models.EventFailed:
		return order.AdminNotes
	}
	return ""
}

// userNameFromEmail is a display convenience only; it is not an identity.
func userNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return unknownUser
}
