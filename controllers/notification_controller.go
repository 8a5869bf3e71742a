package controllers

import (
	"net/http"
	"strconv"

	"topup-service/models"
	"topup-service/services"

	"github.com/gin-gonic/gin"
)

// NotificationController serves one inbox: the user inbox or the admin inbox.
type NotificationController struct {
	svc       services.NotificationService
	recipient models.RecipientType
}

func NewNotificationController(svc services.NotificationService, recipient models.RecipientType) *NotificationController {
	return &NotificationController{svc: svc, recipient: recipient}
}

func (nc *NotificationController) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	res, serr := nc.svc.List(c.Request.Context(), p, nc.recipient, services.NotificationQuery{
		UnreadOnly:    boolQuery(c, "unread_only"),
		ImportantOnly: boolQuery(c, "important_only"),
		Limit:         limit,
	})
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "", res)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}
	n, serr := nc.svc.MarkRead(c.Request.Context(), p, nc.recipient, id)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Notification marked as read", n)
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	count, serr := nc.svc.MarkAllRead(c.Request.Context(), p, nc.recipient)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "All notifications marked as read", gin.H{"count": count})
}

func (nc *NotificationController) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}
	if serr := nc.svc.Delete(c.Request.Context(), p, nc.recipient, id); serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Notification deleted", nil)
}

func (nc *NotificationController) ClearAll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	count, serr := nc.svc.ClearAll(c.Request.Context(), p, nc.recipient)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "All notifications cleared", gin.H{"count": count})
}

func (nc *NotificationController) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	stats, serr := nc.svc.Stats(c.Request.Context(), p, nc.recipient)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "", stats)
}
