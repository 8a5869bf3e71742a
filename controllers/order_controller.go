package controllers

import (
	"net/http"

	"topup-service/services"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orders       services.OrderService
	verification services.VerificationService
}

func NewOrderController(orders services.OrderService, verification services.VerificationService) *OrderController {
	return &OrderController{orders: orders, verification: verification}
}

// CreateOrder handles POST /orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, serr := oc.orders.CreateOrder(c.Request.Context(), p, &req)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusCreated, "Order created successfully", order)
}

// ListMyOrders handles GET /orders
func (oc *OrderController) ListMyOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, pageSize := parsePaginationParams(c)
	res, serr := oc.orders.ListMyOrders(c.Request.Context(), p, services.ListOrdersQuery{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	})
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondPaginated(c, res.Orders, res.Pagination)
}

// ListAllOrders handles GET /orders/admin/all
func (oc *OrderController) ListAllOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, pageSize := parsePaginationParams(c)
	res, serr := oc.orders.ListAllOrders(c.Request.Context(), p, services.ListOrdersQuery{
		Page:               page,
		PageSize:           pageSize,
		Status:             c.Query("status"),
		VerificationStatus: c.Query("verification_status"),
		Search:             c.Query("search"),
	})
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondPaginated(c, res.Orders, res.Pagination)
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	order, serr := oc.orders.GetOrder(c.Request.Context(), p, id)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "", order)
}

// UploadPaymentProof handles POST /orders/:id/payment-proof
func (oc *OrderController) UploadPaymentProof(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	var req services.PaymentProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, serr := oc.orders.UploadPaymentProof(c.Request.Context(), p, id, &req)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Payment proof uploaded successfully", order)
}

// CreateProofUploadURL handles POST /orders/:id/payment-proof/upload-url
func (oc *OrderController) CreateProofUploadURL(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	up, serr := oc.orders.CreateProofUploadURL(c.Request.Context(), p, id, c.Query("content_type"), c.Query("filename"))
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "", up)
}

// CancelOrder handles PUT /orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	order, serr := oc.orders.CancelOrder(c.Request.Context(), p, id)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Order cancelled successfully", order)
}

// UpdateStatus handles PUT /orders/:id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	var req services.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, serr := oc.orders.UpdateStatus(c.Request.Context(), p, id, &req)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Order status updated successfully", order)
}

// VerifyPayment handles POST /orders/:id/verify
func (oc *OrderController) VerifyPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	var req services.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, serr := oc.verification.VerifyPayment(c.Request.Context(), p, id, &req)
	if serr != nil {
		respondError(c, serr)
		return
	}
	msg := "Payment rejected"
	if *req.Verify {
		msg = "Payment verified successfully"
	}
	respondSuccess(c, http.StatusOK, msg, order)
}
