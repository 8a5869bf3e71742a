package routes

import (
	"net/http"

	"topup-service/controllers"
	"topup-service/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers groups the handlers mounted under /api.
type Controllers struct {
	Orders             *controllers.OrderController
	UserNotifications  *controllers.NotificationController
	AdminNotifications *controllers.NotificationController
	Auth               *controllers.AuthController
}

// RegisterRoutes mounts every endpoint. Literal segments such as /admin/all and
// /mark-all-read are registered next to :id so gin resolves them first.
func RegisterRoutes(r *gin.Engine, c Controllers, authn middleware.TokenAuthenticator, metricsHandler http.Handler) {
	r.GET("/health", controllers.Health)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/api")
	api.GET("/health", controllers.Health)

	authRoutes := api.Group("/auth")
	authRoutes.POST("/admin/login", c.Auth.AdminLogin)
	authRoutes.POST("/admin/logout", middleware.RequireAdmin(authn), c.Auth.Logout)
	authRoutes.GET("/me", middleware.RequireUser(authn), c.Auth.Me)

	orders := api.Group("/orders", middleware.RequireUser(authn))
	{
		orders.POST("", c.Orders.CreateOrder)
		orders.GET("", c.Orders.ListMyOrders)
		orders.GET("/admin/all", middleware.RequireAdmin(authn), c.Orders.ListAllOrders)
		orders.GET("/:id", c.Orders.GetOrder)
		orders.POST("/:id/payment-proof", c.Orders.UploadPaymentProof)
		orders.POST("/:id/payment-proof/upload-url", c.Orders.CreateProofUploadURL)
		orders.PUT("/:id/cancel", c.Orders.CancelOrder)
		orders.PUT("/:id/status", c.Orders.UpdateStatus)
		orders.POST("/:id/verify", middleware.RequireAdmin(authn), c.Orders.VerifyPayment)
	}

	notifications := api.Group("/notifications", middleware.RequireUser(authn))
	registerInbox(notifications, c.UserNotifications, false)

	adminNotifications := api.Group("/admin/notifications", middleware.RequireAdmin(authn))
	registerInbox(adminNotifications, c.AdminNotifications, true)
}

func registerInbox(g *gin.RouterGroup, nc *controllers.NotificationController, withStats bool) {
	g.GET("", nc.List)
	if withStats {
		g.GET("/stats", nc.Stats)
	}
	g.PUT("/mark-all-read", nc.MarkAllRead)
	g.DELETE("/clear-all", nc.ClearAll)
	g.PUT("/:id/read", nc.MarkRead)
	g.DELETE("/:id", nc.Delete)
}
