package controllers

import (
	"net/http"

	"topup-service/middleware"
	"topup-service/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	svc services.AuthService
}

func NewAuthController(svc services.AuthService) *AuthController {
	return &AuthController{svc: svc}
}

// AdminLogin handles POST /auth/admin/login
func (ac *AuthController) AdminLogin(c *gin.Context) {
	var req services.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, serr := ac.svc.AdminLogin(c.Request.Context(), &req)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Login successful", res)
}

// Logout handles POST /auth/admin/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if serr := ac.svc.Logout(c.Request.Context(), middleware.GetToken(c)); serr != nil {
		respondError(c, serr)
		return
	}
	respondSuccess(c, http.StatusOK, "Logged out", nil)
}

// Me handles GET /auth/me
func (ac *AuthController) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"user": p, "is_admin": p.IsAdmin})
}
