package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "game-topup-api"

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
}
