package controllers

import (
	"net/http"
	"strconv"

	"topup-service/auth"
	"topup-service/middleware"
	"topup-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	if message == "" {
		message = "Success"
	}
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondPaginated(c *gin.Context, data interface{}, p services.Pagination) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": p})
}

func respondError(c *gin.Context, err *services.ServiceError) {
	body := gin.H{"success": false, "error": err.Message}
	if err.Details != nil {
		body["details"] = err.Details
	}
	c.JSON(err.StatusCode, body)
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request", "details": err.Error()})
}

func principal(c *gin.Context) (*auth.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		respondError(c, services.UnauthenticatedError("Unauthorized"))
	}
	return p, ok
}

func parseID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, services.ValidationError("Invalid "+label+" ID"))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams reads page and page_size; the service clamps them.
func parsePaginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	if err != nil {
		pageSize = 0
	}
	return page, pageSize
}

func boolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
