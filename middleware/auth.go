package middleware

import (
	"context"
	"net/http"

	"topup-service/auth"

	"github.com/gin-gonic/gin"
)

const (
	PrincipalKey = "principal"
	TokenKey     = "auth_token"
)

// TokenAuthenticator resolves a bearer token to a principal.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// RequireUser admits any authenticated principal.
func RequireUser(a TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, a) {
			return
		}
		c.Next()
	}
}

// RequireAdmin admits only principals with the admin capability.
func RequireAdmin(a TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, a) {
			return
		}
		if p, _ := GetPrincipal(c); !p.IsAdmin {
			abortError(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// authenticate reuses a principal set by an outer guard on the same request.
func authenticate(c *gin.Context, a TokenAuthenticator) bool {
	if _, ok := GetPrincipal(c); ok {
		return true
	}
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		abortError(c, http.StatusUnauthorized, "Missing or invalid authorization header")
		return false
	}
	p, err := a.Authenticate(c.Request.Context(), token)
	if err != nil {
		abortError(c, http.StatusUnauthorized, "Invalid or expired token")
		return false
	}
	c.Set(PrincipalKey, p)
	c.Set(TokenKey, token)
	return true
}

func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}
