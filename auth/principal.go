// Package auth resolves bearer tokens to principals: admin sessions issued
// by this service first, then the external identity service.
package auth

import (
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID       string                 `json:"id"`
	Email    string                 `json:"email"`
	Name     string                 `json:"name,omitempty"`
	Role     string                 `json:"role"`
	IsAdmin  bool                   `json:"is_admin"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IdentityUser is the user record returned by the identity service.
type IdentityUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
}

// MetadataRole returns the role claimed in user or app metadata.
func (u *IdentityUser) MetadataRole() string {
	for _, md := range []map[string]interface{}{u.UserMetadata, u.AppMetadata} {
		if role, ok := md["role"].(string); ok && role != "" {
			return role
		}
	}
	return ""
}

// DisplayName prefers full_name/name metadata and falls back to the email
// local-part.
func (u *IdentityUser) DisplayName() string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
