package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// IdentityProvider resolves a bearer token to the identity service's user.
type IdentityProvider interface {
	GetUser(ctx context.Context, token string) (*IdentityUser, error)
}

// SupabaseIdentity calls the identity service's user endpoint.
type SupabaseIdentity struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewSupabaseIdentity(baseURL, anonKey string) *SupabaseIdentity {
	return &SupabaseIdentity{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SupabaseIdentity) GetUser(ctx context.Context, token string) (*IdentityUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", s.anonKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("identity response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity service returned %d", resp.StatusCode)
	}

	var user IdentityUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode identity user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

// JWTIdentity verifies HS256 identity tokens with the shared project secret.
type JWTIdentity struct {
	secret []byte
}

func NewJWTIdentity(secret string) *JWTIdentity {
	return &JWTIdentity{secret: []byte(secret)}
}

func (j *JWTIdentity) GetUser(_ context.Context, token string) (*IdentityUser, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &IdentityUser{
		ID:           sub,
		Email:        email,
		Role:         role,
		UserMetadata: mapClaim(claims, "user_metadata"),
		AppMetadata:  mapClaim(claims, "app_metadata"),
	}, nil
}

func mapClaim(claims jwt.MapClaims, key string) map[string]interface{} {
	if m, ok := claims[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}

// ChainIdentity tries each provider in order and returns the first user
// resolved. The last provider's error is returned when none succeeds.
type ChainIdentity []IdentityProvider

func (c ChainIdentity) GetUser(ctx context.Context, token string) (*IdentityUser, error) {
	err := ErrInvalidToken
	for _, p := range c {
		var user *IdentityUser
		user, err = p.GetUser(ctx, token)
		if err == nil {
			return user, nil
		}
	}
	return nil, err
}
