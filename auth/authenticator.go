package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Authenticator resolves bearer tokens: admin sessions first, then the
// identity provider.
type Authenticator struct {
	sessions SessionStore
	identity IdentityProvider
	admins   *AdminResolver
	logger   *zap.Logger
}

func NewAuthenticator(sessions SessionStore, identity IdentityProvider, admins *AdminResolver, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		identity: identity,
		admins:   admins,
		logger:   logger,
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, err := a.sessions.Lookup(ctx, token)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		a.logger.Warn("Session lookup failed", zap.Error(err))
	}

	user, err := a.identity.GetUser(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			a.logger.Warn("Identity lookup failed", zap.Error(err))
		}
		return nil, ErrInvalidToken
	}

	isAdmin := a.admins.IsAdmin(ctx, user)
	role := "user"
	if isAdmin {
		role = "admin"
	}
	return &Principal{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.DisplayName(),
		Role:     role,
		IsAdmin:  isAdmin,
		Metadata: user.UserMetadata,
	}, nil
}
