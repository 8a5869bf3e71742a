package services

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"topup-service/auth"
	"topup-service/models"
	"topup-service/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fallbackAdminID identifies a settings-credential admin with no users row.
const fallbackAdminID = "admin-db"

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	User      *auth.Principal `json:"user"`
	ExpiresIn int             `json:"expires_in"`
}

type AuthService interface {
	AdminLogin(ctx context.Context, req *AdminLoginRequest) (*LoginResponse, *ServiceError)
	Logout(ctx context.Context, token string) *ServiceError
}

type authService struct {
	settings repository.SettingsRepository
	users    repository.UserRepository
	sessions auth.SessionStore
	ttl      time.Duration
	logger   *zap.Logger
}

func NewAuthService(settings repository.SettingsRepository, users repository.UserRepository, sessions auth.SessionStore, ttl time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		settings: settings,
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
	}
}

func (s *authService) AdminLogin(ctx context.Context, req *AdminLoginRequest) (*LoginResponse, *ServiceError) {
	invalid := UnauthenticatedError("Invalid credentials")

	row, err := s.settings.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, invalid
		}
		s.logger.Error("Failed to load settings", zap.Error(err))
		return nil, UpstreamError("Failed to verify credentials", err)
	}
	data, err := row.Decode()
	if err != nil {
		s.logger.Error("Failed to decode settings", zap.Error(err))
		return nil, UpstreamError("Failed to verify credentials", err)
	}
	creds := data.AdminCredentials
	if creds == nil || creds.Email == "" || creds.Password == "" {
		return nil, invalid
	}

	email := strings.TrimSpace(req.Email)
	if !strings.EqualFold(email, strings.TrimSpace(creds.Email)) || !passwordMatches(creds.Password, req.Password) {
		s.logger.Warn("Admin login rejected", zap.String("email", email))
		return nil, invalid
	}

	principal := &auth.Principal{
		ID:      fallbackAdminID,
		Email:   creds.Email,
		Name:    "Admin",
		Role:    models.RoleAdmin,
		IsAdmin: true,
	}
	if u, err := s.users.FindByEmail(ctx, creds.Email); err == nil && u.Role == models.RoleAdmin {
		principal.ID = u.ID
		if u.DisplayName != "" {
			principal.Name = u.DisplayName
		}
	} else if err != nil && !isNotFound(err) {
		s.logger.Warn("Failed to look up admin user", zap.Error(err))
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, UpstreamError("Failed to create session", err)
	}
	if err := s.sessions.Save(ctx, token, principal, s.ttl); err != nil {
		s.logger.Error("Failed to store admin session", zap.Error(err))
		return nil, UpstreamError("Failed to create session", err)
	}

	s.logger.Info("Admin logged in", zap.String("admin_id", principal.ID))
	return &LoginResponse{
		Token:     token,
		User:      principal,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) *ServiceError {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		s.logger.Error("Failed to revoke admin session", zap.Error(err))
		return UpstreamError("Failed to log out", err)
	}
	return nil
}

// passwordMatches accepts bcrypt hashes and, for legacy rows, plaintext.
func passwordMatches(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
