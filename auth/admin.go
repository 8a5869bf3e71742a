package auth

import (
	"context"
	"strings"
	"time"

	"topup-service/models"
	"topup-service/repository"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const adminEmailsKey = "admin_emails"

// AdminResolver decides whether an identity user holds the admin
// capability. The settings admin list is cached for the configured TTL.
type AdminResolver struct {
	settings repository.SettingsRepository
	cache    *cache.Cache
	logger   *zap.Logger
}

func NewAdminResolver(settings repository.SettingsRepository, ttl time.Duration, logger *zap.Logger) *AdminResolver {
	return &AdminResolver{
		settings: settings,
		cache:    cache.New(ttl, 2*ttl),
		logger:   logger,
	}
}

func (r *AdminResolver) IsAdmin(ctx context.Context, u *IdentityUser) bool {
	if u.MetadataRole() == models.RoleAdmin {
		return true
	}
	if u.Email == "" {
		return false
	}
	_, ok := r.adminEmails(ctx)[strings.ToLower(u.Email)]
	return ok
}

func (r *AdminResolver) adminEmails(ctx context.Context) map[string]struct{} {
	if v, ok := r.cache.Get(adminEmailsKey); ok {
		return v.(map[string]struct{})
	}

	emails := map[string]struct{}{}
	row, err := r.settings.Get(ctx)
	if err != nil {
		// Not cached, so the next request retries.
		r.logger.Warn("Failed to load admin settings", zap.Error(err))
		return emails
	}
	data, err := row.Decode()
	if err != nil {
		r.logger.Warn("Failed to decode admin settings", zap.Error(err))
		return emails
	}
	for _, e := range data.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails[e] = struct{}{}
		}
	}
	r.cache.SetDefault(adminEmailsKey, emails)
	return emails
}

// Invalidate drops the cached admin list.
func (r *AdminResolver) Invalidate() {
	r.cache.Delete(adminEmailsKey)
}
