package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"topup-service/auth"
	"topup-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubSettings struct {
	data string
	err  error
}

func (s stubSettings) Get(ctx context.Context) (*models.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Settings{ID: models.SettingsRowID, Data: []byte(s.data)}, nil
}

func TestAdminLogin_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	sessions := auth.NewMemorySessionStore()
	users := &memUsers{admins: []models.User{{ID: "admin-a", Email: "owner@shop.example", Role: models.RoleAdmin, DisplayName: "Owner"}}}
	svc := NewAuthService(stubSettings{data: `{"adminCredentials":{"email":"owner@shop.example","password":"` + string(hash) + `"}}`},
		users, sessions, 12*time.Hour, zap.NewNop())

	res, serr := svc.AdminLogin(context.Background(), &AdminLoginRequest{Email: "Owner@Shop.example", Password: "hunter2"})
	require.Nil(t, serr)
	assert.Equal(t, 43200, res.ExpiresIn)
	assert.Equal(t, "admin-a", res.User.ID)
	assert.Equal(t, "Owner", res.User.Name)
	assert.True(t, res.User.IsAdmin)

	p, err := sessions.Lookup(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin-a", p.ID)

	require.Nil(t, svc.Logout(context.Background(), res.Token))
	_, err = sessions.Lookup(context.Background(), res.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestAdminLogin_PlaintextFallbackAndDBPrincipal(t *testing.T) {
	svc := NewAuthService(stubSettings{data: `{"adminCredentials":{"email":"root@shop.example","password":"plain"}}`},
		&memUsers{}, auth.NewMemorySessionStore(), time.Hour, zap.NewNop())

	res, serr := svc.AdminLogin(context.Background(), &AdminLoginRequest{Email: "root@shop.example", Password: "plain"})
	require.Nil(t, serr)
	assert.Equal(t, fallbackAdminID, res.User.ID)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
}

func TestAdminLogin_Rejections(t *testing.T) {
	creds := `{"adminCredentials":{"email":"root@shop.example","password":"plain"}}`
	cases := []struct {
		name     string
		settings stubSettings
		req      AdminLoginRequest
		status   int
	}{
		{"wrong password", stubSettings{data: creds}, AdminLoginRequest{Email: "root@shop.example", Password: "nope"}, http.StatusUnauthorized},
		{"wrong email", stubSettings{data: creds}, AdminLoginRequest{Email: "x@shop.example", Password: "plain"}, http.StatusUnauthorized},
		{"no credentials", stubSettings{data: `{}`}, AdminLoginRequest{Email: "root@shop.example", Password: "plain"}, http.StatusUnauthorized},
		{"no settings row", stubSettings{err: gorm.ErrRecordNotFound}, AdminLoginRequest{Email: "a", Password: "b"}, http.StatusUnauthorized},
		{"store down", stubSettings{err: errors.New("timeout")}, AdminLoginRequest{Email: "a", Password: "b"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAuthService(tc.settings, &memUsers{}, auth.NewMemorySessionStore(), time.Hour, zap.NewNop())
			req := tc.req
			_, serr := svc.AdminLogin(context.Background(), &req)
			require.NotNil(t, serr)
			assert.Equal(t, tc.status, serr.StatusCode)
		})
	}
}

func TestPasswordMatches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, passwordMatches(string(hash), "s3cret"))
	assert.False(t, passwordMatches(string(hash), "S3cret"))
	assert.True(t, passwordMatches("plain", "plain"))
	assert.False(t, passwordMatches("plain", "plain "))
}
