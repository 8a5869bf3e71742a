package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"topup-service/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettings struct {
	data  string
	err   error
	calls int32
}

func (f *fakeSettings) Get(ctx context.Context) (*models.Settings, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Settings{ID: models.SettingsRowID, Data: []byte(f.data)}, nil
}

type staticIdentity struct {
	user *IdentityUser
	err  error
}

func (s staticIdentity) GetUser(ctx context.Context, token string) (*IdentityUser, error) {
	return s.user, s.err
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	_, ok = BearerToken("Basic Zm9vOmJhcg==")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestJWTIdentity(t *testing.T) {
	id := NewJWTIdentity("s3cret")

	tok := signed(t, "s3cret", jwt.MapClaims{
		"sub":           "user-1",
		"email":         "player@example.com",
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{"full_name": "Player One"},
		"app_metadata":  map[string]interface{}{"role": "admin"},
	})
	user, err := id.GetUser(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "player@example.com", user.Email)
	assert.Equal(t, "admin", user.MetadataRole())
	assert.Equal(t, "Player One", user.DisplayName())

	_, err = id.GetUser(context.Background(), signed(t, "other", jwt.MapClaims{"sub": "user-1"}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := signed(t, "s3cret", jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = id.GetUser(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = id.GetUser(context.Background(), signed(t, "s3cret", jwt.MapClaims{"email": "x@y.z"}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSupabaseIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u-42","email":"buyer@example.com","user_metadata":{"role":"user"}}`))
	}))
	defer srv.Close()

	id := NewSupabaseIdentity(srv.URL+"/", "anon")

	user, err := id.GetUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-42", user.ID)
	assert.Equal(t, "buyer", user.DisplayName())

	_, err = id.GetUser(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSupabaseIdentity_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSupabaseIdentity(srv.URL, "anon").GetUser(context.Background(), "any")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidToken))
}

func TestChainIdentity_FallsThrough(t *testing.T) {
	chain := ChainIdentity{
		staticIdentity{err: ErrInvalidToken},
		staticIdentity{user: &IdentityUser{ID: "u-1"}},
	}
	user, err := chain.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	_, err = ChainIdentity{}.GetUser(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	tok, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, tok, 43)

	require.NoError(t, store.Save(ctx, tok, &Principal{ID: "admin-db", IsAdmin: true}, time.Hour))
	p, err := store.Lookup(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "admin-db", p.ID)

	require.NoError(t, store.Revoke(ctx, tok))
	_, err = store.Lookup(ctx, tok)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_Expires(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", &Principal{ID: "a"}, 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	_, err := store.Lookup(ctx, "short")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAdminResolver(t *testing.T) {
	settings := &fakeSettings{data: `{"adminEmails":["Boss@Example.com"]}`}
	r := NewAdminResolver(settings, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.True(t, r.IsAdmin(ctx, &IdentityUser{Email: "boss@example.com"}))
	assert.False(t, r.IsAdmin(ctx, &IdentityUser{Email: "someone@example.com"}))
	assert.True(t, r.IsAdmin(ctx, &IdentityUser{UserMetadata: map[string]interface{}{"role": "admin"}}))
	assert.EqualValues(t, 1, atomic.LoadInt32(&settings.calls))

	r.Invalidate()
	r.IsAdmin(ctx, &IdentityUser{Email: "boss@example.com"})
	assert.EqualValues(t, 2, atomic.LoadInt32(&settings.calls))
}

func TestAdminResolver_LoadFailureNotCached(t *testing.T) {
	settings := &fakeSettings{err: errors.New("db down")}
	r := NewAdminResolver(settings, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.False(t, r.IsAdmin(ctx, &IdentityUser{Email: "boss@example.com"}))
	assert.False(t, r.IsAdmin(ctx, &IdentityUser{Email: "boss@example.com"}))
	assert.EqualValues(t, 2, atomic.LoadInt32(&settings.calls))
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessionStore()
	require.NoError(t, sessions.Save(ctx, "admin-token", &Principal{ID: "admin-db", Role: "admin", IsAdmin: true}, time.Hour))

	settings := &fakeSettings{data: `{"adminEmails":["ops@example.com"]}`}
	identity := staticIdentity{user: &IdentityUser{ID: "u-7", Email: "ops@example.com"}}
	a := NewAuthenticator(sessions, identity, NewAdminResolver(settings, time.Minute, zap.NewNop()), zap.NewNop())

	p, err := a.Authenticate(ctx, "admin-token")
	require.NoError(t, err)
	assert.Equal(t, "admin-db", p.ID)

	p, err = a.Authenticate(ctx, "identity-token")
	require.NoError(t, err)
	assert.Equal(t, "u-7", p.ID)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, "admin", p.Role)
	assert.Equal(t, "ops", p.Name)

	rejecting := NewAuthenticator(sessions, staticIdentity{err: errors.New("timeout")}, NewAdminResolver(settings, time.Minute, zap.NewNop()), zap.NewNop())
	_, err = rejecting.Authenticate(ctx, "whatever")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
