package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps admin sessions keyed by opaque bearer token. Entries
// expire after the TTL given at Save.
type SessionStore interface {
	Save(ctx context.Context, token string, p *Principal, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (*Principal, error)
	Revoke(ctx context.Context, token string) error
}

// NewSessionToken returns 32 random bytes, base64url encoded.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "admin_session:" + hex.EncodeToString(sum[:])
}

// MemorySessionStore is a process-local store for single-instance deployments.
type MemorySessionStore struct {
	cache *cache.Cache
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (m *MemorySessionStore) Save(_ context.Context, token string, p *Principal, ttl time.Duration) error {
	cp := *p
	m.cache.Set(sessionKey(token), &cp, ttl)
	return nil
}

func (m *MemorySessionStore) Lookup(_ context.Context, token string) (*Principal, error) {
	v, ok := m.cache.Get(sessionKey(token))
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *v.(*Principal)
	return &cp, nil
}

func (m *MemorySessionStore) Revoke(_ context.Context, token string) error {
	m.cache.Delete(sessionKey(token))
	return nil
}

// RedisSessionStore shares sessions across instances.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (r *RedisSessionStore) Save(ctx context.Context, token string, p *Principal, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(token), data, ttl).Err()
}

func (r *RedisSessionStore) Lookup(ctx context.Context, token string) (*Principal, error) {
	data, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &p, nil
}

func (r *RedisSessionStore) Revoke(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}
