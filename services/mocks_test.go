package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"topup-service/auth"
	"topup-service/messages"
	"topup-service/models"
	awspkg "topup-service/pkg/aws"
	"topup-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memOrderRepo struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]models.Order
	clock  time.Time
	err    error
	before func(id uuid.UUID) // runs inside SaveIf before the guard check
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		rows:  map[uuid.UUID]models.Order{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick hands out strictly increasing timestamps.
func (r *memOrderRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memOrderRepo) Create(ctx context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := r.tick()
	o.CreatedAt, o.UpdatedAt = now, now
	r.rows[o.ID] = *o
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Order
	for _, o := range r.rows {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.VerificationStatus != "" && o.VerificationStatus != f.VerificationStatus {
			continue
		}
		if f.Search != "" && !strings.Contains(o.PlayerID, f.Search) && !strings.Contains(o.TransactionID, f.Search) {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	total := int64(len(all))
	start := (f.Page - 1) * f.PageSize
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + f.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memOrderRepo) SaveIf(ctx context.Context, o *models.Order, guard repository.OrderGuard) error {
	if r.before != nil {
		r.before(o.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cur, ok := r.rows[o.ID]
	if !ok || cur.Status != guard.Status || cur.VerificationStatus != guard.VerificationStatus {
		return repository.ErrStaleOrder
	}
	o.UserID, o.ProductID, o.CreatedAt, o.NotifiedAt = cur.UserID, cur.ProductID, cur.CreatedAt, cur.NotifiedAt
	o.UpdatedAt = r.tick()
	r.rows[o.ID] = *o
	return nil
}

// set overwrites a row directly, bypassing the guard.
func (r *memOrderRepo) set(o models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.UpdatedAt = r.tick()
	r.rows[o.ID] = o
}

func (r *memOrderRepo) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[id]
	if !ok {
		return nil
	}
	t := r.tick()
	o.NotifiedAt = &t
	r.rows[id] = o
	return nil
}

func (r *memOrderRepo) RecordNotifyAttempt(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.rows[id]; ok {
		o.NotifyAttempts++
		r.rows[id] = o
	}
	return nil
}

func (r *memOrderRepo) FindUnnotified(ctx context.Context, before time.Time, maxAttempts, limit int) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.rows {
		if o.LastEvent == "" || !o.UpdatedAt.Before(before) || o.NotifyAttempts >= maxAttempts {
			continue
		}
		if o.NotifiedAt == nil || o.NotifiedAt.Before(o.UpdatedAt) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NotifyAttempts != out[j].NotifyAttempts {
			return out[i].NotifyAttempts < out[j].NotifyAttempts
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// stamp is tick for callers outside the repository.
func (r *memOrderRepo) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick()
}

func (r *memOrderRepo) get(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[id]
	require.True(t, ok)
	return o
}

type memCatalog struct {
	products map[uuid.UUID]models.TopupPackage
	games    map[uuid.UUID]models.Game
	err      error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: map[uuid.UUID]models.TopupPackage{}, games: map[uuid.UUID]models.Game{}}
}

func (c *memCatalog) addProduct(price int64, active bool, game *models.Game) models.TopupPackage {
	p := models.TopupPackage{
		ID:       uuid.New(),
		Name:     "100 Diamonds",
		NameBn:   "১০০ ডায়মন্ড",
		Price:    decimal.NewFromInt(price),
		Currency: "BDT",
		Diamonds: 100,
		IsActive: active,
	}
	if game != nil {
		p.GameID = game.ID
		c.games[game.ID] = *game
	}
	c.products[p.ID] = p
	return p
}

func (c *memCatalog) FindProduct(ctx context.Context, id uuid.UUID) (*models.TopupPackage, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (c *memCatalog) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.TopupPackage, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []models.TopupPackage
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *memCatalog) FindGames(ctx context.Context, ids []uuid.UUID) ([]models.Game, error) {
	var out []models.Game
	for _, id := range ids {
		if g, ok := c.games[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu      sync.Mutex
	rows    []models.Notification
	failFor map[string]bool // user ids whose inserts fail
	lookErr error
	now     func() time.Time
}

func (m *memNotifications) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[n.UserID] {
		return errors.New("insert failed")
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	if m.now != nil {
		n.CreatedAt = m.now()
	}
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifications) AdminRecipients(ctx context.Context, orderID uuid.UUID, action string, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return nil, m.lookErr
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range m.rows {
		if n.RecipientType != models.RecipientAdmin || n.RelatedOrderID == nil || *n.RelatedOrderID != orderID {
			continue
		}
		if n.Metadata["action"] != action || n.CreatedAt.Before(since) || seen[n.UserID] {
			continue
		}
		seen[n.UserID] = true
		out = append(out, n.UserID)
	}
	return out, nil
}

func (m *memNotifications) match(n models.Notification, userID string, rt models.RecipientType) bool {
	return n.UserID == userID && n.RecipientType == rt
}

func (m *memNotifications) List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for i := len(m.rows) - 1; i >= 0; i-- {
		n := m.rows[i]
		if !m.match(n, f.UserID, f.RecipientType) || (f.UnreadOnly && n.IsRead) || (f.ImportantOnly && !n.IsImportant) {
			continue
		}
		out = append(out, n)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, userID string, rt models.RecipientType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for _, n := range m.rows {
		if m.match(n, userID, rt) && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *memNotifications) Stats(ctx context.Context, userID string, rt models.RecipientType) (*models.NotificationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.NotificationStats{}
	for _, n := range m.rows {
		if !m.match(n, userID, rt) {
			continue
		}
		s.Total++
		if !n.IsRead {
			s.Unread++
		}
		if n.IsImportant {
			s.Important++
			if !n.IsRead {
				s.ImportantUnread++
			}
		}
	}
	return s, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id uuid.UUID, userID string, rt models.RecipientType) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.match(m.rows[i], userID, rt) {
			now := time.Now()
			m.rows[i].IsRead = true
			m.rows[i].ReadAt = &now
			n := m.rows[i]
			return &n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memNotifications) MarkAllRead(ctx context.Context, userID string, rt models.RecipientType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for i := range m.rows {
		if m.match(m.rows[i], userID, rt) && !m.rows[i].IsRead {
			m.rows[i].IsRead = true
			c++
		}
	}
	return c, nil
}

func (m *memNotifications) Delete(ctx context.Context, id uuid.UUID, userID string, rt models.RecipientType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.match(m.rows[i], userID, rt) {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memNotifications) DeleteAll(ctx context.Context, userID string, rt models.RecipientType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var c int64
	for _, n := range m.rows {
		if m.match(n, userID, rt) {
			c++
			continue
		}
		kept = append(kept, n)
	}
	m.rows = kept
	return c, nil
}

// forRecipient returns rows addressed to userID with the given type.
func (m *memNotifications) forRecipient(userID string, rt models.RecipientType) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.rows {
		if m.match(n, userID, rt) {
			out = append(out, n)
		}
	}
	return out
}

type memUsers struct {
	admins []models.User
	err    error
}

func (u *memUsers) FindAdmins(ctx context.Context) ([]models.User, error) {
	return u.admins, u.err
}

func (u *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, a := range u.admins {
		if strings.EqualFold(a.Email, email) {
			a := a
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeStore struct {
	deleted []string
	base    string
}

func (f *fakeStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return f.base + "/" + key
}

func (f *fakeStore) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, f.base+"/") {
		return "", false
	}
	return strings.TrimPrefix(url, f.base+"/"), true
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	sent     []awspkg.EventMessage
}

func (p *fakePublisher) Publish(ctx context.Context, msg awspkg.EventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg.Body)
	p.sent = append(p.sent, msg)
	return nil
}

type harness struct {
	orders        *memOrderRepo
	catalog       *memCatalog
	notifications *memNotifications
	users         *memUsers
	store         *fakeStore
	publisher     *fakePublisher
	dispatcher    Dispatcher
	verification  VerificationService
	svc           OrderService
}

var (
	userOne = &auth.Principal{ID: "user-1", Email: "rahim@example.com", Role: "user"}
	userTwo = &auth.Principal{ID: "user-2", Email: "karim@example.com", Role: "user"}
	adminA  = &auth.Principal{ID: "admin-a", Email: "a@shop.example", Role: "admin", IsAdmin: true}
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog, err := messages.NewCatalog("en")
	require.NoError(t, err)

	h := &harness{
		orders:        newMemOrderRepo(),
		catalog:       newMemCatalog(),
		notifications: &memNotifications{failFor: map[string]bool{}},
		users: &memUsers{admins: []models.User{
			{ID: "admin-a", Email: "a@shop.example", Role: models.RoleAdmin},
			{ID: "admin-b", Email: "b@shop.example", Role: models.RoleAdmin},
		}},
		store:     &fakeStore{base: "https://cdn.example"},
		publisher: &fakePublisher{},
	}
	h.notifications.now = h.orders.stamp
	logger := zap.NewNop()
	h.dispatcher = NewDispatcher(h.notifications, h.users, h.catalog, h.orders, catalog, h.publisher, nil,
		DispatcherConfig{SupportContact: "01700000000", EventsTopicArn: "arn:aws:sns:ap-south-1:000000000000:order-events"}, logger)
	h.verification = NewVerificationService(h.orders, h.dispatcher, nil, logger)
	h.svc = NewOrderService(h.orders, h.catalog, h.dispatcher, h.verification, h.store, nil, OrderServiceConfig{}, logger)
	return h
}
