package controllers_test

import (
	"context"

	"topup-service/auth"
	"topup-service/middleware"
	"topup-service/models"
	"topup-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockOrderService struct {
	createFn  func(*auth.Principal, *services.CreateOrderRequest) (*models.Order, *services.ServiceError)
	listFn    func(*auth.Principal, services.ListOrdersQuery) (*services.OrderPage, *services.ServiceError)
	getFn     func(*auth.Principal, uuid.UUID) (*models.EnrichedOrder, *services.ServiceError)
	proofFn   func(*auth.Principal, uuid.UUID, *services.PaymentProofRequest) (*models.Order, *services.ServiceError)
	uploadFn  func(*auth.Principal, uuid.UUID, string, string) (*services.UploadURL, *services.ServiceError)
	cancelFn  func(*auth.Principal, uuid.UUID) (*models.Order, *services.ServiceError)
	listAllFn func(*auth.Principal, services.ListOrdersQuery) (*services.OrderPage, *services.ServiceError)
	statusFn  func(*auth.Principal, uuid.UUID, *services.UpdateStatusRequest) (*models.Order, *services.ServiceError)
	lastQuery services.ListOrdersQuery
}

func (m *mockOrderService) CreateOrder(_ context.Context, p *auth.Principal, req *services.CreateOrderRequest) (*models.Order, *services.ServiceError) {
	return m.createFn(p, req)
}

func (m *mockOrderService) ListMyOrders(_ context.Context, p *auth.Principal, q services.ListOrdersQuery) (*services.OrderPage, *services.ServiceError) {
	m.lastQuery = q
	return m.listFn(p, q)
}

func (m *mockOrderService) GetOrder(_ context.Context, p *auth.Principal, id uuid.UUID) (*models.EnrichedOrder, *services.ServiceError) {
	return m.getFn(p, id)
}

func (m *mockOrderService) UploadPaymentProof(_ context.Context, p *auth.Principal, id uuid.UUID, req *services.PaymentProofRequest) (*models.Order, *services.ServiceError) {
	return m.proofFn(p, id, req)
}

func (m *mockOrderService) CreateProofUploadURL(_ context.Context, p *auth.Principal, id uuid.UUID, contentType, filename string) (*services.UploadURL, *services.ServiceError) {
	return m.uploadFn(p, id, contentType, filename)
}

func (m *mockOrderService) CancelOrder(_ context.Context, p *auth.Principal, id uuid.UUID) (*models.Order, *services.ServiceError) {
	return m.cancelFn(p, id)
}

func (m *mockOrderService) ListAllOrders(_ context.Context, p *auth.Principal, q services.ListOrdersQuery) (*services.OrderPage, *services.ServiceError) {
	m.lastQuery = q
	return m.listAllFn(p, q)
}

func (m *mockOrderService) UpdateStatus(_ context.Context, p *auth.Principal, id uuid.UUID, req *services.UpdateStatusRequest) (*models.Order, *services.ServiceError) {
	return m.statusFn(p, id, req)
}

type mockVerificationService struct {
	verifyFn func(*auth.Principal, uuid.UUID, *services.VerifyPaymentRequest) (*models.Order, *services.ServiceError)
}

func (m *mockVerificationService) VerifyPayment(_ context.Context, p *auth.Principal, id uuid.UUID, req *services.VerifyPaymentRequest) (*models.Order, *services.ServiceError) {
	return m.verifyFn(p, id, req)
}

func (m *mockVerificationService) AdminUpdateStatus(context.Context, *auth.Principal, uuid.UUID, models.OrderStatus, string) (*models.Order, *services.ServiceError) {
	return nil, services.UnauthorizedError("not used")
}

type mockNotificationService struct {
	lastRecipient models.RecipientType
	lastQuery     services.NotificationQuery
	listFn        func() (*services.NotificationList, *services.ServiceError)
	count         int64
	err           *services.ServiceError
}

func (m *mockNotificationService) List(_ context.Context, _ *auth.Principal, rt models.RecipientType, q services.NotificationQuery) (*services.NotificationList, *services.ServiceError) {
	m.lastRecipient = rt
	m.lastQuery = q
	return m.listFn()
}

func (m *mockNotificationService) MarkRead(_ context.Context, _ *auth.Principal, rt models.RecipientType, id uuid.UUID) (*models.Notification, *services.ServiceError) {
	m.lastRecipient = rt
	if m.err != nil {
		return nil, m.err
	}
	return &models.Notification{ID: id, IsRead: true}, nil
}

func (m *mockNotificationService) MarkAllRead(_ context.Context, _ *auth.Principal, rt models.RecipientType) (int64, *services.ServiceError) {
	m.lastRecipient = rt
	return m.count, m.err
}

func (m *mockNotificationService) Delete(_ context.Context, _ *auth.Principal, rt models.RecipientType, _ uuid.UUID) *services.ServiceError {
	m.lastRecipient = rt
	return m.err
}

func (m *mockNotificationService) ClearAll(_ context.Context, _ *auth.Principal, rt models.RecipientType) (int64, *services.ServiceError) {
	m.lastRecipient = rt
	return m.count, m.err
}

func (m *mockNotificationService) Stats(_ context.Context, _ *auth.Principal, rt models.RecipientType) (*models.NotificationStats, *services.ServiceError) {
	m.lastRecipient = rt
	return &models.NotificationStats{Total: 3, Unread: 1}, m.err
}

type MockAuthService struct {
	mock.Mock
}

func serviceErr(args mock.Arguments, i int) *services.ServiceError {
	if e, ok := args.Get(i).(*services.ServiceError); ok {
		return e
	}
	return nil
}

func (m *MockAuthService) AdminLogin(ctx context.Context, req *services.AdminLoginRequest) (*services.LoginResponse, *services.ServiceError) {
	args := m.Called(ctx, req.Email, req.Password)
	if args.Get(0) == nil {
		return nil, serviceErr(args, 1)
	}
	return args.Get(0).(*services.LoginResponse), serviceErr(args, 1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) *services.ServiceError {
	args := m.Called(ctx, token)
	return serviceErr(args, 0)
}

var (
	rahim = &auth.Principal{ID: "user-1", Email: "rahim@example.com", Role: "user"}
	staff = &auth.Principal{ID: "admin-a", Email: "ops@example.com", Role: "admin", IsAdmin: true}
)

// withPrincipal stands in for the auth middleware.
func withPrincipal(p *auth.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(middleware.PrincipalKey, p)
			c.Set(middleware.TokenKey, "tok-"+p.ID)
		}
		c.Next()
	}
}
