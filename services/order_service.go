package services

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"topup-service/auth"
	"topup-service/metrics"
	"topup-service/models"
	awspkg "topup-service/pkg/aws"
	"topup-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	minQuantity = 1
	maxQuantity = 100

	defaultUploadExpiry = 15 * time.Minute
	maxUploadExpiry     = time.Hour
	proofKeyPrefix      = "payment-proofs"
)

var proofContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type CreateOrderRequest struct {
	ProductID     string `json:"product_id"`
	PlayerID      string `json:"player_id"`
	Quantity      *int   `json:"quantity"`
	PlayerName    string `json:"player_name"`
	ServerID      string `json:"server_id"`
	ContactPhone  string `json:"contact_phone"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
	Notes         string `json:"notes"`
}

type PaymentProofRequest struct {
	ProofURL      string `json:"proof_url"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

type UpdateStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

type ListOrdersQuery struct {
	Page               int
	PageSize           int
	Status             string
	VerificationStatus string
	Search             string
}

type OrderPage struct {
	Orders     []models.EnrichedOrder `json:"orders"`
	Pagination Pagination             `json:"pagination"`
}

type UploadURL struct {
	UploadURL   string `json:"upload_url"`
	PublicURL   string `json:"public_url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor *auth.Principal, req *CreateOrderRequest) (*models.Order, *ServiceError)
	ListMyOrders(ctx context.Context, actor *auth.Principal, q ListOrdersQuery) (*OrderPage, *ServiceError)
	GetOrder(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*models.EnrichedOrder, *ServiceError)
	UploadPaymentProof(ctx context.Context, actor *auth.Principal, id uuid.UUID, req *PaymentProofRequest) (*models.Order, *ServiceError)
	CreateProofUploadURL(ctx context.Context, actor *auth.Principal, id uuid.UUID, contentType, filename string) (*UploadURL, *ServiceError)
	CancelOrder(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*models.Order, *ServiceError)
	ListAllOrders(ctx context.Context, actor *auth.Principal, q ListOrdersQuery) (*OrderPage, *ServiceError)
	UpdateStatus(ctx context.Context, actor *auth.Principal, id uuid.UUID, req *UpdateStatusRequest) (*models.Order, *ServiceError)
}

type OrderServiceConfig struct {
	UploadURLExpiry time.Duration
}

type orderService struct {
	orderMutator
	catalog      repository.CatalogRepository
	verification VerificationService
	store        awspkg.ObjectStore
	metrics      *metrics.Metrics
	cfg          OrderServiceConfig
}

// NewOrderService builds the order service. store and m may be nil; without
// a store presigned uploads are unavailable and replaced proofs are kept.
func NewOrderService(
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	dispatcher Dispatcher,
	verification VerificationService,
	store awspkg.ObjectStore,
	m *metrics.Metrics,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) OrderService {
	if cfg.UploadURLExpiry <= 0 {
		cfg.UploadURLExpiry = defaultUploadExpiry
	}
	if cfg.UploadURLExpiry > maxUploadExpiry {
		cfg.UploadURLExpiry = maxUploadExpiry
	}
	return &orderService{
		orderMutator: orderMutator{
			orders:     orders,
			dispatcher: dispatcher,
			logger:     logger,
			now:        time.Now,
		},
		catalog:      catalog,
		verification: verification,
		store:        store,
		metrics:      m,
		cfg:          cfg,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor *auth.Principal, req *CreateOrderRequest) (*models.Order, *ServiceError) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, ValidationError("Product ID is required")
	}
	productID, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, ValidationError("Invalid product ID")
	}
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return nil, ValidationError("Player ID is required")
	}
	quantity := minQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < minQuantity || quantity > maxQuantity {
		return nil, ValidationError(fmt.Sprintf("Quantity must be between %d and %d", minQuantity, maxQuantity))
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, NotFoundError("Product not found")
		}
		s.logger.Error("Failed to load product", zap.String("product_id", productID.String()), zap.Error(err))
		return nil, UpstreamError("Failed to load product", err)
	}
	if !product.IsActive || !product.Price.IsPositive() {
		return nil, ValidationError("Product is not available")
	}

	currency := product.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	order := &models.Order{
		ID:                 uuid.New(),
		UserID:             actor.ID,
		ProductID:          product.ID,
		Quantity:           quantity,
		UnitPrice:          product.Price,
		TotalAmount:        product.Price.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
		Currency:           currency,
		PlayerID:           playerID,
		PlayerName:         strings.TrimSpace(req.PlayerName),
		ServerID:           strings.TrimSpace(req.ServerID),
		ContactEmail:       actor.Email,
		ContactPhone:       strings.TrimSpace(req.ContactPhone),
		Notes:              req.Notes,
		PaymentMethod:      req.PaymentMethod,
		TransactionID:      strings.TrimSpace(req.TransactionID),
		PaymentStatus:      models.PaymentStatusPending,
		Status:             models.OrderStatusPending,
		VerificationStatus: models.VerificationPending,
		DeliveryStatus:     models.DeliveryPending,
		LastEvent:          models.EventCreated,
		LastActorID:        actor.ID,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.String("user_id", actor.ID), zap.Error(err))
		return nil, UpstreamError("Failed to create order", err)
	}

	s.metrics.OrderCreated()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", actor.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.dispatcher.Dispatch(ctx, models.EventCreated, order)
	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, actor *auth.Principal, q ListOrdersQuery) (*OrderPage, *ServiceError) {
	filter, serr := buildFilter(q)
	if serr != nil {
		return nil, serr
	}
	filter.UserID = actor.ID
	filter.VerificationStatus = ""
	filter.Search = ""
	return s.list(ctx, filter)
}

func (s *orderService) ListAllOrders(ctx context.Context, actor *auth.Principal, q ListOrdersQuery) (*OrderPage, *ServiceError) {
	if !actor.IsAdmin {
		return nil, UnauthorizedError("Admin access required")
	}
	filter, serr := buildFilter(q)
	if serr != nil {
		return nil, serr
	}
	return s.list(ctx, filter)
}

func buildFilter(q ListOrdersQuery) (models.OrderFilter, *ServiceError) {
	page, pageSize := normalizePage(q.Page, q.PageSize)
	filter := models.OrderFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(q.Search),
	}
	if q.Status != "" {
		status := models.OrderStatus(q.Status)
		if !status.Valid() {
			return filter, ValidationError(fmt.Sprintf("Invalid status filter: %s", q.Status))
		}
		filter.Status = status
	}
	if q.VerificationStatus != "" {
		vs := models.VerificationStatus(q.VerificationStatus)
		switch vs {
		case models.VerificationPending, models.VerificationVerified, models.VerificationRejected:
			filter.VerificationStatus = vs
		default:
			return filter, ValidationError(fmt.Sprintf("Invalid verification status filter: %s", q.VerificationStatus))
		}
	}
	return filter, nil
}

func (s *orderService) list(ctx context.Context, filter models.OrderFilter) (*OrderPage, *ServiceError) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, UpstreamError("Failed to fetch orders", err)
	}
	enriched, serr := s.enrich(ctx, orders)
	if serr != nil {
		return nil, serr
	}
	return &OrderPage{
		Orders:     enriched,
		Pagination: newPagination(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*models.EnrichedOrder, *ServiceError) {
	order, serr := s.load(ctx, id)
	if serr != nil {
		return nil, serr
	}
	if order.UserID != actor.ID && !actor.IsAdmin {
		return nil, UnauthorizedError("You do not have access to this order")
	}
	enriched, serr := s.enrich(ctx, []models.Order{*order})
	if serr != nil {
		return nil, serr
	}
	return &enriched[0], nil
}

func (s *orderService) loadOwned(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*models.Order, *ServiceError) {
	order, serr := s.load(ctx, id)
	if serr != nil {
		return nil, serr
	}
	if order.UserID != actor.ID {
		return nil, UnauthorizedError("You do not have access to this order")
	}
	return order, nil
}

func (s *orderService) UploadPaymentProof(ctx context.Context, actor *auth.Principal, id uuid.UUID, req *PaymentProofRequest) (*models.Order, *ServiceError) {
	proofURL := strings.TrimSpace(req.ProofURL)
	if proofURL == "" {
		return nil, ValidationError("Payment proof URL is required")
	}

	order, serr := s.loadOwned(ctx, actor, id)
	if serr != nil {
		return nil, serr
	}
	previous := order.PaymentProofURL

	updated, tr, serr := s.apply(ctx, order, actor.ID, func(o *models.Order) (transition, *ServiceError) {
		if o.PaymentProofURL == proofURL && o.Status == models.OrderStatusProcessing && o.VerificationStatus == models.VerificationPending {
			return transition{}, nil
		}
		return applyProofUpload(o, proofURL, strings.TrimSpace(req.PaymentMethod), strings.TrimSpace(req.TransactionID))
	})
	if serr != nil {
		return nil, serr
	}

	if tr.Event != "" {
		s.metrics.ProofUploaded()
		if previous != "" && previous != proofURL {
			s.deleteProof(ctx, previous)
		}
	}
	return updated, nil
}

// deleteProof removes a replaced proof object when it lives in our bucket.
func (s *orderService) deleteProof(ctx context.Context, url string) {
	if s.store == nil {
		return
	}
	key, ok := s.store.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete replaced payment proof", zap.String("key", key), zap.Error(err))
	}
}

func (s *orderService) CreateProofUploadURL(ctx context.Context, actor *auth.Principal, id uuid.UUID, contentType, filename string) (*UploadURL, *ServiceError) {
	if s.store == nil {
		return nil, UpstreamError("Payment proof storage is not configured", nil)
	}
	ext, ok := proofContentTypes[contentType]
	if !ok {
		return nil, ValidationError("Unsupported content type, use image/jpeg, image/png or image/webp")
	}

	order, serr := s.loadOwned(ctx, actor, id)
	if serr != nil {
		return nil, serr
	}
	if serr := canUploadProof(order); serr != nil {
		return nil, serr
	}

	key := fmt.Sprintf("%s/%s/%s-%s", proofKeyPrefix, order.ID, uuid.New(), sanitizeFilename(filename, ext))
	url, err := s.store.PresignPut(ctx, key, contentType, s.cfg.UploadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to presign proof upload", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, UpstreamError("Failed to create upload URL", err)
	}

	return &UploadURL{
		UploadURL:   url,
		PublicURL:   s.store.PublicURL(key),
		Key:         key,
		ContentType: contentType,
		ExpiresIn:   int(s.cfg.UploadURLExpiry.Seconds()),
	}, nil
}

func sanitizeFilename(name, ext string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Trim(unsafeFilenameChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "proof" + ext
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

func (s *orderService) CancelOrder(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*models.Order, *ServiceError) {
	order, serr := s.load(ctx, id)
	if serr != nil {
		return nil, serr
	}
	if order.UserID != actor.ID && !actor.IsAdmin {
		return nil, UnauthorizedError("You do not have access to this order")
	}
	return s.cancel(ctx, order, actor)
}

func (s *orderService) cancel(ctx context.Context, order *models.Order, actor *auth.Principal) (*models.Order, *ServiceError) {
	updated, _, serr := s.apply(ctx, order, actor.ID, applyCancel)
	if serr != nil {
		return nil, serr
	}
	s.metrics.StatusChanged(string(models.OrderStatusCancelled))
	s.logger.Info("Order cancelled", zap.String("order_id", order.ID.String()), zap.String("actor_id", actor.ID))
	return updated, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor *auth.Principal, id uuid.UUID, req *UpdateStatusRequest) (*models.Order, *ServiceError) {
	status := models.OrderStatus(req.Status)
	if !status.Valid() {
		return nil, ValidationError(fmt.Sprintf("Invalid status: %s", req.Status))
	}
	if actor.IsAdmin {
		return s.verification.AdminUpdateStatus(ctx, actor, id, status, req.AdminNotes)
	}
	if status != models.OrderStatusCancelled {
		return nil, UnauthorizedError("Only admin can update order status")
	}
	order, serr := s.loadOwned(ctx, actor, id)
	if serr != nil {
		return nil, serr
	}
	return s.cancel(ctx, order, actor)
}

// enrich resolves product and game summaries for a page of orders with one
// bulk query per table.
func (s *orderService) enrich(ctx context.Context, orders []models.Order) ([]models.EnrichedOrder, *ServiceError) {
	out := make([]models.EnrichedOrder, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}

	productIDs := make([]uuid.UUID, 0, len(orders))
	seen := make(map[uuid.UUID]struct{}, len(orders))
	for i := range orders {
		if _, ok := seen[orders[i].ProductID]; !ok {
			seen[orders[i].ProductID] = struct{}{}
			productIDs = append(productIDs, orders[i].ProductID)
		}
	}
	products, err := s.catalog.FindProducts(ctx, productIDs)
	if err != nil {
		s.logger.Error("Failed to load products", zap.Error(err))
		return nil, UpstreamError("Failed to fetch orders", err)
	}
	productByID := make(map[uuid.UUID]models.TopupPackage, len(products))
	gameIDs := make([]uuid.UUID, 0, len(products))
	seenGames := make(map[uuid.UUID]struct{}, len(products))
	for _, p := range products {
		productByID[p.ID] = p
		if p.GameID == uuid.Nil {
			continue
		}
		if _, ok := seenGames[p.GameID]; !ok {
			seenGames[p.GameID] = struct{}{}
			gameIDs = append(gameIDs, p.GameID)
		}
	}
	games, err := s.catalog.FindGames(ctx, gameIDs)
	if err != nil {
		s.logger.Error("Failed to load games", zap.Error(err))
		return nil, UpstreamError("Failed to fetch orders", err)
	}
	gameByID := make(map[uuid.UUID]models.Game, len(games))
	for _, g := range games {
		gameByID[g.ID] = g
	}

	for i := range orders {
		o := orders[i]
		e := models.EnrichedOrder{
			Order:       o,
			ShortCode:   o.ShortID(),
			ProductName: unknownProduct,
			GameName:    unknownGame,
			UserName:    userNameFromEmail(o.ContactEmail),
			UserEmail:   o.ContactEmail,
		}
		if p, ok := productByID[o.ProductID]; ok {
			e.ProductName = p.Name
			e.ProductNameBn = p.NameBn
			e.Diamonds = p.Diamonds
			e.ProductImage = p.ImageURL
			if p.GameID != uuid.Nil {
				e.GameID = p.GameID.String()
			}
			if g, ok := gameByID[p.GameID]; ok {
				e.GameName = g.Name
				e.GameNameBn = g.NameBn
			}
		}
		out = append(out, e)
	}
	return out, nil
}
