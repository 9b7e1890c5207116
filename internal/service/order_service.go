package service

import (
	"context"
	"errors"
	"fmt"

	"playtopia/internal/domain"
	"playtopia/internal/payment"
	"playtopia/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidFulfillmentStatus = errors.New("invalid fulfillment status")

// DashboardStats summarizes the store for the admin dashboard
type DashboardStats struct {
	Users    int   `json:"users"`
	Products int   `json:"products"`
	Orders   int   `json:"orders"`
	Revenue  int64 `json:"revenue"`
}

// OrderService is the admin-side order surface: the fulfillment status
// machine and payment-status read-through.
type OrderService interface {
	ListAll(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	// SetStatus writes a fulfillment status. Any of the three statuses is
	// reachable from any other: last write wins, preserving the admin's
	// ability to correct mistakes. Payment status is never touched.
	SetStatus(ctx context.Context, orderID uuid.UUID, status domain.FulfillmentStatus) (*domain.Order, error)

	// RefreshPaymentStatus reads the payment axis through from the payment
	// authority and persists the result. Fulfillment status is never touched.
	RefreshPaymentStatus(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	Stats(ctx context.Context) (*DashboardStats, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	gateway     payment.Gateway
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	gateway payment.Gateway,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// ListAll retrieves every order for the admin console
func (s *orderService) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

// GetOrder retrieves a single order
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// SetStatus persists a fulfillment status write and returns the updated order
func (s *orderService) SetStatus(ctx context.Context, orderID uuid.UUID, status domain.FulfillmentStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFulfillmentStatus, status)
	}

	if err := s.orderRepo.SetFulfillmentStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logger.Info("Order fulfillment status changed",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(status)),
	)

	return s.orderRepo.FindByID(ctx, orderID)
}

// RefreshPaymentStatus re-reads the session verdict from the payment
// authority. Provider failure leaves the stored status unchanged.
func (s *orderService) RefreshPaymentStatus(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	verification, err := s.gateway.VerifySession(ctx, order.PaymentSessionRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment status: %w", err)
	}

	status := domain.PaymentPending
	if verification.Paid {
		status = domain.PaymentPaid
	}

	if status != order.PaymentStatus {
		if err := s.orderRepo.SetPaymentStatus(ctx, orderID, status); err != nil {
			return nil, err
		}
	}

	return s.orderRepo.FindByID(ctx, orderID)
}

// Stats aggregates the dashboard counters
func (s *orderService) Stats(ctx context.Context) (*DashboardStats, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orderRepo.Revenue(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Users:    users,
		Products: products,
		Orders:   orders,
		Revenue:  revenue,
	}, nil
}
