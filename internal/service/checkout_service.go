package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"playtopia/internal/domain"
	"playtopia/internal/payment"
	"playtopia/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutState is the externally observable state of a checkout attempt.
type CheckoutState string

const (
	CheckoutBlocked         CheckoutState = "blocked"
	CheckoutReady           CheckoutState = "ready"
	CheckoutAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutConfirmed       CheckoutState = "confirmed"
	CheckoutFailed          CheckoutState = "failed"
)

var (
	// ErrNoAddress means no shipping address is selected or the selected
	// one no longer exists; payment initiation is disallowed.
	ErrNoAddress = errors.New("no shipping address selected")

	// ErrEmptyCart means there is nothing to pay for
	ErrEmptyCart = errors.New("cart is empty")

	// ErrVerificationFailed means the payment authority rejected the
	// session or could not be reached. Always surfaced to the shopper,
	// never silently retried: checkout drops back to ready with cart and
	// addresses intact.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrVerificationInProgress means another verification of the same
	// session reference is already in flight.
	ErrVerificationInProgress = errors.New("payment verification already in progress")

	// ErrInvalidSessionRef rejects trivially short session references
	ErrInvalidSessionRef = errors.New("invalid payment session reference")
)

const minSessionRefLength = 8

// StockConflictError reports which cart lines now exceed live stock.
type StockConflictError struct {
	ProductIDs []uuid.UUID
}

func (e *StockConflictError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = id.String()
	}
	return "stock conflict for products: " + strings.Join(ids, ", ")
}

// CheckoutView is the computed state of a checkout attempt.
type CheckoutView struct {
	State           CheckoutState   `json:"state"`
	Cart            domain.Cart     `json:"cart"`
	Addresses       []*domain.Address `json:"addresses"`
	SelectedAddress *domain.Address `json:"selected_address,omitempty"`
	Conflicts       []uuid.UUID     `json:"conflicts,omitempty"`
}

// CheckoutService gates the transition from cart to payment and handles
// payment confirmation.
type CheckoutService interface {
	// Enter computes the current checkout view: cart, addresses, the
	// default-or-first address selection, and any stock conflicts found by
	// re-validating every line against live inventory.
	Enter(ctx context.Context, userID uuid.UUID) (*CheckoutView, error)

	// InitiatePayment re-validates and, only after validation completes,
	// requests a payment session. Returns the opaque redirect target.
	InitiatePayment(ctx context.Context, userID, addressID uuid.UUID) (string, error)

	// VerifyPayment confirms a returned session reference. Idempotent per
	// reference: repeats return the already-created order.
	VerifyPayment(ctx context.Context, sessionRef string) (*domain.Order, error)
}

type checkoutService struct {
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	stock       StockReader
	gateway     payment.Gateway
	pending     payment.PendingStore
	logger      *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	cartRepo repository.CartRepository,
	addressRepo repository.AddressRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	stock StockReader,
	gateway payment.Gateway,
	pending payment.PendingStore,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stock:       stock,
		gateway:     gateway,
		pending:     pending,
		logger:      logger,
	}
}

// revalidate re-checks every cart line against authoritative stock and
// captures price-at-purchase for the lines that pass. The whole cart is
// checked, not just recently changed lines: stock may have been drained by
// other activity since items were added.
func (s *checkoutService) revalidate(ctx context.Context, items []*domain.CartItem) ([]payment.PendingItem, []uuid.UUID, int64, error) {
	pendingItems := make([]payment.PendingItem, 0, len(items))
	conflicts := []uuid.UUID{}
	var total int64

	for _, item := range items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if err == repository.ErrProductNotFound {
				// Deleted product: the line cannot be fulfilled.
				conflicts = append(conflicts, item.ProductID)
				continue
			}
			return nil, nil, 0, err
		}

		if item.Quantity > product.Stock || !product.Available() {
			conflicts = append(conflicts, item.ProductID)
			continue
		}

		pendingItems = append(pendingItems, payment.PendingItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    item.Quantity,
		})
		total += int64(item.Quantity) * product.Price
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].String() < conflicts[j].String()
	})

	return pendingItems, conflicts, total, nil
}

// Enter computes the checkout view without mutating anything. Abandoning
// checkout after Enter leaves cart and address book untouched.
func (s *checkoutService) Enter(ctx context.Context, userID uuid.UUID) (*CheckoutView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	selected := domain.DefaultAddress(addresses)

	_, conflicts, _, err := s.revalidate(ctx, items)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{Item: *item, Product: products[item.ProductID]})
	}

	state := CheckoutReady
	if selected == nil || len(conflicts) > 0 || len(items) == 0 {
		state = CheckoutBlocked
	}

	return &CheckoutView{
		State:           state,
		Cart:            domain.NewCart(lines),
		Addresses:       addresses,
		SelectedAddress: selected,
		Conflicts:       conflicts,
	}, nil
}

// InitiatePayment validates the checkout and requests a payment session.
// Stock re-validation must complete before the session request is issued;
// the two steps are strictly sequential so a shopper is never sent to pay
// for an item that just went out of stock.
func (s *checkoutService) InitiatePayment(ctx context.Context, userID, addressID uuid.UUID) (string, error) {
	if addressID == uuid.Nil {
		return "", ErrNoAddress
	}

	address, err := s.addressRepo.FindByID(ctx, userID, addressID)
	if err != nil {
		if err == repository.ErrAddressNotFound {
			return "", ErrNoAddress
		}
		return "", err
	}

	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	pendingItems, conflicts, total, err := s.revalidate(ctx, items)
	if err != nil {
		return "", err
	}
	if len(conflicts) > 0 {
		return "", &StockConflictError{ProductIDs: conflicts}
	}

	// Validation has completed against a consistent inventory read; only
	// now may the external session be created.
	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		Amount:      total,
		Currency:    "inr",
		ReferenceID: userID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create payment session: %w", err)
	}

	pending := &payment.PendingCheckout{
		UserID:          userID,
		AddressID:       address.ID,
		ShippingName:    address.FullName,
		ShippingMobile:  address.Mobile,
		ShippingAddress: formatShippingAddress(address),
		Items:           pendingItems,
		Total:           total,
		CreatedAt:       time.Now(),
	}
	if err := s.pending.Save(ctx, session.Ref, pending); err != nil {
		return "", err
	}

	s.logger.Info("Payment session created",
		zap.String("user_id", userID.String()),
		zap.String("session_ref", session.Ref),
		zap.Int64("total", total),
	)

	return session.RedirectURL, nil
}

// VerifyPayment confirms a session with the payment authority and records
// the order. At most one provider call is issued per distinct reference; a
// repeat for an already-confirmed reference returns the existing order.
func (s *checkoutService) VerifyPayment(ctx context.Context, sessionRef string) (*domain.Order, error) {
	sessionRef = strings.TrimSpace(sessionRef)
	if len(sessionRef) < minSessionRefLength {
		return nil, ErrInvalidSessionRef
	}

	// Fast path: this reference was already confirmed and recorded.
	order, err := s.orderRepo.FindBySessionRef(ctx, sessionRef)
	if err == nil {
		return order, nil
	}
	if err != repository.ErrOrderNotFound {
		return nil, err
	}

	acquired, err := s.pending.AcquireVerify(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	if !acquired {
		// A concurrent verify holds the lock. If it already finished, its
		// order is visible; otherwise the shopper retries shortly.
		if order, err := s.orderRepo.FindBySessionRef(ctx, sessionRef); err == nil {
			return order, nil
		}
		return nil, ErrVerificationInProgress
	}

	verification, err := s.gateway.VerifySession(ctx, sessionRef)
	if err != nil {
		s.releaseVerify(ctx, sessionRef)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !verification.Paid {
		s.releaseVerify(ctx, sessionRef)
		return nil, ErrVerificationFailed
	}

	pending, err := s.pending.Load(ctx, sessionRef)
	if err != nil {
		s.releaseVerify(ctx, sessionRef)
		if err == payment.ErrPendingNotFound {
			return nil, fmt.Errorf("%w: unknown session", ErrVerificationFailed)
		}
		return nil, err
	}

	now := time.Now()
	order = &domain.Order{
		ID:                uuid.New(),
		UserID:            pending.UserID,
		Total:             pending.Total,
		ShippingName:      pending.ShippingName,
		ShippingMobile:    pending.ShippingMobile,
		ShippingAddress:   pending.ShippingAddress,
		PaymentStatus:     domain.PaymentPaid,
		FulfillmentStatus: domain.FulfillmentProcessing,
		PaymentSessionRef: sessionRef,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	productIDs := make([]uuid.UUID, 0, len(pending.Items))
	for _, item := range pending.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
		productIDs = append(productIDs, item.ProductID)
	}

	if err := s.orderRepo.CreateFromCheckout(ctx, order); err != nil {
		s.releaseVerify(ctx, sessionRef)
		return nil, err
	}

	s.stock.Invalidate(ctx, productIDs...)
	if err := s.pending.Delete(ctx, sessionRef); err != nil {
		s.logger.Warn("failed to delete pending checkout", zap.Error(err), zap.String("session_ref", sessionRef))
	}

	s.logger.Info("Payment verified, order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("session_ref", sessionRef),
	)

	// Re-read so a concurrent creator's order wins consistently.
	return s.orderRepo.FindBySessionRef(ctx, sessionRef)
}

func (s *checkoutService) releaseVerify(ctx context.Context, sessionRef string) {
	if err := s.pending.ReleaseVerify(ctx, sessionRef); err != nil {
		s.logger.Warn("failed to release verify lock", zap.Error(err), zap.String("session_ref", sessionRef))
	}
}

func formatShippingAddress(a *domain.Address) string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.PostalCode)
}
