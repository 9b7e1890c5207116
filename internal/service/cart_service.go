package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"playtopia/internal/domain"
	"playtopia/internal/inventory"
	"playtopia/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrStockExceeded means the requested quantity plus what is already in
	// the cart would exceed the product's stock. The cart is left unchanged.
	ErrStockExceeded   = errors.New("requested quantity exceeds available stock")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

// StockReader provides the inventory views quantity validation needs.
// Get may serve a cached snapshot; Live always observes authoritative state.
type StockReader interface {
	Get(ctx context.Context, productID uuid.UUID) (*inventory.View, error)
	Live(ctx context.Context, productID uuid.UUID) (*inventory.View, error)
	Invalidate(ctx context.Context, productIDs ...uuid.UUID)
}

// CartService maintains the shopper's cart lines and keeps them consistent
// with live inventory. Every mutation returns the updated cart so callers
// refresh from the return value, not a side channel.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (domain.Cart, error)
	IncreaseQty(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error)
	DecreaseQty(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	stock       StockReader
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, stock StockReader) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		stock:       stock,
	}
}

// Get assembles the cart view. The total is recomputed from live product
// prices on every call. Lines whose product has been deleted are kept with
// a nil product so the storefront can render them as unavailable.
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return domain.Cart{}, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{
			Item:    *item,
			Product: products[item.ProductID],
		})
	}

	return domain.NewCart(lines), nil
}

// AddItem creates or grows a cart line after checking the shopper's total
// quantity for the product against its stock. Rejection leaves the ledger
// untouched.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (domain.Cart, error) {
	if qty <= 0 {
		return domain.Cart{}, ErrInvalidQuantity
	}

	view, err := s.stock.Get(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	line, err := s.cartRepo.FindLine(ctx, userID, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	current := 0
	if line != nil {
		current = line.Quantity
	}

	// The ceiling is this shopper's committed quantity, not a reservation:
	// other shoppers are only reconciled at checkout against live stock.
	if current+qty > view.Stock {
		return domain.Cart{}, fmt.Errorf("%w: product %s has %d in stock", ErrStockExceeded, productID, view.Stock)
	}

	now := time.Now()
	item := &domain.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cartRepo.Upsert(ctx, item); err != nil {
		return domain.Cart{}, err
	}

	return s.Get(ctx, userID)
}

// IncreaseQty grows a line by one, subject to the same stock ceiling as AddItem
func (s *cartService) IncreaseQty(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	return s.AddItem(ctx, userID, productID, 1)
}

// DecreaseQty shrinks a line by one but never below 1; dropping to zero
// requires an explicit RemoveItem.
func (s *cartService) DecreaseQty(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	line, err := s.cartRepo.FindLine(ctx, userID, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	if line != nil && line.Quantity > 1 {
		if err := s.cartRepo.SetQuantity(ctx, userID, productID, line.Quantity-1); err != nil {
			return domain.Cart{}, err
		}
	}

	return s.Get(ctx, userID)
}

// RemoveItem deletes a line unconditionally; removing an absent line is not
// an error.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	if err := s.cartRepo.Delete(ctx, userID, productID); err != nil {
		return domain.Cart{}, err
	}

	return s.Get(ctx, userID)
}
