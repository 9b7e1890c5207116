package service

import (
	"context"

	"playtopia/internal/domain"
	"playtopia/internal/repository"

	"github.com/google/uuid"
)

// WishlistEntry is a wishlist item joined with its product. Product is nil
// when the catalog entry has been deleted.
type WishlistEntry struct {
	Item    domain.WishlistItem `json:"item"`
	Product *domain.Product     `json:"product,omitempty"`
}

// WishlistService maintains the shopper's saved-product set
type WishlistService interface {
	List(ctx context.Context, userID uuid.UUID) ([]WishlistEntry, error)
	Toggle(ctx context.Context, userID, productID uuid.UUID) (domain.ToggleResult, []WishlistEntry, error)
}

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
}

// NewWishlistService creates a new instance of WishlistService
func NewWishlistService(wishlistRepo repository.WishlistRepository, productRepo repository.ProductRepository) WishlistService {
	return &wishlistService{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
	}
}

// List retrieves the shopper's wishlist with product details
func (s *wishlistService) List(ctx context.Context, userID uuid.UUID) ([]WishlistEntry, error) {
	items, err := s.wishlistRepo.ListByUser(ctx, userID)
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

	entries := make([]WishlistEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, WishlistEntry{
			Item:    *item,
			Product: products[item.ProductID],
		})
	}

	return entries, nil
}

// Toggle flips a product's wishlist membership and reports which way it
// went. Removal-first keeps the flip symmetric: the delete's row count
// decides the branch, so two racing toggles for one product settle as one
// add and one remove, never a duplicate entry.
func (s *wishlistService) Toggle(ctx context.Context, userID, productID uuid.UUID) (domain.ToggleResult, []WishlistEntry, error) {
	removed, err := s.wishlistRepo.Remove(ctx, userID, productID)
	if err != nil {
		return "", nil, err
	}

	result := domain.ToggleRemoved
	if !removed {
		if err := s.wishlistRepo.Add(ctx, userID, productID); err != nil {
			return "", nil, err
		}
		result = domain.ToggleAdded
	}

	entries, err := s.List(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	return result, entries, nil
}
