package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"playtopia/internal/domain"
	"playtopia/internal/repository"

	"github.com/google/uuid"
)

var ErrInvalidProduct = errors.New("invalid product")

const (
	defaultPageSize = 6
	maxPageSize     = 100
)

// ProductInput carries the fields for a product create or update
type ProductInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	ImageURL    string
	Stock       int
	Status      domain.ProductStatus
}

// ProductPage is one bounded page of the catalog
type ProductPage struct {
	Items      []*domain.Product `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalItems int               `json:"total_items"`
	TotalPages int               `json:"total_pages"`
}

// CatalogService is the product catalog surface: paged admin CRUD plus
// shop-facing reads.
type CatalogService interface {
	// ListPage returns a bounded page. Out-of-range page numbers are
	// clamped to the valid range, never an error.
	ListPage(ctx context.Context, filter repository.ProductFilter, page, pageSize int) (*ProductPage, error)
	Search(ctx context.Context, query string, page, pageSize int) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	stock       StockReader
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, stock StockReader) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		stock:       stock,
	}
}

func clampPageSize(pageSize int) int {
	if pageSize < 1 {
		return defaultPageSize
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}

func totalPages(totalItems, pageSize int) int {
	pages := (totalItems + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ListPage retrieves a clamped catalog page
func (s *catalogService) ListPage(ctx context.Context, filter repository.ProductFilter, page, pageSize int) (*ProductPage, error) {
	pageSize = clampPageSize(pageSize)
	if page < 1 {
		page = 1
	}

	items, total, err := s.productRepo.List(ctx, filter, page, pageSize, "created_at", repository.SortOrderDesc)
	if err != nil {
		return nil, err
	}

	pages := totalPages(total, pageSize)
	if page > pages {
		// Past the end: clamp back and serve the last page instead of
		// failing the request.
		page = pages
		items, total, err = s.productRepo.List(ctx, filter, page, pageSize, "created_at", repository.SortOrderDesc)
		if err != nil {
			return nil, err
		}
	}

	return &ProductPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: pages,
	}, nil
}

// Search retrieves a page of products matching the query
func (s *catalogService) Search(ctx context.Context, query string, page, pageSize int) (*ProductPage, error) {
	pageSize = clampPageSize(pageSize)
	if page < 1 {
		page = 1
	}

	items, total, err := s.productRepo.Search(ctx, query, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// GetProduct retrieves a single product
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func validateInput(input ProductInput, imageRequired bool) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(input.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	if input.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidProduct)
	}
	if input.Stock < 0 {
		return fmt.Errorf("%w: stock must be non-negative", ErrInvalidProduct)
	}
	if imageRequired && strings.TrimSpace(input.ImageURL) == "" {
		return fmt.Errorf("%w: image is required", ErrInvalidProduct)
	}
	if input.Status != "" && input.Status != domain.ProductStatusActive && input.Status != domain.ProductStatusInactive {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProduct, input.Status)
	}
	return nil
}

// Create adds a product to the catalog. An image is required on create.
func (s *catalogService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateInput(input, true); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.ProductStatusActive
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Stock:       input.Stock,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// Update modifies a product. The image is optional here: an empty image
// keeps the existing one. Cached inventory views are invalidated so cart
// validation observes the new price and stock.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateInput(input, false); err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	imageURL := input.ImageURL
	if strings.TrimSpace(imageURL) == "" {
		imageURL = existing.ImageURL
	}
	status := input.Status
	if status == "" {
		status = existing.Status
	}

	product := &domain.Product{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    imageURL,
		Stock:       input.Stock,
		Status:      status,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now(),
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.stock.Invalidate(ctx, id)

	return product, nil
}

// Delete removes a product. Carts and wishlists referencing it are not
// cascade-cleaned; readers render the dangling reference as unavailable.
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.stock.Invalidate(ctx, id)

	return nil
}
