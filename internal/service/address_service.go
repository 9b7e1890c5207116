package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"playtopia/internal/domain"
	"playtopia/internal/repository"

	"github.com/google/uuid"
)

var ErrAddressFieldsRequired = errors.New("all address fields are required")

// AddressInput carries the fields for a new address
type AddressInput struct {
	FullName   string
	Mobile     string
	Street     string
	City       string
	State      string
	PostalCode string
}

func (in AddressInput) complete() bool {
	for _, field := range []string{in.FullName, in.Mobile, in.Street, in.City, in.State, in.PostalCode} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// AddressService maintains the shopper's address book
type AddressService interface {
	Add(ctx context.Context, userID uuid.UUID, input AddressInput) ([]*domain.Address, error)
	Remove(ctx context.Context, userID, addressID uuid.UUID) ([]*domain.Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
}

type addressService struct {
	addressRepo repository.AddressRepository
}

// NewAddressService creates a new instance of AddressService
func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressService{addressRepo: addressRepo}
}

// Add creates a new address. The first address in an empty book becomes the
// default automatically; later additions never steal the flag.
func (s *addressService) Add(ctx context.Context, userID uuid.UUID, input AddressInput) ([]*domain.Address, error) {
	if !input.complete() {
		return nil, ErrAddressFieldsRequired
	}

	count, err := s.addressRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	address := &domain.Address{
		ID:         uuid.New(),
		UserID:     userID,
		FullName:   input.FullName,
		Mobile:     input.Mobile,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		IsDefault:  count == 0,
		CreatedAt:  time.Now(),
	}

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, err
	}

	return s.addressRepo.ListByUser(ctx, userID)
}

// Remove deletes an address. Checkout selection falls back to the remaining
// default-or-first address on its next computation; nothing is cleared here.
func (s *addressService) Remove(ctx context.Context, userID, addressID uuid.UUID) ([]*domain.Address, error) {
	if err := s.addressRepo.Delete(ctx, userID, addressID); err != nil {
		return nil, err
	}

	return s.addressRepo.ListByUser(ctx, userID)
}

// List retrieves the shopper's addresses, default first
func (s *addressService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	return s.addressRepo.ListByUser(ctx, userID)
}
