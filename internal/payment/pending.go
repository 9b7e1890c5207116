package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix = "checkout:session:"
	verifyKeyPrefix  = "checkout:verify:"

	// A shopper may return from the provider arbitrarily later, so parked
	// checkouts do not expire; the provider decides session staleness.
	pendingTTL = 0

	verifyLockTTL = 2 * time.Minute
)

var ErrPendingNotFound = errors.New("pending checkout not found")

// PendingItem is one cart line frozen at session-creation time, carrying
// the price-at-purchase that the eventual order will record.
type PendingItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
}

// PendingCheckout is the transient checkout selection parked between
// session creation and verification: the chosen address plus the cart
// snapshot captured when checkout was initiated.
type PendingCheckout struct {
	UserID          uuid.UUID     `json:"user_id"`
	AddressID       uuid.UUID     `json:"address_id"`
	ShippingName    string        `json:"shipping_name"`
	ShippingMobile  string        `json:"shipping_mobile"`
	ShippingAddress string        `json:"shipping_address"`
	Items           []PendingItem `json:"items"`
	Total           int64         `json:"total"`
	CreatedAt       time.Time     `json:"created_at"`
}

// PendingStore parks pending checkouts and serializes verification attempts
// per session reference.
type PendingStore interface {
	Save(ctx context.Context, sessionRef string, pending *PendingCheckout) error
	Load(ctx context.Context, sessionRef string) (*PendingCheckout, error)
	Delete(ctx context.Context, sessionRef string) error

	// AcquireVerify returns false when another verification of the same
	// session reference is already in flight.
	AcquireVerify(ctx context.Context, sessionRef string) (bool, error)
	ReleaseVerify(ctx context.Context, sessionRef string) error
}

type redisPendingStore struct {
	client *redis.Client
}

// NewRedisPendingStore creates a redis-backed PendingStore
func NewRedisPendingStore(client *redis.Client) PendingStore {
	return &redisPendingStore{client: client}
}

func (s *redisPendingStore) Save(ctx context.Context, sessionRef string, pending *PendingCheckout) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending checkout: %w", err)
	}

	if err := s.client.Set(ctx, pendingKeyPrefix+sessionRef, data, pendingTTL).Err(); err != nil {
		return fmt.Errorf("failed to save pending checkout: %w", err)
	}

	return nil
}

func (s *redisPendingStore) Load(ctx context.Context, sessionRef string) (*PendingCheckout, error) {
	data, err := s.client.Get(ctx, pendingKeyPrefix+sessionRef).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to load pending checkout: %w", err)
	}

	pending := &PendingCheckout{}
	if err := json.Unmarshal(data, pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending checkout: %w", err)
	}

	return pending, nil
}

func (s *redisPendingStore) Delete(ctx context.Context, sessionRef string) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+sessionRef).Err(); err != nil {
		return fmt.Errorf("failed to delete pending checkout: %w", err)
	}
	return nil
}

func (s *redisPendingStore) AcquireVerify(ctx context.Context, sessionRef string) (bool, error) {
	ok, err := s.client.SetNX(ctx, verifyKeyPrefix+sessionRef, 1, verifyLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire verify lock: %w", err)
	}
	return ok, nil
}

func (s *redisPendingStore) ReleaseVerify(ctx context.Context, sessionRef string) error {
	if err := s.client.Del(ctx, verifyKeyPrefix+sessionRef).Err(); err != nil {
		return fmt.Errorf("failed to release verify lock: %w", err)
	}
	return nil
}
