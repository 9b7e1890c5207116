package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"playtopia/internal/domain"
	"playtopia/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	snapshotKeyPrefix = "inventory:"
	snapshotTTL       = 30 * time.Second
)

// View is the cached slice of a product a cart mutation needs to validate a
// quantity change: unit price and on-hand stock.
type View struct {
	ProductID uuid.UUID
	Price     int64
	Stock     int
}

// Snapshot is a redis read-through cache of {productID -> price, stock}.
// It is never a source of truth: a miss or a redis failure falls through to
// the product repository, and stock-affecting mutations must Invalidate so
// the next read observes live state. Checkout-path validation bypasses the
// cache entirely via Live.
type Snapshot struct {
	client   *redis.Client
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewSnapshot creates an inventory snapshot cache
func NewSnapshot(client *redis.Client, products repository.ProductRepository, logger *zap.Logger) *Snapshot {
	return &Snapshot{
		client:   client,
		products: products,
		logger:   logger,
	}
}

func snapshotKey(id uuid.UUID) string {
	return snapshotKeyPrefix + id.String()
}

// Get returns the cached view for a product, reading through to the
// repository on a miss. Returns repository.ErrProductNotFound for unknown
// products.
func (s *Snapshot) Get(ctx context.Context, productID uuid.UUID) (*View, error) {
	fields, err := s.client.HGetAll(ctx, snapshotKey(productID)).Result()
	if err == nil && len(fields) > 0 {
		view, parseErr := parseView(productID, fields)
		if parseErr == nil {
			return view, nil
		}
		// Unparseable entry: drop it and read through.
		s.client.Del(ctx, snapshotKey(productID))
	} else if err != nil {
		// Redis being down degrades to live reads, nothing more.
		s.logger.Warn("inventory snapshot read failed, falling through",
			zap.Error(err),
			zap.String("product_id", productID.String()),
		)
	}

	return s.readThrough(ctx, productID)
}

// Live fetches the authoritative product state, bypassing and re-priming the
// cache. Checkout re-validation uses this so a consistent inventory read is
// observed strictly before payment initiation.
func (s *Snapshot) Live(ctx context.Context, productID uuid.UUID) (*View, error) {
	return s.readThrough(ctx, productID)
}

func (s *Snapshot) readThrough(ctx context.Context, productID uuid.UUID) (*View, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.prime(ctx, product)

	return &View{ProductID: product.ID, Price: product.Price, Stock: product.Stock}, nil
}

func (s *Snapshot) prime(ctx context.Context, product *domain.Product) {
	key := snapshotKey(product.ID)
	err := s.client.HSet(ctx, key,
		"price", strconv.FormatInt(product.Price, 10),
		"stock", strconv.Itoa(product.Stock),
	).Err()
	if err != nil {
		s.logger.Warn("failed to prime inventory snapshot", zap.Error(err))
		return
	}
	s.client.Expire(ctx, key, snapshotTTL)
}

// Invalidate evicts cached views after a mutation that may have changed
// stock elsewhere (catalog writes, order creation).
func (s *Snapshot) Invalidate(ctx context.Context, productIDs ...uuid.UUID) {
	if len(productIDs) == 0 {
		return
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = snapshotKey(id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate inventory snapshot", zap.Error(err))
	}
}

func parseView(productID uuid.UUID, fields map[string]string) (*View, error) {
	priceStr, ok := fields["price"]
	if !ok {
		return nil, errors.New("missing price field")
	}
	stockStr, ok := fields["stock"]
	if !ok {
		return nil, errors.New("missing stock field")
	}

	price, err := strconv.ParseInt(priceStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad price field: %w", err)
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil {
		return nil, fmt.Errorf("bad stock field: %w", err)
	}

	return &View{ProductID: productID, Price: price, Stock: stock}, nil
}
