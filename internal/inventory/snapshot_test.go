package inventory

import (
	"context"
	"testing"

	"playtopia/internal/domain"
	"playtopia/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// stubProductRepo serves a fixed product set and counts repository reads so
// tests can tell cache hits from read-throughs.
type stubProductRepo struct {
	products map[uuid.UUID]*domain.Product
	reads    int
}

func newStubProductRepo(products ...*domain.Product) *stubProductRepo {
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &stubProductRepo{products: byID}
}

func (s *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	s.reads++
	product, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubProductRepo) Create(ctx context.Context, product *domain.Product) error { return nil }
func (s *stubProductRepo) Update(ctx context.Context, product *domain.Product) error { return nil }
func (s *stubProductRepo) Delete(ctx context.Context, id uuid.UUID) error            { return nil }

func (s *stubProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return nil, 0, nil
}

func (s *stubProductRepo) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return nil, 0, nil
}

func (s *stubProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return nil
}

func (s *stubProductRepo) Count(ctx context.Context) (int, error) { return len(s.products), nil }

func newSnapshotFixture(t *testing.T, products ...*domain.Product) (*Snapshot, *stubProductRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newStubProductRepo(products...)
	return NewSnapshot(client, repo, zap.NewNop()), repo, mr
}

func sampleProduct(price int64, stock int) *domain.Product {
	return &domain.Product{
		ID:       uuid.New(),
		Name:     "Dune Racer RC Buggy",
		Price:    price,
		Stock:    stock,
		Category: "rc-cars",
		Status:   domain.ProductStatusActive,
	}
}

func TestGetPrimesCacheOnMiss(t *testing.T) {
	product := sampleProduct(3499, 12)
	snapshot, repo, _ := newSnapshotFixture(t, product)
	ctx := context.Background()

	view, err := snapshot.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Price != 3499 || view.Stock != 12 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if repo.reads != 1 {
		t.Fatalf("expected one read-through, got %d", repo.reads)
	}

	// Second read is served from the cache.
	view, err = snapshot.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Price != 3499 || view.Stock != 12 {
		t.Fatalf("unexpected cached view: %+v", view)
	}
	if repo.reads != 1 {
		t.Fatalf("cached read must not touch the repository, got %d reads", repo.reads)
	}
}

func TestInvalidateEvicts(t *testing.T) {
	product := sampleProduct(3499, 12)
	snapshot, repo, _ := newSnapshotFixture(t, product)
	ctx := context.Background()

	if _, err := snapshot.Get(ctx, product.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	product.Stock = 3
	snapshot.Invalidate(ctx, product.ID)

	view, err := snapshot.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Stock != 3 {
		t.Fatalf("expected fresh stock after invalidation, got %d", view.Stock)
	}
	if repo.reads != 2 {
		t.Fatalf("expected a second read-through, got %d reads", repo.reads)
	}
}

func TestLiveBypassesCache(t *testing.T) {
	product := sampleProduct(3499, 12)
	snapshot, repo, _ := newSnapshotFixture(t, product)
	ctx := context.Background()

	if _, err := snapshot.Get(ctx, product.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	// Stock changes without an invalidation; Live still sees it.
	product.Stock = 1
	view, err := snapshot.Live(ctx, product.ID)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if view.Stock != 1 {
		t.Fatalf("live read must bypass the cache, got stock %d", view.Stock)
	}
	if repo.reads != 2 {
		t.Fatalf("expected two repository reads, got %d", repo.reads)
	}

	// Live also re-primed the cache with the fresh value.
	view, err = snapshot.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Stock != 1 || repo.reads != 2 {
		t.Fatalf("expected cached fresh value, got stock=%d reads=%d", view.Stock, repo.reads)
	}
}

func TestRedisDownFallsThrough(t *testing.T) {
	product := sampleProduct(3499, 12)
	snapshot, repo, mr := newSnapshotFixture(t, product)
	ctx := context.Background()

	mr.Close()

	view, err := snapshot.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get with redis down: %v", err)
	}
	if view.Price != 3499 || view.Stock != 12 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if repo.reads != 1 {
		t.Fatalf("expected a live read, got %d", repo.reads)
	}
}

func TestCorruptEntryIsDroppedAndReRead(t *testing.T) {
	product := sampleProduct(3499, 12)
	snapshot, repo, mr := newSnapshotFixture(t, product)
	ctx := context.Background()

	mr.HSet("inventory:"+product.ID.String(), "price", "not-a-number", "stock", "12")

	view, err := snapshot.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Price != 3499 {
		t.Fatalf("expected repository price, got %d", view.Price)
	}
	if repo.reads != 1 {
		t.Fatalf("corrupt entry must force a read-through, got %d reads", repo.reads)
	}
}

func TestUnknownProduct(t *testing.T) {
	snapshot, _, _ := newSnapshotFixture(t)

	if _, err := snapshot.Get(context.Background(), uuid.New()); err != repository.ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
