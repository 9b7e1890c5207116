package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"playtopia/internal/domain"
	"playtopia/internal/inventory"
	"playtopia/internal/payment"
	"playtopia/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository doubles for service tests. They mirror the SQL
// implementations' contracts: sentinel errors, idempotent deletes, and
// ordering guarantees.

type mockProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	order    []uuid.UUID
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	m.products[product.ID] = &copied
	m.order = append(m.order, product.ID)
	return nil
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[uuid.UUID]*domain.Product)
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			copied := *product
			result[id] = &copied
		}
	}
	return result, nil
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*domain.Product, 0, len(m.order))
	for _, id := range m.order {
		product := m.products[id]
		if filter.ActiveOnly && product.Status != domain.ProductStatusActive {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		copied := *product
		matched = append(matched, &copied)
	}
	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []*domain.Product{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *mockProductRepo) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	m.mu.Lock()
	matched := make([]*domain.Product, 0)
	for _, id := range m.order {
		product := m.products[id]
		if product.Status != domain.ProductStatusActive {
			continue
		}
		if strings.Contains(strings.ToLower(product.Name), strings.ToLower(query)) {
			copied := *product
			matched = append(matched, &copied)
		}
	}
	m.mu.Unlock()
	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []*domain.Product{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *mockProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok || product.Stock < qty {
		return repository.ErrInsufficientStock
	}
	product.Stock -= qty
	return nil
}

func (m *mockProductRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

// mockStock serves inventory views straight from the product double and
// records invalidations.
type mockStock struct {
	products    *mockProductRepo
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func newMockStock(products *mockProductRepo) *mockStock {
	return &mockStock{products: products}
}

func (m *mockStock) Get(ctx context.Context, productID uuid.UUID) (*inventory.View, error) {
	product, err := m.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &inventory.View{ProductID: product.ID, Price: product.Price, Stock: product.Stock}, nil
}

func (m *mockStock) Live(ctx context.Context, productID uuid.UUID) (*inventory.View, error) {
	return m.Get(ctx, productID)
}

func (m *mockStock) Invalidate(ctx context.Context, productIDs ...uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, productIDs...)
}

type mockCartRepo struct {
	mu    sync.Mutex
	items []*domain.CartItem
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{}
}

func (m *mockCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.CartItem, 0)
	for _, item := range m.items {
		if item.UserID == userID {
			copied := *item
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockCartRepo) FindLine(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) Upsert(ctx context.Context, item *domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			existing.UpdatedAt = item.UpdatedAt
			return nil
		}
	}
	copied := *item
	m.items = append(m.items, &copied)
	return nil
}

func (m *mockCartRepo) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity = qty
			return nil
		}
	}
	return nil
}

func (m *mockCartRepo) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, item := range m.items {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

type mockWishlistRepo struct {
	mu    sync.Mutex
	items []*domain.WishlistItem
}

func newMockWishlistRepo() *mockWishlistRepo {
	return &mockWishlistRepo{}
}

func (m *mockWishlistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.WishlistItem, 0)
	for _, item := range m.items {
		if item.UserID == userID {
			copied := *item
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockWishlistRepo) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockWishlistRepo) Add(ctx context.Context, userID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			return nil
		}
	}
	m.items = append(m.items, &domain.WishlistItem{
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockWishlistRepo) Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockAddressRepo struct {
	mu        sync.Mutex
	addresses []*domain.Address
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{}
}

func (m *mockAddressRepo) Create(ctx context.Context, address *domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *address
	m.addresses = append(m.addresses, &copied)
	return nil
}

func (m *mockAddressRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, address := range m.addresses {
		if address.UserID == userID && address.ID == id {
			m.addresses = append(m.addresses[:i], m.addresses[i+1:]...)
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (m *mockAddressRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, address := range m.addresses {
		if address.UserID == userID && address.ID == id {
			copied := *address
			return &copied, nil
		}
	}
	return nil, repository.ErrAddressNotFound
}

func (m *mockAddressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Address, 0)
	for _, address := range m.addresses {
		if address.UserID == userID {
			copied := *address
			result = append(result, &copied)
		}
	}
	// default first, then creation order, matching the SQL ordering
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].IsDefault && !result[j].IsDefault
	})
	return result, nil
}

func (m *mockAddressRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, address := range m.addresses {
		if address.UserID == userID {
			count++
		}
	}
	return count, nil
}

// mockOrderRepo reproduces the transactional shape of order creation:
// unique session refs, conditional stock decrements, cart clearing.
type mockOrderRepo struct {
	mu       sync.Mutex
	orders   []*domain.Order
	products *mockProductRepo
	carts    *mockCartRepo
}

func newMockOrderRepo(products *mockProductRepo, carts *mockCartRepo) *mockOrderRepo {
	return &mockOrderRepo{products: products, carts: carts}
}

func (m *mockOrderRepo) CreateFromCheckout(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	for _, existing := range m.orders {
		if existing.PaymentSessionRef == order.PaymentSessionRef {
			// Concurrent creator already recorded this reference.
			m.mu.Unlock()
			return nil
		}
	}
	copied := *order
	copied.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders = append(m.orders, &copied)
	m.mu.Unlock()

	for _, item := range order.Items {
		if err := m.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return m.carts.Clear(ctx, order.UserID)
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.ID == id {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) FindBySessionRef(ctx context.Context, sessionRef string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.PaymentSessionRef == sessionRef {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) ListAll(ctx context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		copied := *order
		result = append(result, &copied)
	}
	return result, nil
}

func (m *mockOrderRepo) SetFulfillmentStatus(ctx context.Context, id uuid.UUID, status domain.FulfillmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.ID == id {
			order.FulfillmentStatus = status
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepo) SetPaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.ID == id {
			order.PaymentStatus = status
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders), nil
}

func (m *mockOrderRepo) Revenue(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, order := range m.orders {
		if order.PaymentStatus == domain.PaymentPaid {
			total += order.Total
		}
	}
	return total, nil
}

// mockGateway is a scripted payment provider.
type mockGateway struct {
	mu          sync.Mutex
	nextRef     int
	paid        map[string]bool
	createErr   error
	verifyErr   error
	createCalls int
	verifyCalls int
	lastRequest payment.SessionRequest
}

func newMockGateway() *mockGateway {
	return &mockGateway{paid: make(map[string]bool)}
}

func (m *mockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.lastRequest = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextRef++
	ref := fmt.Sprintf("cs_test_%08d", m.nextRef)
	m.paid[ref] = true
	return &payment.Session{Ref: ref, RedirectURL: "https://pay.example.com/" + ref}, nil
}

func (m *mockGateway) VerifySession(ctx context.Context, sessionRef string) (*payment.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	paid, ok := m.paid[sessionRef]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	return &payment.Verification{Ref: sessionRef, Paid: paid}, nil
}

// mockPendingStore is an in-memory PendingStore with SetNX lock semantics.
type mockPendingStore struct {
	mu       sync.Mutex
	pendings map[string]*payment.PendingCheckout
	locks    map[string]bool
}

func newMockPendingStore() *mockPendingStore {
	return &mockPendingStore{
		pendings: make(map[string]*payment.PendingCheckout),
		locks:    make(map[string]bool),
	}
}

func (m *mockPendingStore) Save(ctx context.Context, sessionRef string, pending *payment.PendingCheckout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *pending
	m.pendings[sessionRef] = &copied
	return nil
}

func (m *mockPendingStore) Load(ctx context.Context, sessionRef string) (*payment.PendingCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, ok := m.pendings[sessionRef]
	if !ok {
		return nil, payment.ErrPendingNotFound
	}
	copied := *pending
	return &copied, nil
}

func (m *mockPendingStore) Delete(ctx context.Context, sessionRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pendings, sessionRef)
	return nil
}

func (m *mockPendingStore) AcquireVerify(ctx context.Context, sessionRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[sessionRef] {
		return false, nil
	}
	m.locks[sessionRef] = true
	return true, nil
}

func (m *mockPendingStore) ReleaseVerify(ctx context.Context, sessionRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, sessionRef)
	return nil
}

// mockUserRepo keeps accounts in memory, keyed by ID and email.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (m *mockUserRepo) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsBlocked = blocked
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

// mockTokenRepo stores refresh tokens in memory.
type mockTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockTokenRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *token
	m.tokens[token.Token] = &copied
	return nil
}

func (m *mockTokenRepo) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if stored.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	copied := *stored
	return &copied, nil
}

func (m *mockTokenRepo) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	stored.Revoked = true
	return nil
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}
