package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"playtopia/internal/domain"
	"playtopia/internal/repository"
	"playtopia/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stubCartService returns a scripted cart or error for every operation.
type stubCartService struct {
	cart domain.Cart
	err  error

	lastProductID uuid.UUID
	lastQty       int
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (domain.Cart, error) {
	s.lastProductID = productID
	s.lastQty = qty
	return s.cart, s.err
}

func (s *stubCartService) IncreaseQty(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	s.lastProductID = productID
	return s.cart, s.err
}

func (s *stubCartService) DecreaseQty(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	s.lastProductID = productID
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	s.lastProductID = productID
	return s.cart, s.err
}

func newCartRouter(stub *stubCartService) chi.Router {
	router := chi.NewRouter()
	NewCartHandler(stub, zap.NewNop()).RegisterRoutes(router)
	return router
}

func TestAddItemMapsStockCeiling(t *testing.T) {
	productID := uuid.New()
	stub := &stubCartService{
		err: fmt.Errorf("%w: product %s has 3 in stock", service.ErrStockExceeded, productID),
	}
	router := newCartRouter(stub)

	body, _ := json.Marshal(AddCartItemRequest{ProductID: productID.String(), Quantity: 5})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodPost, "/api/cart/items", body))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for stock ceiling, got %d", rec.Code)
	}
	if stub.lastProductID != productID || stub.lastQty != 5 {
		t.Fatalf("request not passed through: %s qty=%d", stub.lastProductID, stub.lastQty)
	}
}

func TestAddItemValidation(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing product", map[string]interface{}{"quantity": 1}},
		{"zero quantity", map[string]interface{}{"product_id": uuid.NewString(), "quantity": 0}},
		{"negative quantity", map[string]interface{}{"product_id": uuid.NewString(), "quantity": -2}},
		{"bad uuid", map[string]interface{}{"product_id": "garbage", "quantity": 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authenticatedRequest(http.MethodPost, "/api/cart/items", body))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestMutationsReturnUpdatedCart(t *testing.T) {
	productID := uuid.New()
	stub := &stubCartService{
		cart: domain.Cart{
			Lines: []domain.CartLine{{
				Item:    domain.CartItem{ProductID: productID, Quantity: 2},
				Product: &domain.Product{ID: productID, Name: "Dune Racer RC Buggy", Price: 3499},
			}},
			Total: 6998,
		},
	}
	router := newCartRouter(stub)

	targets := []struct {
		method string
		path   string
		body   []byte
	}{
		{http.MethodPost, "/api/cart/items/" + productID.String() + "/increase", nil},
		{http.MethodPost, "/api/cart/items/" + productID.String() + "/decrease", nil},
		{http.MethodDelete, "/api/cart/items/" + productID.String(), nil},
	}

	for _, target := range targets {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authenticatedRequest(target.method, target.path, target.body))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", target.method, target.path, rec.Code)
		}

		var cart domain.Cart
		if err := json.Unmarshal(rec.Body.Bytes(), &cart); err != nil {
			t.Fatalf("decode cart: %v", err)
		}
		if cart.Total != 6998 || len(cart.Lines) != 1 {
			t.Fatalf("expected the updated cart in the response, got %+v", cart)
		}
	}
}

func TestAdjustUnknownProduct(t *testing.T) {
	router := newCartRouter(&stubCartService{err: repository.ErrProductNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodPost, "/api/cart/items/"+uuid.NewString()+"/increase", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCartRequiresIdentity(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
