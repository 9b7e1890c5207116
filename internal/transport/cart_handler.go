package transport

import (
	"context"
	"errors"
	"net/http"

	"playtopia/internal/domain"
	"playtopia/internal/middleware"
	"playtopia/internal/repository"
	"playtopia/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CartHandler handles HTTP requests for the shopper's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers cart routes; the caller wraps them with auth
// and the active-account gate.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Post("/items/{productID}/increase", h.IncreaseQty)
		r.Post("/items/{productID}/decrease", h.DecreaseQty)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

// GetCart returns the shopper's cart with its recomputed total
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.cartService.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem adds a quantity of a product to the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "failed to add item to cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// IncreaseQty grows a cart line by one
func (h *CartHandler) IncreaseQty(w http.ResponseWriter, r *http.Request) {
	h.adjustLine(w, r, h.cartService.IncreaseQty, "failed to increase quantity")
}

// DecreaseQty shrinks a cart line by one, never below one
func (h *CartHandler) DecreaseQty(w http.ResponseWriter, r *http.Request) {
	h.adjustLine(w, r, h.cartService.DecreaseQty, "failed to decrease quantity")
}

// RemoveItem deletes a cart line
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.adjustLine(w, r, h.cartService.RemoveItem, "failed to remove item")
}

func (h *CartHandler) adjustLine(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error),
	failMessage string,
) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	cart, err := op(r.Context(), userID, productID)
	if err != nil {
		h.respondCartError(w, err, failMessage)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error, failMessage string) {
	switch {
	case errors.Is(err, service.ErrStockExceeded):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity):
		middleware.RespondWithError(w, http.StatusBadRequest, "quantity must be greater than zero")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	default:
		h.logger.Error(failMessage, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, failMessage)
	}
}
