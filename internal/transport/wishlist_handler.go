package transport

import (
	"errors"
	"net/http"

	"playtopia/internal/middleware"
	"playtopia/internal/repository"
	"playtopia/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToggleWishlistRequest represents the wishlist toggle payload
type ToggleWishlistRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// ToggleWishlistResponse reports the toggle direction and the updated list
type ToggleWishlistResponse struct {
	Result string                  `json:"result"`
	Items  []service.WishlistEntry `json:"items"`
}

// WishlistHandler handles HTTP requests for the shopper's wishlist
type WishlistHandler struct {
	wishlistService service.WishlistService
	logger          *zap.Logger
}

// NewWishlistHandler creates a new WishlistHandler
func NewWishlistHandler(wishlistService service.WishlistService, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlistService: wishlistService,
		logger:          logger,
	}
}

// RegisterRoutes registers wishlist routes; the caller wraps them with auth
// and the active-account gate.
func (h *WishlistHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/wishlist", func(r chi.Router) {
		r.Get("/", h.GetWishlist)
		r.Post("/toggle", h.Toggle)
	})
}

// GetWishlist returns the shopper's wishlist with product details
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.wishlistService.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get wishlist", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get wishlist")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Toggle flips a product's wishlist membership and returns the updated list
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ToggleWishlistRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Wishlist toggle validation failed", zap.Error(err))

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

	result, items, err := h.wishlistService.Toggle(r.Context(), userID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to toggle wishlist item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to toggle wishlist item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ToggleWishlistResponse{
		Result: string(result),
		Items:  items,
	})
}
