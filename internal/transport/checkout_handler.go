package transport

import (
	"errors"
	"net/http"

	"playtopia/internal/middleware"
	"playtopia/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateSessionRequest represents the payment session payload
type CreateSessionRequest struct {
	AddressID string `json:"address_id" validate:"required,uuid"`
}

// CreateSessionResponse carries the provider redirect target
type CreateSessionResponse struct {
	URL string `json:"url"`
}

// VerifySessionRequest represents the payment verification payload
type VerifySessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// CheckoutHandler handles HTTP requests for checkout and payment
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers checkout routes; the caller wraps them with auth
// and the active-account gate.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/checkout", h.GetCheckout)
	r.Post("/api/payment/create-checkout-session", h.CreateSession)
	r.Post("/api/payment/verify-session", h.VerifySession)
}

// GetCheckout returns the checkout view: cart, addresses, the preselected
// address, and any stock conflicts found by revalidation.
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.checkoutService.Enter(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build checkout view", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load checkout")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// CreateSession revalidates the cart and opens a payment session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSessionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create session validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid address ID")
		return
	}

	url, err := h.checkoutService.InitiatePayment(r.Context(), userID, addressID)
	if err != nil {
		var conflict *service.StockConflictError
		switch {
		case errors.As(err, &conflict):
			ids := make([]string, len(conflict.ProductIDs))
			for i, id := range conflict.ProductIDs {
				ids[i] = id.String()
			}
			middleware.RespondWithErrorDetails(w, http.StatusConflict, "cart does not match current stock", map[string]interface{}{
				"product_ids": ids,
			})
		case errors.Is(err, service.ErrNoAddress):
			middleware.RespondWithError(w, http.StatusBadRequest, "a shipping address is required")
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		default:
			h.logger.Error("Failed to create payment session", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create payment session")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CreateSessionResponse{URL: url})
}

// VerifySession confirms a returned payment session and returns the order.
// Safe to repeat: the same session reference always yields the same order.
func (h *CheckoutHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	var req VerifySessionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Verify session validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.checkoutService.VerifyPayment(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSessionRef):
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid payment session reference")
		case errors.Is(err, service.ErrVerificationInProgress):
			middleware.RespondWithError(w, http.StatusConflict, "payment verification already in progress")
		case errors.Is(err, service.ErrVerificationFailed):
			middleware.RespondWithError(w, http.StatusPaymentRequired, "payment verification failed")
		default:
			h.logger.Error("Failed to verify payment session", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to verify payment session")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
