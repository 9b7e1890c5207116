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

// AddressRequest represents the add-address payload
type AddressRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Mobile     string `json:"mobile" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
}

// AddressHandler handles HTTP requests for the shopper's address book
type AddressHandler struct {
	addressService service.AddressService
	logger         *zap.Logger
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addressService service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		logger:         logger,
	}
}

// RegisterRoutes registers address book routes; the caller wraps them with
// auth and the active-account gate.
func (h *AddressHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/addresses", func(r chi.Router) {
		r.Get("/", h.ListAddresses)
		r.Post("/", h.AddAddress)
		r.Delete("/{addressID}", h.RemoveAddress)
	})
}

// ListAddresses returns the shopper's address book, default first
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	addresses, err := h.addressService.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list addresses", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list addresses")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, addresses)
}

// AddAddress creates an address and returns the updated book
func (h *AddressHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Address validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addresses, err := h.addressService.Add(r.Context(), userID, service.AddressInput{
		FullName:   req.FullName,
		Mobile:     req.Mobile,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		if errors.Is(err, service.ErrAddressFieldsRequired) {
			middleware.RespondWithError(w, http.StatusBadRequest, "all address fields are required")
			return
		}
		h.logger.Error("Failed to add address", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, addresses)
}

// RemoveAddress deletes an address and returns the updated book
func (h *AddressHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	addressID, err := uuid.Parse(chi.URLParam(r, "addressID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid address ID")
		return
	}

	addresses, err := h.addressService.Remove(r.Context(), userID, addressID)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "address not found")
			return
		}
		h.logger.Error("Failed to remove address", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to remove address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, addresses)
}
