package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-ayurmart/internal/catalog"
	"github.com/noah-isme/backend-ayurmart/internal/common"
	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

// Quoter prices a cart snapshot. It is satisfied by the checkout service.
type Quoter interface {
	QuoteCart(ctx context.Context, c Cart, mode pricing.BillingMode) (pricing.Breakdown, error)
}

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Quoter   Quoter
	Validate *validator.Validate
	Currency string
	Logger   zerolog.Logger
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

type updateItemRequest struct {
	Qty *int `json:"qty" validate:"required,min=0"`
}

// Create starts an empty cart for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	mode, ok := h.mode(w, r)
	if !ok {
		return
	}
	customerID, _ := common.CustomerID(r.Context())
	c, err := h.Svc.Create(r.Context(), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusCreated, c, mode)
}

// Get returns cart contents with a pricing preview. ?mode= selects the billing mode.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.mode(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, c, mode)
}

// AddItem adds or increments a cart line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.mode(w, r)
	if !ok {
		return
	}
	var payload addItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload.ProductID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, c, mode)
}

// UpdateItem sets a line quantity; zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.mode(w, r)
	if !ok {
		return
	}
	var payload updateItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.UpdateQty(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), *payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, c, mode)
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.mode(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, c, mode)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
			return false
		}
	}
	return true
}

// mode reads the ?mode= billing mode of the pricing preview. It runs before any
// mutation so a bad value leaves the cart untouched.
func (h *Handler) mode(w http.ResponseWriter, r *http.Request) (pricing.BillingMode, bool) {
	mode, err := pricing.ParseBillingMode(r.URL.Query().Get("mode"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return "", false
	}
	return mode, true
}

// respond renders the cart with its current pricing. A cart that cannot be priced is
// still returned, with the pricing error in place of the breakdown.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, c Cart, mode pricing.BillingMode) {
	data := map[string]any{
		"cart":     c,
		"currency": h.Currency,
	}
	if h.Quoter != nil {
		breakdown, err := h.Quoter.QuoteCart(r.Context(), c, mode)
		if err != nil {
			h.Logger.Debug().Err(err).Str("cart_id", c.ID).Msg("cart pricing unavailable")
			data["pricingError"] = err.Error()
		} else {
			data["pricing"] = breakdown
		}
	}
	common.Data(w, status, data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart or line not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, catalog.ErrInvalidProduct):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PRICING", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("cart request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process cart", nil)
	}
}
