package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-ayurmart/internal/cart"
	"github.com/noah-isme/backend-ayurmart/internal/common"
	"github.com/noah-isme/backend-ayurmart/internal/pricing"
	"github.com/noah-isme/backend-ayurmart/internal/voucher"
)

// Handler exposes quote, voucher and checkout endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type quoteRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=mrp retail"`
}

type voucherRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type checkoutRequest struct {
	CartID string `json:"cartId" validate:"required"`
	Mode   string `json:"mode" validate:"omitempty,oneof=mrp retail"`
}

// Quote prices a cart. The body is optional.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload quoteRequest
	if r.ContentLength != 0 && !h.decode(w, r, &payload) {
		return
	}
	mode, err := pricing.ParseBillingMode(payload.Mode)
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	q, err := h.Svc.Quote(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	common.Data(w, http.StatusOK, q)
}

// ApplyVoucher attaches a voucher code to the cart.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	var payload voucherRequest
	if !h.decode(w, r, &payload) {
		return
	}
	q, err := h.Svc.ApplyVoucher(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	common.Data(w, http.StatusOK, q)
}

// RemoveVoucher detaches the cart's voucher.
func (h *Handler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.RemoveVoucher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	common.Data(w, http.StatusOK, q)
}

// Checkout places an order from a cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload checkoutRequest
	if !h.decode(w, r, &payload) {
		return
	}
	mode, err := pricing.ParseBillingMode(payload.Mode)
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	customerID, _ := common.CustomerID(r.Context())
	out, err := h.Svc.Place(r.Context(), PlaceInput{CartID: payload.CartID, CustomerID: customerID, Mode: mode})
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	common.Data(w, http.StatusCreated, out)
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

func toAppError(err error) *common.AppError {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, pricing.ErrRetailNotEligible):
		return common.NewAppError("RETAIL_NOT_ELIGIBLE", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, pricing.ErrInvalidBillingMode):
		return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrNegativePrice),
		errors.Is(err, pricing.ErrInvalidTierTable),
		errors.Is(err, pricing.ErrDuplicateProduct),
		errors.Is(err, pricing.ErrMissingProduct):
		return common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, cart.ErrNotFound):
		return common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
	case errors.Is(err, cart.ErrEmpty):
		return common.NewAppError("CART_EMPTY", "cart is empty", http.StatusUnprocessableEntity, err)
	case errors.Is(err, cart.ErrInvalidInput):
		return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, voucher.ErrNotFound):
		return common.NewAppError("VOUCHER_NOT_FOUND", "voucher not found", http.StatusNotFound, err)
	case isVoucherRejection(err):
		return common.NewAppError("VOUCHER_INVALID", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrCustomerRequired):
		return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, ErrForbidden):
		return common.NewAppError("FORBIDDEN", err.Error(), http.StatusForbidden, err)
	default:
		return common.NewAppError("INTERNAL", "unable to process checkout", http.StatusInternalServerError, err)
	}
}
