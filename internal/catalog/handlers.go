package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/common"
	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service    *Service
	multiplier decimal.Decimal
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	// MRPMultiplier prices products without an MRP; zero uses the engine default.
	MRPMultiplier decimal.Decimal
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	m := cfg.MRPMultiplier
	if !m.IsPositive() {
		m = pricing.DefaultConfig().MRPFallbackMultiplier
	}
	return &Handler{service: cfg.Service, multiplier: m}
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 0)
	result, err := h.service.ListProducts(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, product)
}

// PricePreview handles GET /api/v1/products/{id}/price?qty=N.
func (h *Handler) PricePreview(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	qty := 1
	if raw := r.URL.Query().Get("qty"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be a positive integer", nil)
			return
		}
		qty = n
	}
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	preview, err := product.Preview(qty, h.multiplier)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PRICING", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, preview)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrInvalidProduct):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PRICING", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load catalog", nil)
	}
}
