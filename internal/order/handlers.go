package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-ayurmart/internal/common"
)

// Handler serves a customer's order history.
type Handler struct {
	Store Store
}

// customer resolves the caller from the session header, falling back to ?customerId=.
func customer(r *http.Request) string {
	if id, ok := common.CustomerID(r.Context()); ok {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("customerId"))
}

// List returns the caller's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	customerID := customer(r)
	if customerID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "customer id required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	orders, total, err := h.Store.ListByCustomer(r.Context(), customerID, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one of the caller's orders with its items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	customerID := customer(r)
	if customerID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "customer id required", nil)
		return
	}
	ord, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, ord)
}

// Cancel cancels one of the caller's orders that has not shipped yet.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	customerID := customer(r)
	if customerID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "customer id required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Store.Get(r.Context(), id, customerID); err != nil {
		writeError(w, err)
		return
	}
	ord, err := h.Store.UpdateStatus(r.Context(), id, StatusCanceled)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"id": ord.ID, "status": ord.Status})
}

// AdminHandler moves orders through fulfilment.
type AdminHandler struct {
	Store    Store
	Validate *validator.Validate
}

type patchStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PACKED SHIPPED DELIVERED CANCELED"`
}

// PatchStatus updates the order status with state-machine validation.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
			return
		}
	}
	target, ok := ParseStatus(req.Status)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	if _, err := h.Store.UpdateStatus(r.Context(), chi.URLParam(r, "id"), target); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "state transition not allowed", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
	}
}
