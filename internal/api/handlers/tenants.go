package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/campuschat/internal/api/dto"
	"github.com/hugh/campuschat/internal/api/middleware"
	"github.com/hugh/campuschat/internal/tenant"
)

type TenantHandler struct {
	tenants *tenant.Service
}

func NewTenantHandler(tenants *tenant.Service) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// List handles GET /api/v1/tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	tenants, err := h.tenants.ListForUser(r.Context(), userID)
	if err != nil {
		writeTenantError(w, err)
		return
	}

	out := make([]dto.TenantDTO, len(tenants))
	for i := range tenants {
		out[i] = dto.TenantToDTO(&tenants[i])
	}

	writeJSON(w, http.StatusOK, dto.TenantListResponse{Tenants: out})
}

// Select handles POST /api/v1/tenants/select
func (h *TenantHandler) Select(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req dto.SelectTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	input := tenant.SelectInput{Name: req.Name}
	if req.TenantID != "" {
		id, err := uuid.Parse(req.TenantID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid tenant ID"})
			return
		}
		input.TenantID = &id
	}

	t, err := h.tenants.Select(r.Context(), userID, input)
	if err != nil {
		writeTenantError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TenantToDTO(t))
}

// Delete handles DELETE /api/v1/tenants/{id}
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid tenant ID"})
		return
	}

	if err := h.tenants.Delete(r.Context(), userID, tenantID); err != nil {
		writeTenantError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Tenant deleted"})
}

// writeTenantError maps tenant service sentinels onto HTTP statuses.
func writeTenantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrTenantSelector),
		errors.Is(err, tenant.ErrInvalidRole):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, tenant.ErrCurrentTenantUnset),
		errors.Is(err, tenant.ErrMembershipNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, tenant.ErrNotAMember),
		errors.Is(err, tenant.ErrInsufficientRole),
		errors.Is(err, tenant.ErrNotCurrentTenant):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, tenant.ErrTenantDeleted),
		errors.Is(err, tenant.ErrAlreadyMember):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal error"})
	}
}
