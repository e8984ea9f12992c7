package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/campuschat/internal/api/dto"
	"github.com/hugh/campuschat/internal/api/middleware"
	"github.com/hugh/campuschat/internal/tenant"
)

type MemberHandler struct {
	tenants *tenant.Service
}

func NewMemberHandler(tenants *tenant.Service) *MemberHandler {
	return &MemberHandler{tenants: tenants}
}

// List handles GET /api/v1/tenant/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	list, err := h.tenants.ListMembers(r.Context(), userID)
	if err != nil {
		writeTenantError(w, err)
		return
	}

	users := make([]dto.MemberDTO, len(list.Members))
	for i := range list.Members {
		users[i] = dto.MembershipToDTO(&list.Members[i])
	}

	writeJSON(w, http.StatusOK, dto.MemberListResponse{
		ViewerRole: list.ViewerRole,
		Tenant:     dto.TenantToDTO(list.Tenant),
		Users:      users,
	})
}

// Invite handles POST /api/v1/tenant/members
func (h *MemberHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req dto.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	m, err := h.tenants.Invite(r.Context(), userID, tenant.InviteInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		writeTenantError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MembershipToDTO(m))
}

// UpdateRole handles PUT /api/v1/tenant/members/{id}/role
func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	var req dto.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	m, err := h.tenants.UpdateMemberRole(r.Context(), userID, targetID, req.Role)
	if err != nil {
		writeTenantError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MembershipToDTO(m))
}
