package dto

import (
	"time"

	"github.com/hugh/campuschat/internal/api/validation"
	"github.com/hugh/campuschat/internal/database/models"
)

type SelectTenantRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (r SelectTenantRequest) Validate() map[string]string {
	errors := make(map[string]string)

	// Exactly one selector: an existing tenant by id, or a new one by name.
	if (r.TenantID == "") == (r.Name == "") {
		errors["tenant_id"] = "Provide exactly one of tenant_id or name"
		return errors
	}
	if r.TenantID != "" && !validation.IsValidUUID(r.TenantID) {
		errors["tenant_id"] = "Invalid tenant ID format"
	}

	return errors
}

type TenantDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"created_at"`
	DeletedAt *string `json:"deleted_at,omitempty"`
}

func TenantToDTO(t *models.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:        t.ID.String(),
		Name:      t.Name,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.DeletedAt != nil {
		s := t.DeletedAt.Format(time.RFC3339)
		dto.DeletedAt = &s
	}
	return dto
}

type TenantListResponse struct {
	Tenants []TenantDTO `json:"tenants"`
}

type InviteRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (r InviteRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email format"
	}
	if r.Role != "" && !models.ValidRole(r.Role) {
		errors["role"] = "Role must be one of student, faculty, admin"
	}

	return errors
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (r UpdateRoleRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	} else if !models.ValidRole(r.Role) {
		errors["role"] = "Role must be one of student, faculty, admin"
	}

	return errors
}

type MemberDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func MembershipToDTO(m *models.Membership) MemberDTO {
	dto := MemberDTO{
		ID:   m.UserID.String(),
		Role: m.Role,
	}
	if m.User != nil {
		dto.Username = m.User.Username
		dto.Email = m.User.Email
		dto.FirstName = m.User.FirstName
		dto.LastName = m.User.LastName
	}
	return dto
}

type MemberListResponse struct {
	ViewerRole string      `json:"viewer_role"`
	Tenant     TenantDTO   `json:"tenant"`
	Users      []MemberDTO `json:"users"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (r ChatRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Message == "" {
		errors["message"] = "Message is required"
	}

	return errors
}
